package generate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dave/jennifer/jen"
	"github.com/gopsql/record"
)

// MigrationOptions configures Migration.
type MigrationOptions struct {
	// Name of the migration, like "addPublishedAtToPosts".
	Name string
	// Args are "table:<name>" and name:type arguments. For addIndex and
	// removeIndex migrations the first argument is the indexed column.
	Args []string

	Dir     string
	Package string

	Force bool
	Now   func() time.Time
}

type actionKind int

const (
	addColumn actionKind = iota
	removeColumn
	changeColumn
	addIndex
	removeIndex
)

type action struct {
	kind   actionKind
	column string
	typ    string
}

var tableNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:[Aa]dd|[Rr]emove|[Cc]hange).*(?:To|From)([A-Z]\w*)$`),
	regexp.MustCompile(`^(?:[Aa]dd|[Rr]emove|[Cc]hange)(\w+?)s?$`),
}

// InferTable returns the table a migration name refers to:
// "addPublishedAtToPosts" and "removeIndexFromBlogPosts" give "posts" and
// "blog_posts", "changeUsers" gives "users".
func InferTable(name string) string {
	for i, pattern := range tableNamePatterns {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		table := record.ToUnderscore(m[1])
		if i == 1 {
			table = record.ToPlural(table)
		}
		return table
	}
	return ""
}

// Migration writes a migration named opts.Name. The table comes from a
// "table:<name>" argument, the migration name, or a "<x>_id" column. Names
// starting with addIndex or removeIndex produce index changes; otherwise
// every name:type argument is added, removed or changed as the name says.
// It returns the path written.
func Migration(opts MigrationOptions) (string, error) {
	if opts.Name == "" {
		return "", fmt.Errorf("%w: migration name is empty", ErrInvalidName)
	}
	table := ""
	var args []string
	for _, arg := range opts.Args {
		if t, ok := strings.CutPrefix(arg, "table:"); ok {
			table = t
			continue
		}
		args = append(args, arg)
	}
	if table == "" {
		table = InferTable(opts.Name)
	}
	if table == "" {
		table = tableFromColumns(args)
	}
	if table == "" {
		return "", ErrNoTable
	}

	actions, err := migrationActions(opts.Name, args)
	if err != nil {
		return "", err
	}

	typeName := record.ToCamelCase(opts.Name)
	snake := record.ToUnderscore(typeName)
	ver := version(opts.Now, snake)
	path := filepath.Join(orDefault(opts.Dir, DefaultMigrationsDir), ver+".go")
	if err := checkWritable(path, opts.Force); err != nil {
		return "", err
	}

	f := jen.NewFile(orDefault(opts.Package, DefaultMigrationsPkg))
	registerMigration(f, ver, typeName)
	if reversible(actions) {
		f.Func().Params(jen.Id(typeName)).Id("Change").Params(schemaParam()).BlockFunc(func(g *jen.Group) {
			for _, a := range actions {
				g.Add(a.code(table))
			}
		})
	} else {
		f.Func().Params(jen.Id(typeName)).Id("Up").Params(schemaParam()).BlockFunc(func(g *jen.Group) {
			for _, a := range actions {
				g.Add(a.code(table))
			}
		})
		f.Func().Params(jen.Id(typeName)).Id("Down").Params(schemaParam()).BlockFunc(func(g *jen.Group) {
			for i := len(actions) - 1; i >= 0; i-- {
				g.Add(actions[i].reverse(table))
			}
		})
	}
	if err := writeFile(f, path); err != nil {
		return "", err
	}
	return path, nil
}

func migrationActions(name string, args []string) ([]action, error) {
	lower := strings.ToLower(name)
	var actions []action
	switch {
	case strings.HasPrefix(lower, "addindex"), strings.HasPrefix(lower, "removeindex"):
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: no column name provided for the index", ErrNoActions)
		}
		column, _, _ := strings.Cut(args[0], ":")
		kind := addIndex
		if strings.HasPrefix(lower, "removeindex") {
			kind = removeIndex
		}
		actions = append(actions, action{kind: kind, column: column})
	default:
		var kind actionKind
		switch {
		case strings.HasPrefix(lower, "add"):
			kind = addColumn
		case strings.HasPrefix(lower, "remove"):
			kind = removeColumn
		case strings.HasPrefix(lower, "change"):
			kind = changeColumn
		default:
			return nil, fmt.Errorf("%w: %q should start with add, remove or change", ErrNoActions, name)
		}
		for _, arg := range args {
			field, err := parseField(arg)
			if err != nil {
				continue
			}
			actions = append(actions, action{kind: kind, column: field.Name, typ: field.Type})
		}
	}
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	return actions, nil
}

// tableFromColumns guesses "posts" from a "post_id" column.
func tableFromColumns(args []string) string {
	for _, arg := range args {
		field, err := parseField(arg)
		if err != nil {
			continue
		}
		if base, ok := strings.CutSuffix(field.Name, "_id"); ok && base != "" {
			return record.ToPlural(base)
		}
	}
	return ""
}

func reversible(actions []action) bool {
	for _, a := range actions {
		if a.kind == removeColumn || a.kind == changeColumn {
			return false
		}
	}
	return true
}

func (a action) code(table string) jen.Code {
	s := jen.Id("s")
	switch a.kind {
	case addIndex:
		return s.Dot("AddIndex").Call(jen.Lit(table), jen.Lit(a.column))
	case removeIndex:
		return s.Dot("RemoveIndex").Call(jen.Lit(table), jen.Lit(a.column))
	case removeColumn:
		return s.Dot("RemoveColumn").Call(jen.Lit(table), jen.Lit(a.column))
	case changeColumn:
		return s.Dot("ChangeColumn").Call(jen.Lit(table), jen.Lit(a.column), jen.Lit(a.typ))
	default:
		return addColumnCode(table, a.column, a.typ)
	}
}

// reverse is the Down step of an Up/Down migration.
func (a action) reverse(table string) jen.Code {
	switch a.kind {
	case removeColumn:
		return addColumnCode(table, a.column, a.typ)
	case changeColumn:
		return jen.Comment(fmt.Sprintf("s.ChangeColumn(%q, %q, <previous type>)", table, a.column))
	case addIndex:
		return jen.Id("s").Dot("RemoveIndex").Call(jen.Lit(table), jen.Lit(a.column))
	case removeIndex:
		return jen.Id("s").Dot("AddIndex").Call(jen.Lit(table), jen.Lit(a.column))
	default:
		return jen.Id("s").Dot("RemoveColumn").Call(jen.Lit(table), jen.Lit(a.column))
	}
}

func addColumnCode(table, column, typ string) jen.Code {
	args := []jen.Code{jen.Lit(table), jen.Lit(column), jen.Lit(typ)}
	if strings.EqualFold(typ, "datetime") {
		args = append(args, jen.Qual(migratePkg, "DefaultExpr").Call(jen.Lit("CURRENT_TIMESTAMP")))
	}
	return jen.Id("s").Dot("AddColumn").Call(args...)
}
