package generate

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dave/jennifer/jen"
	"github.com/gopsql/record"
)

// ModelOptions configures Model.
type ModelOptions struct {
	// Name of the model struct, like "Post".
	Name string
	// Table defaults to the plural snake case of Name.
	Table  string
	Fields []Field

	Dir               string
	Package           string
	MigrationsDir     string
	MigrationsPackage string

	// Force overwrites existing files.
	Force bool
	// Now is used for the migration version; defaults to time.Now.
	Now func() time.Time
}

// Model writes the model struct of opts.Name with TableName, Relations,
// Validations and Callbacks methods, and a Create<Table>Table migration
// creating its table. It returns the paths written.
func Model(opts ModelOptions) ([]string, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: model name is empty", ErrInvalidName)
	}
	name := record.ToCamelCase(opts.Name)
	table := opts.Table
	if table == "" {
		table = record.ToPluralUnderscore(name)
	}

	modelPath := filepath.Join(orDefault(opts.Dir, DefaultModelsDir), record.ToUnderscore(name)+".go")
	if err := checkWritable(modelPath, opts.Force); err != nil {
		return nil, err
	}

	migration := record.ToCamelCase("create_" + table + "_table")
	snake := record.ToUnderscore(migration)
	migrationPath := filepath.Join(orDefault(opts.MigrationsDir, DefaultMigrationsDir), version(opts.Now, snake)+".go")
	if err := checkWritable(migrationPath, opts.Force); err != nil {
		return nil, err
	}

	if err := writeFile(modelFile(opts, name, table), modelPath); err != nil {
		return nil, err
	}

	f := jen.NewFile(orDefault(opts.MigrationsPackage, DefaultMigrationsPkg))
	registerMigration(f, version(opts.Now, snake), migration)
	f.Func().Params(jen.Id(migration)).Id("Change").Params(schemaParam()).Block(
		jen.Id("s").Dot("CreateTable").Call(
			jen.Lit(table),
			jen.Func().Params(jen.Id("t").Op("*").Qual(migratePkg, "Table")).BlockFunc(func(g *jen.Group) {
				for _, field := range opts.Fields {
					if field.Name == "id" {
						continue
					}
					g.Id("t").Dot("Column").Call(
						jen.Lit(field.Name),
						jen.Lit(field.Type),
						jen.Qual(migratePkg, "Null").Call(jen.False()),
					)
				}
			}),
		),
	)
	if err := writeFile(f, migrationPath); err != nil {
		return nil, err
	}
	return []string{modelPath, migrationPath}, nil
}

func modelFile(opts ModelOptions, name, table string) *jen.File {
	f := jen.NewFile(orDefault(opts.Package, DefaultModelsPackage))
	f.ImportName(recordPkg, "record")

	f.Type().Id(name).StructFunc(func(g *jen.Group) {
		g.Id("Id").Int()
		for _, field := range opts.Fields {
			if field.Name == "id" {
				continue
			}
			g.Id(field.GoName()).Add(field.GoType())
		}
	})

	f.Func().Params(jen.Id(name)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(table)),
	)

	f.Comment("Relations declares the associations of " + name + ".")
	f.Func().Params(jen.Id(name)).Id("Relations").Params(modelParam()).Error().BlockFunc(func(g *jen.Group) {
		for _, field := range opts.Fields {
			if field.Reference != "" {
				g.Comment(fmt.Sprintf("m.BelongsTo(%q, %s, %q)", field.Reference,
					record.ToCamelCase(record.ToPlural(field.Reference)), field.Name))
			}
		}
		g.Return(jen.Nil())
	})

	f.Comment("Validations declares the validations of " + name + ".")
	f.Func().Params(jen.Id(name)).Id("Validations").Params(modelParam()).Block()

	f.Comment("Callbacks declares the callbacks of " + name + ".")
	f.Func().Params(jen.Id(name)).Id("Callbacks").Params(modelParam()).Block()
	return f
}

func modelParam() jen.Code {
	return jen.Id("m").Op("*").Qual(recordPkg, "Model")
}

func schemaParam() jen.Code {
	return jen.Id("s").Op("*").Qual(migratePkg, "Schema")
}

func registerMigration(f *jen.File, version, typeName string) {
	f.ImportName(migratePkg, "migrate")
	f.Func().Id("init").Params().Block(
		jen.Qual(migratePkg, "MustRegister").Call(jen.Lit(version), jen.Id(typeName).Values()),
	)
	f.Type().Id(typeName).Struct()
}
