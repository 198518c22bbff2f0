package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Direction tells a Schema whether operations are applied as written or
// reversed.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

var ErrIrreversible = errors.New("migrate: operation can not be reversed")

// IrreversibleError is recorded when a Change() migration uses an operation
// that has no automatic reverse. Write Up() and Down() instead.
type IrreversibleError struct {
	Operation string
	Table     string
	Column    string
}

func (e *IrreversibleError) Error() string {
	target := e.Table
	if e.Column != "" {
		target += "." + e.Column
	}
	return fmt.Sprintf("migrate: can not reverse %s(%s), define Up() and Down() explicitly", e.Operation, target)
}

func (e *IrreversibleError) Is(err error) bool {
	return err == ErrIrreversible
}

// Schema collects the statements of one migration. In the Down direction
// every operation is replaced by its reverse and the statements are returned
// in reverse order.
//
//	func (CreatePosts) Change(s *migrate.Schema) {
//		s.CreateTable("posts", func(t *migrate.Table) {
//			t.String("title", migrate.Null(false))
//			t.References("user")
//			t.Timestamps()
//		})
//		s.AddIndex("posts", "user_id")
//	}
type Schema struct {
	direction  Direction
	statements []string
	err        error
}

// NewSchema returns an empty Schema for the direction.
func NewSchema(direction Direction) *Schema {
	return &Schema{direction: direction}
}

func (s *Schema) Direction() Direction {
	return s.direction
}

// Statements returns the collected SQL in execution order.
func (s *Schema) Statements() []string {
	out := make([]string, len(s.statements))
	if s.direction == Down {
		for i, stmt := range s.statements {
			out[len(out)-1-i] = stmt
		}
		return out
	}
	copy(out, s.statements)
	return out
}

// Err returns the first error recorded by an operation.
func (s *Schema) Err() error {
	return s.err
}

func (s *Schema) add(stmt string) {
	if s.err == nil {
		s.statements = append(s.statements, stmt)
	}
}

func (s *Schema) irreversible(op, table, column string) {
	if s.err == nil {
		s.err = &IrreversibleError{Operation: op, Table: table, Column: column}
	}
}

// Execute adds raw SQL. It can not be reversed.
func (s *Schema) Execute(sql string) {
	if s.direction == Down {
		s.irreversible("Execute", "", "")
		return
	}
	s.add(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
}

// CreateTable creates a table with the columns defined by fn. An "id SERIAL
// PRIMARY KEY" column comes first unless fn defines an id column itself.
// Reversed, the table is dropped.
func (s *Schema) CreateTable(name string, fn func(*Table)) {
	if s.direction == Down {
		s.add("DROP TABLE IF EXISTS " + pq.QuoteIdentifier(name))
		return
	}
	t := &Table{name: name}
	if fn != nil {
		fn(t)
	}
	if t.err != nil {
		if s.err == nil {
			s.err = t.err
		}
		return
	}
	columns := t.columns
	if !t.hasID {
		columns = append([]string{pq.QuoteIdentifier("id") + " SERIAL PRIMARY KEY"}, columns...)
	}
	s.add("CREATE TABLE " + pq.QuoteIdentifier(name) + " (" + strings.Join(columns, ", ") + ")")
}

// DropTable drops a table. It can not be reversed.
func (s *Schema) DropTable(name string) {
	if s.direction == Down {
		s.irreversible("DropTable", name, "")
		return
	}
	s.add("DROP TABLE IF EXISTS " + pq.QuoteIdentifier(name))
}

// AddColumn adds a column. Type is one of the type names of ColumnType or
// raw SQL. Reversed, the column is dropped.
func (s *Schema) AddColumn(table, column, typ string, options ...Option) {
	if s.direction == Down {
		s.add(dropColumn(table, column))
		return
	}
	def, err := columnDefinition(column, typ, options)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return
	}
	s.add("ALTER TABLE " + pq.QuoteIdentifier(table) + " ADD COLUMN " + def)
}

// RemoveColumn drops a column. It can not be reversed.
func (s *Schema) RemoveColumn(table, column string) {
	if s.direction == Down {
		s.irreversible("RemoveColumn", table, column)
		return
	}
	s.add(dropColumn(table, column))
}

// ChangeColumn changes the type of a column, and its nullability or
// default when given. It can not be reversed.
func (s *Schema) ChangeColumn(table, column, typ string, options ...Option) {
	if s.direction == Down {
		s.irreversible("ChangeColumn", table, column)
		return
	}
	o := applyOptions(options)
	col := "ALTER COLUMN " + pq.QuoteIdentifier(column)
	parts := []string{col + " TYPE " + sqlType(typ, o)}
	if o.null != nil {
		if *o.null {
			parts = append(parts, col+" DROP NOT NULL")
		} else {
			parts = append(parts, col+" SET NOT NULL")
		}
	}
	if o.hasDefault {
		parts = append(parts, col+" SET DEFAULT "+o.defaultSQL())
	}
	s.add("ALTER TABLE " + pq.QuoteIdentifier(table) + " " + strings.Join(parts, ", "))
}

// AddIndex adds an index named idx_<table>_<column>. Reversed, the index is
// dropped.
func (s *Schema) AddIndex(table, column string, options ...Option) {
	if s.direction == Down {
		s.add(dropIndex(table, column))
		return
	}
	s.add(createIndex(table, column, applyOptions(options).unique))
}

// RemoveIndex drops the index added by AddIndex. Reversed, a non-unique
// index is created again.
func (s *Schema) RemoveIndex(table, column string) {
	if s.direction == Down {
		s.add(createIndex(table, column, false))
		return
	}
	s.add(dropIndex(table, column))
}

// IndexName is the name AddIndex gives to the index of column.
func IndexName(table, column string) string {
	return "idx_" + table + "_" + column
}

func createIndex(table, column string, unique bool) string {
	sql := "CREATE "
	if unique {
		sql += "UNIQUE "
	}
	return sql + "INDEX IF NOT EXISTS " + pq.QuoteIdentifier(IndexName(table, column)) +
		" ON " + pq.QuoteIdentifier(table) + " (" + pq.QuoteIdentifier(column) + ")"
}

func dropIndex(table, column string) string {
	return "DROP INDEX IF EXISTS " + pq.QuoteIdentifier(IndexName(table, column))
}

func dropColumn(table, column string) string {
	return "ALTER TABLE " + pq.QuoteIdentifier(table) + " DROP COLUMN IF EXISTS " + pq.QuoteIdentifier(column)
}
