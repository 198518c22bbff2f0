package migrate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

type (
	// Option changes a column or index definition.
	Option func(*options)

	options struct {
		null       *bool
		hasDefault bool
		defaultVal interface{}
		rawDefault bool
		unique     bool
		precision  int
		scale      int
	}

	// Table collects the columns of CreateTable.
	Table struct {
		name    string
		columns []string
		hasID   bool
		err     error
	}
)

// Null(false) adds NOT NULL. With ChangeColumn, Null(true) drops it.
func Null(null bool) Option {
	return func(o *options) { o.null = &null }
}

// Default sets a literal default value. Strings are quoted.
func Default(value interface{}) Option {
	return func(o *options) {
		o.hasDefault = true
		o.defaultVal = value
		o.rawDefault = false
	}
}

// DefaultExpr sets a default SQL expression, like CURRENT_TIMESTAMP.
func DefaultExpr(expr string) Option {
	return func(o *options) {
		o.hasDefault = true
		o.defaultVal = expr
		o.rawDefault = true
	}
}

// Unique makes a column or an index unique.
func Unique() Option {
	return func(o *options) { o.unique = true }
}

// Precision sets the precision of a decimal column.
func Precision(precision int) Option {
	return func(o *options) { o.precision = precision }
}

// Scale sets the scale of a decimal column.
func Scale(scale int) Option {
	return func(o *options) { o.scale = scale }
}

func applyOptions(opts []Option) *options {
	o := &options{precision: 10, scale: 2}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) defaultSQL() string {
	if o.rawDefault {
		return fmt.Sprint(o.defaultVal)
	}
	switch v := o.defaultVal.(type) {
	case nil:
		return "NULL"
	case string:
		return pq.QuoteLiteral(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return pq.QuoteLiteral(v.UTC().Format(time.RFC3339Nano))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v)
	default:
		return pq.QuoteLiteral(fmt.Sprint(v))
	}
}

var columnTypes = map[string]string{
	"string":     "VARCHAR(255)",
	"text":       "TEXT",
	"integer":    "INTEGER",
	"int":        "INTEGER",
	"biginteger": "BIGINT",
	"bigint":     "BIGINT",
	"float":      "REAL",
	"json":       "JSON",
	"jsonb":      "JSONB",
	"boolean":    "BOOLEAN",
	"bool":       "BOOLEAN",
	"date":       "DATE",
	"datetime":   "TIMESTAMP",
	"timestamp":  "TIMESTAMP",
	"uuid":       "UUID",
}

// ColumnType maps a type name (string, text, integer, bigInteger, float,
// decimal, json, jsonb, boolean, date, datetime, timestamp, uuid) to its SQL
// type. Other names are returned unchanged as raw SQL types.
func ColumnType(name string) string {
	return sqlType(name, nil)
}

func sqlType(name string, o *options) string {
	key := strings.ToLower(name)
	if key == "decimal" {
		if o == nil {
			o = applyOptions(nil)
		}
		return "DECIMAL(" + strconv.Itoa(o.precision) + ", " + strconv.Itoa(o.scale) + ")"
	}
	if t, ok := columnTypes[key]; ok {
		return t
	}
	return name
}

// IsColumnType reports whether name is one of the type names of ColumnType.
func IsColumnType(name string) bool {
	key := strings.ToLower(name)
	_, ok := columnTypes[key]
	return ok || key == "decimal"
}

func columnDefinition(name, typ string, opts []Option) (string, error) {
	if name == "" {
		return "", fmt.Errorf("migrate: column name is empty")
	}
	if typ == "" {
		return "", fmt.Errorf("migrate: column %q has no type", name)
	}
	o := applyOptions(opts)
	def := pq.QuoteIdentifier(name) + " " + sqlType(typ, o)
	if o.null != nil && !*o.null {
		def += " NOT NULL"
	}
	if o.hasDefault {
		def += " DEFAULT " + o.defaultSQL()
	}
	if o.unique {
		def += " UNIQUE"
	}
	return def, nil
}

// Column adds a column of any type.
func (t *Table) Column(name, typ string, opts ...Option) {
	def, err := columnDefinition(name, typ, opts)
	if err != nil {
		if t.err == nil {
			t.err = err
		}
		return
	}
	if name == "id" {
		t.hasID = true
	}
	t.columns = append(t.columns, def)
}

func (t *Table) String(name string, opts ...Option)     { t.Column(name, "string", opts...) }
func (t *Table) Text(name string, opts ...Option)       { t.Column(name, "text", opts...) }
func (t *Table) Integer(name string, opts ...Option)    { t.Column(name, "integer", opts...) }
func (t *Table) BigInteger(name string, opts ...Option) { t.Column(name, "bigInteger", opts...) }
func (t *Table) Float(name string, opts ...Option)      { t.Column(name, "float", opts...) }
func (t *Table) Decimal(name string, opts ...Option)    { t.Column(name, "decimal", opts...) }
func (t *Table) JSON(name string, opts ...Option)       { t.Column(name, "json", opts...) }
func (t *Table) JSONB(name string, opts ...Option)      { t.Column(name, "jsonb", opts...) }
func (t *Table) Boolean(name string, opts ...Option)    { t.Column(name, "boolean", opts...) }
func (t *Table) Date(name string, opts ...Option)       { t.Column(name, "date", opts...) }
func (t *Table) Timestamp(name string, opts ...Option)  { t.Column(name, "timestamp", opts...) }
func (t *Table) UUID(name string, opts ...Option)       { t.Column(name, "uuid", opts...) }

// References adds a not null "<name>_id" integer column.
func (t *Table) References(name string, opts ...Option) {
	t.Column(name+"_id", "integer", append([]Option{Null(false)}, opts...)...)
}

// Timestamps adds created_at and updated_at, both defaulting to the current
// time.
func (t *Table) Timestamps() {
	t.Timestamp("created_at", Null(false), DefaultExpr("CURRENT_TIMESTAMP"))
	t.Timestamp("updated_at", Null(false), DefaultExpr("CURRENT_TIMESTAMP"))
}
