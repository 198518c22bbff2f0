package generate

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/gopsql/record"
)

// Field is one name:type argument of a generator.
type Field struct {
	Name string
	Type string
	// Reference is set for name:references fields. Name is then
	// "<reference>_id" and Type is integer.
	Reference string
}

// ParseFields parses name:type arguments. A "user:references" argument
// becomes a "user_id" integer field.
func ParseFields(args []string) ([]Field, error) {
	var fields []Field
	for _, arg := range args {
		f, err := parseField(arg)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(arg string) (Field, error) {
	name, typ, ok := strings.Cut(arg, ":")
	if !ok || name == "" || typ == "" {
		return Field{}, fmt.Errorf("%w %q, use name:type", ErrInvalidField, arg)
	}
	if typ == "references" {
		return Field{Name: name + "_id", Type: "integer", Reference: name}, nil
	}
	return Field{Name: name, Type: typ}, nil
}

// GoName is the struct field name of the column, "user_id" becomes "UserId".
func (f Field) GoName() string {
	return record.ToCamelCase(f.Name)
}

// GoType returns the Go type for the column type.
func (f Field) GoType() jen.Code {
	switch strings.ToLower(f.Type) {
	case "integer", "int":
		return jen.Int()
	case "biginteger", "bigint":
		return jen.Int64()
	case "float", "decimal":
		return jen.Float64()
	case "boolean", "bool":
		return jen.Bool()
	case "date", "datetime", "timestamp":
		return jen.Qual("time", "Time")
	default:
		return jen.String()
	}
}
