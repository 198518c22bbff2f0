package record

import (
	"reflect"
	"unicode"

	"github.com/go-openapi/inflect"
)

var (
	// DefaultTableNamer converts a struct name into a table name when the
	// struct has neither a TableName() method nor a __TABLE_NAME__ field.
	// Default is ToPluralUnderscore ("PostComment" becomes "post_comments").
	DefaultTableNamer func(string) string = ToPluralUnderscore
)

const (
	tableNameField = "__TABLE_NAME__"
)

// ToTableName returns table name of a struct. If struct has "TableName()
// string" receiver method, its return value is used. If name is empty and
// struct has a __TABLE_NAME__ field, its tag value is used. If it is still
// empty, struct's name is used. If name is still empty, "error_no_table_name"
// is returned.
func ToTableName(object interface{}) (name string) {
	if o, ok := object.(interface{ TableName() string }); ok {
		name = o.TableName()
		if name != "" {
			return
		}
	}
	rt := reflect.TypeOf(object)
	if rt == nil {
		return "error_no_table_name"
	}
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() == reflect.Struct {
		if f, ok := rt.FieldByName(tableNameField); ok {
			name = string(f.Tag)
			if name != "" {
				return
			}
		}
		name = rt.Name()
		if DefaultTableNamer != nil && name != "" {
			name = DefaultTableNamer(name)
		}
	}
	if name == "" { // anonymous struct has no name
		return "error_no_table_name"
	}
	return
}

// Convert a word to its plural form, "category" becomes "categories".
func ToPlural(in string) string {
	if in == "" {
		return ""
	}
	return inflect.Pluralize(in)
}

// Convert a word to its singular form, "comments" becomes "comment".
func ToSingular(in string) string {
	if in == "" {
		return ""
	}
	return inflect.Singularize(in)
}

// Convert a "snake_case" or "camelCase" word to its "CamelCase" form. For
// example, "user_id" will be converted to "UserId".
func ToCamelCase(in string) string {
	return inflect.Camelize(in)
}

// Convert a "CamelCase" word to its plural "snake_case" (underscore) form.
// For example, "PostComment" will be converted to "post_comments".
func ToPluralUnderscore(in string) string {
	return ToPlural(ToUnderscore(in))
}

// Convert "CamelCase" word to its "snake_case" (underscore) form. For example,
// "FullName" will be converted to "full_name".
func ToUnderscore(str string) string { // from govalidator
	var output []rune
	var segment []rune
	for _, r := range str {
		// not treat number as separate segment
		if !unicode.IsLower(r) && string(r) != "_" && !unicode.IsNumber(r) {
			output = addSegment(output, segment)
			segment = nil
		}
		segment = append(segment, unicode.ToLower(r))
	}
	output = addSegment(output, segment)
	return string(output)
}

func addSegment(inrune, segment []rune) []rune { // from govalidator
	if len(segment) == 0 {
		return inrune
	}
	if len(inrune) != 0 {
		inrune = append(inrune, '_')
	}
	inrune = append(inrune, segment...)
	return inrune
}
