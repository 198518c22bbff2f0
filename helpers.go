package record

import (
	"reflect"
	"strings"
)

var operators = []string{"<=", ">=", "!=", "<", ">", "="}

// Conditions maps column expressions to values. A string value of the form
// "<op> <value>", where op is one of < > <= >= = !=, is rendered with that
// operator instead of "=".
type Conditions map[string]interface{}

func isInteger(v interface{}) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func toInt(v interface{}) (int, bool) {
	if !isInteger(v) {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	}
	return int(rv.Int()), true
}

func isPlainObject(v interface{}) bool {
	rt := reflect.TypeOf(v)
	return rt != nil && rt.Kind() == reflect.Map && rt.Key().Kind() == reflect.String
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func containsOperator(str string) bool {
	for _, op := range operators {
		if str == op {
			return true
		}
	}
	return false
}

// splitOperator splits "<op> <value>" into its operator and value.
func splitOperator(str string) (op, value string, ok bool) {
	str = strings.TrimSpace(str)
	idx := strings.IndexAny(str, " \t")
	if idx == -1 {
		return
	}
	op = str[:idx]
	if !containsOperator(op) {
		return "", "", false
	}
	return op, strings.TrimSpace(str[idx:]), true
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteColumn returns "table"."column".
func quoteColumn(table, column string) string {
	return quoteIdent(table) + "." + quoteIdent(column)
}

// qualify renders a select, order or group column. Expressions that already
// reference a table or call a function are kept verbatim.
func qualify(table, field string) string {
	if field == "*" {
		return quoteIdent(table) + ".*"
	}
	if strings.ContainsAny(field, `."( `) {
		return field
	}
	return quoteColumn(table, field)
}
