package record

import (
	"strconv"
	"strings"
)

// Statement is one rendered SQL statement of a chain. SQL is the complete
// text; for transactional statements it is wrapped in "BEGIN; ...; COMMIT;".
// Args may contain OwnerValue placeholders that are resolved from the rows
// of an earlier statement when the chain is executed.
type Statement struct {
	SQL  string
	Args []interface{}

	body          string
	transactional bool
	table         string
	conditions    []condition
	orFail        bool
	failID        interface{}
}

// Transactional reports whether the statement runs inside its own
// transaction.
func (s Statement) Transactional() bool {
	return s.transactional
}

// Body returns the statement without the surrounding BEGIN and COMMIT.
func (s Statement) Body() string {
	return s.body
}

func (s Statement) String() string {
	return s.SQL
}

// lookup returns the value a literal equality condition of the statement
// gives to column, so bindings to it can be inlined.
func (s Statement) lookup(column string) (interface{}, bool) {
	keys := []string{quoteColumn(s.table, column), s.table + "." + column, column}
	for _, c := range s.conditions {
		for _, key := range keys {
			if c.key != key {
				continue
			}
			if str, ok := c.value.(string); ok {
				if _, _, isOp := splitOperator(str); isOp {
					return nil, false
				}
			}
			return c.value, true
		}
	}
	return nil, false
}

// render builds the statement for the current state of the query.
func (q *Query) render() Statement {
	table := q.current.tableName
	s := q.state
	st := Statement{
		table:      table,
		conditions: append([]condition(nil), s.conditions...),
		orFail:     s.orFail,
		failID:     s.failID,
	}
	switch {
	case s.deleteFlag:
		st.body = "DELETE FROM " + quoteIdent(table) + " WHERE id = $1"
		st.Args = []interface{}{s.deleteID}
		st.transactional = true
	case s.write != nil && s.write.kind == writeInsert:
		st.body, st.Args = renderInsert(table, s.write.changes)
		st.transactional = true
	case s.write != nil && s.write.kind == writeUpdate:
		st.body, st.Args = renderUpdate(table, s.write.changes, s.write.id)
		st.transactional = true
	default:
		st.body, st.Args = q.renderSelect()
	}
	if st.transactional {
		st.SQL = "BEGIN; " + st.body + "; COMMIT;"
	} else {
		st.SQL = st.body
	}
	return st
}

func (q *Query) renderSelect() (string, []interface{}) {
	table := q.current.tableName
	s := q.state
	var fields []string
	switch {
	case s.isAggregate():
		fields = []string{s.aggregate}
	case len(s.fields) == 0:
		fields = []string{qualify(table, "*")}
	default:
		for _, f := range s.fields {
			fields = append(fields, qualify(table, f))
		}
	}
	sql := "SELECT " + strings.Join(fields, ", ") + " FROM " + table
	for _, join := range s.joins {
		sql += " " + join
	}
	where, values := s.where(1)
	sql += where
	if len(s.groupBy) > 0 {
		groups := make([]string, len(s.groupBy))
		for i, g := range s.groupBy {
			groups[i] = qualify(table, g)
		}
		sql += " GROUP BY " + strings.Join(groups, ", ")
	}
	if len(s.orderBy) > 0 {
		orders := make([]string, len(s.orderBy))
		for i, o := range s.orderBy {
			orders[i] = qualify(table, o.column) + " " + o.direction
		}
		sql += " ORDER BY " + strings.Join(orders, ", ")
	}
	if s.limit > 0 {
		sql += " LIMIT " + strconv.Itoa(s.limit)
	}
	return sql, values
}

func renderInsert(table string, changes []condition) (string, []interface{}) {
	columns := make([]string, len(changes))
	numbers := make([]string, len(changes))
	values := make([]interface{}, len(changes))
	for i, c := range changes {
		columns[i] = quoteIdent(c.key)
		numbers[i] = "$" + strconv.Itoa(i+1)
		values[i] = c.value
	}
	sql := "INSERT INTO " + quoteIdent(table) + " (" + strings.Join(columns, ", ") +
		") VALUES (" + strings.Join(numbers, ", ") + `) RETURNING "id"`
	return sql, values
}

func renderUpdate(table string, changes []condition, id interface{}) (string, []interface{}) {
	fields := make([]string, len(changes))
	values := make([]interface{}, 0, len(changes)+1)
	for i, c := range changes {
		values = append(values, c.value)
		fields[i] = quoteIdent(c.key) + " = $" + strconv.Itoa(len(values))
	}
	values = append(values, id)
	sql := "UPDATE " + quoteIdent(table) + " SET " + strings.Join(fields, ", ") +
		" WHERE " + quoteColumn(table, "id") + " = $" + strconv.Itoa(len(values))
	return sql, values
}

// String returns the SQL of the statement currently being built. Pending
// statements of earlier association hops are not included, see ToSQL().
func (q *Query) String() string {
	if q.err != nil {
		return ""
	}
	return q.render().SQL
}

// StringValues is like String but also returns the values to bind.
func (q *Query) StringValues() (string, []interface{}) {
	if q.err != nil {
		return "", nil
	}
	st := q.render()
	return st.SQL, st.Args
}

// ToSQL finalizes the chain and returns every statement in execution order:
// the statements closed by association hops followed by the current one.
// The chain error, if any, is returned instead.
func (q *Query) ToSQL() ([]Statement, error) {
	if q.err != nil {
		return nil, q.err
	}
	out := make([]Statement, 0, len(q.pending)+1)
	out = append(out, q.pending...)
	out = append(out, q.render())
	return out, nil
}
