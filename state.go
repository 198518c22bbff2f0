package record

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	condition struct {
		key   string
		value interface{}
	}

	order struct {
		column    string
		direction string
	}

	// OwnerValue is a placeholder value produced by an association hop. It
	// stands for Column of the first row returned by the pending statement
	// at index Statement and is resolved when the chain is executed.
	OwnerValue struct {
		Statement int
		Table     string
		Column    string
	}

	writeKind int

	// write holds the changes of an INSERT or UPDATE.
	write struct {
		kind    writeKind
		changes []condition
		id      interface{}
	}

	// queryState accumulates the clauses of the statement that is currently
	// being built. It is reset whenever an association hop or a terminal
	// call finalizes the statement.
	queryState struct {
		conditions []condition
		joins      []string
		orderBy    []order
		groupBy    []string
		limit      int
		fields     []string
		aggregate  string
		deleteFlag bool
		deleteID   interface{}
		write      *write
		orFail     bool
		failID     interface{}
	}
)

const (
	writeInsert writeKind = iota + 1
	writeUpdate
)

func (v OwnerValue) String() string {
	return fmt.Sprintf("<%s.%s of statement #%d>", v.Table, v.Column, v.Statement)
}

func (s queryState) clone() queryState {
	n := s
	n.conditions = append([]condition(nil), s.conditions...)
	n.joins = append([]string(nil), s.joins...)
	n.orderBy = append([]order(nil), s.orderBy...)
	n.groupBy = append([]string(nil), s.groupBy...)
	n.fields = append([]string(nil), s.fields...)
	if s.write != nil {
		w := *s.write
		w.changes = append([]condition(nil), s.write.changes...)
		n.write = &w
	}
	return n
}

// setCondition adds a condition or overrides the value of an existing
// condition with the same key, keeping its position.
func (s *queryState) setCondition(key string, value interface{}) {
	for i := range s.conditions {
		if s.conditions[i].key == key {
			s.conditions[i].value = value
			return
		}
	}
	s.conditions = append(s.conditions, condition{key, value})
}

func (s *queryState) addGroupBy(columns ...string) {
outer:
	for _, column := range columns {
		for _, existing := range s.groupBy {
			if existing == column {
				continue outer
			}
		}
		s.groupBy = append(s.groupBy, column)
	}
}

func (s queryState) isAggregate() bool {
	return s.aggregate != ""
}

// where renders the WHERE clause starting at placeholder $start and returns
// the values to bind.
func (s queryState) where(start int) (string, []interface{}) {
	if len(s.conditions) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(s.conditions))
	values := make([]interface{}, 0, len(s.conditions))
	for _, c := range s.conditions {
		op, value := "=", c.value
		if str, ok := c.value.(string); ok {
			if o, v, ok := splitOperator(str); ok {
				op, value = o, v
			}
		}
		conds = append(conds, c.key+" "+op+" $"+strconv.Itoa(start+len(values)))
		values = append(values, value)
	}
	return " WHERE " + strings.Join(conds, " AND "), values
}
