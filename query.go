package record

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

type hopState int

const (
	hopFresh hopState = iota
	hopSingle
	hopMulti
)

func (h hopState) String() string {
	switch h {
	case hopSingle:
		return "single-hop"
	case hopMulti:
		return "multi-hop"
	}
	return "fresh"
}

// Query is a chainable statement builder created by the query methods of a
// Model. Every chain method returns an updated copy, so a prefix of a chain
// can be reused without affecting the other branches:
//
//	published := posts.Where("published", true)
//	recent := published.Limit(10)
//	count := published.Count()
//
// The first error of a chain is kept and every later call is a no-op. The
// error is returned by Err(), ToSQL() and the execution methods.
type Query struct {
	model      *Model
	current    *Model
	reference  *Model
	cursor     string
	hop        hopState
	state      queryState
	pending    []Statement
	collection bool
	err        error
}

func newQuery(m *Model, collection bool) *Query {
	q := &Query{
		model:      m,
		current:    m,
		collection: collection,
	}
	q.err = m.seal()
	return q
}

func (q *Query) clone() *Query {
	n := *q
	n.state = q.state.clone()
	n.pending = append([]Statement(nil), q.pending...)
	return &n
}

// next applies fn on a copy of the query. Nothing happens if the chain has
// already failed.
func (q *Query) next(fn func(*Query) error) *Query {
	if q.err != nil {
		return q
	}
	n := q.clone()
	if err := fn(n); err != nil {
		n.err = err
	}
	return n
}

// Err returns the first error of the chain.
func (q *Query) Err() error {
	return q.err
}

// Model returns the model the query currently targets. It changes on
// association hops.
func (q *Query) Model() *Model {
	return q.current
}

// IsCollection reports whether the query yields many records.
func (q *Query) IsCollection() bool {
	return q.collection
}

func (q *Query) mode() string {
	if q.collection {
		return "a collection of " + q.current.tableName
	}
	return "an instance of " + q.current.tableName
}

func (q *Query) mustBeCollection(method string) error {
	if !q.collection {
		return &InvalidOperationError{Method: method, Mode: q.mode()}
	}
	return nil
}

func (q *Query) mustBeInstance(method string) error {
	if q.collection {
		return &InvalidOperationError{Method: method, Mode: q.mode()}
	}
	return nil
}

// finalize closes the statement being built and starts an empty one for the
// same model.
func (q *Query) finalize() {
	q.pending = append(q.pending, q.render())
	q.state = queryState{}
}

// Select adds columns to retrieve. The "*" wildcard is dropped; plain
// column names are rendered as "table"."column".
func (q *Query) Select(fields ...string) *Query {
	return q.next(func(n *Query) error {
		n.state.aggregate = ""
		var kept []string
		for _, f := range append(n.state.fields, fields...) {
			if f != "*" {
				kept = append(kept, f)
			}
		}
		n.state.fields = kept
		return nil
	})
}

// SetSelect replaces the selected columns. Fields must be a string or a
// slice of strings.
func (q *Query) SetSelect(fields interface{}) *Query {
	return q.next(func(n *Query) error {
		switch f := fields.(type) {
		case string:
			n.state.fields = []string{f}
		case []string:
			n.state.fields = append([]string(nil), f...)
		default:
			return &ConfigurationError{
				Reason: fmt.Sprintf("setSelect: invalid fields %T, must be either a slice or a string value", fields),
			}
		}
		n.state.aggregate = ""
		return nil
	})
}

// FindBy adds equality conditions. Conditions are a single map (Conditions
// or map[string]...) or alternating key/value pairs:
//
//	posts.Where(record.Conditions{"title": "hi", "views": "> 10"})
//	posts.Where("title", "hi", "views", "> 10")
//
// An "id" key is rewritten to "<table>"."id".
func (q *Query) FindBy(conds ...interface{}) *Query {
	return q.next(func(n *Query) error {
		return n.setConditions(conds)
	})
}

// Where is an alias of FindBy.
func (q *Query) Where(conds ...interface{}) *Query {
	return q.FindBy(conds...)
}

// Find adds a condition on the id column.
func (q *Query) Find(id interface{}) *Query {
	return q.FindBy("id", id)
}

// FindOrFail is like Find but executing the statement fails with a
// RecordNotFoundError if no row is returned.
func (q *Query) FindOrFail(id interface{}) *Query {
	return q.Find(id).next(func(n *Query) error {
		n.state.orFail = true
		n.state.failID = id
		return nil
	})
}

// All turns a collection query into a query of every matching record.
func (q *Query) All() *Query {
	return q.next(func(n *Query) error {
		return n.mustBeCollection("all")
	})
}

// First orders by id ascending and returns a single record.
func (q *Query) First() *Query {
	return q.firstOrLast("ASC")
}

// Last orders by id descending and returns a single record.
func (q *Query) Last() *Query {
	return q.firstOrLast("DESC")
}

func (q *Query) firstOrLast(direction string) *Query {
	return q.next(func(n *Query) error {
		n.state.orderBy = []order{{column: "id", direction: direction}}
		n.state.limit = 1
		n.collection = false
		return nil
	})
}

// OrderBy appends an ORDER BY column. Direction is ASC or DESC (case
// insensitive), empty means ASC.
func (q *Query) OrderBy(column, direction string) *Query {
	return q.next(func(n *Query) error {
		direction = strings.ToUpper(strings.TrimSpace(direction))
		if direction == "" {
			direction = "ASC"
		}
		if direction != "ASC" && direction != "DESC" {
			return &ConfigurationError{Reason: fmt.Sprintf("orderBy: invalid direction %q", direction)}
		}
		n.state.orderBy = append(n.state.orderBy, order{column: column, direction: direction})
		return nil
	})
}

// GroupBy adds GROUP BY columns, duplicates are ignored.
func (q *Query) GroupBy(columns ...string) *Query {
	return q.next(func(n *Query) error {
		if err := n.mustBeCollection("groupBy"); err != nil {
			return err
		}
		n.state.addGroupBy(columns...)
		return nil
	})
}

// Limit sets the LIMIT clause. Count must be a positive integer and the
// query must not be an aggregate.
func (q *Query) Limit(count interface{}) *Query {
	return q.next(func(n *Query) error {
		if n.state.isAggregate() {
			return &InvalidOperationError{
				Method: "limit", Mode: "an aggregate query",
				Reason: "aggregates return a single value",
			}
		}
		limit, ok := toInt(count)
		if !ok || limit <= 0 {
			return &InvalidOperationError{
				Method: "limit", Mode: n.mode(),
				Reason: fmt.Sprintf("limit must be a positive integer, got %v", count),
			}
		}
		n.state.limit = limit
		return nil
	})
}

// Count replaces the selected columns with COUNT. Without a field it counts
// rows, unless exactly one column was selected before, which is then counted
// instead of the argument.
func (q *Query) Count(field ...string) *Query {
	return q.next(func(n *Query) error {
		table := n.current.tableName
		var expr string
		switch {
		case len(n.state.fields) == 1 && !n.state.isAggregate():
			expr = "COUNT(" + qualify(table, n.state.fields[0]) + ")"
		case len(field) > 0 && field[0] != "":
			expr = "COUNT(" + qualify(table, field[0]) + ")"
		default:
			expr = "COUNT(*)"
		}
		n.setAggregate(expr)
		return nil
	})
}

// Sum replaces the selected columns with SUM(field).
func (q *Query) Sum(field string) *Query {
	return q.aggregate("sum", "SUM", field)
}

// Average replaces the selected columns with AVG(field).
func (q *Query) Average(field string) *Query {
	return q.aggregate("average", "AVG", field)
}

func (q *Query) aggregate(method, function, field string) *Query {
	return q.next(func(n *Query) error {
		if field == "" {
			return &MissingArgumentError{Method: method}
		}
		n.setAggregate(function + "(" + qualify(n.current.tableName, field) + ")")
		return nil
	})
}

func (q *Query) setAggregate(expr string) {
	q.state.fields = nil
	q.state.aggregate = expr
	q.collection = false
}

// Destroy turns the chain into a DELETE of the record found so far. The
// select is kept as a pending statement; the DELETE runs in a transaction.
func (q *Query) Destroy() *Query {
	return q.next(func(n *Query) error {
		if err := n.mustBeInstance("destroy"); err != nil {
			return err
		}
		id := n.closeAndBind("id")
		n.state.deleteFlag = true
		n.state.deleteID = id
		return nil
	})
}

// closeAndBind finalizes the statement being built and returns the value of
// column in its first row: a literal when the statement has an equality
// condition on it, an OwnerValue otherwise.
func (q *Query) closeAndBind(column string) interface{} {
	owner := q.current
	q.finalize()
	q.cursor = ""
	q.hop = hopFresh
	q.reference = nil
	return q.ownerValue(owner, column)
}

func (q *Query) ownerValue(owner *Model, column string) interface{} {
	idx := len(q.pending) - 1
	if v, ok := q.pending[idx].lookup(column); ok {
		return v
	}
	return OwnerValue{Statement: idx, Table: owner.tableName, Column: column}
}

func (q *Query) setConditions(args []interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if len(args) == 1 && isPlainObject(args[0]) {
		rv := reflect.ValueOf(args[0])
		keys := make([]string, 0, rv.Len())
		values := map[string]interface{}{}
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			keys = append(keys, key)
			values[key] = iter.Value().Interface()
		}
		sort.Strings(keys)
		for _, key := range keys {
			q.addCondition(key, values[key])
		}
		return nil
	}
	if len(args)%2 != 0 {
		return &ConfigurationError{Reason: "conditions must be a map or key/value pairs"}
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			return &ConfigurationError{Reason: fmt.Sprintf("condition key must be a string, got %T", args[i])}
		}
		q.addCondition(key, args[i+1])
	}
	return nil
}

func (q *Query) addCondition(key string, value interface{}) {
	if key == "id" {
		key = quoteColumn(q.current.tableName, "id")
	}
	q.state.setCondition(key, value)
}
