package record

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Execute runs every statement of the chain in order and returns the rows of
// the last one. Placeholders produced by association hops are filled from
// the first row of the statement they refer to; if that statement returned
// no row, a RecordNotFoundError is returned. Statements that already ran are
// not rolled back when a later one fails.
func (q *Query) Execute(ctx context.Context) ([]Row, error) {
	statements, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	gw := q.model.Gateway()
	if gw == nil {
		return nil, ErrNoConnection
	}
	results := make([][]Row, len(statements))
	for i, st := range statements {
		args, err := st.bind(results)
		if err != nil {
			return nil, err
		}
		rows, err := st.run(ctx, gw, args)
		if err != nil {
			return nil, err
		}
		if st.orFail && len(rows) == 0 {
			return nil, &RecordNotFoundError{Table: st.table, ID: st.failID}
		}
		results[i] = rows
	}
	return results[len(results)-1], nil
}

// MustExecute is like Execute but panics if execute operation fails.
func (q *Query) MustExecute(ctx context.Context) []Row {
	rows, err := q.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return rows
}

// Load executes the chain and decodes the rows into target, which must be a
// pointer to a struct (first row) or to a slice (every row). Columns are
// matched to fields by "column" tag, snake_case name or case-insensitive
// name. Loading a struct from no rows returns a RecordNotFoundError.
//
//	var user User
//	err := users.Find(1).Load(ctx, &user)
//
//	var list []Post
//	err := users.Find(1).GetAssoc("posts").Load(ctx, &list)
func (q *Query) Load(ctx context.Context, target interface{}) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ErrMustBePointer
	}
	if q.err != nil {
		return q.err
	}
	rows, err := q.Execute(ctx)
	if err != nil {
		return err
	}
	var input interface{}
	if rv.Elem().Kind() == reflect.Slice {
		list := make([]map[string]interface{}, len(rows))
		for i, row := range rows {
			list[i] = row
		}
		input = list
	} else {
		if len(rows) == 0 {
			return &RecordNotFoundError{Table: q.current.tableName}
		}
		input = map[string]interface{}(rows[0])
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "column",
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return strings.EqualFold(mapKey, fieldName) || mapKey == ToUnderscore(fieldName)
		},
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// MustLoad is like Load but panics if load operation fails.
func (q *Query) MustLoad(ctx context.Context, target interface{}) {
	if err := q.Load(ctx, target); err != nil {
		panic(err)
	}
}

// Value executes the chain and returns the single column of the first row,
// for example the result of Count(), Sum() or Average(). Nil is returned if
// there is no row.
func (q *Query) Value(ctx context.Context) (interface{}, error) {
	rows, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows[0]) != 1 {
		return nil, fmt.Errorf("record: expected one column, got %d", len(rows[0]))
	}
	for _, v := range rows[0] {
		return v, nil
	}
	return nil, nil
}

// bind replaces OwnerValue placeholders with values from earlier results.
func (s Statement) bind(results [][]Row) ([]interface{}, error) {
	args := make([]interface{}, len(s.Args))
	for i, arg := range s.Args {
		ov, ok := arg.(OwnerValue)
		if !ok {
			args[i] = arg
			continue
		}
		if ov.Statement < 0 || ov.Statement >= len(results) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("binding %s refers to a statement that has not run", ov)}
		}
		rows := results[ov.Statement]
		if len(rows) == 0 {
			return nil, &RecordNotFoundError{Table: ov.Table}
		}
		v, ok := rows[0][ov.Column]
		if !ok {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("binding %s: column is not selected", ov)}
		}
		args[i] = v
	}
	return args, nil
}

func (s Statement) run(ctx context.Context, gw Gateway, args []interface{}) ([]Row, error) {
	if !s.transactional {
		return gw.Execute(ctx, s.SQL, args)
	}
	t, ok := gw.(Transactor)
	if !ok {
		return s.runInSession(ctx, gw, args)
	}
	var rows []Row
	err := t.Transaction(ctx, func(ctx context.Context, tx Gateway) (err error) {
		rows, err = tx.Execute(ctx, s.body, args)
		return
	})
	return rows, err
}

// runInSession wraps the statement body in BEGIN and COMMIT sent as
// separate statements, since a prepared statement holds a single command.
func (s Statement) runInSession(ctx context.Context, gw Gateway, args []interface{}) ([]Row, error) {
	if _, err := gw.Execute(ctx, "BEGIN", nil); err != nil {
		return nil, err
	}
	rows, err := gw.Execute(ctx, s.body, args)
	if err != nil {
		_, _ = gw.Execute(ctx, "ROLLBACK", nil)
		return nil, err
	}
	if _, err := gw.Execute(ctx, "COMMIT", nil); err != nil {
		return nil, err
	}
	return rows, nil
}
