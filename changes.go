package record

import (
	"fmt"
	"sort"
	"time"
)

// Changes maps column names (or struct field names of the model) to values
// for Create(), Save() and Update().
type Changes map[string]interface{}

// Create builds an INSERT of the changes, returning the new id. The changes
// can be Changes maps or column and value pairs:
//
//	// BEGIN; INSERT INTO "posts" ("title", "user_id") VALUES ($1, $2) RETURNING "id"; COMMIT;
//	posts.Create("title", "hi", "user_id", 1).Execute(ctx)
//
// Callbacks and validations of the model run first. Values are always bound
// as parameters.
func (m *Model) Create(changes ...interface{}) *Query {
	return newQuery(m, false).next(func(n *Query) error {
		return n.setWrite(writeInsert, changes, nil)
	})
}

// Save updates the record with the id in the changes, or creates a new
// record if there is none.
func (m *Model) Save(changes ...interface{}) *Query {
	list, err := m.parseChanges(changes)
	if err != nil {
		q := newQuery(m, false)
		if q.err == nil {
			q.err = err
		}
		return q
	}
	var id interface{}
	rest := Changes{}
	for _, c := range list {
		if c.key == "id" {
			id = c.value
			continue
		}
		rest[c.key] = c.value
	}
	if id == nil {
		return m.Create(rest)
	}
	return m.Find(id).Update(rest)
}

// Update turns the chain into an UPDATE of the record found so far. Like
// Destroy(), the select is kept as a pending statement and the UPDATE runs
// in a transaction.
//
//	users.Find(1).Update("name", "Alice").Execute(ctx)
func (q *Query) Update(changes ...interface{}) *Query {
	return q.next(func(n *Query) error {
		if err := n.mustBeInstance("update"); err != nil {
			return err
		}
		id := n.closeAndBind("id")
		return n.setWrite(writeUpdate, changes, id)
	})
}

func (q *Query) setWrite(kind writeKind, in []interface{}, id interface{}) error {
	m := q.current
	list, err := m.parseChanges(in)
	if err != nil {
		return err
	}
	if len(m.beforeSave) > 0 {
		values := Changes{}
		for _, c := range list {
			values[c.key] = c.value
		}
		for _, fn := range m.beforeSave {
			if err := fn(values); err != nil {
				return err
			}
		}
		list, _ = m.parseChanges([]interface{}{orderedChanges(list, values)})
	}
	values := Changes{}
	for _, c := range list {
		values[c.key] = c.value
	}
	if err := m.Validate(values, kind == writeInsert); err != nil {
		return err
	}
	if len(list) == 0 {
		return &ConfigurationError{Reason: "no changes to save"}
	}
	q.state.write = &write{kind: kind, changes: list, id: id}
	return nil
}

// orderedChanges keeps the order of the original changes after callbacks
// have modified them. Keys added by callbacks go last, sorted.
func orderedChanges(original []condition, values Changes) changeList {
	out := changeList{}
	seen := map[string]bool{}
	for _, c := range original {
		if v, ok := values[c.key]; ok {
			out = append(out, condition{c.key, v})
			seen[c.key] = true
		}
	}
	keys := []string{}
	for key := range values {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, condition{key, values[key]})
	}
	return out
}

type changeList []condition

func (m Model) parseChanges(in []interface{}) ([]condition, error) {
	var out []condition
	set := func(key string, value interface{}) {
		column := m.columnName(key)
		for i := range out {
			if out[i].key == column { // prevent duplication
				out[i].value = value
				return
			}
		}
		out = append(out, condition{column, value})
	}
	for i := 0; i < len(in); i++ {
		switch item := in[i].(type) {
		case changeList:
			for _, c := range item {
				set(c.key, c.value)
			}
		case Changes:
			for _, key := range sortedKeys(item) {
				set(key, item[key])
			}
		case map[string]interface{}:
			for _, key := range sortedKeys(item) {
				set(key, item[key])
			}
		case string:
			if i+1 >= len(in) {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("missing value for %q", item)}
			}
			set(item, in[i+1])
			i++
		default:
			return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid changes type %T", item)}
		}
	}
	return out, nil
}

func sortedKeys(in map[string]interface{}) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Helper to add created_at and updated_at of current time changes.
func (m Model) CreatedAt() Changes {
	now := time.Now().UTC()
	return Changes{"created_at": now, "updated_at": now}
}

// Helper to add updated_at of current time changes.
func (m Model) UpdatedAt() Changes {
	return Changes{"updated_at": time.Now().UTC()}
}
