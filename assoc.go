package record

import (
	"fmt"
	"strings"
)

// GetAssoc switches the query to the target of an association of the
// current record. The statement built so far is kept as a pending statement
// that runs first; the new statement is filtered by the owner's id (HasMany,
// HasOne, HasManyThrough) or foreign key (BelongsTo).
//
//	// SELECT "posts".* FROM posts WHERE "posts"."user_id" = $1   [1]
//	users.Find(1).GetAssoc("posts")
//
// The owner must be a single record. The result is always a collection
// query, even for BelongsTo and HasOne; use First() or Last() to narrow it.
func (q *Query) GetAssoc(name string) *Query {
	return q.next(func(n *Query) error {
		if err := n.mustBeInstance("getAssoc"); err != nil {
			return err
		}
		if _, err := n.current.association(name); err != nil {
			return err
		}
		owner := n.current
		if n.hop == hopFresh || n.cursor != name {
			n.finalize()
			n.reference = n.current
			if n.hop == hopFresh {
				n.hop = hopSingle
			} else {
				n.hop = hopMulti
			}
		}
		rel, err := n.reference.association(name)
		if err != nil {
			return err
		}
		target := rel.TargetModel()
		n.current = target
		switch r := rel.(type) {
		case HasMany:
			n.state.setCondition(quoteColumn(target.tableName, r.ForeignKey), n.ownerValue(owner, "id"))
		case HasOne:
			n.state.setCondition(quoteColumn(target.tableName, r.ForeignKey), n.ownerValue(owner, "id"))
		case BelongsTo:
			n.state.setCondition(quoteColumn(target.tableName, "id"), n.ownerValue(owner, r.ForeignKey))
			n.state.limit = 1
		case HasManyThrough:
			through, err := n.reference.association(r.JoinAssociation)
			if err != nil {
				return err
			}
			n.reference = through.TargetModel()
			key, column := ownerCondition(through)
			n.state.setCondition(key, n.ownerValue(owner, column))
			link, err := throughLink(r)
			if err != nil {
				return err
			}
			n.state.joins = append(n.state.joins, "INNER JOIN "+r.Join.tableName+" ON "+link)
		}
		n.cursor = name
		n.collection = true
		return nil
	})
}

// Joins adds INNER JOIN clauses for associations without changing the model
// the query targets. Each name is resolved against the model joined last,
// falling back to the query's model, so a name may follow the previous one:
//
//	// SELECT "users".* FROM users
//	//   INNER JOIN posts ON "posts"."user_id" = "users"."id"
//	//   INNER JOIN comments ON "comments"."post_id" = "posts"."id"
//	users.All().Joins("posts", "comments")
//
// A string containing whitespace is added verbatim as a raw join fragment.
// Nested joins in map form are not supported.
func (q *Query) Joins(names ...interface{}) *Query {
	return q.next(func(n *Query) error {
		if err := n.mustBeCollection("joins"); err != nil {
			return err
		}
		return n.setJoins(names)
	})
}

func (q *Query) setJoins(names []interface{}) error {
	for _, item := range names {
		if isPlainObject(item) {
			return &NotImplementedError{Feature: "nested joins"}
		}
		name, ok := item.(string)
		if !ok {
			return &ConfigurationError{Reason: fmt.Sprintf("joins: invalid argument type %T", item)}
		}
		if raw := strings.TrimSpace(name); strings.ContainsAny(raw, " \t\n") {
			q.state.joins = append(q.state.joins, raw)
			continue
		}
		pivot := q.reference
		if pivot == nil {
			pivot = q.current
		}
		rel, err := pivot.association(name)
		if err != nil && pivot != q.current {
			pivot = q.current
			rel, err = pivot.association(name)
		}
		if err != nil {
			return err
		}
		clauses, err := joinClauses(pivot, rel)
		if err != nil {
			return err
		}
		q.state.joins = append(q.state.joins, clauses...)
		q.reference = rel.TargetModel()
	}
	return nil
}

// joinClauses returns the INNER JOIN clauses that join the target of rel to
// owner.
func joinClauses(owner *Model, rel Relation) ([]string, error) {
	target := rel.TargetModel().tableName
	switch r := rel.(type) {
	case HasMany:
		return []string{"INNER JOIN " + target + " ON " + quoteColumn(target, r.ForeignKey) + " = " + quoteColumn(owner.tableName, "id")}, nil
	case HasOne:
		return []string{"INNER JOIN " + target + " ON " + quoteColumn(target, r.ForeignKey) + " = " + quoteColumn(owner.tableName, "id")}, nil
	case BelongsTo:
		return []string{"INNER JOIN " + target + " ON " + quoteColumn(target, "id") + " = " + quoteColumn(owner.tableName, r.ForeignKey)}, nil
	case HasManyThrough:
		through, err := owner.association(r.JoinAssociation)
		if err != nil {
			return nil, err
		}
		first, err := joinClauses(owner, through)
		if err != nil {
			return nil, err
		}
		link, err := throughLink(r)
		if err != nil {
			return nil, err
		}
		return append(first, "INNER JOIN "+target+" ON "+link), nil
	}
	return nil, &ConfigurationError{Reason: fmt.Sprintf("unsupported relation %T", rel)}
}

// ownerCondition returns the condition key on the target of a direct
// relation and the owner column its value comes from.
func ownerCondition(rel Relation) (key, ownerColumn string) {
	target := rel.TargetModel().tableName
	switch r := rel.(type) {
	case HasMany:
		return quoteColumn(target, r.ForeignKey), "id"
	case HasOne:
		return quoteColumn(target, r.ForeignKey), "id"
	case BelongsTo:
		return quoteColumn(target, "id"), r.ForeignKey
	}
	return quoteColumn(target, "id"), "id"
}

// throughLink returns the ON condition between the join model and the
// target of a HasManyThrough relation. The foreign key lives on the join
// model when the join model belongs to the target, on the target otherwise.
func throughLink(r HasManyThrough) (string, error) {
	nested, ok := r.Join.nestedAssociation(r.Name)
	if !ok {
		return "", &ConfigurationError{
			Reason: fmt.Sprintf("%s has no association for %q", r.Join.tableName, r.Name),
		}
	}
	join, target := r.Join.tableName, r.Target.tableName
	if _, ok := nested.(BelongsTo); ok {
		return quoteColumn(join, r.ForeignKey) + " = " + quoteColumn(target, "id"), nil
	}
	return quoteColumn(join, "id") + " = " + quoteColumn(target, r.ForeignKey), nil
}
