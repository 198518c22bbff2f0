package record

import "fmt"

// RelationKind identifies the variant of a Relation.
type RelationKind int

const (
	KindHasMany RelationKind = iota + 1
	KindHasOne
	KindBelongsTo
	KindHasManyThrough
)

func (k RelationKind) String() string {
	switch k {
	case KindHasMany:
		return "hasMany"
	case KindHasOne:
		return "hasOne"
	case KindBelongsTo:
		return "belongsTo"
	case KindHasManyThrough:
		return "hasManyThrough"
	}
	return fmt.Sprintf("RelationKind(%d)", int(k))
}

type (
	// Relation describes one association between two models. It is
	// implemented only by HasMany, HasOne, BelongsTo and HasManyThrough.
	Relation interface {
		AssociationName() string
		TargetModel() *Model
		Kind() RelationKind
		relation()
	}

	// HasMany: the foreign key column lives on the target table and
	// references the owner's id.
	HasMany struct {
		Name       string
		Target     *Model
		ForeignKey string
	}

	// HasOne is like HasMany but for a single associated row.
	HasOne struct {
		Name       string
		Target     *Model
		ForeignKey string
	}

	// BelongsTo: the foreign key column lives on the owner table and
	// references the target's id.
	BelongsTo struct {
		Name       string
		Target     *Model
		ForeignKey string
	}

	// HasManyThrough reaches Target through the Join model. JoinAssociation
	// is the owner's association to Join; ForeignKey is the column linking
	// Join and Target.
	HasManyThrough struct {
		Name            string
		Target          *Model
		ForeignKey      string
		Join            *Model
		JoinAssociation string
	}
)

func (r HasMany) AssociationName() string { return r.Name }
func (r HasMany) TargetModel() *Model { return r.Target }
func (r HasMany) Kind() RelationKind { return KindHasMany }
func (HasMany) relation() {}

func (r HasOne) AssociationName() string { return r.Name }
func (r HasOne) TargetModel() *Model { return r.Target }
func (r HasOne) Kind() RelationKind { return KindHasOne }
func (HasOne) relation() {}

func (r BelongsTo) AssociationName() string { return r.Name }
func (r BelongsTo) TargetModel() *Model { return r.Target }
func (r BelongsTo) Kind() RelationKind { return KindBelongsTo }
func (BelongsTo) relation() {}

func (r HasManyThrough) AssociationName() string { return r.Name }
func (r HasManyThrough) TargetModel() *Model { return r.Target }
func (r HasManyThrough) Kind() RelationKind { return KindHasManyThrough }
func (HasManyThrough) relation() {}

// associations is the append-only registry of a model, in declaration order.
type associations struct {
	names  []string
	byName map[string]Relation
}

func (a *associations) get(name string) (Relation, bool) {
	if a == nil || a.byName == nil {
		return nil, false
	}
	r, ok := a.byName[name]
	return r, ok
}

func (a *associations) add(r Relation) error {
	if r.TargetModel() == nil {
		return &ConfigurationError{Reason: fmt.Sprintf("association %q has no target model", r.AssociationName())}
	}
	if _, exists := a.get(r.AssociationName()); exists {
		return &ConfigurationError{Reason: fmt.Sprintf("association %q is already defined", r.AssociationName())}
	}
	if a.byName == nil {
		a.byName = map[string]Relation{}
	}
	a.names = append(a.names, r.AssociationName())
	a.byName[r.AssociationName()] = r
	return nil
}

func (a *associations) list() (out []Relation) {
	if a == nil {
		return
	}
	for _, name := range a.names {
		out = append(out, a.byName[name])
	}
	return
}
