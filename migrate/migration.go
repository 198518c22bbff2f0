// Package migrate applies versioned schema changes and records them in the
// schema_migrations table.
package migrate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

type (
	// Changer is a reversible migration. Down runs Change on a Schema in the
	// Down direction.
	Changer interface {
		Change(s *Schema)
	}

	// UpDowner is a migration with explicit Up and Down steps. Both are
	// applied as written.
	UpDowner interface {
		Up(s *Schema)
		Down(s *Schema)
	}

	// Funcs adapts functions to UpDowner.
	Funcs struct {
		UpFunc   func(s *Schema)
		DownFunc func(s *Schema)
	}

	// Registry holds migrations by version. Versions sort lexically, so
	// they usually start with a UTC timestamp like 20240102150405.
	Registry struct {
		mu         sync.RWMutex
		migrations map[string]interface{}
	}
)

var (
	ErrInvalidMigration = errors.New("migrate: migration must implement Change or Up and Down")
	ErrDuplicateVersion = errors.New("migrate: duplicate version")
	ErrUnknownVersion   = errors.New("migrate: unknown version")

	// DefaultRegistry is used by Register and by generated migrations.
	DefaultRegistry = NewRegistry()
)

func (f Funcs) Up(s *Schema) {
	if f.UpFunc != nil {
		f.UpFunc(s)
	}
}

func (f Funcs) Down(s *Schema) {
	if f.DownFunc != nil {
		f.DownFunc(s)
	}
}

func NewRegistry() *Registry {
	return &Registry{migrations: map[string]interface{}{}}
}

// Register adds a migration to the DefaultRegistry.
func Register(version string, migration interface{}) error {
	return DefaultRegistry.Register(version, migration)
}

// MustRegister is like Register but panics if an error occurs.
func MustRegister(version string, migration interface{}) {
	if err := Register(version, migration); err != nil {
		panic(err)
	}
}

// Register adds a migration, which must implement Changer or UpDowner.
func (r *Registry) Register(version string, migration interface{}) error {
	switch migration.(type) {
	case Changer, UpDowner:
	default:
		return fmt.Errorf("%w: %s (%T)", ErrInvalidMigration, version, migration)
	}
	if version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidMigration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.migrations[version]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVersion, version)
	}
	r.migrations[version] = migration
	return nil
}

// Versions returns the registered versions in the order they apply.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := make([]string, 0, len(r.migrations))
	for version := range r.migrations {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// Statements returns the SQL the migration of version runs in direction.
func (r *Registry) Statements(version string, direction Direction) ([]string, error) {
	r.mu.RLock()
	migration, ok := r.migrations[version]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}
	s := NewSchema(Up)
	switch m := migration.(type) {
	case UpDowner:
		if direction == Down {
			m.Down(s)
		} else {
			m.Up(s)
		}
	case Changer:
		s = NewSchema(direction)
		m.Change(s)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", version, err)
	}
	return s.Statements(), nil
}
