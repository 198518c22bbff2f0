package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
	"github.com/gopsql/record"
	"github.com/lib/pq"
)

const DefaultTable = "schema_migrations"

type (
	// Runner applies and rolls back the migrations of a Registry. Every
	// migration runs in its own transaction together with the update of the
	// schema_migrations table.
	Runner struct {
		gateway  *record.Connection
		registry *Registry
		logger   logger.Logger
		table    string
	}

	// Status is one row of Runner.Status.
	Status struct {
		Version string
		Applied bool
		// Missing is true when the version is recorded as applied but no
		// migration is registered for it.
		Missing bool
	}
)

// NewRunner creates a runner over conn. A nil registry means
// DefaultRegistry. Statements are logged to log when it is not nil.
func NewRunner(conn db.DB, registry *Registry, log logger.Logger) *Runner {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &Runner{
		gateway:  record.NewGateway(conn, log),
		registry: registry,
		logger:   log,
		table:    DefaultTable,
	}
}

// SetTable changes the name of the table recording applied versions.
func (r *Runner) SetTable(name string) *Runner {
	r.table = name
	return r
}

// Init creates the schema_migrations table if it does not exist.
func (r *Runner) Init(ctx context.Context) error {
	sql := "CREATE TABLE IF NOT EXISTS " + pq.QuoteIdentifier(r.table) +
		" (version VARCHAR(255) PRIMARY KEY)"
	if _, err := r.gateway.Execute(ctx, sql, nil); err != nil {
		return fmt.Errorf("migrate: init %s: %w", r.table, err)
	}
	return nil
}

// Applied returns the applied versions, sorted.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	rows, err := r.gateway.Execute(ctx, "SELECT version FROM "+pq.QuoteIdentifier(r.table)+" ORDER BY version", nil)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, fmt.Sprint(row["version"]))
	}
	sort.Strings(versions)
	return versions, nil
}

// Pending returns the registered versions that are not applied yet.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := map[string]bool{}
	for _, v := range applied {
		done[v] = true
	}
	var pending []string
	for _, v := range r.registry.Versions() {
		if !done[v] {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// Up applies every pending migration in version order and returns the
// versions applied. It stops at the first failure; migrations applied before
// it stay applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}
	var done []string
	for _, version := range pending {
		stmts, err := r.registry.Statements(version, Up)
		if err != nil {
			return done, err
		}
		err = r.run(ctx, stmts, "INSERT INTO "+pq.QuoteIdentifier(r.table)+" (version) VALUES ($1)", version)
		if err != nil {
			return done, fmt.Errorf("migrate: %s: %w", version, err)
		}
		r.log("migrated", version)
		done = append(done, version)
	}
	if len(done) == 0 {
		r.log("all migrations are already up to date")
	}
	return done, nil
}

// Down rolls back the last steps applied migrations in reverse version
// order, or all of them if steps is not positive. It returns the versions
// rolled back.
func (r *Runner) Down(ctx context.Context, steps int) ([]string, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(applied)))
	if steps > 0 && steps < len(applied) {
		applied = applied[:steps]
	}
	var done []string
	for _, version := range applied {
		stmts, err := r.registry.Statements(version, Down)
		if err != nil {
			return done, err
		}
		err = r.run(ctx, stmts, "DELETE FROM "+pq.QuoteIdentifier(r.table)+" WHERE version = $1", version)
		if err != nil {
			return done, fmt.Errorf("migrate: %s: %w", version, err)
		}
		r.log("rolled back", version)
		done = append(done, version)
	}
	if len(done) == 0 {
		r.log("no migrations to roll back")
	}
	return done, nil
}

// Status lists registered and applied versions in version order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	byVersion := map[string]*Status{}
	for _, v := range r.registry.Versions() {
		byVersion[v] = &Status{Version: v}
	}
	for _, v := range applied {
		if s, ok := byVersion[v]; ok {
			s.Applied = true
			continue
		}
		byVersion[v] = &Status{Version: v, Applied: true, Missing: true}
	}
	out := make([]Status, 0, len(byVersion))
	for _, s := range byVersion {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *Runner) run(ctx context.Context, stmts []string, ledger, version string) error {
	return r.gateway.Transaction(ctx, func(ctx context.Context, tx record.Gateway) error {
		for _, stmt := range stmts {
			if _, err := tx.Execute(ctx, stmt, nil); err != nil {
				return err
			}
		}
		_, err := tx.Execute(ctx, ledger, []interface{}{version})
		return err
	})
}

func (r *Runner) log(args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(args...)
	}
}
