package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gopsql/logger"
	"github.com/gopsql/record/migrate"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back and inspect migrations",
	}
	cmd.AddCommand(newMigrateUpCommand())
	cmd.AddCommand(newMigrateDownCommand())
	cmd.AddCommand(newMigrateStatusCommand())
	return cmd
}

func newMigrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, r *migrate.Runner) error {
				applied, err := r.Up(ctx)
				for _, v := range applied {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", v)
				}
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
				}
				return nil
			})
		},
	}
}

func newMigrateDownCommand() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			return withRunner(cmd.Context(), func(ctx context.Context, r *migrate.Runner) error {
				reverted, err := r.Down(ctx, steps)
				for _, v := range reverted {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reverted %s\n", v)
				}
				if err != nil {
					return err
				}
				if len(reverted) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no applied migrations")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	return cmd
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, r *migrate.Runner) error {
				statuses, err := r.Status(ctx)
				if err != nil {
					return err
				}
				renderStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
}

func renderStatus(w io.Writer, statuses []migrate.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Version", "Status"})
	for _, s := range statuses {
		status := "pending"
		switch {
		case s.Missing:
			status = "applied (missing)"
		case s.Applied:
			status = "applied"
		}
		t.AppendRow(table.Row{s.Version, status})
	}
	t.Render()
}

// withRunner opens the configured database, makes sure the migrations
// table exists and calls fn.
func withRunner(ctx context.Context, fn func(context.Context, *migrate.Runner) error) (err error) {
	cfg := getConfig(ctx)
	log := getLogger(ctx)

	if len(registry.Versions()) == 0 {
		log.Warn("no migrations are registered; build a binary that imports your migrations package")
	}

	log.Debug("connecting", slog.String("database", cfg.Database.String()))
	conn, err := openDB(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); err == nil {
			err = cerr
		}
	}()

	var sqlLogger logger.Logger
	if cfg.Verbose {
		sqlLogger = logger.StandardLogger
	}
	r := migrate.NewRunner(conn, registry, sqlLogger).SetTable(cfg.MigrationsTable)
	if err := r.Init(ctx); err != nil {
		return err
	}
	return fn(ctx, r)
}
