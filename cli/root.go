// Package cli provides the record command. Projects with Go migrations
// build their own binary that imports their migrations package, so its
// init functions register them, and calls Execute:
//
//	package main
//
//	import (
//		"os"
//
//		"github.com/gopsql/record/cli"
//		_ "example.com/app/migrations"
//	)
//
//	func main() {
//		if err := cli.Execute(); err != nil {
//			os.Exit(1)
//		}
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gopsql/record/dial"
	"github.com/gopsql/record/internal/config"
	"github.com/gopsql/record/migrate"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	openDB   = dial.Open
	registry = migrate.DefaultRegistry
)

type configKey struct{}

type loggerKey struct{}

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "record",
		Short: "record - models, migrations and generators for PostgreSQL",
		Long: `record generates models and migrations and runs migrations against
a PostgreSQL database.

Configuration is read from record.yaml, RECORD_ environment variables
(RECORD_DATABASE__HOST sets database.host) and flags.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version", "init":
				return nil
			}

			cfg, used, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			if used != "" {
				log.Debug("using config file", slog.String("path", used))
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, log)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./record.yaml)")
	flags.String("driver", "", "database driver (pgx|pq)")
	flags.String("host", "", "database host")
	flags.Int("port", 0, "database port")
	flags.String("user", "", "database user")
	flags.String("password", "", "database password")
	flags.String("database", "", "database name")
	flags.String("sslmode", "", "database sslmode")
	flags.String("migrations-dir", "", "directory of migrations")
	flags.String("models-dir", "", "directory of models")
	flags.BoolP("verbose", "v", false, "verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{dial.DriverPgx, dial.DriverPq}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newMigrateCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func getConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	c := config.Default()
	return &c
}

func getLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
