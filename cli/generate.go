package cli

import (
	"fmt"
	"strings"

	"github.com/gopsql/record/generate"
	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"g"},
		Short:   "Generate models and migrations",
	}
	cmd.AddCommand(newGenerateModelCommand())
	cmd.AddCommand(newGenerateMigrationCommand())
	return cmd
}

func newGenerateModelCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "model <Name> [table:<table>] [field:type...]",
		Short: "Generate a model and the migration creating its table",
		Example: `  record generate model Post title:string body:text user:references
  record generate model Person table:people name:string`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd.Context())
			table, rest := splitTableArg(args[1:])
			fields, err := generate.ParseFields(rest)
			if err != nil {
				return err
			}
			paths, err := generate.Model(generate.ModelOptions{
				Name:              args[0],
				Table:             table,
				Fields:            fields,
				Dir:               cfg.ModelsDir,
				Package:           cfg.ModelsPackage,
				MigrationsDir:     cfg.MigrationsDir,
				MigrationsPackage: cfg.MigrationsPackage,
				Force:             force,
			})
			if err != nil {
				return err
			}
			for _, p := range paths {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "create %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")
	return cmd
}

func newGenerateMigrationCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "migration <Name> [table:<table>] [field:type...]",
		Short: "Generate a migration",
		Example: `  record generate migration addPublishedAtToPosts published_at:datetime
  record generate migration removeBodyFromPosts body:text
  record generate migration addIndexToPosts user_id`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd.Context())
			path, err := generate.Migration(generate.MigrationOptions{
				Name:    args[0],
				Args:    args[1:],
				Dir:     cfg.MigrationsDir,
				Package: cfg.MigrationsPackage,
				Force:   force,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "create %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")
	return cmd
}

func splitTableArg(args []string) (table string, rest []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "table:") {
			table = strings.TrimPrefix(a, "table:")
			continue
		}
		rest = append(rest, a)
	}
	return
}
