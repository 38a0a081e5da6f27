package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackmichael/blogdemo/internal/storage"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply the bundled schema migrations to the database named by --db.

A SQLite file is created when it does not exist. Postgres URLs
(postgres:// or postgresql://) use the Postgres schema instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.Open(rootOpts.Database)
			if err != nil {
				return err
			}
			defer repo.Close()

			// Open already migrated; a second pass confirms nothing is left.
			pending, err := repo.Migrate(cmd.Context())
			if err != nil {
				return err
			}

			backend := storage.BackendFor(rootOpts.Database)
			return newPrinter(rootOpts, cmd).result(map[string]any{
				"backend": backend,
				"pending": pending,
			}, func(w io.Writer) {
				fmt.Fprintf(w, "%s database is up to date\n", backend)
			})
		},
	}
}
