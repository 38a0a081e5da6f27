package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackmichael/blogdemo/internal/domain"
)

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCommand(rootOpts))
	return cmd
}

func newUserCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var in domain.SignUpInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account directly in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := openLocal(rootOpts, rootOpts.logger(cmd))
			if err != nil {
				return err
			}
			defer local.Close()

			user, err := local.auth.CreateUser(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			return newPrinter(rootOpts, cmd).result(map[string]string{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
			}, func(w io.Writer) {
				fmt.Fprintf(w, "created user %s <%s> (%s)\n", user.Name, user.Email, user.ID)
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (8 to 30 characters)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}
