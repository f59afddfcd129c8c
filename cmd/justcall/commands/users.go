package commands

import (
	"fmt"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/spf13/cobra"
)

var userColumns = []column{
	{"ID", "id"},
	{"Name", "name"},
	{"Email", "email"},
	{"Role", "role"},
	{"Available", "available"},
}

// NewUsersCommand creates the users command group
func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Inspect users",
		Long:    "List the agents and admins of the JustCall account",
	}

	cmd.AddCommand(newUsersListCommand())

	return cmd
}

func newUsersListCommand() *cobra.Command {
	var (
		available bool
		groupID   int64
		role      string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := client.ListUsersParams{GroupID: groupID, Role: role}
			if cmd.Flags().Changed("available") {
				filter.Available = &available
			}

			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			users, err := collect(c.Users().IterAll(cmd.Context(), filter, iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "users", users, userColumns)
		},
	}

	cmd.Flags().BoolVar(&available, "available", false, "Only available (true) or unavailable (false) users")
	cmd.Flags().Int64Var(&groupID, "group", 0, "Group ID")
	cmd.Flags().StringVar(&role, "role", "", "Role, e.g. agent or admin")

	return cmd
}
