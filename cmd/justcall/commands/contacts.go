package commands

import (
	"fmt"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/spf13/cobra"
)

var contactColumns = []column{
	{"ID", "id"},
	{"First Name", "firstname"},
	{"Last Name", "lastname"},
	{"Phone", "phone"},
	{"Email", "email"},
	{"Company", "company"},
}

// NewContactsCommand creates the contacts command group
func NewContactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact"},
		Short:   "Inspect contacts",
		Long:    "List and search JustCall contacts",
	}

	cmd.AddCommand(newContactsListCommand())
	cmd.AddCommand(newContactsQueryCommand())

	return cmd
}

func newContactsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			contacts, err := collect(c.Contacts().IterAll(cmd.Context(), iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list contacts: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "contacts", contacts, contactColumns)
		},
	}
}

func newContactsQueryCommand() *cobra.Command {
	var params client.QueryContactsParams

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search contacts",
		Long:  "Search contacts by name, phone, email, company or notes. At least one field is required.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			contacts, err := collect(c.Contacts().IterQuery(cmd.Context(), params, iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to query contacts: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "contacts", contacts, contactColumns)
		},
	}

	cmd.Flags().Int64Var(&params.ID, "id", 0, "Contact ID")
	cmd.Flags().StringVar(&params.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&params.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&params.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&params.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&params.Company, "company", "", "Company")
	cmd.Flags().StringVar(&params.Notes, "notes", "", "Text in the notes")

	return cmd
}
