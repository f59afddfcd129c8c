package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	campaignContactColumns = []column{
		{"ID", "id"},
		{"First Name", "first_name"},
		{"Last Name", "last_name"},
		{"Phone", "phone"},
		{"Status", "status"},
	}

	customFieldColumns = []column{
		{"Key", "key"},
		{"Label", "label"},
		{"Type", "type"},
	}
)

// NewCampaignContactsCommand creates the campaign-contacts command group
func NewCampaignContactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign-contacts",
		Short: "Inspect Sales Dialer contacts",
		Long:  "List the contacts of a campaign and the custom contact fields",
	}

	cmd.AddCommand(newCampaignContactsListCommand())
	cmd.AddCommand(newCampaignContactsFieldsCommand())

	return cmd
}

func newCampaignContactsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list CAMPAIGN_ID",
		Short: "List campaign contacts",
		Long:  "List every contact of a Sales Dialer campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			contacts, err := collect(c.CampaignContacts().IterAll(cmd.Context(), args[0], iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list contacts of campaign %s: %w", args[0], err)
			}
			return printRecords(cmd.OutOrStdout(), "contacts", contacts, campaignContactColumns)
		},
	}
}

func newCampaignContactsFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List custom contact fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			fields, err := c.CampaignContacts().CustomFields(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list custom fields: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "custom fields", fields.Items, customFieldColumns)
		},
	}
}
