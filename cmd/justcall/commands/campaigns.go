package commands

import (
	"fmt"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/spf13/cobra"
)

var campaignColumns = []column{
	{"ID", "id"},
	{"Name", "name"},
	{"Type", "type"},
	{"Status", "status"},
	{"Created", "created_at"},
}

// NewCampaignsCommand creates the campaigns command group
func NewCampaignsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "campaigns",
		Aliases: []string{"campaign"},
		Short:   "Manage Sales Dialer campaigns",
		Long:    "List and create JustCall Sales Dialer campaigns",
	}

	cmd.AddCommand(newCampaignsListCommand())
	cmd.AddCommand(newCampaignsCreateCommand())

	return cmd
}

func newCampaignsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		Long:  "List all Sales Dialer campaigns, fetching pages until an empty one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			campaigns, err := collect(c.Campaigns().IterAll(cmd.Context(), iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list campaigns: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "campaigns", campaigns, campaignColumns)
		},
	}
}

func newCampaignsCreateCommand() *cobra.Command {
	var params client.CreateCampaignParams

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a campaign",
		Long:  "Create a Sales Dialer campaign of type autodial, predictive or dynamic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Name = args[0]

			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			campaign, err := c.Campaigns().Create(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to create campaign: %w", err)
			}
			return printRecord(cmd.OutOrStdout(), campaign)
		},
	}

	cmd.Flags().StringVarP(&params.Type, "type", "t", client.CampaignAutodial, "Campaign type (autodial, predictive, dynamic)")
	cmd.Flags().StringVar(&params.DefaultNumber, "default-number", "", "JustCall number used to dial")
	cmd.Flags().StringVar(&params.CountryCode, "country", "", "ISO 3166-1 alpha-2 country code")

	return cmd
}
