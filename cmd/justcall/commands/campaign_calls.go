package commands

import (
	"fmt"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/spf13/cobra"
)

var campaignCallColumns = []column{
	{"Call ID", "call_id"},
	{"Campaign", "campaign.name"},
	{"Contact", "contact"},
	{"Phone", "phone"},
	{"User", "user"},
	{"Time", "time"},
	{"Disposition", "disposition"},
}

// NewCampaignCallsCommand creates the campaign-calls command group
func NewCampaignCallsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign-calls",
		Short: "Inspect Sales Dialer calls",
		Long:  "List calls placed by Sales Dialer campaigns",
	}

	cmd.AddCommand(newCampaignCallsListCommand())

	return cmd
}

func newCampaignCallsListCommand() *cobra.Command {
	var (
		campaignID string
		from, to   string
		ascending  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaign calls",
		Long:  "List Sales Dialer calls, optionally for one campaign and a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := client.ListCampaignCallsParams{
				CampaignID: campaignID,
				Order:      client.CampaignCallsDescending,
			}
			if ascending {
				filter.Order = client.CampaignCallsAscending
			}
			var err error
			if filter.StartDate, err = parseTime("from", from); err != nil {
				return err
			}
			if filter.EndDate, err = parseTime("to", to); err != nil {
				return err
			}

			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			calls, err := collect(c.CampaignCalls().IterAll(cmd.Context(), filter, iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list campaign calls: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "campaign calls", calls, campaignCallColumns)
		},
	}

	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign ID")
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&ascending, "asc", false, "Oldest calls first")

	return cmd
}
