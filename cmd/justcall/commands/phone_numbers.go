package commands

import (
	"fmt"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/spf13/cobra"
)

var phoneNumberColumns = []column{
	{"ID", "id"},
	{"Number", "justcall_number"},
	{"Line", "justcall_line_name"},
	{"Type", "number_type"},
	{"Capabilities", "capabilities"},
}

// NewPhoneNumbersCommand creates the phone-numbers command group
func NewPhoneNumbersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "phone-numbers",
		Aliases: []string{"numbers"},
		Short:   "Inspect JustCall numbers",
		Long:    "List the phone numbers of the JustCall account",
	}

	cmd.AddCommand(newPhoneNumbersListCommand())

	return cmd
}

func newPhoneNumbersListCommand() *cobra.Command {
	var filter client.ListPhoneNumbersParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List phone numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			numbers, err := collect(c.PhoneNumbers().IterAll(cmd.Context(), filter, iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list phone numbers: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "phone numbers", numbers, phoneNumberColumns)
		},
	}

	cmd.Flags().StringVar(&filter.LineName, "line", "", "Line name")
	cmd.Flags().StringVar(&filter.NumberType, "type", "", "local, mobile or toll_free")
	cmd.Flags().StringVar(&filter.Capabilities, "capability", "", "call, sms or mms")
	cmd.Flags().Int64Var(&filter.NumberOwnerID, "owner", 0, "Owner user ID")

	return cmd
}
