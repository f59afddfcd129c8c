package commands

import (
	"fmt"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/spf13/cobra"
)

var messageColumns = []column{
	{"ID", "id"},
	{"Date", "sms_date"},
	{"Time", "sms_time"},
	{"Contact", "contact_number"},
	{"JustCall Number", "justcall_number"},
	{"Direction", "direction"},
	{"Body", "sms_info.body"},
}

// NewMessagesCommand creates the messages command group
func NewMessagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"message", "texts"},
		Short:   "Inspect SMS messages",
		Long:    "List SMS and MMS messages",
	}

	cmd.AddCommand(newMessagesListCommand())

	return cmd
}

func newMessagesListCommand() *cobra.Command {
	var (
		from, to string
		filter   client.ListMessagesParams
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Long:  "List messages newest first, following the last fetched message ID across pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if filter.From, err = parseTime("from", from); err != nil {
				return err
			}
			if filter.To, err = parseTime("to", to); err != nil {
				return err
			}

			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			messages, err := collect(c.Messages().IterAll(cmd.Context(), filter, iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "messages", messages, messageColumns)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Messages after this time (YYYY-MM-DD [HH:MM:SS])")
	cmd.Flags().StringVar(&to, "to", "", "Messages before this time (YYYY-MM-DD [HH:MM:SS])")
	cmd.Flags().StringVar(&filter.ContactNumber, "contact", "", "Contact number (E.164)")
	cmd.Flags().StringVar(&filter.JustCallNumber, "justcall-number", "", "JustCall number (E.164)")
	cmd.Flags().StringVar(&filter.Direction, "direction", "", "Incoming or Outgoing")
	cmd.Flags().StringVar(&filter.Content, "content", "", "Keywords in the message body")

	return cmd
}
