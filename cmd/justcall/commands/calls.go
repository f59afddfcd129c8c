package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/spf13/cobra"
)

var callColumns = []column{
	{"ID", "id"},
	{"Date", "call_date"},
	{"Time", "call_time"},
	{"Contact", "contact_number"},
	{"Agent", "agent_name"},
	{"Direction", "call_info.direction"},
	{"Type", "call_info.type"},
}

// NewCallsCommand creates the calls command group
func NewCallsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calls",
		Aliases: []string{"call"},
		Short:   "Inspect calls",
		Long:    "List calls, show call details and download recordings",
	}

	cmd.AddCommand(newCallsListCommand())
	cmd.AddCommand(newCallsGetCommand())
	cmd.AddCommand(newCallsRecordingCommand())

	return cmd
}

func newCallsListCommand() *cobra.Command {
	var (
		from, to  string
		direction string
		callType  string
		contact   string
		agentID   int64
		traits    []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List calls",
		Long:  "List calls newest first, following the last fetched call ID across pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := client.ListCallsParams{
				ContactNumber: contact,
				AgentID:       agentID,
				CallDirection: direction,
				CallType:      callType,
				CallTraits:    traits,
			}
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

			calls, err := collect(c.Calls().IterAll(cmd.Context(), filter, iterOptions()...))
			if err != nil {
				return fmt.Errorf("failed to list calls: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), "calls", calls, callColumns)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Calls after this time (YYYY-MM-DD [HH:MM:SS])")
	cmd.Flags().StringVar(&to, "to", "", "Calls before this time (YYYY-MM-DD [HH:MM:SS])")
	cmd.Flags().StringVar(&direction, "direction", "", "Incoming or Outgoing")
	cmd.Flags().StringVar(&callType, "type", "", "answered, unanswered, missed, voicemail or abandoned")
	cmd.Flags().StringVar(&contact, "contact", "", "Contact number")
	cmd.Flags().Int64Var(&agentID, "agent", 0, "Agent ID")
	cmd.Flags().StringSliceVar(&traits, "trait", nil, "Call trait filter (repeatable)")

	return cmd
}

func newCallsGetCommand() *cobra.Command {
	var (
		journey    bool
		voiceAgent bool
		params     client.GetCallParams
	)

	cmd := &cobra.Command{
		Use:   "get CALL_ID [CALL_ID...]",
		Short: "Show call details",
		Long:  "Show one call, or several fetched concurrently through the shared rate gate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			if len(ids) > 1 && (journey || voiceAgent) {
				return errors.New("--journey and --voice-agent take a single call ID")
			}

			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if len(ids) > 1 {
				found, err := c.Calls().GetMany(cmd.Context(), ids, 0)
				if err != nil {
					return fmt.Errorf("failed to get calls: %w", err)
				}
				records := make([]client.Record, 0, len(found))
				for _, id := range ids {
					if rec, ok := found[id]; ok {
						records = append(records, rec)
						delete(found, id)
					}
				}
				return printRecords(cmd.OutOrStdout(), "calls", records, callColumns)
			}

			var rec client.Record
			switch {
			case journey:
				rec, err = c.Calls().Journey(cmd.Context(), ids[0])
			case voiceAgent:
				rec, err = c.Calls().VoiceAgentData(cmd.Context(), ids[0])
			default:
				rec, err = c.Calls().Get(cmd.Context(), ids[0], params)
			}
			if err != nil {
				return fmt.Errorf("failed to get call %d: %w", ids[0], err)
			}
			return printRecord(cmd.OutOrStdout(), rec)
		},
	}

	cmd.Flags().BoolVar(&journey, "journey", false, "Show the call journey")
	cmd.Flags().BoolVar(&voiceAgent, "voice-agent", false, "Show voice agent data")
	cmd.Flags().BoolVar(&params.FetchQueueData, "queue-data", false, "Include queue data")
	cmd.Flags().BoolVar(&params.FetchAIData, "ai-data", false, "Include AI data")

	return cmd
}

func newCallsRecordingCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "recording CALL_ID",
		Short: "Download a call recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if outFile == "" {
				outFile = fmt.Sprintf("call-%d.mp3", id)
			}

			c, closeFn, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := c.Calls().DownloadRecording(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to download recording of call %d: %w", id, err)
			}
			if outFile == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o600); err != nil {
				return fmt.Errorf("failed to write recording: %w", err)
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d bytes to %s\n", len(data), outFile)
			return err
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Output file, - for stdout (default call-<id>.mp3)")

	return cmd
}
