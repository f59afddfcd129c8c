package commands

import (
	"io"
	"os"

	"github.com/Sternrassler/justcall-client/internal/config"
	"github.com/Sternrassler/justcall-client/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// persistentFlags maps config keys to the global flags that override them.
var persistentFlags = map[string]string{
	"api_key":    "api-key",
	"api_secret": "api-secret",
	"base_url":   "base-url",
	"output":     "output",
	"log_level":  "log-level",
	"max":        "max",
	"metrics":    "metrics",
}

// NewRootCommand creates the justcall command with every subcommand attached.
func NewRootCommand(version, commit, date string) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "justcall",
		Short: "JustCall API command-line client",
		Long: `justcall lists and manages JustCall calls, contacts, users, messages,
phone numbers and Sales Dialer campaigns. Requests share one client-side rate
limit, optionally coordinated through Redis across processes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(viper.GetViper(), cfgFile); err != nil {
				return err
			}
			logging.Setup(logging.Config{
				Level:  logging.LogLevel(viper.GetString("log_level")),
				Pretty: isTerminal(cmd.ErrOrStderr()),
				Output: cmd.ErrOrStderr(),
			})
			logger := logging.NewLogger("justcall-cli")
			logger.Debug().
				Str("config", viper.ConfigFileUsed()).
				Str("command", cmd.CommandPath()).
				Msg("Configuration loaded")
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool("metrics") {
				return PrintMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.justcall/config.yml)")
	flags.String("api-key", "", "JustCall API key")
	flags.String("api-secret", "", "JustCall API secret")
	flags.String("base-url", "", "API base URL (default https://api.justcall.io)")
	flags.StringP("output", "o", "", "output format (table, json, yaml)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error, off)")
	flags.Int("max", 0, "maximum number of records to fetch, 0 for all")
	flags.Bool("metrics", false, "print client metrics to stderr after the command")

	for key, name := range persistentFlags {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(NewCampaignsCommand())
	root.AddCommand(NewCampaignCallsCommand())
	root.AddCommand(NewCampaignContactsCommand())
	root.AddCommand(NewCallsCommand())
	root.AddCommand(NewContactsCommand())
	root.AddCommand(NewUsersCommand())
	root.AddCommand(NewMessagesCommand())
	root.AddCommand(NewPhoneNumbersCommand())
	root.AddCommand(NewConfigureCommand())
	root.AddCommand(NewVersionCommand(version, commit, date))

	return root
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
