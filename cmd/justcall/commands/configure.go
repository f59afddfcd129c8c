package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sternrassler/justcall-client/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// NewConfigureCommand creates the configure command
func NewConfigureCommand() *cobra.Command {
	var (
		show     bool
		redisURL string
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store API credentials and defaults",
		Long: `Write the API key, secret and other settings to the config file
(default ~/.justcall/config.yml). Values given by flags or JUSTCALL_* variables
are stored as they are; a missing key or secret is prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			if show {
				return printConfig(cmd.OutOrStdout(), cfg.Masked())
			}

			if cmd.Flags().Changed("redis-url") {
				cfg.RedisURL = redisURL
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if cfg.APIKey == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
				if cfg.APIKey, err = readLine(in); err != nil {
					return fmt.Errorf("failed to read API key: %w", err)
				}
			}
			if cfg.APISecret == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "API secret: ")
				if cfg.APISecret, err = readSecret(cmd.InOrStdin(), in); err != nil {
					return fmt.Errorf("failed to read API secret: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if cfg.APIKey == "" || cfg.APISecret == "" {
				return config.ErrMissingCredentials
			}

			path := viper.ConfigFileUsed()
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			if path == "" {
				path, _ = config.DefaultPath()
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print the effective configuration with credentials masked")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Share the rate limit through Redis, e.g. redis://localhost:6379/0")

	return cmd
}

func printConfig(w io.Writer, cfg config.Config) error {
	if outputFormat() == config.OutputJSON {
		_, err := encode(w, cfg)
		return err
	}
	// Table output shows the file format.
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(cfg)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads without echo from a terminal and falls back to a plain
// line read for pipes.
func readSecret(src io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(buffered)
}
