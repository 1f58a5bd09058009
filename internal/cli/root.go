// Package cli implements giftctl, the operator tool for the storefront
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultSitesFile = "sites.yaml"

// options holds the global flags shared by every subcommand
type options struct {
	sitesFile   string
	verifierURL string
	jsonOutput  bool
	verbose     bool
}

// NewRootCommand builds the giftctl command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "giftctl",
		Short: "Operator CLI for the giftgate storefront",
		Long: `giftctl inspects site configuration, exercises the access verifier
and reads the security event log.

Environment Variables:
  SITES_FILE         Site directory (default: sites.yaml)
  VERIFIER_URL       Remote verifier base URL
  VERIFIER_API_KEY   Remote verifier API key
  DB_*               Audit database connection (events command)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().StringVar(&opts.sitesFile, "sites-file", "", "Site directory file (overrides SITES_FILE)")
	root.PersistentFlags().StringVar(&opts.verifierURL, "verifier-url", "", "Verifier base URL (overrides VERIFIER_URL)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output JSON instead of human-readable text")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log security events to stderr")

	root.AddCommand(
		newSitesCommand(opts),
		newCheckFormatCommand(opts),
		newValidateCommand(opts),
		newMagicLinkCommand(opts),
		newEventsCommand(opts),
	)

	return root
}

// SitesFile returns the site directory path from flag, env, or default
func (o *options) SitesFile() string {
	if o.sitesFile != "" {
		return o.sitesFile
	}
	if env := os.Getenv("SITES_FILE"); env != "" {
		return env
	}
	return defaultSitesFile
}

// logger writes JSON logs to stderr when verbose, otherwise discards them
func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
