package cli

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/giftgate/internal/access"
	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/config"
	"github.com/BradenHooton/giftgate/internal/security"
	"github.com/BradenHooton/giftgate/internal/session"
	pkglogger "github.com/BradenHooton/giftgate/pkg/logger"
	"github.com/spf13/cobra"
)

// cliClientKey scopes the attempt rate limit for CLI runs
const cliClientKey = "cli"

var errVerifierURL = errors.New("verifier URL is required (--verifier-url or VERIFIER_URL)")

// attemptRun is one pipeline built for a single CLI invocation
type attemptRun struct {
	pipeline *access.Pipeline
	sessions *session.Manager
	sites    *config.Sites
}

func (o *options) newAttemptRun(cmd *cobra.Command) (*attemptRun, error) {
	sites, err := config.LoadSites(o.SitesFile())
	if err != nil {
		return nil, err
	}

	vcfg := config.LoadVerifier()
	if o.verifierURL != "" {
		vcfg.URL = o.verifierURL
	}
	if vcfg.URL == "" {
		return nil, errVerifierURL
	}

	logger := o.logger(cmd)
	clk := clock.New()
	events := security.NewEventLogger(clk, logger, security.NewSlogSink(pkglogger.NewAuditLogger(logger, "cli")))

	sessions := session.NewManager(session.Config{
		Clock:  clk,
		Events: events,
		Logger: logger,
	})

	pipeline := access.NewPipeline(access.Deps{
		Verifier: access.NewHTTPVerifier(access.HTTPVerifierConfig{
			BaseURL:       vcfg.URL,
			EnvironmentID: vcfg.EnvironmentID,
			APIKey:        vcfg.APIKey,
			Timeout:       vcfg.Timeout,
		}),
		Limiter:  security.NewRateLimiter(security.NewMemoryWindowStore(clk), clk, logger),
		Sessions: sessions,
		Storage:  access.NewMemoryStore(),
		Events:   events,
		Sites:    sites,
		Logger:   logger,
	}, access.Config{})

	return &attemptRun{pipeline: pipeline, sessions: sessions, sites: sites}, nil
}

func newValidateCommand(opts *options) *cobra.Command {
	var siteID string

	cmd := &cobra.Command{
		Use:   "validate <value>",
		Short: "Run an access attempt against the verifier",
		Long: `Run one access attempt for a site through the full validation pipeline:
sanitization, local format check and the remote verifier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := opts.newAttemptRun(cmd)
			if err != nil {
				return err
			}
			defer run.sessions.Close()

			site, ok := run.sites.Site(siteID)
			if !ok {
				return fmt.Errorf("site %q not found", siteID)
			}

			result, err := run.pipeline.Validate(cmd.Context(), access.Attempt{
				Site:      site,
				Value:     args[0],
				ClientKey: cliClientKey,
			})
			if err != nil {
				return describeAttemptError(err)
			}
			return writeResult(cmd, opts, result)
		},
	}

	cmd.Flags().StringVarP(&siteID, "site", "s", "", "Site id")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func newMagicLinkCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "magic-link <token>",
		Short: "Verify a magic-link token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := opts.newAttemptRun(cmd)
			if err != nil {
				return err
			}
			defer run.sessions.Close()

			result, err := run.pipeline.VerifyMagicLink(cmd.Context(), args[0], cliClientKey)
			if err != nil {
				return describeAttemptError(err)
			}
			return writeResult(cmd, opts, result)
		},
	}
}

func writeResult(cmd *cobra.Command, opts *options, result *access.Result) error {
	if opts.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Access granted for %s on %s\n", result.Identifier, result.SiteID)
	if result.Employee != nil {
		fmt.Fprintf(out, "Employee: %s (%s)\n", result.Employee.Name, result.Employee.ID)
	}
	fmt.Fprintf(out, "Next:     %s\n", result.Next)
	return nil
}

// describeAttemptError prefers the user-facing message over the raw error
func describeAttemptError(err error) error {
	var attemptErr *access.AttemptError
	if errors.As(err, &attemptErr) {
		return fmt.Errorf("%s: %w", attemptErr.Message, err)
	}
	return err
}
