package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/BradenHooton/giftgate/internal/config"
	"github.com/BradenHooton/giftgate/internal/database"
	"github.com/BradenHooton/giftgate/internal/repositories"
	"github.com/spf13/cobra"
)

const maxEventLimit = 500

func newEventsCommand(opts *options) *cobra.Command {
	var (
		action string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent security events from the audit database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 || limit > maxEventLimit {
				return fmt.Errorf("--limit must be between 1 and %d", maxEventLimit)
			}

			dbConfig := config.LoadDatabase()
			db, err := database.OpenAuditDB(cmd.Context(), &dbConfig, opts.logger(cmd))
			if err != nil {
				return err
			}
			defer db.Close()

			events, err := repositories.NewSecurityEventRepository(db).ListRecent(cmd.Context(), action, limit)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), events)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTION\tSTATUS\tUSER")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.UTC().Format(time.RFC3339), e.Action, e.Status, e.UserID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", "", "Only show events with this action")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events")
	return cmd
}
