package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/BradenHooton/giftgate/internal/access"
	"github.com/BradenHooton/giftgate/internal/config"
	"github.com/spf13/cobra"
)

func newSitesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sites [site-id]",
		Short: "List configured sites or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := config.LoadSites(opts.SitesFile())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				site, ok := sites.Site(args[0])
				if !ok {
					return fmt.Errorf("site %q not found", args[0])
				}
				if opts.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), site)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ID:       %s\nName:     %s\nMethod:   %s\nNext:     %s\n",
					site.ID, site.Name, site.ValidationMethod, access.NextStepFor(site))
				return nil
			}

			all := sites.All()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), all)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tMETHOD\tNEXT")
			for _, site := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", site.ID, site.Name, site.ValidationMethod, access.NextStepFor(site))
			}
			return tw.Flush()
		},
	}
}
