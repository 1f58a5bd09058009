package cli

import (
	"fmt"

	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/BradenHooton/giftgate/internal/security"
	"github.com/spf13/cobra"
)

type formatResult struct {
	Method string `json:"method"`
	Value  string `json:"value"`
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
}

func newCheckFormatCommand(opts *options) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "check-format <value>",
		Short: "Check a credential against the local format rules",
		Long: `Check a credential against the local format rules without contacting
the verifier. Exits non-zero when the value is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := security.SanitizeString(args[0])
			err := security.ValidateCredential(models.ValidationMethod(method), value)

			result := formatResult{Method: method, Value: value, Valid: err == nil}
			if err != nil {
				result.Error = err.Error()
			}

			if opts.jsonOutput {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
			} else if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s\n", value, method)
			}

			if err != nil {
				return fmt.Errorf("%s is not a valid %s: %w", value, method, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", string(models.MethodEmail), "Validation method (email, employeeId, serialCard)")
	return cmd
}
