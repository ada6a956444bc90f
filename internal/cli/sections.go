package cli

import (
	"github.com/spf13/cobra"

	"ats-backend/internal/completeness"
)

func newSectionsCommand(resolve func() (options, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "sections FILE",
		Short: "Show which profile sections were found and the completeness tier",
		Long: `Normalize a resume (.pdf, plain text) or a profile payload (.json) and
report the available and missing sections. No inference call is made.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolve()
			if err != nil {
				return err
			}
			f, err := readInput(args[0])
			if err != nil {
				return err
			}
			in, err := f.normalize(cmd.Context())
			if err != nil {
				return err
			}
			report := completeness.Evaluate(in)
			var rem *completeness.Remediation
			if report.Tier == completeness.TierInsufficient {
				r := completeness.BuildRemediation(report)
				rem = &r
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"completeness": report,
					"remediation":  rem,
				})
			}
			renderReport(cmd.OutOrStdout(), report)
			if rem != nil {
				renderRemediation(cmd.OutOrStdout(), *rem)
			}
			return nil
		},
	}
}
