package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/athena68/tb-performance-tests/internal/attributes"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		file string
		kind string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check definition documents for structural errors",
		Long: `Validates every document under the attributes and telemetry roots,
including environment overlays merged onto their base documents.
With --file, validates a single document. Exits non-zero on errors;
warnings are printed but do not fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			v := attributes.NewValidator(a.cfg.Attributes.Dir, a.cfg.Attributes.TelemetryDir)

			var report attributes.Report
			if file != "" {
				k := attributes.Kind(kind)
				if kind != "" && !k.Valid() {
					return fmt.Errorf("invalid --kind %q: want asset, device or telemetry", kind)
				}
				report = v.ValidateFile(file, k)
			} else {
				report = v.ValidateAll()
			}

			out := cmd.OutOrStdout()
			for _, issue := range report.Errors {
				fmt.Fprintf(out, "ERROR   %s\n", issue)
			}
			for _, issue := range report.Warnings {
				fmt.Fprintf(out, "WARNING %s\n", issue)
			}
			fmt.Fprintf(out, "%d file(s), %d error(s), %d warning(s)\n",
				report.Files, len(report.Errors), len(report.Warnings))

			return report.Err()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "validate a single document")
	cmd.Flags().StringVar(&kind, "kind", "", "document kind for --file (inferred from the path when empty)")
	return cmd
}
