package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/athena68/tb-performance-tests/internal/telemetry"
)

func newAssetCmd(opts *globalOptions) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "asset <type>",
		Short: "Print the resolved attributes of an asset type as JSON",
		Example: `  tbattrs asset room --set classification=ISO_5 --set area_sqm=240
  tbattrs --env prod asset building --set building_type=Cleanroom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			ctx, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			attrs, err := a.engine.ResolveAssetAttributes(args[0], ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), attrs)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "context value key=value (repeatable)")
	return cmd
}

func newDeviceCmd(opts *globalOptions) *cobra.Command {
	var (
		index int
		sets  []string
	)

	cmd := &cobra.Command{
		Use:     "device <type>",
		Short:   "Print the flattened attributes of a device type as JSON",
		Example: `  tbattrs device ebmpapst_ffu --index 7 --seed 42`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			ctx, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			attrs, err := a.engine.ResolveDeviceAttributes(args[0], index, ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), attrs)
		},
	}
	cmd.Flags().IntVarP(&index, "index", "i", 0, "device index for {device_index} templates")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "context value key=value (repeatable)")
	return cmd
}

func newTelemetryCmd(opts *globalOptions) *cobra.Command {
	var sample string

	cmd := &cobra.Command{
		Use:   "telemetry <type>",
		Short: "Print the merged telemetry document of a device type as YAML",
		Long: `Prints the telemetry definition after environment overlays are applied.
With --sample, prints one generated sample for the named device instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			doc, err := a.engine.TelemetryConfig(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if sample == "" {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return fmt.Errorf("encoding telemetry document: %w", err)
				}
				return enc.Close()
			}

			tcfg, err := telemetry.FromDocument(doc)
			if err != nil {
				return err
			}
			return writeJSON(out, telemetry.NewGenerator(tcfg, a.seed).Next(sample))
		},
	}
	cmd.Flags().StringVar(&sample, "sample", "", "print a generated sample for this device name")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// deviceTypeKey maps a profile name such as "EBMPAPST_FFU" to its
// definition document name.
func deviceTypeKey(profile string) string {
	return strings.ToLower(profile)
}
