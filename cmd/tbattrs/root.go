package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/athena68/tb-performance-tests/internal/attributes"
	"github.com/athena68/tb-performance-tests/internal/infrastructure/config"
	"github.com/athena68/tb-performance-tests/internal/infrastructure/logging"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath  string
	environment string
	seed        uint64
}

// app is the state built from configuration for one command invocation.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	loader *attributes.Loader
	engine *attributes.Engine

	// seed is the effective seed: the configured one, or a random one
	// when none was configured.
	seed uint64
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "tbattrs",
		Short:         "Resolve ThingsBoard attributes from YAML definition documents",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", getConfigPath(), "path to config.yaml")
	flags.StringVarP(&opts.environment, "env", "e", "", "overlay environment (dev, staging, prod)")
	flags.Uint64Var(&opts.seed, "seed", 0, "random seed for reproducible output (0 = random)")

	root.AddCommand(
		newAssetCmd(opts),
		newDeviceCmd(opts),
		newTelemetryCmd(opts),
		newValidateCmd(opts),
		newPlanCmd(opts),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the engine.
func (o *globalOptions) setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("env") {
		cfg.Attributes.Environment = o.environment
	}
	if flags.Changed("seed") {
		cfg.Attributes.Seed = o.seed
	}

	log := logging.New(cfg.Logging, version)

	seed := cfg.Attributes.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	loader := attributes.NewLoader(cfg.Attributes.Dir, cfg.Attributes.TelemetryDir)
	loader.SetLogger(log)

	engine := attributes.NewEngine(loader, cfg.Attributes.Environment)
	engine.SetSeed(seed)
	engine.SetLegacyRandom(cfg.Attributes.LegacyRandom)
	engine.SetLogger(log)

	log.Debug("configuration loaded",
		"config", o.configPath,
		"attributes_dir", cfg.Attributes.Dir,
		"environment", cfg.Attributes.Environment,
		"seed", seed,
	)

	return &app{cfg: cfg, log: log, loader: loader, engine: engine, seed: seed}, nil
}

// parseAssignments turns key=value flags into a context map. Values are
// decoded as YAML scalars so "240" is an int and "true" a bool.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		switch value.(type) {
		case map[string]any, []any:
			// Structured values are not context facts; keep the text.
			value = raw
		}
		out[key] = value
	}
	return out, nil
}
