package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/athena68/tb-performance-tests/internal/attributes"
	"github.com/athena68/tb-performance-tests/internal/gateway"
	"github.com/athena68/tb-performance-tests/internal/infrastructure/database"
	"github.com/athena68/tb-performance-tests/internal/infrastructure/influxdb"
	"github.com/athena68/tb-performance-tests/internal/infrastructure/mqtt"
	"github.com/athena68/tb-performance-tests/internal/manifest"
	"github.com/athena68/tb-performance-tests/internal/scenario"
	"github.com/athena68/tb-performance-tests/internal/telemetry"
)

// defaultPublishInterval is used when a telemetry document sets none.
const defaultPublishInterval = 5 * time.Second

type planOptions struct {
	publish   bool
	noStore   bool
	asJSON    bool
	rounds    int
	batchSize int
}

func newPlanCmd(opts *globalOptions) *cobra.Command {
	po := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <scenario.json>",
		Short: "Resolve every asset and device of a scenario",
		Long: `Validates the scenario, resolves attributes for each entity of the
hierarchy and records the result in the manifest database.
With --publish, devices are announced to ThingsBoard through the MQTT
gateway API, their attributes sent, and --rounds telemetry samples
published (mirrored to InfluxDB when enabled).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			return a.runPlan(cmd.Context(), cmd.OutOrStdout(), args[0], po)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&po.publish, "publish", false, "publish devices, attributes and telemetry via MQTT")
	flags.BoolVar(&po.noStore, "no-store", false, "do not record the run in the manifest database")
	flags.BoolVar(&po.asJSON, "json", false, "print the full plan as JSON")
	flags.IntVar(&po.rounds, "rounds", 1, "telemetry rounds to publish with --publish")
	flags.IntVar(&po.batchSize, "batch-size", gateway.DefaultBatchSize, "devices per attribute/telemetry message")
	return cmd
}

func (a *app) runPlan(ctx context.Context, out io.Writer, path string, po *planOptions) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	report := s.Validate()
	for _, w := range report.Warnings {
		a.log.Warn("scenario warning", "scenario", s.Name, "warning", w)
	}
	if err := report.Err(); err != nil {
		return err
	}

	planner := scenario.NewPlanner(a.engine, a.seed)
	planner.SetLogger(a.log)
	plan := planner.Plan(s)

	failed := plan.Failed()
	for _, e := range failed {
		a.log.Warn("entity not resolved", "entity", e.Name, "level", e.Level, "type", e.Type, "error", e.Err)
	}

	if !po.noStore {
		runID, err := a.store(ctx, plan)
		if err != nil {
			return err
		}
		a.log.Info("run recorded", "run_id", runID, "database", a.cfg.Database.Path)
	}

	if po.publish {
		if err := a.publish(ctx, plan, po); err != nil {
			return err
		}
	}

	if po.asJSON {
		return writeJSON(out, plan)
	}
	c := report.Counts
	fmt.Fprintf(out, "%s: %d sites, %d buildings, %d floors, %d rooms, %d gateways, %d devices\n",
		plan.Scenario, c.Sites, c.Buildings, c.Floors, c.Rooms, c.Gateways, c.Devices)
	fmt.Fprintf(out, "resolved %d of %d entities\n", len(plan.Entities)-len(failed), len(plan.Entities))
	return nil
}

// store records the plan in the manifest database and returns the run ID.
func (a *app) store(ctx context.Context, plan *scenario.Plan) (string, error) {
	db, err := database.OpenMigrated(ctx, database.Config{
		Path:        a.cfg.Database.Path,
		WALMode:     a.cfg.Database.WALMode,
		BusyTimeout: a.cfg.Database.BusyTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("opening manifest: %w", err)
	}
	defer db.Close() //nolint:errcheck // Best effort on shutdown

	if err := db.HealthCheck(ctx); err != nil {
		return "", fmt.Errorf("manifest %s: %w", db.Path(), err)
	}

	run := &manifest.Run{Environment: a.engine.Environment(), Seed: a.seed}
	if err := manifest.Record(ctx, manifest.NewSQLiteRepository(db.DB), run, plan); err != nil {
		return "", err
	}
	return run.ID, nil
}

// publish pushes the plan through the ThingsBoard gateway API.
func (a *app) publish(ctx context.Context, plan *scenario.Plan, po *planOptions) error {
	client, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck // Best effort on shutdown
	client.SetLogger(a.log)

	pub := gateway.NewPublisher(client)
	pub.SetLogger(a.log)
	pub.SetBatchSize(po.batchSize)

	if a.cfg.InfluxDB.Enabled {
		influx, err := influxdb.Connect(a.cfg.InfluxDB)
		if err != nil {
			a.log.Warn("telemetry mirror disabled", "error", err)
		} else {
			defer influx.Close() //nolint:errcheck // Flushes on close
			influx.SetOnError(func(err error) {
				a.log.Warn("influxdb write failed", "error", err)
			})
			pub.SetSink(influx)
			defer func() {
				influx.WriteRun(plan.Scenario, a.engine.Environment(),
					len(plan.Entities), len(plan.Failed()), time.Now())
			}()
		}
	}

	devices := gateway.Devices(plan)
	interval := a.registerSamplers(pub, devices)
	a.log.Debug("telemetry samplers", "types", pub.SamplerTypes(), "interval", interval)

	if err := client.HealthCheck(ctx); err != nil {
		return err
	}
	client.SetOnReconnect(pub.Reconnected)

	if err := pub.PublishPlan(plan); err != nil {
		return err
	}
	defer func() {
		if err := pub.Disconnect(devices); err != nil {
			a.log.Warn("device disconnect incomplete", "error", err)
		}
		s := pub.Stats()
		a.log.Info("publish finished",
			"connected", s.Connected,
			"disconnected", s.Disconnected,
			"attribute_messages", s.AttributeMessages,
			"telemetry_messages", s.TelemetryMessages,
			"samples", s.Samples,
			"skipped_rounds", s.SkippedRounds,
			"failures", s.Failures,
		)
	}()

	if po.rounds > 0 {
		return pub.Run(ctx, devices, interval, po.rounds)
	}
	return nil
}

// registerSamplers attaches a telemetry generator for every device type
// that has a telemetry document and returns the shortest publish interval.
func (a *app) registerSamplers(pub *gateway.Publisher, devices []scenario.Entity) time.Duration {
	interval := time.Duration(0)
	seen := make(map[string]bool)
	for _, d := range devices {
		if seen[d.Type] {
			continue
		}
		seen[d.Type] = true

		doc, err := a.engine.TelemetryConfig(deviceTypeKey(d.Type))
		if errors.Is(err, attributes.ErrConfigNotFound) {
			a.log.Debug("no telemetry document", "type", d.Type)
			continue
		}
		if err != nil {
			a.log.Warn("telemetry document unusable", "type", d.Type, "error", err)
			continue
		}
		tcfg, err := telemetry.FromDocument(doc)
		if err != nil {
			a.log.Warn("telemetry document unusable", "type", d.Type, "error", err)
			continue
		}
		pub.SetSampler(d.Type, telemetry.NewGenerator(tcfg, a.seed))
		if p := tcfg.Rules.PublishInterval; p > 0 && (interval == 0 || p < interval) {
			interval = p
		}
	}
	if interval == 0 {
		interval = defaultPublishInterval
	}
	return interval
}
