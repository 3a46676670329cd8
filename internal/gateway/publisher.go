package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/athena68/tb-performance-tests/internal/infrastructure/mqtt"
	"github.com/athena68/tb-performance-tests/internal/scenario"
)

// DefaultBatchSize is the number of devices per attributes or telemetry
// message.
const DefaultBatchSize = 50

// Transport publishes JSON payloads. *mqtt.Client satisfies it.
type Transport interface {
	PublishJSON(topic string, v any) error
}

// Sink mirrors telemetry samples. *influxdb.Client satisfies it.
type Sink interface {
	WriteTelemetry(device, deviceType string, values map[string]any, ts time.Time)
}

// HealthChecker is implemented by transports and sinks that can report
// whether they are usable. *mqtt.Client and *influxdb.Client satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Sampler produces one telemetry sample for a device.
// *telemetry.Generator satisfies it.
type Sampler interface {
	Next(device string) map[string]any
}

// Logger defines the logging interface used by the Publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats counts what a Publisher has sent.
type Stats struct {
	Connected         int `json:"connected"`
	Disconnected      int `json:"disconnected"`
	AttributeMessages int `json:"attribute_messages"`
	TelemetryMessages int `json:"telemetry_messages"`
	Samples           int `json:"samples"`
	SkippedRounds     int `json:"skipped_rounds"`
	Failures          int `json:"failures"`
}

// Publisher sends planned devices through the ThingsBoard gateway API.
//
// Not safe for concurrent use; one Publisher drives one gateway session.
// Reconnected is the exception and may be called from any goroutine.
type Publisher struct {
	transport Transport
	sink      Sink
	samplers  map[string]Sampler
	topics    mqtt.Topics
	batchSize int
	now       func() time.Time
	logger    Logger
	stats     Stats

	// reannounce is set by Reconnected and consumed by the next Run round.
	reannounce atomic.Bool
}

// NewPublisher creates a Publisher over transport.
func NewPublisher(transport Transport) *Publisher {
	return &Publisher{
		transport: transport,
		samplers:  make(map[string]Sampler),
		batchSize: DefaultBatchSize,
		now:       time.Now,
		logger:    noopLogger{},
	}
}

// SetSink mirrors every telemetry sample to sink.
func (p *Publisher) SetSink(sink Sink) { p.sink = sink }

// SetSampler registers the telemetry source for a device type (the
// entity's Type, e.g. "EBMPAPST_FFU"). Devices of types without a sampler
// publish no telemetry.
func (p *Publisher) SetSampler(deviceType string, s Sampler) { p.samplers[deviceType] = s }

// SetBatchSize sets devices per message. Values below 1 are ignored.
func (p *Publisher) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// SetClock replaces time.Now for telemetry timestamps.
func (p *Publisher) SetClock(now func() time.Time) { p.now = now }

// SetLogger sets the logger.
func (p *Publisher) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	p.logger = l
}

// Stats returns the counters so far.
func (p *Publisher) Stats() Stats { return p.stats }

// Reconnected records that the gateway session was re-established. The
// next Run round announces every device again before sending telemetry.
func (p *Publisher) Reconnected() { p.reannounce.Store(true) }

// Devices returns the plan entities ThingsBoard treats as devices, in plan
// order. Entities whose attributes failed to resolve are left out.
func Devices(plan *scenario.Plan) []scenario.Entity {
	var out []scenario.Entity
	for _, e := range plan.Entities {
		if e.Level.IsDevice() && e.Err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Connect announces each device on v1/gateway/connect.
func (p *Publisher) Connect(devices []scenario.Entity) error {
	if p.transport == nil {
		return ErrNoTransport
	}
	failed := 0
	for _, d := range devices {
		msg := connectMessage{Device: d.Name, Type: d.Type}
		if err := p.transport.PublishJSON(p.topics.GatewayConnect(), msg); err != nil {
			p.logger.Warn("device connect failed", "device", d.Name, "error", err)
			failed++
			continue
		}
		p.stats.Connected++
	}
	return p.partial(failed, len(devices))
}

// Disconnect removes each device from the gateway session on
// v1/gateway/disconnect.
func (p *Publisher) Disconnect(devices []scenario.Entity) error {
	if p.transport == nil {
		return ErrNoTransport
	}
	failed := 0
	for _, d := range devices {
		msg := disconnectMessage{Device: d.Name}
		if err := p.transport.PublishJSON(p.topics.GatewayDisconnect(), msg); err != nil {
			p.logger.Warn("device disconnect failed", "device", d.Name, "error", err)
			failed++
			continue
		}
		p.stats.Disconnected++
	}
	return p.partial(failed, len(devices))
}

// PublishAttributes sends client-side attributes, batchSize devices per
// message on v1/gateway/attributes.
func (p *Publisher) PublishAttributes(devices []scenario.Entity) error {
	if p.transport == nil {
		return ErrNoTransport
	}
	batches := 0
	failed := 0
	for start := 0; start < len(devices); start += p.batchSize {
		end := min(start+p.batchSize, len(devices))
		payload := make(map[string]map[string]any, end-start)
		for _, d := range devices[start:end] {
			payload[d.Name] = d.Attributes
		}
		batches++
		if err := p.transport.PublishJSON(p.topics.GatewayAttributes(), payload); err != nil {
			p.logger.Warn("attributes publish failed", "devices", end-start, "error", err)
			failed++
			continue
		}
		p.stats.AttributeMessages++
	}
	return p.partial(failed, batches)
}

// PublishTelemetry draws one sample per device and sends them, batchSize
// devices per message on v1/gateway/telemetry. Devices whose sample is
// empty (offline) are skipped.
func (p *Publisher) PublishTelemetry(devices []scenario.Entity) error {
	return p.publishTelemetry(devices, p.sink != nil)
}

func (p *Publisher) publishTelemetry(devices []scenario.Entity, mirror bool) error {
	if p.transport == nil {
		return ErrNoTransport
	}
	ts := p.now()
	tsMillis := ts.UnixMilli()

	var pending []telemetryBatchEntry
	for _, d := range devices {
		sampler, ok := p.samplers[d.Type]
		if !ok {
			continue
		}
		values := sampler.Next(d.Name)
		if len(values) == 0 {
			continue
		}
		pending = append(pending, telemetryBatchEntry{device: d.Name, values: values})
		p.stats.Samples++
		if mirror {
			p.sink.WriteTelemetry(d.Name, d.Type, values, ts)
		}
	}

	batches := 0
	failed := 0
	for start := 0; start < len(pending); start += p.batchSize {
		end := min(start+p.batchSize, len(pending))
		payload := make(map[string][]telemetryRecord, end-start)
		for _, e := range pending[start:end] {
			payload[e.device] = []telemetryRecord{{TS: tsMillis, Values: e.values}}
		}
		batches++
		if err := p.transport.PublishJSON(p.topics.GatewayTelemetry(), payload); err != nil {
			p.logger.Warn("telemetry publish failed", "devices", end-start, "error", err)
			failed++
			continue
		}
		p.stats.TelemetryMessages++
	}
	return p.partial(failed, batches)
}

// Run publishes telemetry every interval until ctx is done or rounds
// rounds have been sent (rounds <= 0 means until ctx is done). The first
// round is sent immediately. Publish failures are logged and do not stop
// the loop.
//
// Before each round the transport's health is checked when it is a
// HealthChecker: an unhealthy session skips the round. After Reconnected,
// the devices are announced again first. An unhealthy sink only loses that
// round's mirror.
func (p *Publisher) Run(ctx context.Context, devices []scenario.Entity, interval time.Duration, rounds int) error {
	if p.transport == nil {
		return ErrNoTransport
	}
	if interval <= 0 {
		return fmt.Errorf("gateway: interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for sent := 0; rounds <= 0 || sent < rounds; sent++ {
		p.round(ctx, devices, sent+1)
		if rounds > 0 && sent+1 == rounds {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	p.logger.Info("telemetry run finished",
		"messages", p.stats.TelemetryMessages,
		"samples", p.stats.Samples,
		"skipped_rounds", p.stats.SkippedRounds,
	)
	return nil
}

// round sends one telemetry round.
func (p *Publisher) round(ctx context.Context, devices []scenario.Entity, n int) {
	if err := healthCheck(ctx, p.transport); err != nil {
		p.logger.Warn("gateway session unavailable, round skipped", "round", n, "error", err)
		p.stats.SkippedRounds++
		return
	}

	if p.reannounce.Swap(false) {
		p.logger.Info("announcing devices after reconnect", "devices", len(devices))
		if err := p.Connect(devices); err != nil {
			p.logger.Warn("device re-announce incomplete", "error", err)
		}
	}

	mirror := p.sink != nil
	if mirror {
		if err := healthCheck(ctx, p.sink); err != nil {
			p.logger.Warn("telemetry mirror unavailable", "round", n, "error", err)
			mirror = false
		}
	}

	if err := p.publishTelemetry(devices, mirror); err != nil {
		p.logger.Warn("telemetry round incomplete", "round", n, "error", err)
	}
}

// healthCheck runs v's HealthCheck when it has one.
func healthCheck(ctx context.Context, v any) error {
	if hc, ok := v.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// PublishPlan connects the plan's devices and sends their attributes.
func (p *Publisher) PublishPlan(plan *scenario.Plan) error {
	devices := Devices(plan)
	if err := p.Connect(devices); err != nil {
		return err
	}
	if err := p.PublishAttributes(devices); err != nil {
		return err
	}
	p.logger.Info("plan published",
		"scenario", plan.Scenario,
		"devices", len(devices),
		"attribute_messages", p.stats.AttributeMessages,
	)
	return nil
}

func (p *Publisher) partial(failed, total int) error {
	p.stats.Failures += failed
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrPartialPublish, failed, total)
}

// SamplerTypes lists the device types with a registered sampler.
func (p *Publisher) SamplerTypes() []string {
	out := make([]string, 0, len(p.samplers))
	for t := range p.samplers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
