package telemetry

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
)

// Generator produces telemetry values for named devices.
type Generator struct {
	cfg  *Config
	seed uint64

	mu      sync.Mutex
	streams map[string]*rand.Rand
}

// NewGenerator creates a Generator for cfg. The seed is mixed into every
// per-device stream; zero is a valid seed.
func NewGenerator(cfg *Config, seed uint64) *Generator {
	return &Generator{
		cfg:     cfg,
		seed:    seed,
		streams: make(map[string]*rand.Rand),
	}
}

// Next returns the next set of values for device.
//
// Offline devices produce an empty set. Otherwise every data point is
// generated in document order and the configured values of the alarm,
// vibration warning and stopped groups are applied on top.
func (g *Generator) Next(device string) map[string]any {
	values := make(map[string]any, len(g.cfg.DataPoints))
	if g.cfg.SpecialDevices[GroupOffline].Contains(device) {
		return values
	}

	g.mu.Lock()
	rng := g.stream(device)
	for i := range g.cfg.DataPoints {
		dp := &g.cfg.DataPoints[i]
		if v := generate(dp, rng); v != nil {
			values[dp.Name] = v
		}
	}
	g.mu.Unlock()

	for _, name := range specialGroupOrder {
		group := g.cfg.SpecialDevices[name]
		if !group.Contains(device) || group.Values == nil {
			continue
		}
		for _, k := range group.Values.Keys() {
			v, _ := group.Values.Get(k)
			values[k] = v
		}
	}
	return values
}

// stream returns the random source of a device. Callers hold g.mu.
func (g *Generator) stream(device string) *rand.Rand {
	if rng, ok := g.streams[device]; ok {
		return rng
	}
	h := fnv.New64a()
	h.Write([]byte(device))
	sum := h.Sum64()
	rng := rand.New(rand.NewPCG(sum^g.seed, sum))
	g.streams[device] = rng
	return rng
}

// generate draws one value for a data point, or nil when nothing is configured.
func generate(dp *DataPoint, rng *rand.Rand) any {
	if len(dp.Values) > 0 {
		if len(dp.Probabilities) > 0 {
			draw := rng.Float64()
			cumulative := 0.0
			for _, w := range dp.Probabilities {
				cumulative += w.Weight
				if draw <= cumulative {
					return w.Value
				}
			}
		}
		return dp.Values[rng.IntN(len(dp.Values))]
	}

	if dp.Ranged() {
		lo, hi := *dp.Min, *dp.Max
		var v float64
		if def, ok := toFloat(dp.Default); ok && dp.Variance != nil {
			v = def + rng.NormFloat64()*(*dp.Variance*def)
			v = math.Max(lo, math.Min(hi, v))
		} else {
			v = lo + (hi-lo)*rng.Float64()
		}
		return round(v, dp.Unit)
	}

	return dp.Default
}

// round applies the unit's precision: one decimal for mm/s, integer otherwise.
func round(v float64, unit string) any {
	if strings.Contains(unit, "mm/s") {
		return math.Round(v*10) / 10
	}
	return int(math.Round(v))
}
