package telemetry

import (
	"fmt"
	"time"

	"github.com/athena68/tb-performance-tests/internal/attributes"
)

// Special device groups recognised under special_devices.
const (
	GroupAlarm            = "alarm_devices"
	GroupVibrationWarning = "vibration_warning_devices"
	GroupStopped          = "stopped_devices"
	GroupOffline          = "offline_devices"
)

// specialGroupOrder is the order in which group values are applied.
var specialGroupOrder = []string{GroupAlarm, GroupVibrationWarning, GroupStopped}

// Weighted is one entry of a discrete probability table.
type Weighted struct {
	Value  string
	Weight float64
}

// DataPoint describes how a single telemetry key is generated.
type DataPoint struct {
	Name        string
	Unit        string
	Description string

	// Min and Max are nil when the bound is not declared.
	Min *float64
	Max *float64

	Default any

	// Variance is a fraction of Default used as the standard deviation.
	Variance *float64

	// Values lists discrete outcomes. Probabilities, when set, weight them.
	Values        []any
	Probabilities []Weighted
}

// Ranged reports whether both bounds are declared.
func (dp *DataPoint) Ranged() bool {
	return dp.Min != nil && dp.Max != nil
}

// GenerationRules controls publishing cadence.
type GenerationRules struct {
	PublishInterval time.Duration
	DataVariation   map[string]float64
}

// DeviceGroup forces values onto a set of devices.
type DeviceGroup struct {
	Devices []string
	// Values is applied over generated values in document order.
	Values *attributes.Map
}

// Contains reports whether device belongs to the group.
func (g *DeviceGroup) Contains(device string) bool {
	if g == nil {
		return false
	}
	for _, d := range g.Devices {
		if d == device {
			return true
		}
	}
	return false
}

// Config is the typed view of a telemetry document.
type Config struct {
	DataPoints     []DataPoint
	Rules          GenerationRules
	SpecialDevices map[string]*DeviceGroup
}

// FromDocument builds a Config from a raw telemetry document.
// Unknown keys are ignored.
func FromDocument(doc *attributes.Map) (*Config, error) {
	points, ok := doc.Map("data_points")
	if !ok {
		if doc.Has("data_points") {
			return nil, fmt.Errorf("%w: data_points must be a mapping", ErrInvalidConfig)
		}
		return nil, ErrNoDataPoints
	}

	cfg := &Config{SpecialDevices: make(map[string]*DeviceGroup)}
	for _, name := range points.Keys() {
		m, ok := points.Map(name)
		if !ok {
			return nil, fmt.Errorf("%w: data point %q must be a mapping", ErrInvalidConfig, name)
		}
		dp, err := parseDataPoint(name, m)
		if err != nil {
			return nil, err
		}
		cfg.DataPoints = append(cfg.DataPoints, dp)
	}

	if rules, ok := doc.Map("generation_rules"); ok {
		if v, ok := number(rules, "publish_interval_ms"); ok {
			cfg.Rules.PublishInterval = time.Duration(v) * time.Millisecond
		}
		if dv, ok := rules.Map("data_variation"); ok {
			cfg.Rules.DataVariation = make(map[string]float64, dv.Len())
			for _, k := range dv.Keys() {
				if v, ok := number(dv, k); ok {
					cfg.Rules.DataVariation[k] = v
				}
			}
		}
	}

	if special, ok := doc.Map("special_devices"); ok {
		for _, group := range special.Keys() {
			m, ok := special.Map(group)
			if !ok {
				return nil, fmt.Errorf("%w: special_devices.%s must be a mapping", ErrInvalidConfig, group)
			}
			g := &DeviceGroup{}
			if list, ok := m.Get("devices"); ok {
				items, isList := list.([]any)
				if !isList {
					return nil, fmt.Errorf("%w: special_devices.%s.devices must be a list", ErrInvalidConfig, group)
				}
				for _, item := range items {
					g.Devices = append(g.Devices, fmt.Sprint(item))
				}
			}
			if values, ok := m.Map("config"); ok {
				g.Values = values
			}
			cfg.SpecialDevices[group] = g
		}
	}

	return cfg, nil
}

func parseDataPoint(name string, m *attributes.Map) (DataPoint, error) {
	dp := DataPoint{Name: name}
	dp.Unit, _ = stringValue(m, "unit")
	dp.Description, _ = stringValue(m, "description")

	for _, bound := range []struct {
		key string
		dst **float64
	}{{"min", &dp.Min}, {"max", &dp.Max}, {"variance", &dp.Variance}} {
		raw, present := m.Get(bound.key)
		if !present || raw == nil {
			continue
		}
		v, ok := toFloat(raw)
		if !ok {
			return dp, fmt.Errorf("%w: %s.%s must be numeric, got %T", ErrInvalidConfig, name, bound.key, raw)
		}
		*bound.dst = &v
	}
	if dp.Ranged() && *dp.Min > *dp.Max {
		return dp, fmt.Errorf("%w: %s: min %v > max %v", ErrInvalidConfig, name, *dp.Min, *dp.Max)
	}

	dp.Default, _ = m.Get("default")

	if raw, ok := m.Get("values"); ok {
		list, isList := raw.([]any)
		if !isList {
			return dp, fmt.Errorf("%w: %s.values must be a list", ErrInvalidConfig, name)
		}
		dp.Values = list
	}

	if probs, ok := m.Map("probabilities"); ok {
		for _, k := range probs.Keys() {
			w, ok := number(probs, k)
			if !ok {
				return dp, fmt.Errorf("%w: %s.probabilities.%s must be numeric", ErrInvalidConfig, name, k)
			}
			dp.Probabilities = append(dp.Probabilities, Weighted{Value: k, Weight: w})
		}
	}
	return dp, nil
}

func stringValue(m *attributes.Map, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func number(m *attributes.Map, key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
