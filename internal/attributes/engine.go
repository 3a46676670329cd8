package attributes

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// overrideKeys are the context attributes that select an override block,
// in priority order.
var overrideKeys = []string{"classification", "building_type", "site_type"}

// Engine resolves asset and device attributes against a Loader.
//
// Random draws come from a seedable source owned by the Engine; a mutex
// serialises resolutions so one Engine may be shared between goroutines.
type Engine struct {
	loader      *Loader
	environment string

	mu           sync.Mutex
	rng          *rand.Rand
	now          func() time.Time
	legacyRandom bool

	logger Logger
}

// NewEngine creates an Engine reading documents through loader for the given
// environment (empty for base documents only). The random source is seeded
// from the process; use SetSeed for reproducible output.
func NewEngine(loader *Loader, environment string) *Engine {
	return &Engine{
		loader:      loader,
		environment: environment,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:         time.Now,
		logger:      noopLogger{},
	}
}

// SetSeed replaces the random source with a deterministic one.
func (e *Engine) SetSeed(seed uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SetClock replaces the time source used by templates and post-processing.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// SetLegacyRandom toggles whole-template sniffing for {random}.
func (e *Engine) SetLegacyRandom(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.legacyRandom = enabled
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Environment returns the overlay environment this engine resolves against.
func (e *Engine) Environment() string {
	return e.environment
}

// ResolveAssetAttributes builds the attribute set of one asset.
//
//  1. start from a copy of the document's default section
//  2. overlay every non-nil context value
//  3. pick the override block keyed by the first of classification,
//     building_type, site_type present in context and in overrides
//  4. shallow-merge that block (override wins over default and context)
//  5. apply dynamic post-processing
//
// Nested mappings pass through unflattened as map[string]any.
func (e *Engine) ResolveAssetAttributes(assetType string, context map[string]any) (map[string]any, error) {
	doc, err := e.loader.Load(KindAsset, assetType, e.environment)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]any)
	if defaults, ok := doc.Map("default"); ok {
		for k, v := range defaults.Plain() {
			attrs[k] = v
		}
	}

	for k, v := range context {
		if v != nil {
			attrs[k] = v
		}
	}

	overrideKey, block, err := selectOverride(doc, context)
	if err != nil {
		return nil, &DocumentError{Kind: KindAsset, Type: assetType, Environment: e.environment, Err: err}
	}
	if block != nil {
		for k, v := range block.Plain() {
			attrs[k] = v
		}
		e.logger.Debug("override applied", "asset_type", assetType, "override", overrideKey)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	applyDynamicValues(attrs, e.newResolver(0))

	return attrs, nil
}

// ResolveDeviceAttributes builds the flat attribute set of one device.
//
// Every mapping-valued top-level section is resolved entry by entry. A
// mapping-valued result is flattened into parentKey_childKey names at every
// depth, so no value in the output is a mapping. Later entries overwrite
// earlier ones on name collision, in document order.
//
// context is accepted for symmetry with asset resolution but is not merged
// into the result.
func (e *Engine) ResolveDeviceAttributes(deviceType string, deviceIndex int, context map[string]any) (map[string]any, error) {
	tmpl, err := e.loader.deviceTemplate(deviceType, e.environment)
	if err != nil {
		return nil, err
	}
	if len(context) > 0 {
		e.logger.Debug("device context not merged", "device_type", deviceType, "keys", len(context))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.newResolver(deviceIndex)

	attrs := make(map[string]any)
	for _, section := range tmpl.sections {
		for i, key := range section.keys {
			flattenInto(attrs, key, section.specs[i].resolve(r))
		}
	}
	return attrs, nil
}

// TelemetryConfig returns the merged telemetry document for a device type.
// The document is returned raw, without templating, and must not be modified.
func (e *Engine) TelemetryConfig(deviceType string) (*Map, error) {
	return e.loader.Load(KindTelemetry, deviceType, e.environment)
}

// newResolver snapshots the engine state for one resolution. Callers hold e.mu.
func (e *Engine) newResolver(deviceIndex int) *resolver {
	return &resolver{
		rng:          e.rng,
		now:          e.now(),
		deviceIndex:  deviceIndex,
		legacyRandom: e.legacyRandom,
	}
}

// selectOverride finds the override block for a context.
// An overrides section or matching entry that is not a mapping is a schema
// violation.
func selectOverride(doc *Map, context map[string]any) (string, *Map, error) {
	overrides, ok := doc.Map("overrides")
	if !ok {
		if raw, present := doc.Get("overrides"); present && raw != nil {
			return "", nil, schemaViolation("overrides must be a mapping, got %T", raw)
		}
		return "", nil, nil
	}

	for _, field := range overrideKeys {
		v, present := context[field]
		if !present || v == nil {
			continue
		}
		key, ok := overrideLookupKey(v)
		if !ok {
			continue
		}
		raw, found := overrides.Get(key)
		if !found {
			continue
		}
		block, isMap := raw.(*Map)
		if !isMap {
			return "", nil, schemaViolation("overrides.%s must be a mapping, got %T", key, raw)
		}
		return key, block, nil
	}
	return "", nil, nil
}

// overrideLookupKey renders a scalar context value as an override key.
func overrideLookupKey(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int, int64, float64, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// flattenInto writes value under key, expanding mappings to key_child names.
func flattenInto(out map[string]any, key string, value any) {
	switch v := value.(type) {
	case *Map:
		for _, child := range v.keys {
			flattenInto(out, key+"_"+child, v.values[child])
		}
	case map[string]any:
		for child, cv := range v {
			flattenInto(out, key+"_"+child, cv)
		}
	default:
		out[key] = v
	}
}
