package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Level is the position of an entity in the hierarchy.
type Level string

// Hierarchy levels.
const (
	LevelSite     Level = "site"
	LevelBuilding Level = "building"
	LevelFloor    Level = "floor"
	LevelRoom     Level = "room"
	LevelGateway  Level = "gateway"
	LevelDevice   Level = "device"
)

// IsDevice reports whether entities at this level are ThingsBoard devices
// rather than assets.
func (l Level) IsDevice() bool {
	return l == LevelGateway || l == LevelDevice
}

// Resolver produces attribute sets. *attributes.Engine satisfies it.
type Resolver interface {
	ResolveAssetAttributes(assetType string, context map[string]any) (map[string]any, error)
	ResolveDeviceAttributes(deviceType string, deviceIndex int, context map[string]any) (map[string]any, error)
}

// Logger defines the logging interface used by the Planner.
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

// Entity is one planned ThingsBoard asset or device.
type Entity struct {
	Name   string `json:"name"`
	Level  Level  `json:"level"`
	Type   string `json:"type"`
	Label  string `json:"label"`
	Parent string `json:"parent,omitempty"`

	// DeviceIndex is set for field devices.
	DeviceIndex int `json:"device_index,omitempty"`

	Attributes map[string]any `json:"attributes"`

	// Err is the resolution failure, if any. Attributes then hold only the
	// facts known from the scenario.
	Err error `json:"-"`
}

// Plan is the ordered result of planning a scenario. Parents always precede
// their children.
type Plan struct {
	Scenario string   `json:"scenario"`
	Entities []Entity `json:"entities"`
}

// Failed returns the entities whose attributes could not be resolved.
func (p *Plan) Failed() []Entity {
	var out []Entity
	for _, e := range p.Entities {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// ByLevel returns the entities at one level.
func (p *Plan) ByLevel(level Level) []Entity {
	var out []Entity
	for _, e := range p.Entities {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Planner resolves attributes for every entity of a scenario.
type Planner struct {
	resolver Resolver
	rng      *rand.Rand
	logger   Logger
}

// NewPlanner creates a Planner. seed drives random device placement.
func NewPlanner(resolver Resolver, seed uint64) *Planner {
	return &Planner{
		resolver: resolver,
		rng:      rand.New(rand.NewPCG(seed, seed+1)),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the planner.
func (p *Planner) SetLogger(logger Logger) {
	p.logger = logger
}

// Plan walks the hierarchy depth-first.
//
// Asset attributes are resolved with the entity's scenario facts as context
// (type names lower-cased). Gateways get a protocol attribute; devices get
// grid or random xPos/yPos positions. A failed resolution is recorded on the
// entity and planning continues with the next one.
func (p *Planner) Plan(s *Scenario) *Plan {
	plan := &Plan{Scenario: s.Name}

	siteType := orDefault(s.Site.Type, DefaultSiteType)
	plan.Entities = append(plan.Entities, p.asset(LevelSite, s.Site.Name, siteType, s.Site.Name, "", compact(map[string]any{
		"address":   nonEmpty(s.Site.Address),
		"latitude":  floatPtr(s.Site.Latitude),
		"longitude": floatPtr(s.Site.Longitude),
		"site_type": strings.ToLower(siteType),
	})))

	for _, b := range s.Buildings {
		buildingType := orDefault(b.Type, DefaultBuildingType)
		plan.Entities = append(plan.Entities, p.asset(LevelBuilding, b.Name, buildingType, orDefault(b.Label, b.Name), s.Site.Name, compact(map[string]any{
			"address":       nonEmpty(b.Address),
			"latitude":      floatPtr(b.Latitude),
			"longitude":     floatPtr(b.Longitude),
			"building_type": strings.ToLower(buildingType),
		})))

		for _, f := range b.Floors {
			plan.Entities = append(plan.Entities, p.asset(LevelFloor, f.Name, orDefault(f.Type, DefaultFloorType), orDefault(f.Label, f.Name), b.Name, map[string]any{}))

			for _, r := range f.Rooms {
				plan.Entities = append(plan.Entities, p.asset(LevelRoom, r.Name, orDefault(r.Type, DefaultRoomType), orDefault(r.Label, r.Name), f.Name, compact(map[string]any{
					"classification": nonEmpty(r.Classification),
					"area_sqm":       floatPtr(r.AreaSqm),
					"floorPlan":      nonEmpty(r.FloorPlan),
				})))

				for _, g := range r.Gateways {
					plan.Entities = append(plan.Entities, p.gateway(g, r.Name))

					facts := map[string]any{
						"room_name":     r.Name,
						"gateway_name":  g.Name,
						"building_name": b.Name,
						"site_name":     s.Site.Name,
					}
					plan.Entities = append(plan.Entities, p.devices(g, facts)...)
				}
			}
		}
	}

	p.logger.Info("scenario planned",
		"scenario", s.Name,
		"entities", len(plan.Entities),
		"failed", len(plan.Failed()),
	)
	return plan
}

func (p *Planner) asset(level Level, name, typ, label, parent string, facts map[string]any) Entity {
	e := Entity{Name: name, Level: level, Type: typ, Label: label, Parent: parent}

	attrs, err := p.resolver.ResolveAssetAttributes(strings.ToLower(typ), facts)
	if err != nil {
		p.logger.Warn("asset attributes unresolved", "level", level, "name", name, "type", typ, "error", err)
		e.Err = fmt.Errorf("%s %q: %w", level, name, err)
		attrs = facts
	}
	e.Attributes = attrs
	return e
}

func (p *Planner) gateway(g Gateway, room string) Entity {
	typ := orDefault(g.Type, DefaultGatewayType)
	e := Entity{Name: g.Name, Level: LevelGateway, Type: typ, Label: orDefault(g.Label, g.Name), Parent: room}

	attrs, err := p.resolver.ResolveDeviceAttributes(deviceTypeKey(typ), 0, nil)
	if err != nil {
		p.logger.Warn("gateway attributes unresolved", "name", g.Name, "type", typ, "error", err)
		e.Err = fmt.Errorf("%s %q: %w", LevelGateway, g.Name, err)
		attrs = make(map[string]any)
	}
	attrs["protocol"] = orDefault(g.Protocol, DefaultProtocol)
	e.Attributes = attrs
	return e
}

func (p *Planner) devices(g Gateway, facts map[string]any) []Entity {
	d := g.Devices
	typ := orDefault(d.Type, DefaultDeviceType)
	prefix := orDefault(d.Prefix, DefaultDevicePrefix)
	labelPrefix := orDefault(d.LabelPrefix, DefaultLabelPrefix)
	columns := d.GridColumns
	if columns <= 0 {
		columns = defaultGridColumns
	}

	var out []Entity
	for index := d.Start; index <= d.LastIndex(); index++ {
		name := fmt.Sprintf("%s%08d", prefix, index)
		e := Entity{
			Name:        name,
			Level:       LevelDevice,
			Type:        typ,
			Label:       fmt.Sprintf("%s %08d", labelPrefix, index),
			Parent:      g.Name,
			DeviceIndex: index,
		}

		attrs, err := p.resolver.ResolveDeviceAttributes(deviceTypeKey(typ), index, facts)
		if err != nil {
			p.logger.Warn("device attributes unresolved", "name", name, "type", typ, "error", err)
			e.Err = fmt.Errorf("%s %q: %w", LevelDevice, name, err)
			attrs = make(map[string]any)
		}

		x, y := p.position(d, index-d.Start, columns)
		attrs["xPos"] = x
		attrs["yPos"] = y
		attrs["position_relative"] = true

		e.Attributes = attrs
		out = append(out, e)
	}
	return out
}

// position places the n-th device of a range on the floor plan.
func (p *Planner) position(d DeviceRange, n, columns int) (float64, float64) {
	if d.Layout != "" && d.Layout != LayoutGrid {
		return round4(0.1 + 0.7*p.rng.Float64()), round4(0.1 + 0.7*p.rng.Float64())
	}
	row, col := n/columns, n%columns
	x := floatOr(d.StartX, defaultStartX) + float64(col)*floatOr(d.SpacingX, defaultSpacingX)
	y := floatOr(d.StartY, defaultStartY) + float64(row)*floatOr(d.SpacingY, defaultSpacingY)
	return round4(x), round4(y)
}

// deviceTypeKey maps a ThingsBoard device type to its definition name.
func deviceTypeKey(typ string) string {
	return strings.ToLower(typ)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// compact drops nil values.
func compact(m map[string]any) map[string]any {
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return m
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func floatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
