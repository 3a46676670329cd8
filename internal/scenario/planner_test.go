package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/athena68/tb-performance-tests/internal/attributes"
)

// stubResolver records calls and returns canned attributes.
type stubResolver struct {
	assetCalls  []string
	deviceCalls []string
	contexts    map[string]map[string]any
	failAsset   string
	failDevice  string
}

func newStubResolver() *stubResolver {
	return &stubResolver{contexts: make(map[string]map[string]any)}
}

func (s *stubResolver) ResolveAssetAttributes(assetType string, context map[string]any) (map[string]any, error) {
	s.assetCalls = append(s.assetCalls, assetType)
	s.contexts[assetType] = context
	if assetType == s.failAsset {
		return nil, attributes.ErrConfigNotFound
	}
	out := map[string]any{"resolved": assetType}
	for k, v := range context {
		out[k] = v
	}
	return out, nil
}

func (s *stubResolver) ResolveDeviceAttributes(deviceType string, deviceIndex int, _ map[string]any) (map[string]any, error) {
	s.deviceCalls = append(s.deviceCalls, deviceType)
	if deviceType == s.failDevice {
		return nil, attributes.ErrSchemaViolation
	}
	return map[string]any{"index": deviceIndex}, nil
}

func TestPlanner_Plan(t *testing.T) {
	res := newStubResolver()
	plan := NewPlanner(res, 1).Plan(loadFab(t))

	if plan.Scenario != "Cleanroom Fab" {
		t.Errorf("Scenario = %q", plan.Scenario)
	}

	// site, building, floor, 2 rooms, 2 gateways, 12 devices
	if len(plan.Entities) != 19 {
		t.Fatalf("Entities = %d, want 19", len(plan.Entities))
	}
	wantLevels := map[Level]int{
		LevelSite: 1, LevelBuilding: 1, LevelFloor: 1,
		LevelRoom: 2, LevelGateway: 2, LevelDevice: 12,
	}
	for level, n := range wantLevels {
		if got := len(plan.ByLevel(level)); got != n {
			t.Errorf("%s entities = %d, want %d", level, got, n)
		}
	}

	wantAssets := []string{"site", "cleanroom", "floor", "room", "room"}
	if !reflect.DeepEqual(res.assetCalls, wantAssets) {
		t.Errorf("asset types = %v, want %v", res.assetCalls, wantAssets)
	}

	site := plan.Entities[0]
	if site.Attributes["site_type"] != "site" || site.Attributes["latitude"] != 53.55 {
		t.Errorf("site attributes = %v", site.Attributes)
	}
	if _, ok := res.contexts["floor"]["address"]; ok {
		t.Error("floor context should be empty")
	}
	building := plan.Entities[1]
	if building.Attributes["building_type"] != "cleanroom" || building.Parent != "Fab Campus" {
		t.Errorf("building = %+v", building)
	}
	if _, ok := building.Attributes["address"]; ok {
		t.Error("absent facts must not be passed as context")
	}
}

func TestPlanner_Gateways(t *testing.T) {
	plan := NewPlanner(newStubResolver(), 1).Plan(loadFab(t))

	gws := plan.ByLevel(LevelGateway)
	if gws[0].Attributes["protocol"] != "BACnet" {
		t.Errorf("GW-A protocol = %v", gws[0].Attributes["protocol"])
	}
	if gws[1].Attributes["protocol"] != DefaultProtocol {
		t.Errorf("GW-B protocol = %v, want default", gws[1].Attributes["protocol"])
	}
	if gws[0].Parent != "Bay A" || gws[0].Type != DefaultGatewayType {
		t.Errorf("GW-A = %+v", gws[0])
	}
}

func TestPlanner_Devices(t *testing.T) {
	plan := NewPlanner(newStubResolver(), 1).Plan(loadFab(t))
	devices := plan.ByLevel(LevelDevice)

	first := devices[0]
	if first.Name != "DW00000000" || first.Label != "FFU 00000000" || first.Parent != "GW-A" {
		t.Errorf("first device = %+v", first)
	}
	if first.Type != DefaultDeviceType || first.Attributes["index"] != 0 {
		t.Errorf("first device = %+v", first)
	}

	// Grid with 4 columns: the fifth device starts the second row.
	grid := []struct {
		n    int
		x, y float64
	}{
		{0, 0.1, 0.1},
		{1, 0.25, 0.1},
		{3, 0.55, 0.1},
		{4, 0.1, 0.25},
		{7, 0.55, 0.25},
	}
	for _, g := range grid {
		d := devices[g.n]
		if d.Attributes["xPos"] != g.x || d.Attributes["yPos"] != g.y {
			t.Errorf("%s position = (%v, %v), want (%v, %v)",
				d.Name, d.Attributes["xPos"], d.Attributes["yPos"], g.x, g.y)
		}
		if d.Attributes["position_relative"] != true {
			t.Errorf("%s position_relative missing", d.Name)
		}
	}

	// Random layout stays within the floor plan margins.
	for _, d := range devices[8:] {
		x := d.Attributes["xPos"].(float64)
		y := d.Attributes["yPos"].(float64)
		if x < 0.1 || x > 0.8 || y < 0.1 || y > 0.8 {
			t.Errorf("%s random position (%v, %v) out of bounds", d.Name, x, y)
		}
	}
	if devices[8].Name != "DW00000008" || devices[11].Name != "DW00000011" {
		t.Errorf("second range = %s..%s", devices[8].Name, devices[11].Name)
	}
}

func TestPlanner_FailuresDoNotAbort(t *testing.T) {
	res := newStubResolver()
	res.failAsset = "room"
	res.failDevice = "ebmpapst_ffu"

	plan := NewPlanner(res, 1).Plan(loadFab(t))
	if len(plan.Entities) != 19 {
		t.Fatalf("Entities = %d, want 19", len(plan.Entities))
	}

	failed := plan.Failed()
	if len(failed) != 14 {
		t.Fatalf("Failed = %d, want 14 (2 rooms, 12 devices)", len(failed))
	}
	room := plan.ByLevel(LevelRoom)[0]
	if !errors.Is(room.Err, attributes.ErrConfigNotFound) {
		t.Errorf("room error = %v", room.Err)
	}
	if room.Attributes["classification"] != "ISO_5" {
		t.Errorf("failed room should keep scenario facts, got %v", room.Attributes)
	}
	dev := plan.ByLevel(LevelDevice)[0]
	if !errors.Is(dev.Err, attributes.ErrSchemaViolation) || dev.Attributes["xPos"] == nil {
		t.Errorf("failed device = %+v", dev)
	}
}

func TestPlanner_WithEngine(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("assets/site.yaml", "default:\n  total_buildings: null\n")
	write("assets/cleanroom.yaml", "default:\n  hvac: central\n")
	write("assets/floor.yaml", "default:\n  level: 1\n")
	write("assets/room.yaml", "default:\n  air_changes_per_hour: 20\noverrides:\n  ISO_5:\n    air_changes_per_hour: 240\n")
	write("devices/gateway.yaml", "gateway_info:\n  firmware: 1.0.0\n")
	write("devices/ebmpapst_ffu.yaml", "device_info:\n  serial_number: \"SN-{device_index}\"\n")

	engine := attributes.NewEngine(attributes.NewLoader(dir, dir), "")
	engine.SetSeed(5)

	plan := NewPlanner(engine, 5).Plan(loadFab(t))
	if failed := plan.Failed(); len(failed) != 0 {
		t.Fatalf("Failed = %v", failed[0].Err)
	}

	rooms := plan.ByLevel(LevelRoom)
	if rooms[0].Attributes["air_changes_per_hour"] != 240 || rooms[1].Attributes["air_changes_per_hour"] != 20 {
		t.Errorf("room override not applied: %v / %v", rooms[0].Attributes, rooms[1].Attributes)
	}
	if plan.Entities[0].Attributes["total_buildings"] != 1 {
		t.Errorf("site total_buildings = %v", plan.Entities[0].Attributes["total_buildings"])
	}
	dev := plan.ByLevel(LevelDevice)[3]
	if dev.Attributes["serial_number"] != "SN-3" {
		t.Errorf("serial_number = %v, want SN-3", dev.Attributes["serial_number"])
	}
}
