package scenario

import (
	"encoding/json"
	"fmt"
	"os"
)

// Default entity types applied when a scenario omits them.
const (
	DefaultSiteType     = "Site"
	DefaultBuildingType = "Building"
	DefaultFloorType    = "Floor"
	DefaultRoomType     = "Room"
	DefaultGatewayType  = "Gateway"
	DefaultDeviceType   = "EBMPAPST_FFU"
	DefaultDevicePrefix = "DW"
	DefaultLabelPrefix  = "FFU"
	DefaultProtocol     = "MQTT"
	LayoutGrid          = "grid"
	LayoutRandom        = "random"
)

// Grid layout defaults, in relative floor plan coordinates.
const (
	defaultGridColumns = 6
	defaultStartX      = 0.1
	defaultStartY      = 0.1
	defaultSpacingX    = 0.15
	defaultSpacingY    = 0.15
)

// Scenario is a complete synthetic hierarchy:
// Site → Building → Floor → Room → Gateway → device range.
type Scenario struct {
	Name        string     `json:"scenarioName"`
	Description string     `json:"description,omitempty"`
	Site        Site       `json:"site"`
	Buildings   []Building `json:"buildings"`
	Totals      Totals     `json:"totals"`
	TestConfig  TestConfig `json:"testConfig"`
}

// Site is the root asset.
type Site struct {
	Name      string   `json:"name"`
	Type      string   `json:"type,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Building is an asset below the site.
type Building struct {
	Name      string   `json:"name"`
	Type      string   `json:"type,omitempty"`
	Label     string   `json:"label,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Floors    []Floor  `json:"floors"`
}

// Floor is an asset below a building.
type Floor struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
	Rooms []Room `json:"rooms"`
}

// Room is an asset below a floor. Each room has exactly one gateway.
type Room struct {
	Name           string    `json:"name"`
	Type           string    `json:"type,omitempty"`
	Label          string    `json:"label,omitempty"`
	Classification string    `json:"classification,omitempty"`
	AreaSqm        *float64  `json:"area_sqm,omitempty"`
	FloorPlan      string    `json:"floorPlan,omitempty"`
	Gateways       []Gateway `json:"gateways"`
}

// Gateway is a gateway device that proxies a range of field devices.
type Gateway struct {
	Name     string      `json:"name"`
	Type     string      `json:"type,omitempty"`
	Label    string      `json:"label,omitempty"`
	Protocol string      `json:"protocol,omitempty"`
	Devices  DeviceRange `json:"devices"`
}

// DeviceRange declares devices Prefix+Start .. Prefix+End (8-digit indices).
type DeviceRange struct {
	Type        string   `json:"type,omitempty"`
	Prefix      string   `json:"prefix,omitempty"`
	LabelPrefix string   `json:"labelPrefix,omitempty"`
	Start       int      `json:"start"`
	End         *int     `json:"end,omitempty"`
	Count       int      `json:"count"`
	Layout      string   `json:"layout,omitempty"`
	GridColumns int      `json:"gridColumns,omitempty"`
	StartX      *float64 `json:"startX,omitempty"`
	StartY      *float64 `json:"startY,omitempty"`
	SpacingX    *float64 `json:"spacingX,omitempty"`
	SpacingY    *float64 `json:"spacingY,omitempty"`
}

// LastIndex returns the inclusive end of the range. Without an explicit end
// it is Start+Count-1.
func (r DeviceRange) LastIndex() int {
	if r.End != nil {
		return *r.End
	}
	return r.Start + r.Count - 1
}

// Size returns the number of indices in the range.
func (r DeviceRange) Size() int {
	if n := r.LastIndex() - r.Start + 1; n > 0 {
		return n
	}
	return 0
}

// Totals are the declared entity counts. Zero means "not declared".
type Totals struct {
	Sites     int `json:"sites,omitempty"`
	Buildings int `json:"buildings,omitempty"`
	Floors    int `json:"floors,omitempty"`
	Rooms     int `json:"rooms,omitempty"`
	Gateways  int `json:"gateways,omitempty"`
	Devices   int `json:"devices,omitempty"`
}

// TestConfig carries load test parameters for the downstream runner.
type TestConfig struct {
	PayloadType       string `json:"payloadType,omitempty"`
	MessagesPerSecond int    `json:"messagesPerSecond,omitempty"`
	DurationInSeconds int    `json:"durationInSeconds,omitempty"`
}

// Load reads a scenario from a JSON file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // scenario path is operator-supplied
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario from JSON.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if s.Site.Name == "" {
		return nil, fmt.Errorf("%w: site name is required", ErrInvalidScenario)
	}
	return &s, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
