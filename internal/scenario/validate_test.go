package scenario

import (
	"errors"
	"strings"
	"testing"
)

func loadFab(t *testing.T) *Scenario {
	t.Helper()
	s, err := Load("testdata/fab.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestLoad(t *testing.T) {
	s := loadFab(t)

	if s.Name != "Cleanroom Fab" {
		t.Errorf("Name = %q", s.Name)
	}
	if len(s.Buildings) != 1 || len(s.Buildings[0].Floors[0].Rooms) != 2 {
		t.Fatalf("unexpected hierarchy shape: %+v", s.Buildings)
	}
	gw := s.Buildings[0].Floors[0].Rooms[0].Gateways[0]
	if gw.Devices.LastIndex() != 7 || gw.Devices.Size() != 8 {
		t.Errorf("range = %d..%d size %d", gw.Devices.Start, gw.Devices.LastIndex(), gw.Devices.Size())
	}
	if s.TestConfig.MessagesPerSecond != 60 {
		t.Errorf("MessagesPerSecond = %d", s.TestConfig.MessagesPerSecond)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"no site name", `{"scenarioName": "x", "site": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("Parse() error = %v, want ErrInvalidScenario", err)
			}
		})
	}
}

func TestValidate_Passes(t *testing.T) {
	r := loadFab(t).Validate()

	if !r.OK() {
		t.Errorf("Errors = %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("Warnings = %v", r.Warnings)
	}
	want := Counts{Sites: 1, Buildings: 1, Floors: 1, Rooms: 2, Gateways: 2, Devices: 12}
	if r.Counts != want {
		t.Errorf("Counts = %+v, want %+v", r.Counts, want)
	}
}

func TestValidate_GatewayPerRoom(t *testing.T) {
	s := loadFab(t)
	rooms := s.Buildings[0].Floors[0].Rooms
	rooms[0].Gateways = append(rooms[0].Gateways, Gateway{Name: "GW-extra"})
	rooms[1].Gateways = nil

	r := s.Validate()
	if len(r.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2", r.Errors)
	}
	if !strings.Contains(r.Errors[0], "Bay A") || !strings.Contains(r.Errors[1], "Bay B") {
		t.Errorf("Errors = %v", r.Errors)
	}
	if !errors.Is(r.Err(), ErrValidationFailed) {
		t.Errorf("Err() = %v, want ErrValidationFailed", r.Err())
	}
}

func TestValidate_Warnings(t *testing.T) {
	s := loadFab(t)
	s.Totals.Devices = 99
	end := 20
	s.Buildings[0].Floors[0].Rooms[0].Gateways[0].Devices.End = &end

	r := s.Validate()
	if !r.OK() {
		t.Errorf("mismatches must not be errors: %v", r.Errors)
	}
	if len(r.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2", r.Warnings)
	}
	if !strings.Contains(r.Warnings[0], "devices: declared 99, actual 12") {
		t.Errorf("Warnings[0] = %q", r.Warnings[0])
	}
	if !strings.Contains(r.Warnings[1], "GW-A") {
		t.Errorf("Warnings[1] = %q", r.Warnings[1])
	}
}

func TestValidate_UndeclaredTotalsIgnored(t *testing.T) {
	s := loadFab(t)
	s.Totals = Totals{}

	if r := s.Validate(); len(r.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", r.Warnings)
	}
}
