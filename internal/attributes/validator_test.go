package attributes

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name         string
		kind         Kind
		src          string
		wantErrors   int
		wantWarnings int
	}{
		{
			name: "valid asset",
			kind: KindAsset,
			src:  "default: {a: 1}\noverrides:\n  x: {a: 2}\n",
		},
		{
			name:       "asset without default",
			kind:       KindAsset,
			src:        "overrides: {}\n",
			wantErrors: 1,
		},
		{
			name:       "asset default not a mapping",
			kind:       KindAsset,
			src:        "default: [a]\n",
			wantErrors: 1,
		},
		{
			name:       "overrides not a mapping",
			kind:       KindAsset,
			src:        "default: {}\noverrides: [x]\n",
			wantErrors: 1,
		},
		{
			name: "empty overrides",
			kind: KindAsset,
			src:  "default: {}\noverrides:\n",
		},
		{
			name:       "override block not a mapping",
			kind:       KindAsset,
			src:        "default: {}\noverrides:\n  x: 1\n  y: {a: 1}\n",
			wantErrors: 1,
		},
		{
			name: "valid device",
			kind: KindDevice,
			src:  "device_info:\n  model: K3G\n  fan_speed_percent: {min: 10, max: 100}\n",
		},
		{
			name:         "device without device_info",
			kind:         KindDevice,
			src:          "operating:\n  speed: {min: 1, max: 2}\n",
			wantWarnings: 1,
		},
		{
			name:       "device with ambiguous range",
			kind:       KindDevice,
			src:        "device_info:\n  speed: {min: 1}\n",
			wantErrors: 1,
		},
		{
			name:       "percent literal out of range",
			kind:       KindDevice,
			src:        "device_info:\n  filter_load_percent: 120\n",
			wantErrors: 1,
		},
		{
			name:       "percent range out of range",
			kind:       KindDevice,
			src:        "device_info:\n  duty_percent: {min: -5, max: 50}\n",
			wantErrors: 1,
		},
		{
			name: "valid telemetry",
			kind: KindTelemetry,
			src:  "data_points:\n  speed: {unit: rpm, min: 0, max: 1500}\n",
		},
		{
			name:       "telemetry without data_points",
			kind:       KindTelemetry,
			src:        "generation_rules: {}\n",
			wantErrors: 1,
		},
		{
			name:         "telemetry point without unit",
			kind:         KindTelemetry,
			src:          "data_points:\n  status: {values: [a, b]}\n",
			wantWarnings: 1,
		},
		{
			name:       "telemetry inverted bounds",
			kind:       KindTelemetry,
			src:        "data_points:\n  speed: {unit: rpm, min: 10, max: 1}\n",
			wantErrors: 1,
		},
		{
			name:       "telemetry non-numeric bound",
			kind:       KindTelemetry,
			src:        "data_points:\n  speed: {unit: rpm, min: low, max: 1}\n",
			wantErrors: 1,
		},
		{
			name:       "telemetry point not a mapping",
			kind:       KindTelemetry,
			src:        "data_points:\n  speed: 12\n",
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateDocument(tt.kind, mustParse(t, tt.src))
			if len(r.Errors) != tt.wantErrors {
				t.Errorf("Errors = %v, want %d", r.Errors, tt.wantErrors)
			}
			if len(r.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %v, want %d", r.Warnings, tt.wantWarnings)
			}
			if r.OK() != (tt.wantErrors == 0) {
				t.Errorf("OK() = %v", r.OK())
			}
		})
	}
}

func TestReport_Err(t *testing.T) {
	r := ValidateDocument(KindAsset, mustParse(t, "overrides: {}\n"))
	err := r.Err()
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("Err() = %v, want ErrSchemaViolation", err)
	}
	if !strings.Contains(err.Error(), "default") {
		t.Errorf("Err() = %q, should mention the missing section", err)
	}

	ok := ValidateDocument(KindAsset, mustParse(t, "default: {}\n"))
	if ok.Err() != nil {
		t.Errorf("Err() = %v, want nil", ok.Err())
	}
}

func TestValidator_KindForPath(t *testing.T) {
	attrDir, telDir := testTree(t)
	v := NewValidator(attrDir, telDir)

	tests := []struct {
		path string
		want Kind
	}{
		{filepath.Join(attrDir, "assets", "site.yaml"), KindAsset},
		{filepath.Join(attrDir, "devices", "ffu.yaml"), KindDevice},
		{filepath.Join(attrDir, "dev", "assets", "site.yaml"), KindAsset},
		{filepath.Join(telDir, "devices", "ffu.yaml"), KindTelemetry},
		{filepath.Join(attrDir, "misc", "notes.yaml"), ""},
	}
	for _, tt := range tests {
		if got := v.KindForPath(tt.path); got != tt.want {
			t.Errorf("KindForPath(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestValidator_ValidateFile(t *testing.T) {
	attrDir, telDir := testTree(t)
	writeDoc(t, attrDir, "assets/broken.yaml", "default: [unclosed\n")
	writeDoc(t, attrDir, "assets/room.yaml", "default: {room_type: production}\n")
	v := NewValidator(attrDir, telDir)

	if r := v.ValidateFile(filepath.Join(attrDir, "assets", "broken.yaml"), ""); r.OK() {
		t.Error("broken YAML should fail validation")
	}
	if r := v.ValidateFile(filepath.Join(attrDir, "assets", "room.yaml"), ""); !r.OK() {
		t.Errorf("room.yaml errors = %v", r.Errors)
	}
	if r := v.ValidateFile(filepath.Join(attrDir, "assets", "absent.yaml"), KindAsset); r.OK() {
		t.Error("missing file should fail validation")
	}
}

func TestValidator_ValidateAll(t *testing.T) {
	attrDir, telDir := testTree(t)
	writeDoc(t, attrDir, "assets/site.yaml", "default: {site_type: industrial}\n")
	writeDoc(t, attrDir, "assets/room.yaml", "default: {}\noverrides:\n  ISO_5: 3\n")
	writeDoc(t, attrDir, "devices/ffu.yaml", "device_info:\n  model: K3G\n")
	// Overlay omits default on its own but is valid once merged.
	writeDoc(t, attrDir, "dev/assets/site.yaml", "overrides:\n  industrial: {monitoring: full}\n")
	writeDoc(t, telDir, "devices/ffu.yaml", "data_points:\n  speed: {min: 5, max: 1}\n")

	r := NewValidator(attrDir, telDir).ValidateAll()

	if r.Files != 5 {
		t.Errorf("Files = %d, want 5", r.Files)
	}
	if len(r.Errors) != 2 {
		t.Fatalf("Errors = %v, want 2 (room override, telemetry range)", r.Errors)
	}
	if !strings.Contains(r.Errors[0].File, "room.yaml") {
		t.Errorf("first error file = %s, want room.yaml", r.Errors[0].File)
	}
	if !strings.Contains(r.Errors[1].File, filepath.Join("telemetry", "devices")) {
		t.Errorf("second error file = %s, want telemetry document", r.Errors[1].File)
	}
	// Telemetry point without unit.
	if len(r.Warnings) != 1 {
		t.Errorf("Warnings = %v, want 1", r.Warnings)
	}
}
