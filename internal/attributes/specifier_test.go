package attributes

import (
	"errors"
	"math"
	"testing"
)

// specValue parses `v: <src>` and returns the value of v.
func specValue(t *testing.T, src string) any {
	t.Helper()
	doc := mustParse(t, "v: "+src+"\n")
	v, _ := doc.Get("v")
	return v
}

func TestCompile_Shapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want SpecKind
	}{
		{"plain string", "ebm-papst", SpecLiteral},
		{"number", "42", SpecLiteral},
		{"bool", "true", SpecLiteral},
		{"null", "null", SpecLiteral},
		{"only open brace", `"a { b"`, SpecLiteral},
		{"template", `"SN-{device_index}"`, SpecTemplate},
		{"choice", "[a, b, c]", SpecChoice},
		{"int range", "{min: 1, max: 5}", SpecRange},
		{"float range", "{min: 0.5, max: 2}", SpecRange},
		{"formatted field", `{prefix: FFU, format: "FFU-{device_index}"}`, SpecFormattedField},
		{"nested", "{model: K3G, speed: {min: 1, max: 2}}", SpecNested},
		{"prefix only nests", "{prefix: FFU}", SpecNested},
		{"format only nests", `{format: "x"}`, SpecNested},
		{"range wins over prefix", "{min: 1, max: 2, prefix: a, format: b}", SpecRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Compile(specValue(t, tt.src))
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if spec.Kind() != tt.want {
				t.Errorf("Kind() = %v, want %v", spec.Kind(), tt.want)
			}
		})
	}
}

func TestCompile_Violations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"min only", "{min: 1}"},
		{"max only", "{max: 1}"},
		{"inverted int range", "{min: 5, max: 1}"},
		{"inverted float range", "{min: 2.5, max: 1.0}"},
		{"string bound", "{min: low, max: 5}"},
		{"null bound", "{min: 1, max: null}"},
		{"empty choice", "[]"},
		{"non-string format", "{prefix: a, format: 12}"},
		{"infinite bound", "{min: 0, max: .inf}"},
		{"not a number bound", "{min: .nan, max: 1}"},
		{"nested violation", "{outer: {min: 3}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(specValue(t, tt.src))
			if !errors.Is(err, ErrSchemaViolation) {
				t.Errorf("Compile() error = %v, want ErrSchemaViolation", err)
			}
		})
	}
}

func TestRangeSpec_Resolve(t *testing.T) {
	t.Run("integer bounds", func(t *testing.T) {
		spec, err := Compile(specValue(t, "{min: 10, max: 12}"))
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		r := testResolver(0)
		seen := make(map[int]bool)
		for range 1000 {
			v, ok := spec.resolve(r).(int)
			if !ok {
				t.Fatalf("resolve() returned %T, want int", spec.resolve(r))
			}
			if v < 10 || v > 12 {
				t.Fatalf("value %d outside [10, 12]", v)
			}
			seen[v] = true
		}
		if len(seen) != 3 {
			t.Errorf("saw %v, want both bounds and the middle to be drawn", seen)
		}
	})

	t.Run("float bounds", func(t *testing.T) {
		spec, err := Compile(specValue(t, "{min: 1, max: 1.5}"))
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		r := testResolver(0)
		for range 1000 {
			v, ok := spec.resolve(r).(float64)
			if !ok {
				t.Fatal("resolve() did not return float64")
			}
			if v < 1 || v > 1.5 {
				t.Fatalf("value %v outside [1, 1.5]", v)
			}
		}
	})

	t.Run("extreme bounds", func(t *testing.T) {
		tests := []struct {
			name   string
			src    string
			lo, hi float64
		}{
			{"full int64", "{min: -9223372036854775808, max: 9223372036854775807}", math.MinInt64, math.MaxInt64},
			{"wider than int64 span", "{min: -9223372036854775808, max: 1}", math.MinInt64, 1},
			{"float extremes", "{min: -1.0e308, max: 1.0e308}", -1e308, 1e308},
			{"max float", "{min: 1.0e308, max: 1.7976931348623157e308}", 1e308, math.MaxFloat64},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				spec, err := Compile(specValue(t, tt.src))
				if err != nil {
					t.Fatalf("Compile() error = %v", err)
				}
				r := testResolver(0)
				for range 200 {
					var v float64
					switch got := spec.resolve(r).(type) {
					case int:
						v = float64(got)
					case float64:
						v = got
					default:
						t.Fatalf("resolve() returned %T", got)
					}
					if math.IsNaN(v) || v < tt.lo || v > tt.hi {
						t.Fatalf("value %v outside [%v, %v]", v, tt.lo, tt.hi)
					}
				}
			})
		}
	})

	t.Run("degenerate range", func(t *testing.T) {
		spec, err := Compile(specValue(t, "{min: 4, max: 4}"))
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if v := spec.resolve(testResolver(0)); v != 4 {
			t.Errorf("resolve() = %v, want 4", v)
		}
	})
}

func TestChoiceSpec_Resolve(t *testing.T) {
	spec, err := Compile(specValue(t, "[K3G, R3G, 1]"))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	r := testResolver(0)
	allowed := map[any]bool{"K3G": true, "R3G": true, 1: true}
	for range 200 {
		if v := spec.resolve(r); !allowed[v] {
			t.Fatalf("resolve() = %#v, not one of the options", v)
		}
	}
}

func TestFormattedFieldSpec_Resolve(t *testing.T) {
	spec, err := Compile(specValue(t, `{prefix: FFU, format: "FFU-{device_index}"}`))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got := spec.resolve(testResolver(12)); got != "FFU-12" {
		t.Errorf("resolve() = %v, want FFU-12", got)
	}
}

func TestNestedSpec_Resolve(t *testing.T) {
	spec, err := Compile(specValue(t, `{model: K3G, id: "N-{device_index}", level: {min: 1, max: 1}}`))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	got, ok := spec.resolve(testResolver(2)).(*Map)
	if !ok {
		t.Fatalf("resolve() did not return *Map")
	}
	want := map[string]any{"model": "K3G", "id": "N-2", "level": 1}
	for k, v := range want {
		if g, _ := got.Get(k); g != v {
			t.Errorf("%s = %#v, want %#v", k, g, v)
		}
	}
}

func TestCompileDevice(t *testing.T) {
	doc := mustParse(t, `
schema_version: 2
device_info:
  model: K3G
operating:
  speed: {min: 1, max: 2}
`)
	tmpl, err := compileDevice(doc)
	if err != nil {
		t.Fatalf("compileDevice() error = %v", err)
	}
	if len(tmpl.sections) != 2 {
		t.Fatalf("sections = %d, want 2 (scalar top-level values skipped)", len(tmpl.sections))
	}
	if tmpl.sections[0].name != "device_info" || tmpl.sections[1].name != "operating" {
		t.Errorf("section order = %s, %s", tmpl.sections[0].name, tmpl.sections[1].name)
	}

	bad := mustParse(t, "operating:\n  speed: {max: 2}\n")
	if _, err := compileDevice(bad); !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("compileDevice(bad) error = %v, want ErrSchemaViolation", err)
	}
}
