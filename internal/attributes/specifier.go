package attributes

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// SpecKind tags the shape of a compiled value specifier.
type SpecKind int

// Value specifier kinds.
const (
	SpecLiteral SpecKind = iota
	SpecTemplate
	SpecChoice
	SpecRange
	SpecFormattedField
	SpecNested
)

// String returns the kind name.
func (k SpecKind) String() string {
	switch k {
	case SpecLiteral:
		return "literal"
	case SpecTemplate:
		return "template"
	case SpecChoice:
		return "choice"
	case SpecRange:
		return "range"
	case SpecFormattedField:
		return "formatted_field"
	case SpecNested:
		return "nested"
	default:
		return fmt.Sprintf("SpecKind(%d)", int(k))
	}
}

// Spec is a compiled value specifier. The set of implementations is closed.
type Spec interface {
	Kind() SpecKind
	resolve(r *resolver) any
}

// resolver carries the per-call inputs of value resolution.
type resolver struct {
	rng          *rand.Rand
	now          time.Time
	deviceIndex  int
	legacyRandom bool
}

type literalSpec struct{ value any }

type templateSpec struct{ text string }

type choiceSpec struct{ options []any }

type rangeSpec struct {
	floating bool
	minF     float64
	maxF     float64
	minI     int64
	maxI     int64
}

type formattedFieldSpec struct {
	prefix any
	format string
}

type nestedSpec struct {
	keys     []string
	children []Spec
}

func (literalSpec) Kind() SpecKind        { return SpecLiteral }
func (templateSpec) Kind() SpecKind       { return SpecTemplate }
func (choiceSpec) Kind() SpecKind         { return SpecChoice }
func (rangeSpec) Kind() SpecKind          { return SpecRange }
func (formattedFieldSpec) Kind() SpecKind { return SpecFormattedField }
func (nestedSpec) Kind() SpecKind         { return SpecNested }

func (s literalSpec) resolve(*resolver) any { return cloneValue(s.value) }

func (s templateSpec) resolve(r *resolver) any { return expandTemplate(s.text, r) }

// resolve picks one option uniformly at random. Options are returned as-is.
func (s choiceSpec) resolve(r *resolver) any {
	return cloneValue(s.options[r.rng.IntN(len(s.options))])
}

// resolve draws uniformly from [min, max]. Integer bounds give an int.
// Spans wider than int64 (or float64) can represent are drawn without
// overflow.
func (s rangeSpec) resolve(r *resolver) any {
	if s.floating {
		f := r.rng.Float64()
		v := s.minF*(1-f) + s.maxF*f
		return math.Min(math.Max(v, s.minF), s.maxF)
	}

	span := uint64(s.maxI - s.minI)
	var offset uint64
	if span == math.MaxUint64 {
		offset = r.rng.Uint64()
	} else {
		offset = r.rng.Uint64N(span + 1)
	}
	return int(s.minI + int64(offset))
}

// resolve expands format; prefix is informational only.
func (s formattedFieldSpec) resolve(r *resolver) any { return expandTemplate(s.format, r) }

// resolve processes every child independently and keeps document order.
func (s nestedSpec) resolve(r *resolver) any {
	out := newMap(len(s.keys))
	for i, k := range s.keys {
		out.set(k, s.children[i].resolve(r))
	}
	return out
}

// Compile turns a raw document value into a Spec.
//
// Shapes, checked in order:
//   - string containing both '{' and '}'     -> template
//   - sequence                               -> choice (must be non-empty)
//   - mapping with min and max               -> range (numeric, min <= max)
//   - mapping with only one of min / max     -> schema violation
//   - mapping with prefix and format         -> formatted field (format is a string)
//   - any other mapping                      -> nested
//   - anything else                          -> literal
func Compile(value any) (Spec, error) {
	return compileValue("", value)
}

func compileValue(path string, value any) (Spec, error) {
	switch v := value.(type) {
	case string:
		if isTemplate(v) {
			return templateSpec{text: v}, nil
		}
		return literalSpec{value: v}, nil

	case []any:
		if len(v) == 0 {
			return nil, schemaViolation("%s: choice list is empty", pathOrRoot(path))
		}
		return choiceSpec{options: cloneValue(v).([]any)}, nil

	case *Map:
		return compileMapping(path, v)

	default:
		return literalSpec{value: v}, nil
	}
}

func compileMapping(path string, m *Map) (Spec, error) {
	hasMin, hasMax := m.Has("min"), m.Has("max")
	switch {
	case hasMin && hasMax:
		return compileRange(path, m)
	case hasMin != hasMax:
		return nil, schemaViolation("%s: range needs both min and max", pathOrRoot(path))
	}

	if m.Has("prefix") && m.Has("format") {
		format, _ := m.Get("format")
		text, ok := format.(string)
		if !ok {
			return nil, schemaViolation("%s: format must be a string, got %T", pathOrRoot(path), format)
		}
		prefix, _ := m.Get("prefix")
		return formattedFieldSpec{prefix: prefix, format: text}, nil
	}

	nested := nestedSpec{
		keys:     make([]string, 0, m.Len()),
		children: make([]Spec, 0, m.Len()),
	}
	for _, k := range m.keys {
		child, err := compileValue(joinPath(path, k), m.values[k])
		if err != nil {
			return nil, err
		}
		nested.keys = append(nested.keys, k)
		nested.children = append(nested.children, child)
	}
	return nested, nil
}

func compileRange(path string, m *Map) (Spec, error) {
	lo, _ := m.Get("min")
	hi, _ := m.Get("max")

	switch lo.(type) {
	case int, float64:
	default:
		return nil, schemaViolation("%s: min must be numeric, got %T", pathOrRoot(path), lo)
	}
	switch hi.(type) {
	case int, float64:
	default:
		return nil, schemaViolation("%s: max must be numeric, got %T", pathOrRoot(path), hi)
	}

	loI, loIsInt := lo.(int)
	hiI, hiIsInt := hi.(int)
	if loIsInt && hiIsInt {
		if loI > hiI {
			return nil, schemaViolation("%s: min %d > max %d", pathOrRoot(path), loI, hiI)
		}
		return rangeSpec{minI: int64(loI), maxI: int64(hiI)}, nil
	}

	loF, hiF := toFloat(lo), toFloat(hi)
	if math.IsInf(loF, 0) || math.IsNaN(loF) || math.IsInf(hiF, 0) || math.IsNaN(hiF) {
		return nil, schemaViolation("%s: range bounds must be finite", pathOrRoot(path))
	}
	if loF > hiF {
		return nil, schemaViolation("%s: min %v > max %v", pathOrRoot(path), lo, hi)
	}
	return rangeSpec{floating: true, minF: loF, maxF: hiF}, nil
}

// isTemplate reports whether a string is treated as a template.
func isTemplate(s string) bool {
	return strings.Contains(s, "{") && strings.Contains(s, "}")
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "<value>"
	}
	return path
}

// deviceTemplate is a compiled device document.
type deviceTemplate struct {
	sections []deviceSection
}

// deviceSection is one top-level mapping of a device document.
type deviceSection struct {
	name  string
	keys  []string
	specs []Spec
}

// compileDevice compiles every mapping-valued top-level section.
// Non-mapping top-level values are ignored.
func compileDevice(doc *Map) (*deviceTemplate, error) {
	tmpl := &deviceTemplate{}
	for _, name := range doc.keys {
		section, ok := doc.values[name].(*Map)
		if !ok {
			continue
		}
		ds := deviceSection{
			name:  name,
			keys:  make([]string, 0, section.Len()),
			specs: make([]Spec, 0, section.Len()),
		}
		for _, k := range section.keys {
			spec, err := compileValue(joinPath(name, k), section.values[k])
			if err != nil {
				return nil, err
			}
			ds.keys = append(ds.keys, k)
			ds.specs = append(ds.specs, spec)
		}
		tmpl.sections = append(tmpl.sections, ds)
	}
	return tmpl, nil
}
