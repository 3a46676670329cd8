package attributes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// recommendedDeviceSections are expected in device documents; absence is a warning.
var recommendedDeviceSections = []string{"device_info"}

// Issue is a single validation finding.
type Issue struct {
	// File is the document path, empty for in-memory documents.
	File string

	// Path locates the offending value inside the document (dot separated).
	Path string

	Message string
}

// String formats the issue for display.
func (i Issue) String() string {
	var b strings.Builder
	if i.File != "" {
		b.WriteString(i.File)
		b.WriteString(": ")
	}
	if i.Path != "" {
		b.WriteString(i.Path)
		b.WriteString(": ")
	}
	b.WriteString(i.Message)
	return b.String()
}

// Report collects validation errors and warnings.
type Report struct {
	Errors   []Issue
	Warnings []Issue
	// Files counts the documents checked.
	Files int
}

// OK reports whether no errors were found. Warnings do not fail a report.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns nil when the report has no errors, otherwise an error
// wrapping ErrSchemaViolation that lists every error.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, issue := range r.Errors {
		msgs[i] = issue.String()
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

func (r *Report) errorf(file, path, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{File: file, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(file, path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{File: file, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) merge(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Files += other.Files
}

// ValidateDocument checks the structure of one parsed document.
func ValidateDocument(kind Kind, doc *Map) Report {
	var r Report
	r.Files = 1
	validateInto(&r, "", kind, doc)
	return r
}

func validateInto(r *Report, file string, kind Kind, doc *Map) {
	switch kind {
	case KindAsset:
		validateAsset(r, file, doc)
	case KindDevice:
		validateDevice(r, file, doc)
	case KindTelemetry:
		validateTelemetry(r, file, doc)
	default:
		r.errorf(file, "", "unknown document kind %q", kind)
	}
}

func validateAsset(r *Report, file string, doc *Map) {
	def, ok := doc.Get("default")
	switch {
	case !ok:
		r.errorf(file, "", "asset document must have a 'default' section")
	default:
		if _, isMap := def.(*Map); !isMap {
			r.errorf(file, "default", "must be a mapping, got %T", def)
		}
	}

	raw, ok := doc.Get("overrides")
	if !ok || raw == nil {
		return
	}
	overrides, isMap := raw.(*Map)
	if !isMap {
		r.errorf(file, "overrides", "must be a mapping, got %T", raw)
		return
	}
	for _, key := range overrides.keys {
		if _, isMap := overrides.values[key].(*Map); !isMap {
			r.errorf(file, "overrides."+key, "override block must be a mapping, got %T", overrides.values[key])
		}
	}
}

func validateDevice(r *Report, file string, doc *Map) {
	for _, section := range recommendedDeviceSections {
		if !doc.Has(section) {
			r.warnf(file, "", "missing recommended section '%s'", section)
		}
	}

	for _, name := range doc.keys {
		section, ok := doc.values[name].(*Map)
		if !ok {
			continue
		}
		for _, key := range section.keys {
			path := joinPath(name, key)
			value := section.values[key]
			if _, err := compileValue(path, value); err != nil {
				r.errorf(file, "", "%s", strings.TrimPrefix(err.Error(), ErrSchemaViolation.Error()+": "))
				continue
			}
			checkPercent(r, file, path, key, value)
		}
	}
}

// checkPercent flags percentage literals and range bounds outside 0..100.
func checkPercent(r *Report, file, path, key string, value any) {
	if !strings.Contains(strings.ToLower(key), "percent") {
		return
	}
	inRange := func(v any) bool {
		switch v.(type) {
		case int, float64:
			f := toFloat(v)
			return f >= 0 && f <= 100
		}
		return true
	}

	if m, ok := value.(*Map); ok {
		lo, _ := m.Get("min")
		hi, _ := m.Get("max")
		if !inRange(lo) || !inRange(hi) {
			r.errorf(file, path, "percentage range %v..%v outside 0..100", lo, hi)
		}
		return
	}
	if !inRange(value) {
		r.errorf(file, path, "percentage %v outside 0..100", value)
	}
}

func validateTelemetry(r *Report, file string, doc *Map) {
	raw, ok := doc.Get("data_points")
	if !ok {
		r.errorf(file, "", "telemetry document must have a 'data_points' section")
		return
	}
	points, isMap := raw.(*Map)
	if !isMap {
		r.errorf(file, "data_points", "must be a mapping, got %T", raw)
		return
	}

	for _, name := range points.keys {
		path := "data_points." + name
		dp, ok := points.values[name].(*Map)
		if !ok {
			r.errorf(file, path, "data point must be a mapping, got %T", points.values[name])
			continue
		}
		if !dp.Has("unit") {
			r.warnf(file, path, "missing 'unit'")
		}

		lo, hasMin := dp.Get("min")
		hi, hasMax := dp.Get("max")
		for _, bound := range []struct {
			name    string
			value   any
			present bool
		}{{"min", lo, hasMin}, {"max", hi, hasMax}} {
			if !bound.present {
				continue
			}
			switch bound.value.(type) {
			case int, float64:
			default:
				r.errorf(file, path+"."+bound.name, "must be numeric, got %T", bound.value)
			}
		}
		if hasMin && hasMax && isNumber(lo) && isNumber(hi) && toFloat(lo) > toFloat(hi) {
			r.errorf(file, path, "invalid range: min %v > max %v", lo, hi)
		}
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, float64:
		return true
	}
	return false
}

// Validator checks whole definition trees on disk.
type Validator struct {
	attributesDir string
	telemetryDir  string
}

// NewValidator creates a Validator for the given roots.
func NewValidator(attributesDir, telemetryDir string) *Validator {
	return &Validator{attributesDir: attributesDir, telemetryDir: telemetryDir}
}

// ValidateFile parses and checks a single document. An empty kind is
// inferred from the path (see KindForPath).
func (v *Validator) ValidateFile(path string, kind Kind) Report {
	var r Report
	r.Files = 1
	if kind == "" {
		kind = v.KindForPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.errorf(path, "", "reading document: %v", err)
		return r
	}
	doc, err := ParseDocument(data)
	if err != nil {
		r.errorf(path, "", "YAML syntax: %v", err)
		return r
	}
	if kind == "" {
		r.warnf(path, "", "cannot infer document kind from path; only syntax checked")
		return r
	}
	validateInto(&r, path, kind, doc)
	return r
}

// KindForPath infers a document kind from its location: anything under the
// telemetry root is telemetry; otherwise an "assets" or "devices" directory
// component decides. Returns "" when nothing matches.
func (v *Validator) KindForPath(path string) Kind {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if v.telemetryDir != "" {
		if root, err := filepath.Abs(v.telemetryDir); err == nil {
			if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
				return KindTelemetry
			}
		}
	}
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(abs)), "/") {
		switch part {
		case "assets":
			return KindAsset
		case "devices":
			return KindDevice
		}
	}
	return ""
}

// ValidateAll checks every base document and every environment overlay.
//
// Base documents are validated as written. Overlays are checked for syntax
// and then validated after merging onto their base, because an overlay alone
// may legitimately omit required sections.
func (v *Validator) ValidateAll() Report {
	var r Report
	type tree struct {
		subdir string
		kind   Kind
	}
	roots := []struct {
		dir   string
		trees []tree
	}{
		{dir: v.attributesDir, trees: []tree{{"assets", KindAsset}, {"devices", KindDevice}}},
		{dir: v.telemetryDir, trees: []tree{{"devices", KindTelemetry}}},
	}

	loader := NewLoader(v.attributesDir, v.telemetryDir)

	for _, root := range roots {
		if root.dir == "" {
			continue
		}
		entries, err := os.ReadDir(root.dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				r.warnf(root.dir, "", "directory does not exist")
				continue
			}
			r.errorf(root.dir, "", "reading directory: %v", err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			base := false
			for _, t := range root.trees {
				if entry.Name() != t.subdir {
					continue
				}
				base = true
				for _, file := range documentFiles(filepath.Join(root.dir, t.subdir)) {
					r.merge(v.ValidateFile(file, t.kind))
				}
			}
			if base {
				continue
			}

			env := entry.Name()
			for _, t := range root.trees {
				for _, file := range documentFiles(filepath.Join(root.dir, env, t.subdir)) {
					r.merge(v.validateOverlay(loader, file, t.kind, env))
				}
			}
		}
	}
	return r
}

// validateOverlay checks an environment overlay merged onto its base.
func (v *Validator) validateOverlay(loader *Loader, file string, kind Kind, env string) Report {
	var r Report
	r.Files = 1

	typeName := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if filepath.Ext(file) != documentExt {
		r.warnf(file, "", "overlay ignored by the loader (extension must be %s)", documentExt)
		return r
	}

	doc, err := loader.Load(kind, typeName, env)
	if err != nil {
		r.errorf(file, "", "%v", err)
		return r
	}
	validateInto(&r, file, kind, doc)
	return r
}

// documentFiles lists *.yaml and *.yml files in dir, sorted by name.
func documentFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files
}
