package attributes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Kind selects which definition tree a document is read from.
type Kind string

// Document kinds.
const (
	KindAsset     Kind = "asset"
	KindDevice    Kind = "device"
	KindTelemetry Kind = "telemetry"
)

// documentExt is the file extension of definition documents.
const documentExt = ".yaml"

// subdir returns the directory holding documents of this kind.
func (k Kind) subdir() string {
	switch k {
	case KindAsset:
		return "assets"
	default:
		return "devices"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAsset, KindDevice, KindTelemetry:
		return true
	}
	return false
}

// Logger defines the logging interface used by the Loader and Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Loader reads, merges and caches definition documents.
//
// Layout (relative to the attributes or telemetry root):
//
//	assets/<type>.yaml                 asset documents (attributes root)
//	devices/<type>.yaml                device / telemetry documents
//	<environment>/assets/<type>.yaml   environment overlays
//
// The cache is keyed by absolute file path after environment resolution.
// Cached documents are immutable for the lifetime of the Loader. Loads are
// serialised by a single mutex, so concurrent first loads of the same key
// read the file once. Two Loaders never share cache state.
type Loader struct {
	attributesDir string
	telemetryDir  string

	mu       sync.Mutex
	cache    map[string]*Map
	compiled map[string]*deviceTemplate

	logger Logger
}

// NewLoader creates a Loader rooted at the given directories.
func NewLoader(attributesDir, telemetryDir string) *Loader {
	return &Loader{
		attributesDir: attributesDir,
		telemetryDir:  telemetryDir,
		cache:         make(map[string]*Map),
		compiled:      make(map[string]*deviceTemplate),
		logger:        noopLogger{},
	}
}

// SetLogger sets the logger for the loader.
func (l *Loader) SetLogger(logger Logger) {
	l.logger = logger
}

// Load returns the definition document for (kind, typeName, environment).
//
// When environment is non-empty and an overlay exists for it, the overlay is
// deep-merged on top of the base document (if one exists). Otherwise the base
// document is used. Missing documents fail with ErrConfigNotFound, invalid
// YAML with ErrConfigParse, both wrapped in *DocumentError.
//
// The returned document is shared with the cache and must not be modified.
func (l *Loader) Load(kind Kind, typeName, environment string) (*Map, error) {
	doc, _, err := l.load(kind, typeName, environment)
	return doc, err
}

// CacheSize returns the number of cached documents.
func (l *Loader) CacheSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// load returns the document and its cache key.
func (l *Loader) load(kind Kind, typeName, environment string) (*Map, string, error) {
	if err := checkName(typeName); err != nil {
		return nil, "", &DocumentError{Kind: kind, Type: typeName, Environment: environment, Err: err}
	}
	if err := checkName(environment); environment != "" && err != nil {
		return nil, "", &DocumentError{Kind: kind, Type: typeName, Environment: environment, Err: err}
	}

	root := l.root(kind)
	rel := filepath.Join(kind.subdir(), typeName+documentExt)
	basePath, err := filepath.Abs(filepath.Join(root, rel))
	if err != nil {
		return nil, "", &DocumentError{Kind: kind, Type: typeName, Environment: environment, Err: err}
	}

	path := basePath
	overlay := false
	if environment != "" {
		envPath, err := filepath.Abs(filepath.Join(root, environment, rel))
		if err == nil && fileExists(envPath) {
			path = envPath
			overlay = true
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if doc, ok := l.cache[path]; ok {
		return doc, path, nil
	}

	docErr := func(path string, err error) error {
		return &DocumentError{Kind: kind, Type: typeName, Environment: environment, Path: path, Err: err}
	}

	if !overlay && !fileExists(basePath) {
		return nil, "", docErr("", ErrConfigNotFound)
	}

	doc, err := readDocument(path)
	if err != nil {
		return nil, "", docErr(path, err)
	}

	if overlay && fileExists(basePath) {
		base, err := readDocument(basePath)
		if err != nil {
			return nil, "", docErr(basePath, err)
		}
		doc = Merge(base, doc)
	}

	l.cache[path] = doc
	l.logger.Debug("definition document loaded",
		"kind", kind,
		"type", typeName,
		"environment", environment,
		"overlay", overlay,
		"path", path,
	)
	return doc, path, nil
}

// deviceTemplate returns the compiled form of a device document.
// Compiled templates are memoized under the document's cache key.
func (l *Loader) deviceTemplate(typeName, environment string) (*deviceTemplate, error) {
	doc, key, err := l.load(KindDevice, typeName, environment)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	tmpl, ok := l.compiled[key]
	l.mu.Unlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err = compileDevice(doc)
	if err != nil {
		return nil, &DocumentError{Kind: KindDevice, Type: typeName, Environment: environment, Path: key, Err: err}
	}

	l.mu.Lock()
	l.compiled[key] = tmpl
	l.mu.Unlock()
	return tmpl, nil
}

// root returns the tree a kind is read from.
func (l *Loader) root(kind Kind) string {
	if kind == KindTelemetry {
		return l.telemetryDir
	}
	return l.attributesDir
}

// readDocument reads and parses one YAML file.
func readDocument(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return doc, nil
}

// checkName rejects names that would escape the definition tree.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidTypeName, name)
	}
	return nil
}

// fileExists reports whether path names a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
