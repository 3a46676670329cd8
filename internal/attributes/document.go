package attributes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Map is an ordered, string-keyed mapping decoded from a definition document.
//
// Values are one of: nil, bool, int, float64, string, []any, *Map.
// Key order follows the source document; it drives section iteration
// and last-write-wins collisions during device flattening.
//
// A Map handed out by the Loader is shared through the cache and must be
// treated as read-only. Mutation is only possible inside this package.
type Map struct {
	keys   []string
	values map[string]any
}

// newMap returns an empty Map with room for n keys.
func newMap(n int) *Map {
	return &Map{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// set stores a value, appending the key if it is new.
func (m *Map) set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in document order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present (even with a null value).
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Map returns the nested mapping stored under key.
func (m *Map) Map(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Map)
	return child, ok
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := newMap(len(m.keys))
	for _, k := range m.keys {
		out.set(k, cloneValue(m.values[k]))
	}
	return out
}

// Plain converts the mapping (recursively) to map[string]any.
func (m *Map) Plain() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plainValue(m.values[k])
	}
	return out
}

// MarshalJSON encodes the mapping preserving key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the mapping preserving key order.
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if m == nil {
		return node, nil
	}
	for _, k := range m.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// cloneValue deep-copies a document value.
func cloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// plainValue converts nested *Map values to map[string]any.
func plainValue(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Plain()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

// ParseDocument decodes YAML bytes into a document.
// An empty input yields an empty document; a non-mapping root is an error.
func ParseDocument(data []byte) (*Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return newMap(0), nil
	}

	v, err := decodeNode(&root)
	if err != nil {
		return nil, err
	}
	switch doc := v.(type) {
	case nil:
		return newMap(0), nil
	case *Map:
		return doc, nil
	default:
		return nil, fmt.Errorf("document root must be a mapping, got %T", v)
	}
}

// decodeNode walks a yaml.Node into document values.
func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0])

	case yaml.AliasNode:
		return decodeNode(n.Alias)

	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case yaml.MappingNode:
		return decodeMapping(n)

	case yaml.ScalarNode:
		return decodeScalar(n)

	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

// decodeMapping decodes a mapping node, honouring YAML merge keys (<<).
// Explicit keys always win over merged ones.
func decodeMapping(n *yaml.Node) (*Map, error) {
	m := newMap(len(n.Content) / 2)
	var merged []*Map

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]

		if keyNode.Tag == "!!merge" {
			sources, err := mergeSources(valNode)
			if err != nil {
				return nil, err
			}
			merged = append(merged, sources...)
			continue
		}

		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
		}
		v, err := decodeNode(valNode)
		if err != nil {
			return nil, err
		}
		m.set(keyNode.Value, v)
	}

	for _, src := range merged {
		for _, k := range src.keys {
			if !m.Has(k) {
				m.set(k, cloneValue(src.values[k]))
			}
		}
	}
	return m, nil
}

// mergeSources resolves the value of a merge key into mappings.
func mergeSources(n *yaml.Node) ([]*Map, error) {
	v, err := decodeNode(n)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case *Map:
		return []*Map{t}, nil
	case []any:
		out := make([]*Map, 0, len(t))
		for _, item := range t {
			m, ok := item.(*Map)
			if !ok {
				return nil, fmt.Errorf("line %d: merge key sequence must contain mappings", n.Line)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: merge key value must be a mapping", n.Line)
	}
}

// decodeScalar decodes a scalar node into a document value.
// Timestamps stay as their source text so dates round-trip unchanged.
func decodeScalar(n *yaml.Node) (any, error) {
	if n.Tag == "!!timestamp" || n.Tag == "!!binary" {
		return n.Value, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return normalizeNumber(v), nil
}

// normalizeNumber folds the integer widths yaml.v3 may produce into int.
func normalizeNumber(v any) any {
	switch t := v.(type) {
	case int64:
		if t >= math.MinInt && t <= math.MaxInt {
			return int(t)
		}
	case uint64:
		if t <= math.MaxInt {
			return int(t)
		}
		return float64(t)
	}
	return v
}

// Merge deep-merges overlay on top of base and returns a new document.
//
// For each key in overlay: when both sides hold a mapping the two are merged
// recursively; otherwise the overlay value replaces the base value entirely.
// Sequences are replaced, never concatenated. Keys present only in base keep
// their position; keys new in overlay are appended in overlay order.
// Neither input is modified.
func Merge(base, overlay *Map) *Map {
	if base == nil {
		return overlay.Clone()
	}
	result := base.Clone()
	if overlay == nil {
		return result
	}

	for _, k := range overlay.keys {
		ov := overlay.values[k]
		if om, ok := ov.(*Map); ok {
			if bm, ok := result.values[k].(*Map); ok {
				result.set(k, Merge(bm, om))
				continue
			}
		}
		result.set(k, cloneValue(ov))
	}
	return result
}
