package document

import (
	"strconv"
)

// Sequence is an ordered list of nodes.
type Sequence []any

// MapItem is a single key/value entry of a Map.
type MapItem struct {
	Key   string
	Value any
}

// Map is a mapping from string keys to nodes that preserves the order
// in which keys were first inserted.
type Map struct {
	items []MapItem
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{}
}

// NewMapWithItems returns an ordered map seeded with the given items.
// Later duplicates overwrite earlier values in place.
func NewMapWithItems(items []MapItem) *Map {
	m := NewMap()
	for _, item := range items {
		m.Set(item.Key, item.Value)
	}
	return m
}

// Set assigns value to key. An existing key keeps its position; a new
// key is appended at the end.
func (m *Map) Set(key string, value any) {
	for i, item := range m.items {
		if item.Key == key {
			m.items[i].Value = value
			return
		}
	}
	m.items = append(m.items, MapItem{Key: key, Value: value})
}

// Get returns the value for key and whether it is present.
func (m *Map) Get(key string) (any, bool) {
	for _, item := range m.items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key, preserving the order of the remaining items. It
// reports whether the key was present.
func (m *Map) Delete(key string) bool {
	for i, item := range m.items {
		if item.Key == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.items))
	for _, item := range m.items {
		keys = append(keys, item.Key)
	}
	return keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.items)
}

// Iterate calls fn for each entry in insertion order.
func (m *Map) Iterate(fn func(key string, value any)) {
	for _, item := range m.items {
		fn(item.Key, item.Value)
	}
}

// IterateErr calls fn for each entry in insertion order, stopping at
// the first error.
func (m *Map) IterateErr(fn func(key string, value any) error) error {
	for _, item := range m.items {
		if err := fn(item.Key, item.Value); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a deep copy of node. Maps and sequences are copied
// recursively; scalars are returned as-is.
func Copy(node any) any {
	switch v := node.(type) {
	case *Map:
		out := NewMap()
		for _, item := range v.items {
			out.items = append(out.items, MapItem{Key: item.Key, Value: Copy(item.Value)})
		}
		return out
	case Sequence:
		out := make(Sequence, len(v))
		for i, elem := range v {
			out[i] = Copy(elem)
		}
		return out
	default:
		return node
	}
}

// Equal reports whether two nodes are structurally equal: same kinds,
// same scalar values, same sequence elements in order, and same map
// entries in the same key order.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		if !ok || len(av.items) != len(bv.items) {
			return false
		}
		for i := range av.items {
			if av.items[i].Key != bv.items[i].Key {
				return false
			}
			if !Equal(av.items[i].Value, bv.items[i].Value) {
				return false
			}
		}
		return true
	case Sequence:
		bv, ok := b.(Sequence)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// KindOf returns a human-readable kind name for a node, used in
// diagnostics ("mapping", "sequence", "string", "int", "float",
// "bool", "null").
func KindOf(node any) string {
	switch node.(type) {
	case *Map:
		return "mapping"
	case Sequence:
		return "sequence"
	case string:
		return "string"
	case int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

// IsScalar reports whether node is a scalar (including null).
func IsScalar(node any) bool {
	switch node.(type) {
	case *Map, Sequence:
		return false
	default:
		return true
	}
}

// FormatScalar renders a non-null scalar as text. The formatting is
// stable: integers have no exponent, floats use the shortest
// round-trip form, and bools are "true"/"false". It returns false for
// null, mappings, sequences, and unknown types, which have no text
// form.
func FormatScalar(node any) (string, bool) {
	switch v := node.(type) {
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
