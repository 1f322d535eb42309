package loader

import (
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/openfroyo/strata/pkg/document"
)

// parseTOML decodes TOML into the document model. Declaration order is
// reconstructed from the decoder's key metadata; values the metadata
// does not order individually (such as the contents of arrays of
// tables) fall back to sorted key order, which keeps loading
// deterministic.
func parseTOML(data []byte, name string) (*document.Map, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	doc := document.NewMap()
	for _, key := range md.Keys() {
		if err := placeTOMLKey(doc, raw, []string(key), name); err != nil {
			return nil, err
		}
	}
	if err := fillMissingTOML(doc, raw, name); err != nil {
		return nil, err
	}
	return doc, nil
}

// placeTOMLKey inserts the value addressed by segs into doc, creating
// intermediate mappings in declaration order. Tables are created empty
// and filled by their own child keys; keys addressing the inside of an
// already-placed composite value are skipped.
func placeTOMLKey(doc *document.Map, raw map[string]any, segs []string, name string) error {
	current := doc
	rawCurrent := raw
	for i, seg := range segs {
		rawValue, ok := rawCurrent[seg]
		if !ok {
			return nil
		}
		rawChild, rawIsMap := rawValue.(map[string]any)

		if i == len(segs)-1 {
			if current.Has(seg) {
				return nil
			}
			if rawIsMap {
				current.Set(seg, document.NewMap())
				return nil
			}
			converted, err := tomlToNode(rawValue, name)
			if err != nil {
				return err
			}
			current.Set(seg, converted)
			return nil
		}

		if !rawIsMap {
			// Key inside an array of tables: the array itself was
			// placed wholesale when its own key was seen.
			if !current.Has(seg) {
				converted, err := tomlToNode(rawValue, name)
				if err != nil {
					return err
				}
				current.Set(seg, converted)
			}
			return nil
		}

		child, exists := current.Get(seg)
		if !exists {
			child = document.NewMap()
			current.Set(seg, child)
		}
		childMap, isMap := child.(*document.Map)
		if !isMap {
			return nil
		}
		current = childMap
		rawCurrent = rawChild
	}
	return nil
}

// fillMissingTOML adds any raw values the key metadata did not place,
// in sorted order, so no input is silently dropped.
func fillMissingTOML(doc *document.Map, raw map[string]any, name string) error {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		rawValue := raw[k]
		existing, exists := doc.Get(k)
		if !exists {
			converted, err := tomlToNode(rawValue, name)
			if err != nil {
				return err
			}
			doc.Set(k, converted)
			continue
		}
		existingMap, isMap := existing.(*document.Map)
		rawChild, rawIsMap := rawValue.(map[string]any)
		if isMap && rawIsMap {
			if err := fillMissingTOML(existingMap, rawChild, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// tomlToNode converts a decoded TOML value into the document model.
// Map keys here have no ordering metadata and are sorted.
func tomlToNode(v any, name string) (any, error) {
	switch value := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := document.NewMap()
		for _, k := range keys {
			converted, err := tomlToNode(value[k], name)
			if err != nil {
				return nil, err
			}
			m.Set(k, converted)
		}
		return m, nil
	case []map[string]any:
		seq := make(document.Sequence, 0, len(value))
		for _, elem := range value {
			converted, err := tomlToNode(elem, name)
			if err != nil {
				return nil, err
			}
			seq = append(seq, converted)
		}
		return seq, nil
	case []any:
		seq := make(document.Sequence, 0, len(value))
		for _, elem := range value {
			converted, err := tomlToNode(elem, name)
			if err != nil {
				return nil, err
			}
			seq = append(seq, converted)
		}
		return seq, nil
	case nil, bool, int64, float64, string:
		return value, nil
	case time.Time:
		return value.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return value.String(), nil
	default:
		return nil, fmt.Errorf("parsing %s: unsupported TOML value type %T", name, v)
	}
}
