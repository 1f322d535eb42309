package loader

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/strata/pkg/document"
)

// parseYAML decodes YAML (or JSON) into the document model, keeping
// mapping keys in declaration order. Duplicate keys take the last
// occurrence, at the position of the first.
func parseYAML(data []byte, name string) (*document.Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return document.NewMap(), nil
	}

	top := deref(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing %s: top-level value must be a mapping, got %s", name, yamlKindName(top.Kind))
	}
	value, err := yamlToNode(top, name)
	if err != nil {
		return nil, err
	}
	return value.(*document.Map), nil
}

// deref follows alias nodes to their anchor target.
func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func yamlToNode(n *yaml.Node, name string) (any, error) {
	n = deref(n)
	switch n.Kind {
	case yaml.MappingNode:
		m := document.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := deref(n.Content[i])
			if keyNode.Kind != yaml.ScalarNode || keyNode.Tag != "!!str" {
				return nil, fmt.Errorf("parsing %s: line %d: mapping keys must be strings, got %s", name, keyNode.Line, keyNode.Tag)
			}
			value, err := yamlToNode(n.Content[i+1], name)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, value)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make(document.Sequence, 0, len(n.Content))
		for _, elem := range n.Content {
			value, err := yamlToNode(elem, name)
			if err != nil {
				return nil, err
			}
			seq = append(seq, value)
		}
		return seq, nil
	case yaml.ScalarNode:
		return yamlScalar(n, name)
	default:
		return nil, fmt.Errorf("parsing %s: line %d: unexpected %s", name, n.Line, yamlKindName(n.Kind))
	}
}

// yamlScalar decodes one scalar node and normalizes it into the
// document model. Scalars outside the model's kinds (for example
// timestamps) keep their source text as a string.
func yamlScalar(n *yaml.Node, name string) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("parsing %s: line %d: %w", name, n.Line, err)
	}
	switch value := v.(type) {
	case nil, bool, int64, float64, string:
		return value, nil
	case int:
		return int64(value), nil
	case uint64:
		if value > math.MaxInt64 {
			return nil, fmt.Errorf("parsing %s: line %d: integer %d overflows", name, n.Line, value)
		}
		return int64(value), nil
	default:
		return n.Value, nil
	}
}

func yamlKindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return fmt.Sprintf("kind(%d)", int(kind))
	}
}

// ParseScalar interprets text the way YAML interprets a plain scalar:
// "5" becomes an int, "true" a bool, "1.5" a float. Empty text, text
// that parses to a structure, and text that does not parse stay plain
// strings. Used for reference defaults spliced as whole values.
func ParseScalar(text string) any {
	if text == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	switch value := v.(type) {
	case nil, bool, int64, float64:
		return value
	case string:
		return value
	case int:
		return int64(value)
	case uint64:
		if value > math.MaxInt64 {
			return text
		}
		return int64(value)
	default:
		return text
	}
}
