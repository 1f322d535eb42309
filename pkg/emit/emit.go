// Package emit renders realized documents to YAML or JSON with key
// order preserved, and writes output files atomically.
package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/strata/pkg/document"
)

// Format identifies an output encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DetectFormat infers the output format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot infer output format from %q", path)
	}
}

// Marshal renders a document node in the given format. Mapping keys
// appear in document order. Output is deterministic: equal nodes
// always render to identical bytes.
func Marshal(node any, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return marshalYAML(node)
	case FormatJSON:
		return marshalJSON(node)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// WriteTo renders node and writes it to w.
func WriteTo(w io.Writer, node any, format Format) error {
	data, err := Marshal(node, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// WriteFile renders node and writes it to path atomically: the
// content goes to a temp file in the destination directory, which is
// synced and then renamed into place. A failed realization never
// leaves a partial output file behind.
func WriteFile(path string, node any, format Format) error {
	data, err := Marshal(node, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".strata-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to destination: %w", err)
	}

	success = true
	return nil
}

func marshalYAML(node any) ([]byte, error) {
	yn, err := buildYAMLNode(node)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yn); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// buildYAMLNode converts a document node into a yaml.Node tree.
// Mappings become mapping nodes with children in document order,
// scalars are encoded through the library so ambiguous strings come
// out quoted.
func buildYAMLNode(node any) (*yaml.Node, error) {
	switch v := node.(type) {
	case *document.Map:
		yn := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		err := v.IterateErr(func(key string, value any) error {
			keyNode := &yaml.Node{}
			if err := keyNode.Encode(key); err != nil {
				return fmt.Errorf("encode key %q: %w", key, err)
			}
			valueNode, err := buildYAMLNode(value)
			if err != nil {
				return err
			}
			yn.Content = append(yn.Content, keyNode, valueNode)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return yn, nil
	case document.Sequence:
		yn := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range v {
			elemNode, err := buildYAMLNode(elem)
			if err != nil {
				return nil, err
			}
			yn.Content = append(yn.Content, elemNode)
		}
		return yn, nil
	default:
		yn := &yaml.Node{}
		if err := yn.Encode(v); err != nil {
			return nil, fmt.Errorf("encode value %v: %w", v, err)
		}
		return yn, nil
	}
}

func marshalJSON(node any) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, node, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// appendJSON writes node as pretty-printed JSON with two-space
// indentation. The standard encoder sorts map keys, so mappings are
// walked by hand to keep document order; scalars still go through
// json.Marshal for correct escaping.
func appendJSON(buf *bytes.Buffer, node any, depth int) error {
	switch v := node.(type) {
	case *document.Map:
		if v.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		i := 0
		err := v.IterateErr(func(key string, value any) error {
			if i > 0 {
				buf.WriteString(",\n")
			}
			i++
			writeIndent(buf, depth+1)
			encodedKey, err := json.Marshal(key)
			if err != nil {
				return fmt.Errorf("encode key %q: %w", key, err)
			}
			buf.Write(encodedKey)
			buf.WriteString(": ")
			return appendJSON(buf, value, depth+1)
		})
		if err != nil {
			return err
		}
		buf.WriteByte('\n')
		writeIndent(buf, depth)
		buf.WriteByte('}')
		return nil
	case document.Sequence:
		if len(v) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, elem := range v {
			if i > 0 {
				buf.WriteString(",\n")
			}
			writeIndent(buf, depth+1)
			if err := appendJSON(buf, elem, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('\n')
		writeIndent(buf, depth)
		buf.WriteByte(']')
		return nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode value %v: %w", v, err)
		}
		buf.Write(encoded)
		return nil
	}
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
