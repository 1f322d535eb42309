package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openfroyo/strata/pkg/document"
)

// Format identifies a supported input format.
type Format int

const (
	// FormatYAML covers .yaml, .yml, and .json inputs.
	FormatYAML Format = iota

	// FormatTOML covers .toml inputs.
	FormatTOML

	// FormatCUE covers .cue inputs.
	FormatCUE
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatCUE:
		return "cue"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// DetectFormat infers the input format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return 0, fmt.Errorf("unsupported input format %q (expected .yaml, .yml, .json, .toml, or .cue)", filepath.Ext(path))
	}
}

// Load reads the file at path and parses it into the document model.
func Load(path string) (*document.Map, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data, format, path)
}

// Parse parses data in the given format. name labels errors, usually
// the source file path.
func Parse(data []byte, format Format, name string) (*document.Map, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data, name)
	case FormatTOML:
		return parseTOML(data, name)
	case FormatCUE:
		return parseCUE(data, name)
	default:
		return nil, fmt.Errorf("%s: unsupported format %v", name, format)
	}
}
