package document

import (
	"fmt"
	"strings"
)

// Path addresses a value inside nested mappings, from the document
// root. Each element is one mapping key.
type Path []string

// ParsePath parses a dotted path like "run.files.grid". Segments must
// be non-empty and may contain letters, digits, underscores, and
// hyphens.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	segments := strings.Split(s, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("path %q has an empty segment", s)
		}
		for _, r := range seg {
			if !isPathRune(r) {
				return nil, fmt.Errorf("path %q has invalid character %q", s, r)
			}
		}
	}
	return Path(segments), nil
}

func isPathRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a new path with segment appended. The receiver is not
// modified.
func (p Path) Child(segment string) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, segment)
}

// Equal reports whether two paths have the same segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Lookup descends root along the path and returns the addressed node.
// It returns false if any intermediate segment is missing or is not a
// mapping. An empty path addresses the root itself.
func Lookup(root *Map, path Path) (any, bool) {
	var current any = root
	for _, segment := range path {
		m, ok := current.(*Map)
		if !ok {
			return nil, false
		}
		value, ok := m.Get(segment)
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

// Walk visits every node reachable from root in document order,
// calling fn with the node's path and value. Mappings are visited
// before their entries; sequence elements are visited with their
// parent's path since sequences are not addressable. Walk stops at
// the first error.
func Walk(root *Map, fn func(path Path, value any) error) error {
	return walk(nil, root, fn)
}

func walk(path Path, node any, fn func(path Path, value any) error) error {
	if err := fn(path, node); err != nil {
		return err
	}
	switch v := node.(type) {
	case *Map:
		for _, item := range v.items {
			if err := walk(path.Child(item.Key), item.Value, fn); err != nil {
				return err
			}
		}
	case Sequence:
		for _, elem := range v {
			if err := walk(path, elem, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
