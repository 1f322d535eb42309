package refs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openfroyo/strata/pkg/document"
)

// refPattern matches one ${...} occurrence. The body runs to the first
// closing brace; nesting is not supported.
var refPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// Ref is a single ${...} occurrence inside a scalar string.
type Ref struct {
	// Path is the referenced target, parsed from the dotted form.
	Path document.Path

	// Default is the fallback text used when the target is absent.
	// Only meaningful when HasDefault is true. It may be empty.
	Default string

	// HasDefault reports whether the ":-" fallback form was used.
	HasDefault bool

	// Start and End are the byte offsets of the whole ${...}
	// occurrence within the scanned string, End exclusive.
	Start int
	End   int
}

// MalformedError reports a reference that does not scan: an unclosed
// "${", an empty or syntactically invalid target path.
type MalformedError struct {
	// Snippet is the offending portion of the scanned string.
	Snippet string

	// Offset is the byte offset where the bad reference starts.
	Offset int

	// Reason describes what is wrong with the reference.
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed reference %q at offset %d: %s", e.Snippet, e.Offset, e.Reason)
}

// Parse scans text and returns every reference in order of appearance.
// A "$" not followed by "{" is literal text and produces no reference.
// Parse fails with a *MalformedError on the first unclosed "${",
// invalid target path, or "${" nested inside a default.
func Parse(text string) ([]Ref, error) {
	matches := refPattern.FindAllStringSubmatchIndex(text, -1)

	starts := make(map[int]bool, len(matches))
	for _, m := range matches {
		starts[m[0]] = true
	}
	if err := checkUnclosed(text, starts); err != nil {
		return nil, err
	}

	var out []Ref
	for _, m := range matches {
		start, end := m[0], m[1]
		body := text[m[2]:m[3]]

		rawPath := body
		def := ""
		hasDefault := false
		if idx := strings.Index(body, ":-"); idx >= 0 {
			rawPath = body[:idx]
			def = body[idx+2:]
			hasDefault = true
		}

		path, err := document.ParsePath(rawPath)
		if err != nil {
			return nil, &MalformedError{
				Snippet: text[start:end],
				Offset:  start,
				Reason:  fmt.Sprintf("invalid target path: %v", err),
			}
		}

		out = append(out, Ref{
			Path:       path,
			Default:    def,
			HasDefault: hasDefault,
			Start:      start,
			End:        end,
		})
	}
	return out, nil
}

// checkUnclosed finds "${" occurrences that are not the start of a
// complete reference.
func checkUnclosed(text string, starts map[int]bool) error {
	for i := 0; ; {
		idx := strings.Index(text[i:], "${")
		if idx < 0 {
			return nil
		}
		pos := i + idx
		if !starts[pos] {
			snippet := text[pos:]
			if len(snippet) > 20 {
				snippet = snippet[:20]
			}
			return &MalformedError{
				Snippet: snippet,
				Offset:  pos,
				Reason:  "missing closing '}'",
			}
		}
		i = pos + 2
	}
}

// Contains reports whether text holds at least one well-formed or
// malformed reference opener.
func Contains(text string) bool {
	return strings.Contains(text, "${")
}

// Whole returns the single reference when text consists of exactly one
// reference and nothing else, which is the case where the target's
// type is preserved instead of being spliced into surrounding text.
func Whole(text string, parsed []Ref) (Ref, bool) {
	if len(parsed) == 1 && parsed[0].Start == 0 && parsed[0].End == len(text) {
		return parsed[0], true
	}
	return Ref{}, false
}
