package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a realization failure. Every kind is fatal: a
// run either completes fully or reports exactly one classified error.
type ErrorKind string

const (
	// KindLoad indicates an input file could not be read or parsed.
	KindLoad ErrorKind = "load"

	// KindMalformedReference indicates reference syntax that does not
	// scan: an unclosed "${" or an invalid target path.
	KindMalformedReference ErrorKind = "malformed_reference"

	// KindUnresolvedReference indicates a reference whose target is
	// absent from the merged document and which carries no default.
	KindUnresolvedReference ErrorKind = "unresolved_reference"

	// KindTypeMismatch indicates a mapping or sequence value used
	// where text composition requires a scalar.
	KindTypeMismatch ErrorKind = "type_mismatch"

	// KindCycle indicates a reference chain that returns to itself.
	KindCycle ErrorKind = "cycle"

	// KindEmission indicates the realized document could not be
	// written to its destination.
	KindEmission ErrorKind = "emission"

	// KindInternal indicates a bug: an invariant the engine relies on
	// did not hold.
	KindInternal ErrorKind = "internal"
)

// RealizationError is a classified error with document context.
type RealizationError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Path is the dotted document path that owns the failing value,
	// if applicable.
	Path string `json:"path,omitempty"`

	// Target is the dotted path a failing reference points at, if
	// applicable.
	Target string `json:"target,omitempty"`

	// Source is the input file the failing value came from, if known.
	Source string `json:"source,omitempty"`

	// Cycle is the ordered reference chain for cycle errors, first
	// and last element identical.
	Cycle []string `json:"cycle,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *RealizationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Kind, e.Message)

	var ctx []string
	if e.Path != "" {
		ctx = append(ctx, "path="+e.Path)
	}
	if e.Target != "" {
		ctx = append(ctx, "target="+e.Target)
	}
	if e.Source != "" {
		ctx = append(ctx, "source="+e.Source)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(ctx, ", "))
	}
	if len(e.Cycle) > 0 {
		fmt.Fprintf(&sb, ": %s", FormatCycle(e.Cycle))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %s", e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *RealizationError) Unwrap() error {
	return e.Err
}

// Classification returns the kind as a string. It satisfies the
// telemetry package's Classified interface so failure events and
// metrics carry the error kind.
func (e *RealizationError) Classification() string {
	return string(e.Kind)
}

// Is matches errors of the same kind, so callers can test against a
// bare &RealizationError{Kind: ...} sentinel.
func (e *RealizationError) Is(target error) bool {
	t, ok := target.(*RealizationError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *RealizationError {
	return &RealizationError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithPath adds the owning document path.
func (e *RealizationError) WithPath(path string) *RealizationError {
	e.Path = path
	return e
}

// WithTarget adds the referenced target path.
func (e *RealizationError) WithTarget(target string) *RealizationError {
	e.Target = target
	return e
}

// WithSource adds the input file the failing value came from.
func (e *RealizationError) WithSource(source string) *RealizationError {
	e.Source = source
	return e
}

// WithCycle adds the ordered reference chain of a cycle.
func (e *RealizationError) WithCycle(cycle []string) *RealizationError {
	e.Cycle = cycle
	return e
}

// WithDetail adds a detail field to the error context.
func (e *RealizationError) WithDetail(key string, value any) *RealizationError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// KindOf returns the classification of err, or KindInternal when err
// carries no classification.
func KindOf(err error) ErrorKind {
	var e *RealizationError
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *RealizationError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// FormatCycle renders a cycle chain for error messages.
func FormatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ")
}
