package engine

import (
	"fmt"
	"strings"

	"github.com/openfroyo/strata/pkg/document"
	"github.com/openfroyo/strata/pkg/loader"
	"github.com/openfroyo/strata/pkg/refs"
)

// resolver replaces references with their target values. It reads the
// pristine merged document and builds a resolved copy, so reference
// targets always address the document as merged, never intermediate
// resolution states. Each addressable path is resolved at most once.
type resolver struct {
	// root is the merged document, never modified.
	root *document.Map

	// memo caches resolved values by dotted path.
	memo map[string]any

	// visiting marks paths on the active resolution chain.
	visiting map[string]bool

	// stack is the active resolution chain, used to report the full
	// ordered cycle when a chain returns to itself.
	stack []string
}

// Resolve replaces every reference in doc and returns a new, fully
// concrete document. doc itself is not modified. Resolution is
// transitive: chains collapse completely, and a scalar consisting of
// exactly one reference takes its target's value with the type
// preserved, while references embedded in surrounding text splice the
// target's stable text form.
func Resolve(doc *document.Map) (*document.Map, error) {
	r := &resolver{
		root:     doc,
		memo:     make(map[string]any),
		visiting: make(map[string]bool),
	}
	resolved, err := r.resolveAddressable(nil, doc)
	if err != nil {
		return nil, err
	}
	return resolved.(*document.Map), nil
}

// resolveAddressable resolves the node at an addressable path, with
// memoization and cycle tracking.
func (r *resolver) resolveAddressable(path document.Path, node any) (any, error) {
	key := path.String()
	if resolved, ok := r.memo[key]; ok {
		return resolved, nil
	}
	if r.visiting[key] {
		return nil, NewError(KindCycle, "circular reference chain", nil).
			WithPath(key).
			WithCycle(r.cycleChain(key))
	}

	r.visiting[key] = true
	r.stack = append(r.stack, key)

	resolved, err := r.resolveValue(path, node, true)

	r.stack = r.stack[:len(r.stack)-1]
	delete(r.visiting, key)

	if err != nil {
		return nil, err
	}
	r.memo[key] = resolved
	return resolved, nil
}

// resolveValue resolves one node. addressable is false inside
// sequences, whose contents have no paths of their own: they resolve
// without memoization, and diagnostics carry the enclosing path.
func (r *resolver) resolveValue(path document.Path, node any, addressable bool) (any, error) {
	switch v := node.(type) {
	case *document.Map:
		out := document.NewMap()
		err := v.IterateErr(func(key string, child any) error {
			childPath := path.Child(key)
			var resolved any
			var err error
			if addressable {
				resolved, err = r.resolveAddressable(childPath, child)
			} else {
				resolved, err = r.resolveValue(childPath, child, false)
			}
			if err != nil {
				return err
			}
			out.Set(key, resolved)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case document.Sequence:
		out := make(document.Sequence, len(v))
		for i, elem := range v {
			resolved, err := r.resolveValue(path, elem, false)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case string:
		return r.resolveString(path, v)
	default:
		return node, nil
	}
}

// resolveString handles the two scalar reference forms: a whole-scalar
// reference adopts its target's value and type, embedded references
// splice scalar text.
func (r *resolver) resolveString(path document.Path, text string) (any, error) {
	if !refs.Contains(text) {
		return text, nil
	}
	parsed, err := refs.Parse(text)
	if err != nil {
		return nil, NewError(KindMalformedReference, "reference does not parse", err).
			WithPath(path.String())
	}

	if whole, ok := refs.Whole(text, parsed); ok {
		resolved, found, err := r.resolveTarget(path, whole)
		if err != nil {
			return nil, err
		}
		if !found {
			return loader.ParseScalar(whole.Default), nil
		}
		return document.Copy(resolved), nil
	}

	var sb strings.Builder
	last := 0
	for _, ref := range parsed {
		sb.WriteString(text[last:ref.Start])

		resolved, found, err := r.resolveTarget(path, ref)
		if err != nil {
			return nil, err
		}
		if !found {
			sb.WriteString(ref.Default)
		} else {
			formatted, ok := document.FormatScalar(resolved)
			if !ok {
				return nil, NewError(KindTypeMismatch,
					fmt.Sprintf("%s value cannot be spliced into text", document.KindOf(resolved)), nil).
					WithPath(path.String()).
					WithTarget(ref.Path.String()).
					WithDetail("target_kind", document.KindOf(resolved))
			}
			sb.WriteString(formatted)
		}
		last = ref.End
	}
	sb.WriteString(text[last:])
	return sb.String(), nil
}

// resolveTarget resolves one reference's target. found is false when
// the target is absent and the reference carries a default; an absent
// target without a default is an error.
func (r *resolver) resolveTarget(owner document.Path, ref refs.Ref) (any, bool, error) {
	node, ok := document.Lookup(r.root, ref.Path)
	if !ok {
		if ref.HasDefault {
			return nil, false, nil
		}
		return nil, false, NewError(KindUnresolvedReference,
			fmt.Sprintf("reference %q has no target and no default", ref.Path.String()), nil).
			WithPath(owner.String()).
			WithTarget(ref.Path.String())
	}
	resolved, err := r.resolveAddressable(ref.Path, node)
	if err != nil {
		return nil, false, err
	}
	return resolved, true, nil
}

// cycleChain reconstructs the ordered chain from the first occurrence
// of key on the stack, with key repeated at the end.
func (r *resolver) cycleChain(key string) []string {
	start := 0
	for i, id := range r.stack {
		if id == key {
			start = i
			break
		}
	}
	chain := append([]string(nil), r.stack[start:]...)
	return append(chain, key)
}
