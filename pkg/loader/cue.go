package loader

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/openfroyo/strata/pkg/document"
)

// parseCUE evaluates a single CUE file into the document model. The
// value must be fully concrete; struct fields keep declaration order.
func parseCUE(data []byte, name string) (*document.Map, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(string(data), cue.Filename(name))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("parsing %s: %s", name, cueDetails(err))
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("parsing %s: not concrete: %s", name, cueDetails(err))
	}
	if val.Kind() != cue.StructKind {
		return nil, fmt.Errorf("parsing %s: top-level value must be a mapping, got %s", name, val.Kind())
	}
	node, err := cueToNode(val, name)
	if err != nil {
		return nil, err
	}
	return node.(*document.Map), nil
}

func cueToNode(val cue.Value, name string) (any, error) {
	switch val.Kind() {
	case cue.StructKind:
		iter, err := val.Fields()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		m := document.NewMap()
		for iter.Next() {
			child, err := cueToNode(iter.Value(), name)
			if err != nil {
				return nil, err
			}
			m.Set(iter.Selector().Unquoted(), child)
		}
		return m, nil
	case cue.ListKind:
		iter, err := val.List()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		var seq document.Sequence
		for iter.Next() {
			child, err := cueToNode(iter.Value(), name)
			if err != nil {
				return nil, err
			}
			seq = append(seq, child)
		}
		if seq == nil {
			seq = document.Sequence{}
		}
		return seq, nil
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return val.Bool()
	case cue.IntKind:
		return val.Int64()
	case cue.FloatKind, cue.NumberKind:
		return val.Float64()
	case cue.StringKind:
		return val.String()
	default:
		return nil, fmt.Errorf("parsing %s: unsupported CUE value of kind %s", name, val.Kind())
	}
}

// cueDetails renders a CUE error with source positions.
func cueDetails(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	e := errs[0]
	pos := cueerrors.Positions(e)
	if len(pos) > 0 {
		return fmt.Sprintf("%s (line %d)", e.Error(), pos[0].Line())
	}
	return e.Error()
}
