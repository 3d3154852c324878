package partition

import (
	"github.com/notargets/meshpartition/errs"
	"github.com/notargets/meshpartition/selection"
	"github.com/notargets/meshpartition/tree"
)

// parsedOptions is the result of walking an options tree (spec.md
// section 4.7's table).
type parsedOptions struct {
	target         uint32
	targetSet      bool
	selectedFields []string
	selections     []selection.Selection
}

// parseOptions reads target, fields, and selections out of the options
// tree. "target" is optional: when absent, targetSet is false and the
// caller defaults it to the current number of selections once Selections
// is known (spec.md section 4.5: "target defaults to the current number
// of selections").
func parseOptions(options *tree.Node, factory *selection.Factory) (parsedOptions, error) {
	var out parsedOptions

	if t, ok := options.Child("target"); ok {
		vals := t.Int64Array()
		if len(vals) != 1 || vals[0] < 1 {
			return out, errs.NewOptionError("\"target\" must be a single positive integer")
		}
		out.target = uint32(vals[0])
		out.targetSet = true
	}

	if f, ok := options.Child("fields"); ok {
		for _, name := range f.ChildNames() {
			c, _ := f.Child(name)
			out.selectedFields = append(out.selectedFields, c.String())
		}
	}

	if s, ok := options.Child("selections"); ok {
		for _, name := range s.ChildNames() {
			spec, _ := s.Child(name)
			typeNode, ok := spec.Child("type")
			if !ok {
				return out, errs.NewOptionError("selection %q missing \"type\"", name)
			}
			sel, err := factory.Create(typeNode.String())
			if err != nil {
				return out, errs.NewOptionError("selection %q: %v", name, err)
			}
			if err := sel.Init(spec); err != nil {
				return out, errs.NewOptionError("selection %q: %v", name, err)
			}
			out.selections = append(out.selections, sel)
		}
	}

	return out, nil
}
