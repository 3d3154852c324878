package selection

import (
	"fmt"

	"github.com/notargets/meshpartition/topology"
	"github.com/notargets/meshpartition/tree"
)

// Factory creates selection instances by kind name (spec.md section 4.7,
// "create_selection").
type Factory struct {
	ctors map[string]func() Selection
}

// NewFactory returns a Factory pre-registered with the four built-in
// selection kinds.
func NewFactory() *Factory {
	f := &Factory{ctors: make(map[string]func() Selection, 4)}
	f.Register("logical", func() Selection { return NewLogical() })
	f.Register("explicit", func() Selection { return NewExplicit() })
	f.Register("ranges", func() Selection { return NewRanges() })
	f.Register("field", func() Selection { return NewField() })
	return f
}

// Register adds or replaces a kind constructor.
func (f *Factory) Register(kind string, ctor func() Selection) {
	f.ctors[kind] = ctor
}

// Create returns a fresh selection of the named kind, or an error if the
// kind is unregistered (spec.md section 4.7: "unknown type names cause
// initialize to fail").
func (f *Factory) Create(kind string) (Selection, error) {
	ctor, ok := f.ctors[kind]
	if !ok {
		return nil, fmt.Errorf("selection: unknown selection type %q", kind)
	}
	return ctor(), nil
}

// CreateAllElements returns a selection that spans every element of the
// given domain's first topology: a logical box for structured-family
// topologies, a single [0,n-1] range for unstructured ones (spec.md
// section 4.5, "create_selection_all_elements").
func CreateAllElements(mesh *tree.Node, domain int64) (Selection, error) {
	topos := mesh.AddChild("topologies")
	if topos.NumChildren() == 0 {
		return nil, fmt.Errorf("selection: mesh has no topologies")
	}
	topoName := topos.ChildNames()[0]
	topo := topos.ChildByIndex(0)

	kind, err := topology.ParseKind(tree.TopologyType(topo))
	if err != nil {
		return nil, err
	}

	if kind.IsLogical() {
		dims, err := topology.Dims(topo)
		if err != nil {
			return nil, err
		}
		sel := NewLogical()
		sel.SetDomain(domain)
		sel.SetTopology(topoName)
		sel.Start = [3]int64{0, 0, 0}
		sel.End = [3]int64{dims[0] - 1, dims[1] - 1, dims[2] - 1}
		sel.cacheWhole(WholeTrue)
		return sel, nil
	}

	n, err := topology.UnstructuredLength(topo)
	if err != nil {
		return nil, err
	}
	sel := NewRanges()
	sel.SetDomain(domain)
	sel.SetTopology(topoName)
	sel.Ranges = []Range{{Low: 0, High: n - 1}}
	sel.cacheWhole(WholeTrue)
	return sel, nil
}
