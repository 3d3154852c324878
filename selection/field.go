package selection

import (
	"fmt"
	"io"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/notargets/meshpartition/tree"
)

// Field selects elements by the integer value a named field stamps on
// each element: that value is the destination domain id (spec.md section
// 4.1, "Field").
type Field struct {
	base
	FieldName string
}

// NewField returns an uninitialized field selection.
func NewField() *Field { return &Field{base: newBase()} }

func (s *Field) Kind() string { return "field" }

func (s *Field) Init(options *tree.Node) error {
	if err := s.initCommon(options); err != nil {
		return err
	}
	f, ok := options.Child("field")
	if !ok {
		return fmt.Errorf("field selection requires \"field\"")
	}
	s.FieldName = f.String()
	if s.FieldName == "" {
		return fmt.Errorf("field selection requires a non-empty \"field\" name")
	}
	return nil
}

func (s *Field) fieldNode(mesh *tree.Node) (*tree.Node, error) {
	fields := mesh.AddChild("fields")
	f, ok := fields.Child(s.FieldName)
	if !ok {
		return nil, fmt.Errorf("selection: mesh has no field named %q", s.FieldName)
	}
	return f, nil
}

// Applicable is true iff the referenced field exists and associates with
// the selected topology (spec.md section 4.1).
func (s *Field) Applicable(mesh *tree.Node) bool {
	topo, err := SelectedTopology(s, mesh)
	if err != nil {
		return false
	}
	f, err := s.fieldNode(mesh)
	if err != nil {
		return false
	}
	topoName := s.Topology()
	if topoName == "" {
		topos := mesh.AddChild("topologies")
		for i := 0; i < topos.NumChildren(); i++ {
			if topos.ChildByIndex(i) == topo {
				topoName = topos.ChildNames()[i]
				break
			}
		}
	}
	return tree.FieldAssociation(f) == tree.AssociationElement && tree.FieldTopology(f) == topoName
}

// Length is the number of elements in the source topology (spec.md
// section 4.1: "length is the number of elements in the source").
func (s *Field) Length(mesh *tree.Node) (int64, error) {
	topo, err := SelectedTopology(s, mesh)
	if err != nil {
		return 0, err
	}
	return topoLength(topo)
}

func fieldIntValues(f *tree.Node) []int64 {
	if vals, ok := f.Child("values"); ok {
		if a := vals.Int64Array(); a != nil {
			return a
		}
		if a := vals.Int32Array(); a != nil {
			out := make([]int64, len(a))
			for i, x := range a {
				out[i] = int64(x)
			}
			return out
		}
	}
	return nil
}

// Partition groups elements by distinct field value, one sub-selection
// (an Explicit selection) per distinct value, with DestinationDomain set
// to that value (spec.md section 4.1).
func (s *Field) Partition(mesh *tree.Node) ([]Selection, error) {
	f, err := s.fieldNode(mesh)
	if err != nil {
		return nil, err
	}
	values := fieldIntValues(f)
	if values == nil {
		return nil, fmt.Errorf("selection: field %q has no integer values", s.FieldName)
	}

	seen := roaring.New()
	byValue := make(map[int32][]int64)
	for elemID, v := range values {
		dv := int32(v)
		if !seen.Contains(uint32(dv)) {
			seen.Add(uint32(dv))
		}
		byValue[dv] = append(byValue[dv], int64(elemID))
	}
	if seen.GetCardinality() < 2 {
		return nil, fmt.Errorf("selection: field %q has only %d distinct value(s), cannot split", s.FieldName, seen.GetCardinality())
	}

	distinct := make([]int32, 0, seen.GetCardinality())
	it := seen.Iterator()
	for it.HasNext() {
		distinct = append(distinct, int32(it.Next()))
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })

	out := make([]Selection, 0, len(distinct))
	for _, dv := range distinct {
		sub := NewExplicit()
		inheritInto(s, sub)
		sub.Elements = byValue[dv]
		sub.SetDestinationDomain(dv)
		out = append(out, sub)
	}
	return out, nil
}

func (s *Field) ElementIDsForTopo(topo *tree.Node, idRange [2]int64) ([]int64, error) {
	n := idRange[1] - idRange[0] + 1
	if n <= 0 {
		return nil, nil
	}
	out := make([]int64, 0, n)
	for e := idRange[0]; e <= idRange[1]; e++ {
		out = append(out, e)
	}
	return out, nil
}

func (s *Field) DetermineIsWhole(mesh *tree.Node) (bool, error) {
	// A field selection always spans every element of its topology until
	// it is split (spec.md section 4.1).
	return true, nil
}

func (s *Field) Print(w io.Writer) {
	fmt.Fprintf(w, "field{domain=%d topology=%q field=%q}\n", s.domain, s.topology, s.FieldName)
}
