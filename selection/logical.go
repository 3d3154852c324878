package selection

import (
	"fmt"
	"io"

	"github.com/notargets/meshpartition/topology"
	"github.com/notargets/meshpartition/tree"
)

// Logical selects an IJK box of a structured-family topology (spec.md
// section 4.1, "Logical (IJK box)").
type Logical struct {
	base
	Start [3]int64
	End   [3]int64 // inclusive
}

// NewLogical returns an uninitialized logical selection.
func NewLogical() *Logical { return &Logical{base: newBase()} }

func (s *Logical) Kind() string { return "logical" }

func (s *Logical) Init(options *tree.Node) error {
	if err := s.initCommon(options); err != nil {
		return err
	}
	start, ok := options.Child("start")
	if !ok {
		return fmt.Errorf("logical selection requires \"start\"")
	}
	end, ok := options.Child("end")
	if !ok {
		return fmt.Errorf("logical selection requires \"end\"")
	}
	sv, ev := start.Int64Array(), end.Int64Array()
	if len(sv) != 3 || len(ev) != 3 {
		return fmt.Errorf("logical selection \"start\"/\"end\" must each have 3 components")
	}
	copy(s.Start[:], sv)
	copy(s.End[:], ev)
	for axis := 0; axis < 3; axis++ {
		if s.End[axis] < s.Start[axis] {
			return fmt.Errorf("logical selection axis %d: end %d < start %d", axis, s.End[axis], s.Start[axis])
		}
	}
	return nil
}

func (s *Logical) Applicable(mesh *tree.Node) bool {
	topo, err := SelectedTopology(s, mesh)
	if err != nil {
		return false
	}
	kind, err := topology.ParseKind(tree.TopologyType(topo))
	if err != nil {
		return false
	}
	if !kind.IsLogical() {
		return false
	}
	dims, err := topology.Dims(topo)
	if err != nil {
		return false
	}
	for axis := 0; axis < 3; axis++ {
		if s.End[axis] >= dims[axis] {
			return false
		}
	}
	return true
}

func (s *Logical) boxDims() [3]int64 {
	return [3]int64{
		s.End[0] - s.Start[0] + 1,
		s.End[1] - s.Start[1] + 1,
		s.End[2] - s.Start[2] + 1,
	}
}

func (s *Logical) Length(mesh *tree.Node) (int64, error) {
	d := s.boxDims()
	return d[0] * d[1] * d[2], nil
}

// Partition splits along the longest axis into two halves, ties broken
// by axis order X<Y<Z (spec.md section 4.1).
func (s *Logical) Partition(mesh *tree.Node) ([]Selection, error) {
	d := s.boxDims()
	longest := 0
	for axis := 1; axis < 3; axis++ {
		if d[axis] > d[longest] {
			longest = axis
		}
	}
	if d[longest] < 2 {
		return nil, fmt.Errorf("selection: logical selection of length %d cannot be split", d[0]*d[1]*d[2])
	}
	half := d[longest] / 2

	left := NewLogical()
	inheritInto(s, left)
	left.Start, left.End = s.Start, s.End
	left.End[longest] = s.Start[longest] + half - 1

	right := NewLogical()
	inheritInto(s, right)
	right.Start, right.End = s.Start, s.End
	right.Start[longest] = s.Start[longest] + half

	return []Selection{left, right}, nil
}

func (s *Logical) ElementIDsForTopo(topo *tree.Node, idRange [2]int64) ([]int64, error) {
	dims, err := topology.Dims(topo)
	if err != nil {
		return nil, err
	}
	d := s.boxDims()
	ids := make([]int64, 0, d[0]*d[1]*d[2])
	for k := s.Start[2]; k <= s.End[2]; k++ {
		for j := s.Start[1]; j <= s.End[1]; j++ {
			for i := s.Start[0]; i <= s.End[0]; i++ {
				idx := topology.LinearIndex(dims, [3]int64{i, j, k})
				if idx >= idRange[0] && idx <= idRange[1] {
					ids = append(ids, idx)
				}
			}
		}
	}
	return ids, nil
}

func (s *Logical) DetermineIsWhole(mesh *tree.Node) (bool, error) {
	topo, err := SelectedTopology(s, mesh)
	if err != nil {
		return false, err
	}
	dims, err := topology.Dims(topo)
	if err != nil {
		return false, err
	}
	total := dims[0] * dims[1] * dims[2]
	length, err := s.Length(mesh)
	if err != nil {
		return false, err
	}
	return length == total, nil
}

func (s *Logical) Print(w io.Writer) {
	fmt.Fprintf(w, "logical{domain=%d topology=%q start=%v end=%v}\n", s.domain, s.topology, s.Start, s.End)
}
