package selection

import (
	"fmt"
	"io"
	"sort"

	"github.com/notargets/meshpartition/tree"
)

// Explicit selects an arbitrary list of element ids (spec.md section
// 4.1, "Explicit element list").
type Explicit struct {
	base
	Elements []int64
}

// NewExplicit returns an uninitialized explicit selection.
func NewExplicit() *Explicit { return &Explicit{base: newBase()} }

func (s *Explicit) Kind() string { return "explicit" }

func (s *Explicit) Init(options *tree.Node) error {
	if err := s.initCommon(options); err != nil {
		return err
	}
	elems, ok := options.Child("elements")
	if !ok {
		return fmt.Errorf("explicit selection requires \"elements\"")
	}
	v := elems.Uint64Array()
	if v == nil {
		iv := elems.Int64Array()
		s.Elements = append([]int64(nil), iv...)
	} else {
		s.Elements = make([]int64, len(v))
		for i, e := range v {
			s.Elements[i] = int64(e)
		}
	}
	if len(s.Elements) == 0 {
		return fmt.Errorf("explicit selection requires at least one element")
	}
	return nil
}

// Applicable is true for any topology: explicit element lists have no
// structural prerequisite (spec.md section 4.1).
func (s *Explicit) Applicable(mesh *tree.Node) bool {
	_, err := SelectedTopology(s, mesh)
	return err == nil
}

func (s *Explicit) Length(mesh *tree.Node) (int64, error) {
	return int64(len(s.Elements)), nil
}

// Partition splits the list at its midpoint, ties toward the lower half
// (spec.md section 4.1).
func (s *Explicit) Partition(mesh *tree.Node) ([]Selection, error) {
	n := len(s.Elements)
	if n < 2 {
		return nil, fmt.Errorf("selection: explicit selection of length %d cannot be split", n)
	}
	mid := n / 2

	left := NewExplicit()
	inheritInto(s, left)
	left.Elements = append([]int64(nil), s.Elements[:mid]...)

	right := NewExplicit()
	inheritInto(s, right)
	right.Elements = append([]int64(nil), s.Elements[mid:]...)

	return []Selection{left, right}, nil
}

func (s *Explicit) ElementIDsForTopo(topo *tree.Node, idRange [2]int64) ([]int64, error) {
	out := make([]int64, 0, len(s.Elements))
	for _, e := range s.Elements {
		if e >= idRange[0] && e <= idRange[1] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Explicit) DetermineIsWhole(mesh *tree.Node) (bool, error) {
	topo, err := SelectedTopology(s, mesh)
	if err != nil {
		return false, err
	}
	length, err := topoLength(topo)
	if err != nil {
		return false, err
	}
	if int64(len(s.Elements)) != length {
		return false, nil
	}
	seen := make(map[int64]bool, len(s.Elements))
	for _, e := range s.Elements {
		if e < 0 || e >= length {
			return false, nil
		}
		seen[e] = true
	}
	return int64(len(seen)) == length, nil
}

func (s *Explicit) Print(w io.Writer) {
	sorted := append([]int64(nil), s.Elements...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	fmt.Fprintf(w, "explicit{domain=%d topology=%q elements=%v}\n", s.domain, s.topology, sorted)
}
