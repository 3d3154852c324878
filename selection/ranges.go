package selection

import (
	"fmt"
	"io"

	"github.com/notargets/meshpartition/tree"
)

// Range is an inclusive [Low, High] element-id interval.
type Range struct {
	Low, High int64
}

func (r Range) length() int64 { return r.High - r.Low + 1 }

// Ranges selects a collection of inclusive element-id intervals (spec.md
// section 4.1, "Ranges").
type Ranges struct {
	base
	Ranges []Range
}

// NewRanges returns an uninitialized ranges selection.
func NewRanges() *Ranges { return &Ranges{base: newBase()} }

func (s *Ranges) Kind() string { return "ranges" }

func (s *Ranges) Init(options *tree.Node) error {
	if err := s.initCommon(options); err != nil {
		return err
	}
	rn, ok := options.Child("ranges")
	if !ok {
		return fmt.Errorf("ranges selection requires \"ranges\"")
	}
	flat := rn.Int64Array()
	if len(flat)%2 != 0 || len(flat) == 0 {
		return fmt.Errorf("ranges selection \"ranges\" must be a flattened list of [lo,hi] pairs")
	}
	s.Ranges = make([]Range, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		if flat[i+1] < flat[i] {
			return fmt.Errorf("ranges selection: range [%d,%d] has high < low", flat[i], flat[i+1])
		}
		s.Ranges = append(s.Ranges, Range{Low: flat[i], High: flat[i+1]})
	}
	return nil
}

func (s *Ranges) Applicable(mesh *tree.Node) bool {
	_, err := SelectedTopology(s, mesh)
	return err == nil
}

func (s *Ranges) Length(mesh *tree.Node) (int64, error) {
	var total int64
	for _, r := range s.Ranges {
		total += r.length()
	}
	return total, nil
}

// Partition balances element counts across the two halves, splitting a
// single range at its midpoint if that is what is needed to balance
// (spec.md section 4.1).
func (s *Ranges) Partition(mesh *tree.Node) ([]Selection, error) {
	total, _ := s.Length(mesh)
	if total < 2 {
		return nil, fmt.Errorf("selection: ranges selection of length %d cannot be split", total)
	}
	target := total / 2

	var left, right []Range
	var accumulated int64
	for i, r := range s.Ranges {
		rl := r.length()
		if accumulated >= target {
			right = append(right, s.Ranges[i:]...)
			break
		}
		if accumulated+rl <= target {
			left = append(left, r)
			accumulated += rl
			continue
		}
		// Split this range to land exactly on target.
		need := target - accumulated
		splitAt := r.Low + need - 1
		left = append(left, Range{Low: r.Low, High: splitAt})
		right = append(right, Range{Low: splitAt + 1, High: r.High})
		accumulated = target
		right = append(right, s.Ranges[i+1:]...)
		break
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, fmt.Errorf("selection: ranges selection could not be balanced")
	}

	leftSel := NewRanges()
	inheritInto(s, leftSel)
	leftSel.Ranges = left

	rightSel := NewRanges()
	inheritInto(s, rightSel)
	rightSel.Ranges = right

	return []Selection{leftSel, rightSel}, nil
}

func (s *Ranges) ElementIDsForTopo(topo *tree.Node, idRange [2]int64) ([]int64, error) {
	var out []int64
	for _, r := range s.Ranges {
		lo, hi := r.Low, r.High
		if lo < idRange[0] {
			lo = idRange[0]
		}
		if hi > idRange[1] {
			hi = idRange[1]
		}
		for e := lo; e <= hi; e++ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Ranges) DetermineIsWhole(mesh *tree.Node) (bool, error) {
	topo, err := SelectedTopology(s, mesh)
	if err != nil {
		return false, err
	}
	n, err := topoLength(topo)
	if err != nil {
		return false, err
	}
	length, _ := s.Length(mesh)
	if length != n {
		return false, nil
	}
	return len(s.Ranges) == 1 && s.Ranges[0].Low == 0 && s.Ranges[0].High == n-1, nil
}

func (s *Ranges) Print(w io.Writer) {
	fmt.Fprintf(w, "ranges{domain=%d topology=%q ranges=%v}\n", s.domain, s.topology, s.Ranges)
}
