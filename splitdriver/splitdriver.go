// Package splitdriver implements the iterative splitting driver (spec.md
// section 4.4): repeatedly split the globally largest selection until the
// target selection count is reached, or no further split is possible.
package splitdriver

import (
	"fmt"
)

// LargestSelector is the minimal surface both the serial and parallel
// partitioners expose to the driver (spec.md section 4.4).
type LargestSelector interface {
	// TotalSelections returns the current total selection count across
	// every rank (a local count in the serial case).
	TotalSelections() (int64, error)

	// LargestSelection returns the owning rank and local index of the
	// globally largest selection.
	LargestSelection() (rank, index int, err error)

	// SplitAt replaces the selection at (rank, index) with its
	// Partition() result. Implementations return an UnsplittableWarning
	// (non-fatal) if the selection's length is <= 1.
	SplitAt(rank, index int) error
}

// UnsplittableWarning is returned, unwrapped, from SplitAt when a selection
// cannot be split further (spec.md section 7).
type UnsplittableWarning struct {
	Rank, Index int
}

func (w *UnsplittableWarning) Error() string {
	return fmt.Sprintf("splitdriver: selection at rank %d index %d is unsplittable", w.Rank, w.Index)
}

// Run splits the globally largest selection, one at a time, until
// TotalSelections reaches target or the largest selection is unsplittable
// (spec.md section 4.4's pseudocode). Unsplittable is not an error: Run
// returns nil and the caller proceeds with however many selections it
// has; the partitioners then log that the target domain count was not
// reached.
func Run(p LargestSelector, target uint32) error {
	for {
		total, err := p.TotalSelections()
		if err != nil {
			return err
		}
		if total >= int64(target) {
			return nil
		}
		rank, index, err := p.LargestSelection()
		if err != nil {
			return err
		}
		if err := p.SplitAt(rank, index); err != nil {
			if _, ok := err.(*UnsplittableWarning); ok {
				return nil
			}
			return err
		}
	}
}
