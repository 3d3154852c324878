package splitdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSelector is a trivial in-memory LargestSelector: every selection is
// an int (its "length"), and SplitAt halves the largest into two.
type fakeSelector struct {
	lengths []int64
}

func (f *fakeSelector) TotalSelections() (int64, error) {
	return int64(len(f.lengths)), nil
}

func (f *fakeSelector) LargestSelection() (int, int, error) {
	best := 0
	for i, n := range f.lengths {
		if n > f.lengths[best] {
			best = i
		}
	}
	return 0, best, nil
}

func (f *fakeSelector) SplitAt(rank, index int) error {
	n := f.lengths[index]
	if n <= 1 {
		return &UnsplittableWarning{Rank: rank, Index: index}
	}
	left, right := n/2, n-n/2
	f.lengths = append(f.lengths[:index], append([]int64{left, right}, f.lengths[index+1:]...)...)
	return nil
}

func TestRunSplitsUntilTargetReached(t *testing.T) {
	f := &fakeSelector{lengths: []int64{100}}
	err := Run(f, 4)
	require.NoError(t, err)
	assert.Len(t, f.lengths, 4)

	var total int64
	for _, n := range f.lengths {
		total += n
	}
	assert.EqualValues(t, 100, total)
}

func TestRunStopsWhenUnsplittable(t *testing.T) {
	f := &fakeSelector{lengths: []int64{1, 1}}
	err := Run(f, 10)
	require.NoError(t, err)
	// Neither selection can be split further; Run should stop without
	// reaching the target and without returning an error.
	assert.Len(t, f.lengths, 2)
}

func TestRunNoopWhenAlreadyAtTarget(t *testing.T) {
	f := &fakeSelector{lengths: []int64{5, 5, 5}}
	err := Run(f, 2)
	require.NoError(t, err)
	assert.Len(t, f.lengths, 3)
}
