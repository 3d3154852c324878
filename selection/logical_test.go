package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshpartition/tree"
)

// uniformMesh builds a ni x nj uniform 2D mesh, matching spec.md section
// 8's S1 fixture shape (one uniform topology over one uniform coordset).
func uniformMesh(ni, nj int64) *tree.Node {
	mesh := tree.NewNode()
	cs := mesh.Coordsets().AddChild("coords")
	cs.AddChild("type").SetString("uniform")
	dims := cs.AddChild("dims")
	dims.AddChild("x").SetInt64Array([]int64{ni + 1})
	dims.AddChild("y").SetInt64Array([]int64{nj + 1})
	cs.AddChild("origin").AddChild("x").SetFloat64Array([]float64{0})
	cs.AddChild("origin").AddChild("y").SetFloat64Array([]float64{0})
	cs.AddChild("spacing").AddChild("x").SetFloat64Array([]float64{1})
	cs.AddChild("spacing").AddChild("y").SetFloat64Array([]float64{1})

	topo := mesh.Topologies().AddChild("mesh")
	topo.AddChild("type").SetString("uniform")
	topo.AddChild("coordset").SetString("coords")
	elements := topo.AddChild("elements")
	dimsE := elements.AddChild("dims")
	dimsE.AddChild("i").SetInt64Array([]int64{ni})
	dimsE.AddChild("j").SetInt64Array([]int64{nj})
	return mesh
}

func logicalOptions(start, end [3]int64) *tree.Node {
	opts := tree.NewNode()
	opts.AddChild("start").SetInt64Array([]int64{start[0], start[1], start[2]})
	opts.AddChild("end").SetInt64Array([]int64{end[0], end[1], end[2]})
	return opts
}

func TestLogicalInitRejectsMalformedBox(t *testing.T) {
	sel := NewLogical()
	opts := tree.NewNode()
	opts.AddChild("start").SetInt64Array([]int64{0, 0, 0})
	opts.AddChild("end").SetInt64Array([]int64{-1, 0, 0})
	assert.Error(t, sel.Init(opts))

	sel2 := NewLogical()
	assert.Error(t, sel2.Init(tree.NewNode()))
}

func TestLogicalApplicableToUniformTopology(t *testing.T) {
	mesh := uniformMesh(10, 10)
	sel := NewLogical()
	require.NoError(t, sel.Init(logicalOptions([3]int64{0, 0, 0}, [3]int64{9, 9, 0})))
	assert.True(t, sel.Applicable(mesh))

	outOfBounds := NewLogical()
	require.NoError(t, outOfBounds.Init(logicalOptions([3]int64{0, 0, 0}, [3]int64{10, 9, 0})))
	assert.False(t, outOfBounds.Applicable(mesh))
}

func TestLogicalLengthAndDetermineIsWhole(t *testing.T) {
	mesh := uniformMesh(10, 10)
	sel := NewLogical()
	require.NoError(t, sel.Init(logicalOptions([3]int64{0, 0, 0}, [3]int64{9, 9, 0})))

	n, err := sel.Length(mesh)
	require.NoError(t, err)
	assert.EqualValues(t, 100, n)

	whole, err := sel.DetermineIsWhole(mesh)
	require.NoError(t, err)
	assert.True(t, whole)

	half := NewLogical()
	require.NoError(t, half.Init(logicalOptions([3]int64{0, 0, 0}, [3]int64{4, 9, 0})))
	whole, err = half.DetermineIsWhole(mesh)
	require.NoError(t, err)
	assert.False(t, whole)
}

func TestLogicalPartitionSplitsLongestAxis(t *testing.T) {
	sel := NewLogical()
	require.NoError(t, sel.Init(logicalOptions([3]int64{0, 0, 0}, [3]int64{9, 4, 0})))
	sel.SetDomain(3)
	sel.SetTopology("mesh")

	children, err := sel.Partition(nil)
	require.NoError(t, err)
	require.Len(t, children, 2)

	left, right := children[0].(*Logical), children[1].(*Logical)
	// Longest axis is i (10 wide vs 5), split at the midpoint.
	assert.Equal(t, [3]int64{0, 0, 0}, left.Start)
	assert.Equal(t, [3]int64{4, 4, 0}, left.End)
	assert.Equal(t, [3]int64{5, 0, 0}, right.Start)
	assert.Equal(t, [3]int64{9, 4, 0}, right.End)

	// Children inherit domain/topology from the parent.
	assert.EqualValues(t, 3, left.Domain())
	assert.Equal(t, "mesh", left.Topology())
}

func TestLogicalPartitionUnsplittableAtLengthOne(t *testing.T) {
	sel := NewLogical()
	require.NoError(t, sel.Init(logicalOptions([3]int64{0, 0, 0}, [3]int64{0, 0, 0})))
	_, err := sel.Partition(nil)
	assert.Error(t, err)
}

func TestLogicalElementIDsForTopoWithinRange(t *testing.T) {
	mesh := uniformMesh(4, 3)
	topo, err := SelectedTopology(NewLogical(), mesh)
	require.NoError(t, err)

	sel := NewLogical()
	require.NoError(t, sel.Init(logicalOptions([3]int64{0, 0, 0}, [3]int64{3, 1, 0})))

	ids, err := sel.ElementIDsForTopo(topo, [2]int64{0, 11})
	require.NoError(t, err)
	assert.Len(t, ids, 8) // 4 wide x 2 tall sub-box
}
