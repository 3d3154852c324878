package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshpartition/topology"
	"github.com/notargets/meshpartition/tree"
)

// rectilinearChunk builds a ni x nj rectilinear mesh whose x line starts at
// xOffset, matching spec.md section 8's S3 fixture (two rectilinear domains
// glued back into one structured domain).
func rectilinearChunk(ni, nj int64, xOffset float64) *tree.Node {
	mesh := tree.NewNode()
	cs := mesh.Coordsets().AddChild("coords")
	cs.AddChild("type").SetString("rectilinear")
	values := cs.AddChild("values")
	xs := make([]float64, ni+1)
	for i := range xs {
		xs[i] = xOffset + float64(i)
	}
	ys := make([]float64, nj+1)
	for j := range ys {
		ys[j] = float64(j)
	}
	values.AddChild("x").SetFloat64Array(xs)
	values.AddChild("y").SetFloat64Array(ys)

	topo := mesh.Topologies().AddChild("mesh")
	topo.AddChild("type").SetString("rectilinear")
	topo.AddChild("coordset").SetString("coords")
	topology.SetDims(topo, [3]int64{ni, nj, 1})

	field := mesh.Fields().AddChild("temperature")
	field.AddChild("association").SetString(tree.AssociationElement)
	field.AddChild("topology").SetString("mesh")
	vals := make([]float64, ni*nj)
	for i := range vals {
		vals[i] = xOffset
	}
	field.AddChild("values").SetFloat64Array(vals)

	return mesh
}

func TestCombineAsStructuredGluesAlongSharedAxis(t *testing.T) {
	left := rectilinearChunk(4, 4, 0)
	right := rectilinearChunk(4, 4, 4)

	out, err := CombineAsStructured(1, []*tree.Node{left, right})
	require.NoError(t, err)

	topo, ok := out.Topologies().Child("mesh")
	require.True(t, ok)
	dims, err := topology.Dims(topo)
	require.NoError(t, err)
	assert.Equal(t, [3]int64{8, 4, 1}, dims)

	cs, ok := out.Coordsets().Child("coords")
	require.True(t, ok)
	values, ok := cs.Child("values")
	require.True(t, ok)
	xs, ok := values.Child("x")
	require.True(t, ok)
	// 9 distinct x vertices (0..8), the shared face at x=4 counted once.
	assert.Len(t, xs.Float64Array(), 9)

	domID, ok := out.State().Child("domain_id")
	require.True(t, ok)
	assert.EqualValues(t, []int64{1}, domID.Int64Array())
}

func TestCombineAsStructuredRejectsMisalignedInputs(t *testing.T) {
	left := rectilinearChunk(4, 4, 0)
	wrongHeight := rectilinearChunk(4, 3, 4)

	_, err := CombineAsStructured(1, []*tree.Node{left, wrongHeight})
	assert.Error(t, err)
}

func TestCombineDispatchesToStructuredForRectilinearInputs(t *testing.T) {
	left := rectilinearChunk(4, 4, 0)
	right := rectilinearChunk(4, 4, 4)

	out, err := Combine(2, []*tree.Node{left, right})
	require.NoError(t, err)

	topo, ok := out.Topologies().Child("mesh")
	require.True(t, ok)
	dims, err := topology.Dims(topo)
	require.NoError(t, err)
	assert.Equal(t, [3]int64{8, 4, 1}, dims)
}
