package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshpartition/tree"
)

// lineChunk builds a standalone "line" mesh of n elements starting at
// vertex x=offset, used as a combine input.
func lineChunk(n int64, offset float64) *tree.Node {
	mesh := tree.NewNode()
	cs := mesh.Coordsets().AddChild("coords")
	cs.AddChild("type").SetString("explicit")
	xs := make([]float64, n+1)
	for i := range xs {
		xs[i] = offset + float64(i)
	}
	cs.AddChild("values").AddChild("x").SetFloat64Array(xs)

	topo := mesh.Topologies().AddChild("mesh")
	topo.AddChild("type").SetString("unstructured")
	topo.AddChild("coordset").SetString("coords")
	elements := topo.AddChild("elements")
	elements.AddChild("shape").SetString("line")
	conn := make([]int64, 0, n*2)
	for i := int64(0); i < n; i++ {
		conn = append(conn, i, i+1)
	}
	elements.AddChild("connectivity").SetInt64Array(conn)

	field := mesh.Fields().AddChild("temperature")
	field.AddChild("association").SetString(tree.AssociationElement)
	field.AddChild("topology").SetString("mesh")
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = offset
	}
	field.AddChild("values").SetFloat64Array(vals)

	return mesh
}

func TestCombineSingleInputIsIdentity(t *testing.T) {
	in := lineChunk(3, 0)
	out, err := Combine(5, []*tree.Node{in})
	require.NoError(t, err)

	domID, ok := out.State().Child("domain_id")
	require.True(t, ok)
	assert.EqualValues(t, []int64{5}, domID.Int64Array())
}

func TestCombineAsUnstructuredConcatenatesWithoutMergingVertices(t *testing.T) {
	a := lineChunk(2, 0)  // vertices 0,1,2
	b := lineChunk(2, 10) // vertices 10,11,12

	out, err := CombineAsUnstructured(7, []*tree.Node{a, b})
	require.NoError(t, err)

	topo, ok := out.Topologies().Child("mesh")
	require.True(t, ok)
	elements, ok := topo.Child("elements")
	require.True(t, ok)
	conn, ok := elements.Child("connectivity")
	require.True(t, ok)
	// 2 elements in a (4 indices) + 2 in b (4 indices), b offset by 3
	// (a's vertex count), no merging.
	assert.Equal(t, []int64{0, 1, 1, 2, 3, 4, 4, 5}, conn.Int64Array())

	cs, ok := out.Coordsets().Child("coords")
	require.True(t, ok)
	values, ok := cs.Child("values")
	require.True(t, ok)
	xvals, ok := values.Child("x")
	require.True(t, ok)
	assert.Len(t, xvals.Float64Array(), 6)
}

func TestCombineFieldsZeroFillsMissingField(t *testing.T) {
	a := lineChunk(2, 0)
	b := lineChunk(2, 10)
	// b has no "pressure" field; a does.
	pf := a.Fields().AddChild("pressure")
	pf.AddChild("association").SetString(tree.AssociationElement)
	pf.AddChild("topology").SetString("mesh")
	pf.AddChild("values").SetFloat64Array([]float64{1, 2})

	out, err := CombineAsUnstructured(0, []*tree.Node{a, b})
	require.NoError(t, err)

	pressure, ok := out.Fields().Child("pressure")
	require.True(t, ok)
	values, ok := pressure.Child("values")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 0, 0}, values.Float64Array())
}

func TestRecommendedTopologyUnstructuredWhenInputsAreUnstructured(t *testing.T) {
	a := lineChunk(2, 0)
	b := lineChunk(2, 10)
	kind, err := RecommendedTopology([]*tree.Node{a, b})
	require.NoError(t, err)
	assert.Equal(t, "unstructured", kind.String())
}
