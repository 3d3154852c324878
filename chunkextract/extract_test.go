package chunkextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshpartition/selection"
	"github.com/notargets/meshpartition/tree"
)

// lineMesh builds n "line" elements over n+1 explicit x vertices, with a
// per-element float64 field and a per-vertex float64 field, for testing
// element/vertex slicing together.
func lineMesh(n int64) *tree.Node {
	mesh := tree.NewNode()
	cs := mesh.Coordsets().AddChild("coords")
	cs.AddChild("type").SetString("explicit")
	xs := make([]float64, n+1)
	for i := range xs {
		xs[i] = float64(i)
	}
	cs.AddChild("values").AddChild("x").SetFloat64Array(xs)

	topo := mesh.Topologies().AddChild("mesh")
	topo.AddChild("type").SetString("unstructured")
	topo.AddChild("coordset").SetString("coords")
	elements := topo.AddChild("elements")
	elements.AddChild("shape").SetString("line")
	conn := make([]int64, 0, n*2)
	elemField := make([]float64, n)
	for i := int64(0); i < n; i++ {
		conn = append(conn, i, i+1)
		elemField[i] = float64(i) * 10
	}
	elements.AddChild("connectivity").SetInt64Array(conn)

	vertField := make([]float64, n+1)
	for i := range vertField {
		vertField[i] = float64(i) * 100
	}

	field := mesh.Fields().AddChild("temperature")
	field.AddChild("association").SetString(tree.AssociationElement)
	field.AddChild("topology").SetString("mesh")
	field.AddChild("values").SetFloat64Array(elemField)

	vfield := mesh.Fields().AddChild("potential")
	vfield.AddChild("association").SetString(tree.AssociationVertex)
	vfield.AddChild("topology").SetString("mesh")
	vfield.AddChild("values").SetFloat64Array(vertField)

	return mesh
}

func TestExtractSubsetSlicesConnectivityAndFields(t *testing.T) {
	mesh := lineMesh(10)
	sel := selection.NewRanges()
	sel.SetTopology("mesh")
	sel.Ranges = []selection.Range{{Low: 2, High: 4}}

	c, err := Extract(sel, mesh, Options{})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.True(t, c.Owns)

	outTopo, ok := c.Mesh.Topologies().Child("mesh")
	require.True(t, ok)

	elements, ok := outTopo.Child("elements")
	require.True(t, ok)
	connNode, ok := elements.Child("connectivity")
	require.True(t, ok)
	// 3 elements selected, 2 vertices each.
	assert.Len(t, connNode.Int64Array(), 6)

	field, ok := c.Mesh.Fields().Child("temperature")
	require.True(t, ok)
	values, ok := field.Child("values")
	require.True(t, ok)
	assert.Equal(t, []float64{20, 30, 40}, values.Float64Array())
}

// TestExtractPreservesMappingFields checks property 4 (spec.md section
// 8: "M.field[name][original_element_ids[e]] == chunk.field[name][e]"):
// every element/vertex field value in the extracted chunk must round-trip
// back to the source mesh through the mapping fields, not merely exist.
func TestExtractPreservesMappingFields(t *testing.T) {
	mesh := lineMesh(5)
	sel := selection.NewRanges()
	sel.SetTopology("mesh")
	sel.Ranges = []selection.Range{{Low: 1, High: 2}}
	sel.SetPreserveMapping(true)

	c, err := Extract(sel, mesh, Options{})
	require.NoError(t, err)

	fields := c.Mesh.Fields()
	origElems, ok := fields.Child("original_element_ids")
	require.True(t, ok)
	origVerts, ok := fields.Child("original_vertex_ids")
	require.True(t, ok)

	srcTemperature, ok := mesh.Fields().Child("temperature")
	require.True(t, ok)
	srcTempValues, ok := srcTemperature.Child("values")
	require.True(t, ok)
	chunkTemperature, ok := c.Mesh.Fields().Child("temperature")
	require.True(t, ok)
	chunkTempValues, ok := chunkTemperature.Child("values")
	require.True(t, ok)

	origElemValues, ok := origElems.Child("values")
	require.True(t, ok)
	elementIDs := origElemValues.Int64Array()
	chunkTemp := chunkTempValues.Float64Array()
	require.Len(t, chunkTemp, len(elementIDs))
	srcTemp := srcTempValues.Float64Array()
	for e, origID := range elementIDs {
		assert.Equal(t, srcTemp[origID], chunkTemp[e])
	}

	srcPotential, ok := mesh.Fields().Child("potential")
	require.True(t, ok)
	srcPotValues, ok := srcPotential.Child("values")
	require.True(t, ok)
	chunkPotential, ok := c.Mesh.Fields().Child("potential")
	require.True(t, ok)
	chunkPotValues, ok := chunkPotential.Child("values")
	require.True(t, ok)

	origVertValues, ok := origVerts.Child("values")
	require.True(t, ok)
	vertexIDs := origVertValues.Int64Array()
	chunkPot := chunkPotValues.Float64Array()
	require.Len(t, chunkPot, len(vertexIDs))
	srcPot := srcPotValues.Float64Array()
	for v, origID := range vertexIDs {
		assert.Equal(t, srcPot[origID], chunkPot[v])
	}
}

func TestExtractWithFieldFilter(t *testing.T) {
	mesh := lineMesh(5)
	sel := selection.NewRanges()
	sel.SetTopology("mesh")
	sel.Ranges = []selection.Range{{Low: 0, High: 4}}

	c, err := Extract(sel, mesh, Options{SelectedFields: []string{"temperature"}})
	require.NoError(t, err)

	_, ok := c.Mesh.Fields().Child("temperature")
	assert.True(t, ok)
	_, ok = c.Mesh.Fields().Child("potential")
	assert.False(t, ok, "potential was not in SelectedFields and should have been omitted")
}
