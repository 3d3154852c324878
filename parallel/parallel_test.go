package parallel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshpartition/commgroup"
	"github.com/notargets/meshpartition/tree"
)

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
	for i := int64(0); i < n; i++ {
		conn = append(conn, i, i+1)
	}
	elements.AddChild("connectivity").SetInt64Array(conn)
	return mesh
}

// TestParallelPartitionAcrossTwoRanks runs two ranks, each owning a
// single-domain slice of elements, and checks that the combined output
// covers the full target domain count with every element accounted for
// exactly once.
func TestParallelPartitionAcrossTwoRanks(t *testing.T) {
	meshes := []*tree.Node{lineMesh(6), lineMesh(4)}
	options := tree.NewNode()
	options.AddChild("target").SetInt64Array([]int64{2})

	groups := commgroup.NewInProcessMesh(2)
	outputs := make([]*tree.Node, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		outputs[r] = tree.NewNode()
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = Partition(meshes[r], options, outputs[r], groups[r])
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var totalElements, totalDomains int64
	for r := 0; r < 2; r++ {
		totalDomains += int64(outputs[r].NumChildren())
		for _, name := range outputs[r].ChildNames() {
			dom, _ := outputs[r].Child(name)
			topo, ok := dom.Topologies().Child("mesh")
			require.True(t, ok)
			elements, ok := topo.Child("elements")
			require.True(t, ok)
			conn, ok := elements.Child("connectivity")
			require.True(t, ok)
			totalElements += int64(len(conn.Int64Array())) / 2
		}
	}
	assert.EqualValues(t, 2, totalDomains)
	assert.EqualValues(t, 10, totalElements)
}

// rectilinearMesh builds a ni x nj rectilinear mesh whose x line starts at
// xOffset (spec.md section 8, S3's fixture: "2 rectilinear domains on 2
// processes, each 4x4").
func rectilinearMesh(ni, nj int64, xOffset float64) *tree.Node {
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
	elements := topo.AddChild("elements")
	d := elements.AddChild("dims")
	d.AddChild("i").SetInt64Array([]int64{ni})
	d.AddChild("j").SetInt64Array([]int64{nj})
	return mesh
}

// TestParallelPartitionMergesTwoRectilinearDomainsOntoOneRank exercises
// spec.md section 8's S3 scenario: target=1 forces both ranks' whole-mesh
// selections to share a single destination domain, mapChunks assigns that
// domain to one rank, and the other rank's output stays empty.
func TestParallelPartitionMergesTwoRectilinearDomainsOntoOneRank(t *testing.T) {
	meshes := []*tree.Node{rectilinearMesh(4, 4, 0), rectilinearMesh(4, 4, 4)}
	options := tree.NewNode()
	options.AddChild("target").SetInt64Array([]int64{1})

	groups := commgroup.NewInProcessMesh(2)
	outputs := make([]*tree.Node, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		outputs[r] = tree.NewNode()
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = Partition(meshes[r], options, outputs[r], groups[r])
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var owner = -1
	for r := 0; r < 2; r++ {
		if outputs[r].NumChildren() > 0 {
			require.Equal(t, -1, owner, "only one rank should own the merged domain")
			owner = r
		}
	}
	require.NotEqual(t, -1, owner)
	assert.Equal(t, 1, outputs[owner].NumChildren())

	dom, ok := outputs[owner].Child("domain0")
	require.True(t, ok)
	topo, ok := dom.Topologies().Child("mesh")
	require.True(t, ok)
	elements, ok := topo.Child("elements")
	require.True(t, ok)
	conn, ok := elements.Child("connectivity")
	require.True(t, ok)
	// Both 4x4 (16-element, quad) domains end up in the one merged chunk.
	assert.Len(t, conn.Int64Array(), 32*4)
}

func TestParallelTotalSelectionsSumsAcrossRanks(t *testing.T) {
	groups := commgroup.NewInProcessMesh(2)
	meshes := []*tree.Node{lineMesh(3), lineMesh(5)}
	options := tree.NewNode()
	options.AddChild("target").SetInt64Array([]int64{1})

	partitioners := make([]*Partitioner, 2)
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		partitioners[r] = &Partitioner{Comm: groups[r]}
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			require.NoError(t, partitioners[r].Initialize(meshes[r], options))
		}(r)
	}
	wg.Wait()

	totals := make([]int64, 2)
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			total, err := partitioners[r].TotalSelections()
			require.NoError(t, err)
			totals[r] = total
		}(r)
	}
	wg.Wait()

	for _, total := range totals {
		assert.EqualValues(t, 2, total)
	}
}
