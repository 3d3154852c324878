// Package chunkextract implements chunk extraction (spec.md section 4.2):
// given a selection and the mesh it selects from, produce a standalone
// Chunk containing only the selected elements, their referenced vertices,
// sliced fields, and (optionally) mapping fields back to the source.
package chunkextract

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/meshpartition/chunk"
	"github.com/notargets/meshpartition/selection"
	"github.com/notargets/meshpartition/topology"
	"github.com/notargets/meshpartition/tree"
)

// Options controls aspects of extraction the selection itself does not
// carry (spec.md section 4.7's "fields" option).
type Options struct {
	// SelectedFields, if non-nil, restricts which fields are sliced into
	// the chunk. A nil slice means "all fields".
	SelectedFields []string
}

func (o Options) wants(name string) bool {
	if o.SelectedFields == nil {
		return true
	}
	for _, f := range o.SelectedFields {
		if f == name {
			return true
		}
	}
	return false
}

// Extract builds a new owned Chunk covering exactly the elements sel
// selects from mesh (spec.md section 4.2, the eight-step algorithm).
func Extract(sel selection.Selection, mesh *tree.Node, opts Options) (*chunk.Chunk, error) {
	// Step 1: resolve topology and coordset.
	topo, err := selection.SelectedTopology(sel, mesh)
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}
	csName, err := tree.TopologyCoordset(topo)
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}
	cs, ok := mesh.Coordsets().Child(csName)
	if !ok {
		return nil, fmt.Errorf("chunkextract: mesh has no coordset named %q", csName)
	}

	kind, err := topology.ParseKind(tree.TopologyType(topo))
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}

	// Step 2: compute the selected element ids, in canonical ascending
	// order so extraction is deterministic regardless of selection kind.
	n, err := topology.Length(topo)
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}
	elemIDs, err := sel.ElementIDsForTopo(topo, [2]int64{0, n - 1})
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}
	elemIDs = append([]int64(nil), elemIDs...)
	sort.Slice(elemIDs, func(i, j int) bool { return elemIDs[i] < elemIDs[j] })

	// Step 3: compute the ordered set of vertex ids referenced by the
	// selected elements.
	var dims [3]int64
	if kind.IsLogical() {
		dims, err = topology.Dims(topo)
		if err != nil {
			return nil, fmt.Errorf("chunkextract: %w", err)
		}
	}
	elemVerts := make([][]int64, len(elemIDs))
	vertexSet := roaring.New()
	for i, e := range elemIDs {
		var verts []int64
		if kind.IsLogical() {
			ijk := topology.IJKFromLinear(dims, e)
			verts = topology.LogicalElementVertices(dims, ijk)
		} else {
			verts, err = topology.ElementVertices(topo, e)
			if err != nil {
				return nil, fmt.Errorf("chunkextract: %w", err)
			}
		}
		elemVerts[i] = verts
		for _, v := range verts {
			vertexSet.Add(uint32(v))
		}
	}
	orderedVertexIDs := make([]int64, 0, vertexSet.GetCardinality())
	it := vertexSet.Iterator()
	for it.HasNext() {
		orderedVertexIDs = append(orderedVertexIDs, int64(it.Next()))
	}
	remap := make(map[int64]int64, len(orderedVertexIDs))
	for newIdx, oldID := range orderedVertexIDs {
		remap[oldID] = int64(newIdx)
	}

	// Step 4: build the chunk's explicit coordset from the selected
	// vertices.
	full, err := topology.ExplicitCoordinates(cs)
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}
	axisOrder := topology.Axes(cs)
	sliced := make(map[string][]float64, len(axisOrder))
	for _, a := range axisOrder {
		srcVec := mat.NewVecDense(len(full[a]), full[a])
		outVec := mat.NewVecDense(len(orderedVertexIDs), nil)
		for i, vid := range orderedVertexIDs {
			outVec.SetVec(i, srcVec.AtVec(int(vid)))
		}
		sliced[a] = outVec.RawVector().Data
	}
	newCS := topology.NewExplicitCoordset(sliced, axisOrder)

	// Step 5: build the chunk's unstructured topology, connectivity
	// re-indexed to the chunk-local vertex numbering.
	shape, err := elementShape(kind, dims, topo)
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}
	nv, err := topology.VerticesPerElement(shape)
	if err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}
	conn := make([]int64, 0, len(elemIDs)*nv)
	for _, verts := range elemVerts {
		for _, v := range verts {
			conn = append(conn, remap[v])
		}
	}
	newTopo := tree.NewNode()
	newTopo.AddChild("type").SetString("unstructured")
	newTopo.AddChild("coordset").SetString(csName)
	newElements := newTopo.AddChild("elements")
	newElements.AddChild("shape").SetString(shape)
	newElements.AddChild("connectivity").SetInt64Array(conn)

	outMesh := tree.NewNode()
	outMesh.Coordsets().AddChild(csName).SetExternal(newCS)
	outMesh.Topologies().AddChild("mesh").SetExternal(newTopo)

	// Step 6: slice fields.
	if err := sliceFields(mesh, outMesh, topo, elemIDs, orderedVertexIDs, opts); err != nil {
		return nil, fmt.Errorf("chunkextract: %w", err)
	}

	// Step 7: mapping fields, only when the selection asked to preserve
	// them (spec.md section 4.2 step 7).
	if sel.PreserveMapping() {
		emitMappingFields(outMesh, "mesh", elemIDs, orderedVertexIDs)
	}

	// Step 8: copy state, overriding domain_id to the selection's
	// destination domain when one is assigned.
	copyState(mesh, outMesh, sel)

	c := chunk.NewOwned(outMesh)
	return &c, nil
}

func elementShape(kind topology.Kind, dims [3]int64, topo *tree.Node) (string, error) {
	if kind.IsLogical() {
		return topology.ElementShape(dims), nil
	}
	elements, ok := topo.Child("elements")
	if !ok {
		return "", fmt.Errorf("missing elements group")
	}
	shapeNode, ok := elements.Child("shape")
	if !ok {
		return "", fmt.Errorf("missing elements/shape")
	}
	return shapeNode.String(), nil
}
