package combine

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/meshpartition/topology"
	"github.com/notargets/meshpartition/tree"
)

// CombineAsStructured glues inputs' logical IJK boxes into one larger box
// along whichever single axis their bounding coordinates tile
// contiguously on, the inverse of Logical.Partition (spec.md section
// 4.3). It fails (falls back to unstructured) if the inputs do not tile
// cleanly along exactly one axis.
func CombineAsStructured(domain int64, inputs []*tree.Node) (*tree.Node, error) {
	type piece struct {
		mesh   *tree.Node
		topo   *tree.Node
		cs     *tree.Node
		csName string
		dims   [3]int64
		lo     [3]float64
	}

	pieces := make([]piece, len(inputs))
	for i, m := range inputs {
		topo, err := firstTopology(m)
		if err != nil {
			return nil, err
		}
		cs, csName, err := firstCoordset(m, topo)
		if err != nil {
			return nil, err
		}
		dims, err := topology.Dims(topo)
		if err != nil {
			return nil, err
		}
		coords, err := topology.ExplicitCoordinates(cs)
		if err != nil {
			return nil, err
		}
		var lo [3]float64
		for ai, ax := range []string{"x", "y", "z"} {
			v, ok := coords[ax]
			if !ok || len(v) == 0 {
				continue
			}
			lo[ai] = minFloat(v)
		}
		pieces[i] = piece{mesh: m, topo: topo, cs: cs, csName: csName, dims: dims, lo: lo}
	}

	// Find the one axis whose bounding-box lower coordinate differs
	// across pieces; the other two axes must have matching dims.
	axis := -1
	for a := 0; a < 3; a++ {
		distinct := map[float64]bool{}
		for _, p := range pieces {
			distinct[round(p.lo[a])] = true
		}
		if len(distinct) > 1 {
			if axis != -1 {
				return nil, fmt.Errorf("combine: pieces vary along more than one axis")
			}
			axis = a
		}
	}
	if axis == -1 {
		axis = 0
	}
	for a := 0; a < 3; a++ {
		if a == axis {
			continue
		}
		d0 := pieces[0].dims[a]
		for _, p := range pieces {
			if p.dims[a] != d0 {
				return nil, fmt.Errorf("combine: pieces disagree on dims for axis %d", a)
			}
		}
	}

	sort.Slice(pieces, func(i, j int) bool { return pieces[i].lo[axis] < pieces[j].lo[axis] })

	totalDims := pieces[0].dims
	var sum int64
	for _, p := range pieces {
		sum += p.dims[axis]
	}
	totalDims[axis] = sum

	out := tree.NewNode()
	outTopo := out.Topologies().AddChild("mesh")
	outTopo.AddChild("type").SetString(pieces[0].topo.AddChild("type").String())
	outTopo.AddChild("coordset").SetString("coords")
	topology.SetDims(outTopo, totalDims)

	coordsByAxis := map[string][]float64{}
	axes := topology.Axes(pieces[0].cs)
	for _, ax := range axes {
		var merged []float64
		for i, p := range pieces {
			c, err := topology.ExplicitCoordinates(p.cs)
			if err != nil {
				return nil, err
			}
			vals := c[ax]
			if i == 0 {
				merged = append(merged, vals...)
				continue
			}
			// Skip the coincident face shared with the previous piece.
			vdims := [3]int64{pieces[0].dims[0] + 1, pieces[0].dims[1] + 1, pieces[0].dims[2] + 1}
			vdims[axis] = p.dims[axis] + 1
			merged = appendSkippingFace(merged, vals, vdims, axis)
		}
		coordsByAxis[ax] = merged
	}
	outCS := topology.NewExplicitCoordset(coordsByAxis, axes)
	out.Coordsets().AddChild("coords").SetExternal(outCS)

	if err := combineFieldsZeroFill(pieces[0].mesh, inputs, out); err != nil {
		return nil, err
	}
	out.State().AddChild("domain_id").SetInt64Array([]int64{domain})
	return out, nil
}

func minFloat(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func round(v float64) float64 { return math.Round(v*1e9) / 1e9 }

// appendSkippingFace appends vals to merged, dropping the first
// coincident-vertex layer along axis (the face shared with the previously
// appended piece).
func appendSkippingFace(merged, vals []float64, vdims [3]int64, axis int) []float64 {
	idx := 0
	for k := int64(0); k < vdims[2]; k++ {
		for j := int64(0); j < vdims[1]; j++ {
			for i := int64(0); i < vdims[0]; i++ {
				ijk := [3]int64{i, j, k}
				if ijk[axis] != 0 {
					merged = append(merged, vals[idx])
				}
				idx++
			}
		}
	}
	return merged
}
