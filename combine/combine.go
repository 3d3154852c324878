// Package combine implements the mesh combiner (spec.md section 4.3):
// joining several chunk meshes of a single destination domain back into
// one mesh, picking the most specific topology representation the inputs
// can share.
package combine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/meshpartition/topology"
	"github.com/notargets/meshpartition/tree"
)

// RecommendedTopology picks the most specific topology kind every input
// mesh's first topology can be expressed as, preferring uniform over
// rectilinear over structured over unstructured (spec.md section 4.3).
func RecommendedTopology(inputs []*tree.Node) (topology.Kind, error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("combine: no inputs")
	}
	kinds := make([]topology.Kind, len(inputs))
	for i, m := range inputs {
		topo, err := firstTopology(m)
		if err != nil {
			return 0, err
		}
		k, err := topology.ParseKind(tree.TopologyType(topo))
		if err != nil {
			return 0, err
		}
		kinds[i] = k
	}

	allAtMost := func(max topology.Kind) bool {
		for _, k := range kinds {
			if k > max {
				return false
			}
		}
		return true
	}

	if allAtMost(topology.KindUniform) && gridsAlign(inputs) {
		return topology.KindUniform, nil
	}
	if allAtMost(topology.KindRectilinear) {
		return topology.KindRectilinear, nil
	}
	if allAtMost(topology.KindStructured) {
		return topology.KindStructured, nil
	}
	return topology.KindUnstructured, nil
}

func firstTopology(mesh *tree.Node) (*tree.Node, error) {
	topos := mesh.AddChild("topologies")
	if topos.NumChildren() == 0 {
		return nil, fmt.Errorf("combine: mesh has no topologies")
	}
	return topos.ChildByIndex(0), nil
}

func firstCoordset(mesh *tree.Node, topo *tree.Node) (*tree.Node, string, error) {
	name, err := tree.TopologyCoordset(topo)
	if err != nil {
		return nil, "", err
	}
	cs, ok := mesh.AddChild("coordsets").Child(name)
	if !ok {
		return nil, "", fmt.Errorf("combine: mesh has no coordset named %q", name)
	}
	return cs, name, nil
}

// gridsAlign reports whether every input's uniform coordset shares the
// same per-axis spacing within floating tolerance, the precondition for
// re-expressing their union as a single uniform grid (spec.md section
// 4.3).
func gridsAlign(inputs []*tree.Node) bool {
	const tol = 1e-9
	var ref *mat.VecDense
	axes := []string{"x", "y", "z"}
	for _, m := range inputs {
		topo, err := firstTopology(m)
		if err != nil {
			return false
		}
		cs, _, err := firstCoordset(m, topo)
		if err != nil {
			return false
		}
		spacing, ok := cs.Child("spacing")
		if !ok {
			return false
		}
		present := topology.Axes(cs)
		cur := mat.NewVecDense(3, nil)
		for _, ax := range present {
			c, ok := spacing.Child(ax)
			if !ok {
				return false
			}
			v := c.Float64Array()
			if len(v) != 1 {
				return false
			}
			for i, a := range axes {
				if a == ax {
					cur.SetVec(i, v[0])
				}
			}
		}
		if ref == nil {
			ref = cur
			continue
		}
		diff := mat.NewVecDense(3, nil)
		diff.SubVec(cur, ref)
		if mat.Norm(diff, 2) > tol {
			return false
		}
	}
	return ref != nil
}

// Combine joins inputs (all chunks assigned to the same destination
// domain) into a single mesh, choosing between CombineAsStructured and
// CombineAsUnstructured by RecommendedTopology (spec.md section 4.3).
func Combine(domain int64, inputs []*tree.Node) (*tree.Node, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("combine: no inputs for domain %d", domain)
	}
	if len(inputs) == 1 {
		out := inputs[0].Clone()
		out.State().AddChild("domain_id").SetInt64Array([]int64{domain})
		return out, nil
	}

	kind, err := RecommendedTopology(inputs)
	if err != nil {
		return nil, err
	}
	if kind.IsLogical() {
		out, err := CombineAsStructured(domain, inputs)
		if err == nil {
			return out, nil
		}
		// Fall through to unstructured if the inputs cannot actually be
		// glued as a logical box (e.g. non-contiguous split history).
	}
	return CombineAsUnstructured(domain, inputs)
}
