package chunkextract

import (
	"fmt"

	"github.com/notargets/meshpartition/tree"
)

// sliceFields copies every field from src that opts allows, restricted to
// the selected element/vertex ids, into dst's fields group (spec.md
// section 4.2 step 6).
func sliceFields(src, dst, topo *tree.Node, elemIDs, vertexIDs []int64, opts Options) error {
	topoName := topoNameIn(src, topo)
	fields := src.Fields()
	for _, name := range fields.ChildNames() {
		if !opts.wants(name) {
			continue
		}
		f, _ := fields.Child(name)
		if tree.FieldTopology(f) != "" && tree.FieldTopology(f) != topoName {
			continue
		}
		vals, ok := f.Child("values")
		if !ok {
			continue
		}
		var ids []int64
		switch tree.FieldAssociation(f) {
		case tree.AssociationElement:
			ids = elemIDs
		case tree.AssociationVertex:
			ids = vertexIDs
		default:
			return fmt.Errorf("field %q has unknown association %q", name, tree.FieldAssociation(f))
		}
		out := dst.Fields().AddChild(name)
		out.AddChild("association").SetString(tree.FieldAssociation(f))
		out.AddChild("topology").SetString("mesh")
		if err := sliceLeaf(vals, ids, out.AddChild("values")); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

func sliceLeaf(src *tree.Node, ids []int64, dst *tree.Node) error {
	switch src.Kind() {
	case tree.KindFloat64:
		v := src.Float64Array()
		out := make([]float64, len(ids))
		for i, id := range ids {
			if id < 0 || int(id) >= len(v) {
				return fmt.Errorf("index %d out of range (len %d)", id, len(v))
			}
			out[i] = v[id]
		}
		dst.SetFloat64Array(out)
	case tree.KindInt64:
		v := src.Int64Array()
		out := make([]int64, len(ids))
		for i, id := range ids {
			out[i] = v[id]
		}
		dst.SetInt64Array(out)
	case tree.KindInt32:
		v := src.Int32Array()
		out := make([]int32, len(ids))
		for i, id := range ids {
			out[i] = v[id]
		}
		dst.SetInt32Array(out)
	case tree.KindUint64:
		v := src.Uint64Array()
		out := make([]uint64, len(ids))
		for i, id := range ids {
			out[i] = v[id]
		}
		dst.SetUint64Array(out)
	default:
		return fmt.Errorf("unsupported leaf kind %d", src.Kind())
	}
	return nil
}

// emitMappingFields writes original_element_ids and original_vertex_ids
// fields into dst (spec.md section 4.2 step 7, "preserve_mapping").
func emitMappingFields(dst *tree.Node, topoName string, elemIDs, vertexIDs []int64) {
	ef := dst.Fields().AddChild("original_element_ids")
	ef.AddChild("association").SetString(tree.AssociationElement)
	ef.AddChild("topology").SetString(topoName)
	ef.AddChild("values").SetInt64Array(append([]int64(nil), elemIDs...))

	vf := dst.Fields().AddChild("original_vertex_ids")
	vf.AddChild("association").SetString(tree.AssociationVertex)
	vf.AddChild("topology").SetString(topoName)
	vf.AddChild("values").SetInt64Array(append([]int64(nil), vertexIDs...))
}

func topoNameIn(mesh, topo *tree.Node) string {
	topos := mesh.Topologies()
	for i := 0; i < topos.NumChildren(); i++ {
		if topos.ChildByIndex(i) == topo {
			return topos.ChildNames()[i]
		}
	}
	return ""
}
