package combine

import (
	"fmt"

	"github.com/notargets/meshpartition/topology"
	"github.com/notargets/meshpartition/tree"
)

// CombineAsUnstructured concatenates every input's elements and vertices
// into one unstructured mesh. Vertex indices are offset per input;
// coincident vertices across inputs are never merged (spec.md section
// 4.3: "coincident vertices are not merged").
func CombineAsUnstructured(domain int64, inputs []*tree.Node) (*tree.Node, error) {
	out := tree.NewNode()

	var shape string
	var conn []int64
	coordsByAxis := map[string][]float64{}
	var axes []string
	vertexOffset := int64(0)

	for i, m := range inputs {
		topo, err := firstTopology(m)
		if err != nil {
			return nil, err
		}
		cs, _, err := firstCoordset(m, topo)
		if err != nil {
			return nil, err
		}
		k, err := topology.ParseKind(tree.TopologyType(topo))
		if err != nil {
			return nil, err
		}

		var pieceShape string
		var pieceConn []int64
		if k.IsLogical() {
			dims, err := topology.Dims(topo)
			if err != nil {
				return nil, err
			}
			pieceShape = topology.ElementShape(dims)
			ut, err := topology.ToUnstructured(topo, "coords")
			if err != nil {
				return nil, err
			}
			elements, _ := ut.Child("elements")
			connNode, _ := elements.Child("connectivity")
			pieceConn = connNode.Int64Array()
		} else {
			elements, ok := topo.Child("elements")
			if !ok {
				return nil, fmt.Errorf("combine: missing elements group")
			}
			shapeNode, ok := elements.Child("shape")
			if !ok {
				return nil, fmt.Errorf("combine: missing elements/shape")
			}
			pieceShape = shapeNode.String()
			connNode, ok := elements.Child("connectivity")
			if !ok {
				return nil, fmt.Errorf("combine: missing elements/connectivity")
			}
			pieceConn = connNode.Int64Array()
		}

		if i == 0 {
			shape = pieceShape
			axes = topology.Axes(cs)
		} else if pieceShape != shape {
			return nil, fmt.Errorf("combine: inputs have mismatched element shapes %q and %q", shape, pieceShape)
		}

		for _, v := range pieceConn {
			conn = append(conn, v+vertexOffset)
		}

		coords, err := topology.ExplicitCoordinates(cs)
		if err != nil {
			return nil, err
		}
		var n int64
		for _, ax := range axes {
			coordsByAxis[ax] = append(coordsByAxis[ax], coords[ax]...)
			n = int64(len(coords[ax]))
		}
		vertexOffset += n
	}

	outTopo := tree.NewNode()
	outTopo.AddChild("type").SetString("unstructured")
	outTopo.AddChild("coordset").SetString("coords")
	elements := outTopo.AddChild("elements")
	elements.AddChild("shape").SetString(shape)
	elements.AddChild("connectivity").SetInt64Array(conn)
	out.Topologies().AddChild("mesh").SetExternal(outTopo)

	outCS := topology.NewExplicitCoordset(coordsByAxis, axes)
	out.Coordsets().AddChild("coords").SetExternal(outCS)

	if err := combineFieldsZeroFill(inputs[0], inputs, out); err != nil {
		return nil, err
	}
	out.State().AddChild("domain_id").SetInt64Array([]int64{domain})
	return out, nil
}

// combineFieldsZeroFill concatenates every field present on any input
// across all inputs in order, filling missing per-input values with a
// per-dtype zero for inputs that lack the field (spec.md section 4.3:
// "fields missing on an input are filled with per-dtype zero").
func combineFieldsZeroFill(ref *tree.Node, inputs []*tree.Node, out *tree.Node) error {
	names := map[string]bool{}
	order := []string{}
	for _, m := range inputs {
		fields := m.AddChild("fields")
		for _, name := range fields.ChildNames() {
			if !names[name] {
				names[name] = true
				order = append(order, name)
			}
		}
	}

	for _, name := range order {
		var assoc, topoName string
		var kind tree.Kind
		for _, m := range inputs {
			if f, ok := m.AddChild("fields").Child(name); ok {
				assoc = tree.FieldAssociation(f)
				topoName = tree.FieldTopology(f)
				if vals, ok := f.Child("values"); ok {
					kind = vals.Kind()
				}
				break
			}
		}

		outField := out.Fields().AddChild(name)
		outField.AddChild("association").SetString(assoc)
		outField.AddChild("topology").SetString(topoName)

		var f64 []float64
		var i64 []int64
		var i32 []int32

		for _, m := range inputs {
			n, err := pieceLength(m, assoc)
			if err != nil {
				return err
			}
			field, ok := m.AddChild("fields").Child(name)
			if !ok {
				switch kind {
				case tree.KindFloat64:
					f64 = append(f64, make([]float64, n)...)
				case tree.KindInt64:
					i64 = append(i64, make([]int64, n)...)
				case tree.KindInt32:
					i32 = append(i32, make([]int32, n)...)
				}
				continue
			}
			vals, ok := field.Child("values")
			if !ok {
				continue
			}
			switch vals.Kind() {
			case tree.KindFloat64:
				f64 = append(f64, vals.Float64Array()...)
			case tree.KindInt64:
				i64 = append(i64, vals.Int64Array()...)
			case tree.KindInt32:
				i32 = append(i32, vals.Int32Array()...)
			}
		}

		valuesNode := outField.AddChild("values")
		switch kind {
		case tree.KindFloat64:
			valuesNode.SetFloat64Array(f64)
		case tree.KindInt64:
			valuesNode.SetInt64Array(i64)
		case tree.KindInt32:
			valuesNode.SetInt32Array(i32)
		}
	}
	return nil
}

func pieceLength(mesh *tree.Node, assoc string) (int64, error) {
	topo, err := firstTopology(mesh)
	if err != nil {
		return 0, err
	}
	if assoc == tree.AssociationVertex {
		cs, _, err := firstCoordset(mesh, topo)
		if err != nil {
			return 0, err
		}
		return topology.NumVertices(cs)
	}
	return topology.Length(topo)
}
