// Package topology implements the small slice of Blueprint-style mesh
// topology and coordset shapes this module needs: uniform/rectilinear/
// structured logical-box topologies, unstructured explicit topologies,
// and the coordsets that back them. It is shared by selection,
// chunkextract, and combine.
package topology

import (
	"fmt"

	"github.com/notargets/meshpartition/tree"
)

// Kind enumerates the topology kinds from least to most general, matching
// spec.md's "ascending generality" ordering (GLOSSARY).
type Kind uint8

const (
	KindUniform Kind = iota
	KindRectilinear
	KindStructured
	KindUnstructured
)

func (k Kind) String() string {
	switch k {
	case KindUniform:
		return "uniform"
	case KindRectilinear:
		return "rectilinear"
	case KindStructured:
		return "structured"
	case KindUnstructured:
		return "unstructured"
	default:
		return "unknown"
	}
}

// ParseKind maps a topology's "type" string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "uniform":
		return KindUniform, nil
	case "rectilinear":
		return KindRectilinear, nil
	case "structured":
		return KindStructured, nil
	case "unstructured":
		return KindUnstructured, nil
	default:
		return 0, fmt.Errorf("topology: unknown type %q", s)
	}
}

// IsLogical reports whether a kind is IJK-box addressable (anything but
// unstructured).
func (k Kind) IsLogical() bool { return k != KindUnstructured }

// Dims returns the per-axis element counts for a logical (uniform,
// rectilinear, or structured) topology, read from
// topo/elements/dims/{i,j,k}. Missing j/k default to 1 (2D/1D meshes).
func Dims(topo *tree.Node) ([3]int64, error) {
	elements, ok := topo.Child("elements")
	if !ok {
		return [3]int64{}, fmt.Errorf("topology: missing elements group")
	}
	dims, ok := elements.Child("dims")
	if !ok {
		return [3]int64{}, fmt.Errorf("topology: missing elements/dims")
	}
	out := [3]int64{1, 1, 1}
	for axis, name := range []string{"i", "j", "k"} {
		c, ok := dims.Child(name)
		if !ok {
			continue
		}
		vals := c.Int64Array()
		if len(vals) != 1 {
			return [3]int64{}, fmt.Errorf("topology: elements/dims/%s must be a single value", name)
		}
		out[axis] = vals[0]
	}
	return out, nil
}

// SetDims writes per-axis element counts into topo/elements/dims.
func SetDims(topo *tree.Node, dims [3]int64) {
	d := topo.FetchOrCreate("elements/dims")
	d.AddChild("i").SetInt64Array([]int64{dims[0]})
	d.AddChild("j").SetInt64Array([]int64{dims[1]})
	d.AddChild("k").SetInt64Array([]int64{dims[2]})
}

// LogicalLength returns the element count implied by a logical topology's
// dims (product of the three axes).
func LogicalLength(topo *tree.Node) (int64, error) {
	dims, err := Dims(topo)
	if err != nil {
		return 0, err
	}
	return dims[0] * dims[1] * dims[2], nil
}

// LinearIndex converts an IJK triple to a row-major linear element index
// (i fastest, then j, then k), matching the convention used throughout
// this module for logical selections.
func LinearIndex(dims, ijk [3]int64) int64 {
	return ijk[0] + dims[0]*(ijk[1]+dims[1]*ijk[2])
}

// IJKFromLinear is the inverse of LinearIndex.
func IJKFromLinear(dims [3]int64, idx int64) [3]int64 {
	i := idx % dims[0]
	rem := idx / dims[0]
	j := rem % dims[1]
	k := rem / dims[1]
	return [3]int64{i, j, k}
}

// ElementShape returns the canonical unstructured element shape name for
// a logical topology's element dims: "hex" when the k count exceeds 1,
// otherwise "quad" when the j count exceeds 1, otherwise "line".
func ElementShape(dims [3]int64) string {
	active := 0
	for _, d := range dims {
		if d > 1 {
			active++
		}
	}
	switch {
	case dims[2] > 1:
		return "hex"
	case dims[1] > 1:
		return "quad"
	default:
		_ = active
		return "line"
	}
}

// VerticesPerElement returns how many coordset vertices a single element
// of the given unstructured shape name references.
func VerticesPerElement(shape string) (int, error) {
	switch shape {
	case "line":
		return 2, nil
	case "tri":
		return 3, nil
	case "quad", "tet":
		return 4, nil
	case "hex":
		return 8, nil
	default:
		return 0, fmt.Errorf("topology: unknown element shape %q", shape)
	}
}

// Length returns the element count of a topology of any kind.
func Length(topo *tree.Node) (int64, error) {
	kindStr := tree.TopologyType(topo)
	kind, err := ParseKind(kindStr)
	if err != nil {
		return 0, err
	}
	if kind.IsLogical() {
		return LogicalLength(topo)
	}
	return UnstructuredLength(topo)
}

// UnstructuredLength returns the element count of an unstructured
// topology, derived from its connectivity length and fixed shape vertex
// count.
func UnstructuredLength(topo *tree.Node) (int64, error) {
	elements, ok := topo.Child("elements")
	if !ok {
		return 0, fmt.Errorf("topology: missing elements group")
	}
	shapeNode, ok := elements.Child("shape")
	if !ok {
		return 0, fmt.Errorf("topology: missing elements/shape")
	}
	shape := shapeNode.String()
	nv, err := VerticesPerElement(shape)
	if err != nil {
		return 0, err
	}
	conn, ok := elements.Child("connectivity")
	if !ok {
		return 0, fmt.Errorf("topology: missing elements/connectivity")
	}
	n := len(conn.Int64Array())
	if n%nv != 0 {
		return 0, fmt.Errorf("topology: connectivity length %d not a multiple of %d vertices/element", n, nv)
	}
	return int64(n / nv), nil
}

// ElementVertices returns the coordset vertex ids referenced by element
// elemID of an unstructured topology.
func ElementVertices(topo *tree.Node, elemID int64) ([]int64, error) {
	elements, ok := topo.Child("elements")
	if !ok {
		return nil, fmt.Errorf("topology: missing elements group")
	}
	shape := elements.AddChild("shape").String()
	nv, err := VerticesPerElement(shape)
	if err != nil {
		return nil, err
	}
	conn, ok := elements.Child("connectivity")
	if !ok {
		return nil, fmt.Errorf("topology: missing elements/connectivity")
	}
	data := conn.Int64Array()
	start := elemID * int64(nv)
	if start < 0 || start+int64(nv) > int64(len(data)) {
		return nil, fmt.Errorf("topology: element id %d out of range", elemID)
	}
	out := make([]int64, nv)
	copy(out, data[start:start+int64(nv)])
	return out, nil
}

// LogicalElementVertices returns the coordset vertex ids of the element
// at ijk in a logical topology whose coordset has vertex dims
// (dims+1 per axis, standard cell/vertex relationship).
func LogicalElementVertices(dims [3]int64, ijk [3]int64) []int64 {
	vdims := [3]int64{dims[0] + 1, dims[1] + 1, dims[2] + 1}
	if dims[2] > 1 {
		// hex: 8 corners
		out := make([]int64, 0, 8)
		for _, dk := range [2]int64{0, 1} {
			for _, dj := range [2]int64{0, 1} {
				for _, di := range [2]int64{0, 1} {
					v := [3]int64{ijk[0] + di, ijk[1] + dj, ijk[2] + dk}
					out = append(out, LinearIndex(vdims, v))
				}
			}
		}
		return out
	}
	if dims[1] > 1 {
		out := make([]int64, 0, 4)
		for _, dj := range [2]int64{0, 1} {
			for _, di := range [2]int64{0, 1} {
				v := [3]int64{ijk[0] + di, ijk[1] + dj, 0}
				out = append(out, LinearIndex(vdims, v))
			}
		}
		return out
	}
	return []int64{
		LinearIndex(vdims, [3]int64{ijk[0], 0, 0}),
		LinearIndex(vdims, [3]int64{ijk[0] + 1, 0, 0}),
	}
}

// ToUnstructured materializes an explicit unstructured topology equivalent
// to a logical (uniform/rectilinear/structured) one, referencing the same
// vertex numbering the logical coordset implies (vertex dims = element
// dims + 1 per axis). The returned topology still references csname; the
// caller is responsible for ensuring a matching explicit coordset exists
// under that name (combine.CombineAsUnstructured builds one under
// "coords" next to the topology it returns).
func ToUnstructured(topo *tree.Node, csname string) (*tree.Node, error) {
	dims, err := Dims(topo)
	if err != nil {
		return nil, err
	}
	shape := ElementShape(dims)
	nv, _ := VerticesPerElement(shape)
	n := dims[0] * dims[1] * dims[2]
	conn := make([]int64, 0, n*int64(nv))
	for k := int64(0); k < dims[2]; k++ {
		for j := int64(0); j < dims[1]; j++ {
			for i := int64(0); i < dims[0]; i++ {
				conn = append(conn, LogicalElementVertices(dims, [3]int64{i, j, k})...)
			}
		}
	}
	out := tree.NewNode()
	out.AddChild("type").SetString("unstructured")
	out.AddChild("coordset").SetString(csname)
	elements := out.AddChild("elements")
	elements.AddChild("shape").SetString(shape)
	elements.AddChild("connectivity").SetInt64Array(conn)
	return out, nil
}
