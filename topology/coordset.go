package topology

import (
	"fmt"

	"github.com/notargets/meshpartition/tree"
)

// CoordsetKind mirrors the "type" leaf of a coordset node.
type CoordsetKind uint8

const (
	CoordsetUniform CoordsetKind = iota
	CoordsetRectilinear
	CoordsetExplicit
)

// ParseCoordsetKind maps a coordset's "type" string to a CoordsetKind.
func ParseCoordsetKind(s string) (CoordsetKind, error) {
	switch s {
	case "uniform":
		return CoordsetUniform, nil
	case "rectilinear":
		return CoordsetRectilinear, nil
	case "explicit":
		return CoordsetExplicit, nil
	default:
		return 0, fmt.Errorf("topology: unknown coordset type %q", s)
	}
}

// Axes lists the coordinate axis names present in a coordset, in x,y,z
// order, limited to however many are actually populated.
func Axes(cs *tree.Node) []string {
	names := []string{"x", "y", "z"}
	out := make([]string, 0, 3)
	kindStr := cs.AddChild("type").String()
	switch kindStr {
	case "uniform":
		dims, _ := cs.Child("dims")
		if dims == nil {
			return out
		}
		for _, n := range names {
			if _, ok := dims.Child(n); ok {
				out = append(out, n)
			}
		}
	default:
		values, ok := cs.Child("values")
		if !ok {
			return out
		}
		for _, n := range names {
			if _, ok := values.Child(n); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// NumVertices returns the number of coordinate points in a coordset.
func NumVertices(cs *tree.Node) (int64, error) {
	kind, err := ParseCoordsetKind(cs.AddChild("type").String())
	if err != nil {
		return 0, err
	}
	switch kind {
	case CoordsetExplicit:
		values, ok := cs.Child("values")
		if !ok {
			return 0, fmt.Errorf("topology: explicit coordset missing values")
		}
		axes := Axes(cs)
		if len(axes) == 0 {
			return 0, fmt.Errorf("topology: explicit coordset has no axes")
		}
		first, _ := values.Child(axes[0])
		return int64(len(first.Float64Array())), nil
	case CoordsetUniform:
		dims, ok := cs.Child("dims")
		if !ok {
			return 0, fmt.Errorf("topology: uniform coordset missing dims")
		}
		total := int64(1)
		for _, n := range Axes(cs) {
			c, _ := dims.Child(n)
			vals := c.Int64Array()
			if len(vals) != 1 {
				return 0, fmt.Errorf("topology: uniform coordset dims/%s malformed", n)
			}
			total *= vals[0]
		}
		return total, nil
	case CoordsetRectilinear:
		values, ok := cs.Child("values")
		if !ok {
			return 0, fmt.Errorf("topology: rectilinear coordset missing values")
		}
		total := int64(1)
		for _, n := range Axes(cs) {
			c, _ := values.Child(n)
			total *= int64(len(c.Float64Array()))
		}
		return total, nil
	default:
		return 0, fmt.Errorf("topology: unsupported coordset kind")
	}
}

// VertexDims returns the per-axis vertex counts for a logical coordset
// (uniform or rectilinear), used to convert IJK element indices to vertex
// ids. For an explicit coordset this is meaningless and returns an error.
func VertexDims(cs *tree.Node) ([3]int64, error) {
	kind, err := ParseCoordsetKind(cs.AddChild("type").String())
	if err != nil {
		return [3]int64{}, err
	}
	out := [3]int64{1, 1, 1}
	switch kind {
	case CoordsetUniform:
		dims, ok := cs.Child("dims")
		if !ok {
			return out, fmt.Errorf("topology: uniform coordset missing dims")
		}
		for axis, n := range Axes(cs) {
			if c, ok := dims.Child(n); ok {
				vals := c.Int64Array()
				if len(vals) == 1 {
					out[axis] = vals[0]
				}
			}
		}
		return out, nil
	case CoordsetRectilinear:
		values, ok := cs.Child("values")
		if !ok {
			return out, fmt.Errorf("topology: rectilinear coordset missing values")
		}
		for axis, n := range []string{"x", "y", "z"} {
			if c, ok := values.Child(n); ok {
				out[axis] = int64(len(c.Float64Array()))
			}
		}
		return out, nil
	default:
		return out, fmt.Errorf("topology: explicit coordset has no logical vertex dims")
	}
}

// ExplicitCoordinates materializes (x,y,z...) float64 slices for a
// coordset of any kind: uniform/rectilinear are expanded to their full
// cross product, explicit is returned as-is.
func ExplicitCoordinates(cs *tree.Node) (map[string][]float64, error) {
	kind, err := ParseCoordsetKind(cs.AddChild("type").String())
	if err != nil {
		return nil, err
	}
	axes := Axes(cs)
	switch kind {
	case CoordsetExplicit:
		values, _ := cs.Child("values")
		out := make(map[string][]float64, len(axes))
		for _, a := range axes {
			c, _ := values.Child(a)
			out[a] = c.Float64Array()
		}
		return out, nil
	case CoordsetUniform:
		dims, _ := cs.Child("dims")
		origin := cs.AddChild("origin")
		spacing := cs.AddChild("spacing")
		vdims, err := VertexDims(cs)
		if err != nil {
			return nil, err
		}
		_ = dims
		n := vdims[0] * vdims[1] * vdims[2]
		out := make(map[string][]float64, len(axes))
		for ai, a := range axes {
			out[a] = make([]float64, n)
			o := valueOrZero(origin, a)
			s := valueOrZero(spacing, a)
			idx := 0
			for k := int64(0); k < vdims[2]; k++ {
				for j := int64(0); j < vdims[1]; j++ {
					for i := int64(0); i < vdims[0]; i++ {
						coordIdx := [3]int64{i, j, k}[ai]
						out[a][idx] = o + s*float64(coordIdx)
						idx++
					}
				}
			}
		}
		return out, nil
	case CoordsetRectilinear:
		values, _ := cs.Child("values")
		lines := make(map[string][]float64, len(axes))
		for _, a := range axes {
			c, _ := values.Child(a)
			lines[a] = c.Float64Array()
		}
		vdims, err := VertexDims(cs)
		if err != nil {
			return nil, err
		}
		n := vdims[0] * vdims[1] * vdims[2]
		out := make(map[string][]float64, len(axes))
		for _, a := range axes {
			out[a] = make([]float64, n)
		}
		idx := 0
		for k := int64(0); k < vdims[2]; k++ {
			for j := int64(0); j < vdims[1]; j++ {
				for i := int64(0); i < vdims[0]; i++ {
					ijk := [3]int64{i, j, k}
					for ai, a := range axes {
						out[a][idx] = lines[a][ijk[ai]]
					}
					idx++
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("topology: unsupported coordset kind")
	}
}

func valueOrZero(n *tree.Node, name string) float64 {
	c, ok := n.Child(name)
	if !ok {
		return 0
	}
	v := c.Float64Array()
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

// NewExplicitCoordset builds an explicit coordset from per-axis float64
// slices.
func NewExplicitCoordset(coords map[string][]float64, axisOrder []string) *tree.Node {
	cs := tree.NewNode()
	cs.AddChild("type").SetString("explicit")
	values := cs.AddChild("values")
	for _, a := range axisOrder {
		values.AddChild(a).SetFloat64Array(coords[a])
	}
	return cs
}
