package tree

import "fmt"

// Mesh-shape helpers. These encode the small slice of the Blueprint mesh
// protocol this module actually needs to read/write: coordsets,
// topologies, fields, and state. The full protocol and its validation are
// out of scope (spec.md section 1); this module only needs enough shape
// to extract, combine, and migrate chunks.

// Topologies returns the mesh's "topologies" group, creating it if absent.
func (n *Node) Topologies() *Node { return n.AddChild("topologies") }

// Coordsets returns the mesh's "coordsets" group, creating it if absent.
func (n *Node) Coordsets() *Node { return n.AddChild("coordsets") }

// Fields returns the mesh's "fields" group, creating it if absent.
func (n *Node) Fields() *Node { return n.AddChild("fields") }

// State returns the mesh's "state" group, creating it if absent.
func (n *Node) State() *Node { return n.AddChild("state") }

// TopologyCoordset returns the name of the coordset referenced by a
// topology node's "coordset" string leaf.
func TopologyCoordset(topo *Node) (string, error) {
	c, ok := topo.Child("coordset")
	if !ok {
		return "", fmt.Errorf("tree: topology missing coordset reference")
	}
	return c.String(), nil
}

// TopologyType returns a topology's "type" string leaf, one of
// "uniform", "rectilinear", "structured", or "unstructured".
func TopologyType(topo *Node) string {
	c, ok := topo.Child("type")
	if !ok {
		return ""
	}
	return c.String()
}

// AssociationElement and AssociationVertex name the conventional
// field "association" values.
const (
	AssociationElement = "element"
	AssociationVertex  = "vertex"
)

// FieldAssociation returns a field node's "association" string leaf.
func FieldAssociation(field *Node) string {
	c, ok := field.Child("association")
	if !ok {
		return ""
	}
	return c.String()
}

// FieldTopology returns a field node's "topology" string leaf.
func FieldTopology(field *Node) string {
	c, ok := field.Child("topology")
	if !ok {
		return ""
	}
	return c.String()
}

// Domains splits a mesh node into its constituent domains. A node is
// treated as multi-domain if it is not itself mesh-shaped and every one of
// its children is mesh-shaped (has "coordsets" and "topologies"
// children), whatever the children are named; otherwise it is treated as
// a single domain.
func Domains(meshOrDomains *Node) []*Node {
	if meshOrDomains.NumChildren() > 0 {
		allMeshShaped := true
		for _, name := range meshOrDomains.ChildNames() {
			c, _ := meshOrDomains.Child(name)
			if !isMeshShaped(c) {
				allMeshShaped = false
				break
			}
		}
		if allMeshShaped && !isMeshShaped(meshOrDomains) {
			doms := make([]*Node, 0, meshOrDomains.NumChildren())
			for _, name := range meshOrDomains.ChildNames() {
				c, _ := meshOrDomains.Child(name)
				doms = append(doms, c)
			}
			return doms
		}
	}
	return []*Node{meshOrDomains}
}

func isMeshShaped(n *Node) bool {
	_, hasTopo := n.Child("topologies")
	_, hasCS := n.Child("coordsets")
	return hasTopo && hasCS
}
