package tree

import "testing"

func singleDomainMesh() *Node {
	m := NewNode()
	m.Topologies()
	m.Coordsets()
	return m
}

func TestDomainsSingleMesh(t *testing.T) {
	m := singleDomainMesh()
	doms := Domains(m)
	if len(doms) != 1 || doms[0] != m {
		t.Fatalf("expected a single domain equal to m, got %v", doms)
	}
}

func TestDomainsMultiMesh(t *testing.T) {
	root := NewNode()
	d0 := root.AddChild("domain0")
	d0.Topologies()
	d0.Coordsets()
	d1 := root.AddChild("domain1")
	d1.Topologies()
	d1.Coordsets()

	doms := Domains(root)
	if len(doms) != 2 {
		t.Fatalf("expected 2 domains, got %d", len(doms))
	}
	if doms[0] != d0 || doms[1] != d1 {
		t.Fatal("Domains should preserve child insertion order")
	}
}

func TestTopologyCoordsetAndType(t *testing.T) {
	topo := NewNode()
	topo.AddChild("coordset").SetString("coords")
	topo.AddChild("type").SetString("unstructured")

	name, err := TopologyCoordset(topo)
	if err != nil || name != "coords" {
		t.Fatalf("TopologyCoordset() = %q, %v", name, err)
	}
	if got := TopologyType(topo); got != "unstructured" {
		t.Fatalf("TopologyType() = %q", got)
	}
}

func TestFieldAssociationAndTopology(t *testing.T) {
	field := NewNode()
	field.AddChild("association").SetString(AssociationVertex)
	field.AddChild("topology").SetString("mesh")

	if got := FieldAssociation(field); got != AssociationVertex {
		t.Fatalf("FieldAssociation() = %q", got)
	}
	if got := FieldTopology(field); got != "mesh" {
		t.Fatalf("FieldTopology() = %q", got)
	}
}
