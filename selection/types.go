// Package selection implements the selection algebra (spec.md section
// 4.1): polymorphic region descriptors that know how to test
// applicability to a mesh, measure their length, split into smaller
// selections, and enumerate element ids for a topology.
//
// Per spec.md's design note (section 9), this is modeled as a tagged sum
// via a small interface rather than a class hierarchy: each kind is a
// distinct Go type satisfying Selection, and a []Selection is the moral
// equivalent of a vector of owned trait objects.
package selection

import (
	"fmt"
	"io"

	"github.com/notargets/meshpartition/tree"
)

// Tristate mirrors spec.md's {unknown, false, true} whole-coverage cache.
type Tristate uint8

const (
	WholeUnknown Tristate = iota
	WholeFalse
	WholeTrue
)

// FreeRank and FreeDomain are the sentinels for an unassigned destination
// rank/domain (spec.md GLOSSARY "FREE").
const (
	FreeRank   int32 = -1
	FreeDomain int32 = -1
)

// Selection is the common interface every selection kind implements
// (spec.md section 4.1).
type Selection interface {
	// Init parses kind-specific options from the options tree. Returns an
	// error (wrapped as *errs.OptionError by the caller) on malformed
	// input.
	Init(options *tree.Node) error

	// Applicable reports whether this selection's kind makes sense for
	// the referenced topology in mesh.
	Applicable(mesh *tree.Node) bool

	// Length returns the number of elements the selection currently
	// covers.
	Length(mesh *tree.Node) (int64, error)

	// Partition splits the selection into two or more sub-selections
	// whose element-id union equals this selection's and whose lengths
	// are each strictly less than this selection's length (spec.md
	// section 4.4's termination requirement).
	Partition(mesh *tree.Node) ([]Selection, error)

	// ElementIDsForTopo returns the element ids, within idRange
	// inclusive, that this selection covers in the given topology.
	ElementIDsForTopo(topo *tree.Node, idRange [2]int64) ([]int64, error)

	// DetermineIsWhole reports whether the selection covers every
	// element of its topology. Callers should prefer IsWhole, which
	// caches this result.
	DetermineIsWhole(mesh *tree.Node) (bool, error)

	Print(w io.Writer)

	Kind() string
	Domain() int64
	SetDomain(int64)
	DestinationRank() int32
	SetDestinationRank(int32)
	DestinationDomain() int32
	SetDestinationDomain(int32)
	Topology() string
	SetTopology(string)
	PreserveMapping() bool
	SetPreserveMapping(bool)
	Whole() Tristate

	// cacheWhole is unexported so only in-package kinds can satisfy
	// Selection, matching the closed tagged-sum design (spec.md section
	// 9); it is used by IsWhole to populate the cache.
	cacheWhole(Tristate)
}

// base holds the fields common to every selection kind (spec.md section
// 3, "Selection").
type base struct {
	domain          int64
	destRank        int32
	destDomain      int32
	topology        string
	preserveMapping bool
	whole           Tristate
}

func newBase() base {
	return base{destRank: FreeRank, destDomain: FreeDomain, whole: WholeUnknown}
}

func (b *base) Domain() int64             { return b.domain }
func (b *base) SetDomain(v int64)         { b.domain = v }
func (b *base) DestinationRank() int32    { return b.destRank }
func (b *base) SetDestinationRank(v int32) { b.destRank = v }
func (b *base) DestinationDomain() int32   { return b.destDomain }
func (b *base) SetDestinationDomain(v int32) {
	b.destDomain = v
}
func (b *base) Topology() string            { return b.topology }
func (b *base) SetTopology(v string)        { b.topology = v }
func (b *base) PreserveMapping() bool       { return b.preserveMapping }
func (b *base) SetPreserveMapping(v bool)   { b.preserveMapping = v }
func (b *base) Whole() Tristate             { return b.whole }
func (b *base) cacheWhole(v Tristate)       { b.whole = v }

func (b *base) initCommon(options *tree.Node) error {
	if c, ok := options.Child("domain"); ok {
		vals := c.Int64Array()
		if len(vals) == 1 {
			b.domain = vals[0]
		}
	}
	if c, ok := options.Child("topology"); ok {
		b.topology = c.String()
	}
	if c, ok := options.Child("destination_rank"); ok {
		vals := c.Int32Array()
		if len(vals) == 1 {
			b.destRank = vals[0]
		}
	} else {
		b.destRank = FreeRank
	}
	if c, ok := options.Child("destination_domain"); ok {
		vals := c.Int32Array()
		if len(vals) == 1 {
			b.destDomain = vals[0]
		}
	} else {
		b.destDomain = FreeDomain
	}
	if c, ok := options.Child("preserve_mapping"); ok {
		b.preserveMapping = c.String() == "true"
	}
	return nil
}

// IsWhole returns the cached whole-coverage result, computing and caching
// it via DetermineIsWhole on first use (spec.md section 4.1: "cached in
// whole to avoid recomputation").
func IsWhole(sel Selection, mesh *tree.Node) (bool, error) {
	if sel.Whole() != WholeUnknown {
		return sel.Whole() == WholeTrue, nil
	}
	whole, err := sel.DetermineIsWhole(mesh)
	if err != nil {
		return false, err
	}
	if whole {
		sel.cacheWhole(WholeTrue)
	} else {
		sel.cacheWhole(WholeFalse)
	}
	return whole, nil
}

// SelectedTopology resolves the Node for sel's referenced topology within
// mesh, defaulting to the first topology if none was named.
func SelectedTopology(sel Selection, mesh *tree.Node) (*tree.Node, error) {
	topos := mesh.AddChild("topologies")
	name := sel.Topology()
	if name == "" {
		if topos.NumChildren() == 0 {
			return nil, fmt.Errorf("selection: mesh has no topologies")
		}
		return topos.ChildByIndex(0), nil
	}
	t, ok := topos.Child(name)
	if !ok {
		return nil, fmt.Errorf("selection: mesh has no topology named %q", name)
	}
	return t, nil
}

// inheritInto copies the parent-selection fields every Partition
// implementation must propagate to its children (spec.md section 4.1).
func inheritInto(parent Selection, child Selection) {
	child.SetDomain(parent.Domain())
	child.SetDestinationRank(parent.DestinationRank())
	child.SetDestinationDomain(parent.DestinationDomain())
	child.SetTopology(parent.Topology())
	child.SetPreserveMapping(parent.PreserveMapping())
}
