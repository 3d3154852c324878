package parallel

import (
	"github.com/notargets/meshpartition/commgroup"
	"github.com/notargets/meshpartition/tree"
)

// Partition is the public parallel repartitioning entry point (spec.md
// section 4.6): every rank in comm calls Partition with its local
// mesh/options/output; the combined domains this rank ends up owning
// are written into its own output tree.
func Partition(mesh, options, output *tree.Node, comm commgroup.Group) error {
	p := &Partitioner{Comm: comm}
	if err := p.Initialize(mesh, options); err != nil {
		return err
	}
	return p.Execute(output)
}
