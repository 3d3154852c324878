package partition

import "github.com/notargets/meshpartition/tree"

// Partition is the public serial repartitioning entry point (spec.md
// section 6): repartition mesh per options into output.
func Partition(mesh, options, output *tree.Node) error {
	p := &Partitioner{}
	if err := p.Initialize(mesh, options); err != nil {
		return err
	}
	return p.Execute(output)
}
