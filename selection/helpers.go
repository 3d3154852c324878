package selection

import "github.com/notargets/meshpartition/topology"
import "github.com/notargets/meshpartition/tree"

func topoLength(topo *tree.Node) (int64, error) {
	return topology.Length(topo)
}
