package commgroup

import (
	"fmt"

	"github.com/notargets/meshpartition/tree"
)

// Local is the trivial size-1 Group used by the serial partitioner, which
// never actually migrates chunks across a process boundary (spec.md
// section 4.5: the serial partitioner's communicate_chunks step is a
// no-op).
type Local struct{}

func (Local) Rank() int { return 0 }
func (Local) Size() int { return 1 }

func (Local) AllreduceSumInt64(v int64) (int64, error)  { return v, nil }
func (Local) AllreduceMaxUint32(v uint32) (uint32, error) { return v, nil }

func (Local) AllreduceMaxLoc(value int64) (int64, int, error) { return value, 0, nil }

func (Local) AllgatherChunkInfo(local []ChunkInfo) ([]ChunkInfo, []int, error) {
	return local, []int{len(local)}, nil
}

func (Local) AllgatherInt32(local []int32) ([]int32, []int, error) {
	return local, []int{len(local)}, nil
}

func (Local) ISend(mesh *tree.Node, dest int, tag int) error {
	return fmt.Errorf("commgroup: Local has no peer to send to (dest %d)", dest)
}

func (Local) IRecv(source int, tag int) (<-chan *tree.Node, error) {
	return nil, fmt.Errorf("commgroup: Local has no peer to receive from (source %d)", source)
}

func (Local) Wait(peer int, tag int) error {
	return fmt.Errorf("commgroup: Local has no pending transfers")
}
