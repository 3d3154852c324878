// Package commgroup implements the process-group transport abstraction
// the parallel partitioner uses for its collectives and point-to-point
// chunk migration (spec.md section 4.6), modeled on an MPI-like minimal
// interface.
package commgroup

import "github.com/notargets/meshpartition/tree"

// ChunkInfo is the per-chunk record gathered during map_chunks' global
// mapping step (spec.md section 4.6): how large a chunk is and where it
// currently lives.
type ChunkInfo struct {
	NumElements       int64
	SourceRank        int32
	SourceIndex       int32
	DestinationRank   int32
	DestinationDomain int32
}

// Group is the minimal MPI-like surface the parallel partitioner needs:
// rank/size queries, a handful of collectives, and tag-addressed
// non-blocking point-to-point chunk transfer.
type Group interface {
	Rank() int
	Size() int

	// AllreduceSumInt64 returns the sum of v across every rank.
	AllreduceSumInt64(v int64) (int64, error)

	// AllreduceMaxUint32 returns the maximum of v across every rank.
	AllreduceMaxUint32(v uint32) (uint32, error)

	// AllreduceMaxLoc returns the maximum value across every rank and the
	// rank that holds it, ties broken toward the lowest rank.
	AllreduceMaxLoc(value int64) (maxValue int64, atRank int, err error)

	// AllgatherChunkInfo returns every rank's local slice concatenated in
	// rank order, plus the per-rank counts (so callers can recover
	// per-rank offsets).
	AllgatherChunkInfo(local []ChunkInfo) (all []ChunkInfo, counts []int, err error)

	// AllgatherInt32 returns every rank's local slice concatenated in rank
	// order, plus the per-rank counts. Used by count_targets (spec.md
	// section 4.6) to gather every rank's local selections' destination
	// domain ids.
	AllgatherInt32(local []int32) (all []int32, counts []int, err error)

	// ISend starts a non-blocking send of mesh to dest tagged tag. Wait
	// must be called with the same (dest, tag) before the pair may be
	// reused.
	ISend(mesh *tree.Node, dest int, tag int) error

	// IRecv starts a non-blocking receive from source tagged tag,
	// returning a channel that yields the decoded node once the matching
	// send has delivered it. Reading that channel completes the receive.
	IRecv(source int, tag int) (<-chan *tree.Node, error)

	// Wait blocks until the send registered for (peer, tag) completes. It
	// does not track receives.
	Wait(peer int, tag int) error
}

// TagBase offsets chunk-migration tags away from any tags a caller might
// use for other purposes (spec.md section 4.6: "TAG_BASE + global chunk
// index").
const TagBase = 1 << 16
