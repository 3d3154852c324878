package commgroup

import (
	"fmt"
	"sync"

	"github.com/notargets/meshpartition/schemawire"
	"github.com/notargets/meshpartition/tree"
)

// InProcessMesh is a goroutine-and-channel simulation of an N-process
// group, letting the parallel partitioner's collectives and chunk
// migration be exercised and tested without a real MPI/network
// transport. Point-to-point transfers are round-tripped through
// schemawire so the codec itself is exercised on every hop.
type InProcessMesh struct {
	hub  *ipmHub
	rank int
}

type roundState struct {
	values map[int]interface{}
	done   chan struct{}
}

type ipmHub struct {
	size int

	mu     sync.Mutex
	rounds map[string]*roundState

	mailbox     map[[2]int]chan *tree.Node
	pendingSend map[[2]int]chan struct{}
}

// NewInProcessMesh returns size Group views sharing one in-process
// transport hub, indexed by rank.
func NewInProcessMesh(size int) []*InProcessMesh {
	h := &ipmHub{
		size:        size,
		rounds:      make(map[string]*roundState),
		mailbox:     make(map[[2]int]chan *tree.Node),
		pendingSend: make(map[[2]int]chan struct{}),
	}
	out := make([]*InProcessMesh, size)
	for r := 0; r < size; r++ {
		out[r] = &InProcessMesh{hub: h, rank: r}
	}
	return out
}

func (m *InProcessMesh) Rank() int { return m.rank }
func (m *InProcessMesh) Size() int { return m.hub.size }

// exchange is the shared barrier primitive behind every collective: every
// rank contributes a value under op, and the call returns once all size
// ranks have contributed, handing back every rank's contribution.
func (h *ipmHub) exchange(op string, rank int, value interface{}) map[int]interface{} {
	h.mu.Lock()
	rs, ok := h.rounds[op]
	if !ok {
		rs = &roundState{values: make(map[int]interface{}, h.size), done: make(chan struct{})}
		h.rounds[op] = rs
	}
	rs.values[rank] = value
	complete := len(rs.values) == h.size
	if complete {
		delete(h.rounds, op)
		close(rs.done)
	}
	h.mu.Unlock()
	<-rs.done
	return rs.values
}

func (m *InProcessMesh) AllreduceSumInt64(v int64) (int64, error) {
	vals := m.hub.exchange("sum_int64", m.rank, v)
	var sum int64
	for _, x := range vals {
		sum += x.(int64)
	}
	return sum, nil
}

func (m *InProcessMesh) AllreduceMaxUint32(v uint32) (uint32, error) {
	vals := m.hub.exchange("max_uint32", m.rank, v)
	var max uint32
	for _, x := range vals {
		if x.(uint32) > max {
			max = x.(uint32)
		}
	}
	return max, nil
}

func (m *InProcessMesh) AllreduceMaxLoc(value int64) (int64, int, error) {
	vals := m.hub.exchange("max_loc", m.rank, value)
	bestVal := vals[0].(int64)
	bestRank := 0
	for r := 0; r < m.hub.size; r++ {
		v := vals[r].(int64)
		if v > bestVal {
			bestVal, bestRank = v, r
		}
	}
	return bestVal, bestRank, nil
}

func (m *InProcessMesh) AllgatherChunkInfo(local []ChunkInfo) ([]ChunkInfo, []int, error) {
	vals := m.hub.exchange("allgather_chunkinfo", m.rank, local)
	counts := make([]int, m.hub.size)
	var all []ChunkInfo
	for r := 0; r < m.hub.size; r++ {
		v := vals[r].([]ChunkInfo)
		counts[r] = len(v)
		all = append(all, v...)
	}
	return all, counts, nil
}

func (m *InProcessMesh) AllgatherInt32(local []int32) ([]int32, []int, error) {
	vals := m.hub.exchange("allgather_int32", m.rank, local)
	counts := make([]int, m.hub.size)
	var all []int32
	for r := 0; r < m.hub.size; r++ {
		v := vals[r].([]int32)
		counts[r] = len(v)
		all = append(all, v...)
	}
	return all, counts, nil
}

func (h *ipmHub) getMailbox(dest, tag int) chan *tree.Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := [2]int{dest, tag}
	ch, ok := h.mailbox[key]
	if !ok {
		ch = make(chan *tree.Node, 1)
		h.mailbox[key] = ch
	}
	return ch
}

func (m *InProcessMesh) ISend(mesh *tree.Node, dest int, tag int) error {
	msg, err := schemawire.Encode(mesh)
	if err != nil {
		return fmt.Errorf("commgroup: %w", err)
	}
	decoded, err := schemawire.Decode(msg)
	if err != nil {
		return fmt.Errorf("commgroup: %w", err)
	}
	ch := m.hub.getMailbox(dest, tag)
	ack := make(chan struct{})
	key := [2]int{dest, tag}
	m.hub.mu.Lock()
	m.hub.pendingSend[key] = ack
	m.hub.mu.Unlock()
	go func() {
		ch <- decoded
		close(ack)
	}()
	return nil
}

func (m *InProcessMesh) IRecv(source int, tag int) (<-chan *tree.Node, error) {
	return m.hub.getMailbox(m.rank, tag), nil
}

func (m *InProcessMesh) Wait(peer int, tag int) error {
	key := [2]int{peer, tag}
	m.hub.mu.Lock()
	ack, ok := m.hub.pendingSend[key]
	if ok {
		delete(m.hub.pendingSend, key)
	}
	m.hub.mu.Unlock()
	if !ok {
		return nil
	}
	<-ack
	return nil
}
