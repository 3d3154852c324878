// Package parallel implements the parallel mesh partitioner (spec.md
// section 4.6): the same initialize/split/map/extract/communicate/
// combine/emit algorithm as the serial partitioner, but with the
// counting, mapping, and communication steps made global across a
// commgroup.Group of cooperating ranks.
package parallel

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/meshpartition/chunkextract"
	"github.com/notargets/meshpartition/combine"
	"github.com/notargets/meshpartition/commgroup"
	"github.com/notargets/meshpartition/errs"
	"github.com/notargets/meshpartition/selection"
	"github.com/notargets/meshpartition/splitdriver"
	"github.com/notargets/meshpartition/tree"
)

// Partitioner holds this rank's share of the repartitioning state
// (spec.md section 3, "Partitioner state," parallel variant).
type Partitioner struct {
	Rank, Size     int
	Target         uint32
	Meshes         []*tree.Node // this rank's local domains only
	Selections     []selection.Selection
	SelectedFields []string
	Comm           commgroup.Group
	Logger         *slog.Logger
}

// Initialize mirrors partition.Partitioner.Initialize, but resolves
// Target globally via optionsGetTarget once Selections is known (spec.md
// section 4.6, "options_get_target"/"count_targets").
func (p *Partitioner) Initialize(mesh, options *tree.Node) error {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Comm == nil {
		return errs.NewOptionError("parallel.Partitioner requires a commgroup.Group")
	}
	p.Rank = p.Comm.Rank()
	p.Size = p.Comm.Size()

	p.Meshes = tree.Domains(mesh)

	factory := selection.NewFactory()
	parsed, err := parseOptions(options, factory)
	if err != nil {
		return err
	}
	p.SelectedFields = parsed.selectedFields

	if len(parsed.selections) > 0 {
		for _, sel := range parsed.selections {
			if sel.Domain() < 0 || int(sel.Domain()) >= len(p.Meshes) {
				return &errs.InapplicableSelectionError{Kind: sel.Kind(), Topology: sel.Topology()}
			}
			if !sel.Applicable(p.Meshes[sel.Domain()]) {
				return &errs.InapplicableSelectionError{Kind: sel.Kind(), Topology: sel.Topology()}
			}
		}
		p.Selections = parsed.selections
	} else {
		p.Selections = make([]selection.Selection, 0, len(p.Meshes))
		for i, m := range p.Meshes {
			sel, err := selection.CreateAllElements(m, int64(i))
			if err != nil {
				return fmt.Errorf("parallel: %w", err)
			}
			p.Selections = append(p.Selections, sel)
		}
	}

	target, err := p.optionsGetTarget(parsed.target)
	if err != nil {
		return err
	}
	p.Target = target
	return nil
}

// optionsGetTarget resolves Target globally (spec.md section 4.6,
// "options_get_target"): an AllreduceMax over each rank's locally
// configured target, where a rank that left "target" unset contributes 0.
// If no rank configured a target, falls back to countTargets.
func (p *Partitioner) optionsGetTarget(localTarget uint32) (uint32, error) {
	global, err := p.Comm.AllreduceMaxUint32(localTarget)
	if err != nil {
		return 0, err
	}
	if global == 0 {
		return p.countTargets()
	}
	return global, nil
}

// countTargets computes the default target when none is configured
// anywhere (spec.md section 4.6, "count_targets"): all-gather every
// rank's local selections' destination domain ids and count
// (#FREE selections) + (#distinct reserved ids).
func (p *Partitioner) countTargets() (uint32, error) {
	local := make([]int32, len(p.Selections))
	for i, sel := range p.Selections {
		local[i] = sel.DestinationDomain()
	}
	all, _, err := p.Comm.AllgatherInt32(local)
	if err != nil {
		return 0, &errs.TransportFailure{Op: "allgather-int32", Err: err}
	}
	free := 0
	reserved := roaring.New()
	for _, d := range all {
		if d == selection.FreeDomain {
			free++
		} else {
			reserved.Add(uint32(d))
		}
	}
	return uint32(free) + uint32(reserved.GetCardinality()), nil
}

// TotalSelections sums each rank's local selection count (spec.md
// section 4.6, "total_selections").
func (p *Partitioner) TotalSelections() (int64, error) {
	return p.Comm.AllreduceSumInt64(int64(len(p.Selections)))
}

func (p *Partitioner) localLargest() (int64, int) {
	var bestLen int64 = -1
	bestIdx := 0
	for i, sel := range p.Selections {
		n, err := sel.Length(p.Meshes[sel.Domain()])
		if err != nil {
			continue
		}
		if n > bestLen {
			bestLen, bestIdx = n, i
		}
	}
	return bestLen, bestIdx
}

// LargestSelection finds the globally largest selection via
// AllreduceMaxLoc, ties broken toward the lowest rank (spec.md section
// 4.6, "largest_selection").
func (p *Partitioner) LargestSelection() (int, int, error) {
	localLen, localIdx := p.localLargest()
	_, winRank, err := p.Comm.AllreduceMaxLoc(localLen)
	if err != nil {
		return 0, 0, err
	}
	if winRank == p.Rank {
		return winRank, localIdx, nil
	}
	return winRank, 0, nil
}

// SplitAt is a no-op on every rank except the one that owns the
// selection; every rank still calls it (SPMD), mirroring the way the
// real MPI-backed original runs the identical control flow on every
// process.
func (p *Partitioner) SplitAt(rank, index int) error {
	if rank != p.Rank {
		return nil
	}
	sel := p.Selections[index]
	mesh := p.Meshes[sel.Domain()]
	n, err := sel.Length(mesh)
	if err != nil {
		return err
	}
	if n <= 1 {
		p.Logger.Warn((&errs.UnsplittableWarning{SelectionIndex: index, Length: n}).Error(), "rank", rank)
		return &splitdriver.UnsplittableWarning{Rank: rank, Index: index}
	}
	children, err := sel.Partition(mesh)
	if err != nil {
		return &splitdriver.UnsplittableWarning{Rank: rank, Index: index}
	}
	replaced := make([]selection.Selection, 0, len(p.Selections)-1+len(children))
	replaced = append(replaced, p.Selections[:index]...)
	replaced = append(replaced, children...)
	replaced = append(replaced, p.Selections[index+1:]...)
	p.Selections = replaced
	return nil
}

// Execute runs the global map/extract/communicate/combine/emit phases
// (spec.md section 4.6). Every rank must call Execute; the owning rank
// for each destination domain writes that domain's combined mesh into
// its own output tree (other ranks' output trees receive nothing for
// domains they do not own).
func (p *Partitioner) Execute(output *tree.Node) error {
	if err := splitdriver.Run(p, p.Target); err != nil {
		return err
	}
	total, err := p.TotalSelections()
	if err != nil {
		return err
	}
	if total < int64(p.Target) {
		p.Logger.Warn("target domain count not reached globally", "target", p.Target, "reached", total)
	}

	global, offset, err := p.mapChunks()
	if err != nil {
		return err
	}

	owned, err := p.communicateChunks(global, offset)
	if err != nil {
		return err
	}

	ids := make([]int32, 0, len(owned))
	for id := range owned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		combined, err := combine.Combine(int64(id), owned[id])
		if err != nil {
			return err
		}
		output.AddChild(fmt.Sprintf("domain%d", id)).SetExternal(combined)
	}
	return nil
}

// mapChunks implements spec.md section 4.6's global map_chunks: gather
// every rank's chunk_info, reserve/generate or absorb into the target
// domain-id set, greedily assign free chunks to the least-loaded domain
// (lowest-id tie break), then greedily assign each domain to the
// least-loaded rank, processing domains in descending size order
// (lowest-rank tie break).
func (p *Partitioner) mapChunks() ([]commgroup.ChunkInfo, []int, error) {
	local := make([]commgroup.ChunkInfo, len(p.Selections))
	for i, sel := range p.Selections {
		n, err := sel.Length(p.Meshes[sel.Domain()])
		if err != nil {
			return nil, nil, err
		}
		local[i] = commgroup.ChunkInfo{
			NumElements:       n,
			SourceRank:        int32(p.Rank),
			SourceIndex:       int32(i),
			DestinationRank:   sel.DestinationRank(),
			DestinationDomain: sel.DestinationDomain(),
		}
	}
	global, counts, err := p.Comm.AllgatherChunkInfo(local)
	if err != nil {
		return nil, nil, err
	}
	offset := make([]int, len(counts))
	for r := 1; r < len(counts); r++ {
		offset[r] = offset[r-1] + counts[r-1]
	}

	reserved := roaring.New()
	loads := make(map[int32]int64)
	for _, ci := range global {
		if ci.DestinationDomain != selection.FreeDomain {
			reserved.Add(uint32(ci.DestinationDomain))
		}
	}
	reservedCount := int(reserved.GetCardinality())
	if reservedCount <= int(p.Target) {
		needed := int(p.Target) - reservedCount
		candidate := int32(0)
		for n := 0; n < needed; {
			if !reserved.Contains(uint32(candidate)) {
				reserved.Add(uint32(candidate))
				n++
			}
			candidate++
		}
	} else {
		p.Logger.Warn((&errs.TargetMismatchWarning{Reserved: reservedCount, Target: p.Target}).Error())
	}
	ids := make([]int32, 0, reserved.GetCardinality())
	it := reserved.Iterator()
	for it.HasNext() {
		id := int32(it.Next())
		ids = append(ids, id)
		loads[id] = 0
	}
	for _, ci := range global {
		if ci.DestinationDomain != selection.FreeDomain {
			loads[ci.DestinationDomain] += ci.NumElements
		}
	}
	for i := range global {
		if global[i].DestinationDomain != selection.FreeDomain {
			continue
		}
		best := ids[0]
		for _, id := range ids[1:] {
			if loads[id] < loads[best] {
				best = id
			}
		}
		global[i].DestinationDomain = best
		loads[best] += global[i].NumElements
	}

	domainSize := make(map[int32]int64)
	for _, ci := range global {
		domainSize[ci.DestinationDomain] += ci.NumElements
	}
	domainsBySize := make([]int32, 0, len(domainSize))
	for id := range domainSize {
		domainsBySize = append(domainsBySize, id)
	}
	sort.Slice(domainsBySize, func(i, j int) bool {
		if domainSize[domainsBySize[i]] != domainSize[domainsBySize[j]] {
			return domainSize[domainsBySize[i]] > domainSize[domainsBySize[j]]
		}
		return domainsBySize[i] < domainsBySize[j]
	})
	rankLoad := make([]int64, p.Size)
	domainRank := make(map[int32]int32, len(domainsBySize))
	for _, id := range domainsBySize {
		best := 0
		for r := 1; r < p.Size; r++ {
			if rankLoad[r] < rankLoad[best] {
				best = r
			}
		}
		domainRank[id] = int32(best)
		rankLoad[best] += domainSize[id]
	}
	for i := range global {
		if global[i].DestinationRank == selection.FreeRank {
			global[i].DestinationRank = domainRank[global[i].DestinationDomain]
		}
	}

	for i, sel := range p.Selections {
		g := global[offset[p.Rank]+i]
		sel.SetDestinationDomain(g.DestinationDomain)
		sel.SetDestinationRank(g.DestinationRank)
	}

	return global, offset, nil
}

// communicateChunks extracts every local selection, keeps what stays on
// this rank, and sends/receives the rest over p.Comm, driven to
// completion by a single errgroup barrier (spec.md section 4.6,
// "communicate_chunks"). It returns the meshes this rank owns, grouped
// by destination domain.
func (p *Partitioner) communicateChunks(global []commgroup.ChunkInfo, offset []int) (map[int32][]*tree.Node, error) {
	local := make([]*tree.Node, len(p.Selections))
	for i, sel := range p.Selections {
		c, err := chunkextract.Extract(sel, p.Meshes[sel.Domain()], chunkextract.Options{SelectedFields: p.SelectedFields})
		if err != nil {
			p.Logger.Warn("chunk extraction failed, omitting", "selection", i, "err", err)
			continue
		}
		local[i] = c.Mesh
	}

	owned := make(map[int32][]*tree.Node)
	var mu sync.Mutex
	var g errgroup.Group

	myOffset := offset[p.Rank]
	for i, mesh := range local {
		if mesh == nil {
			continue
		}
		gi := global[myOffset+i]
		if gi.DestinationRank == int32(p.Rank) {
			mu.Lock()
			owned[gi.DestinationDomain] = append(owned[gi.DestinationDomain], mesh)
			mu.Unlock()
			continue
		}
		mesh, dest, tag := mesh, int(gi.DestinationRank), int(commgroup.TagBase)+myOffset+i
		g.Go(func() error {
			if err := p.Comm.ISend(mesh, dest, tag); err != nil {
				return &errs.TransportFailure{Op: "send", Err: err}
			}
			if err := p.Comm.Wait(dest, tag); err != nil {
				return &errs.TransportFailure{Op: "send-wait", Err: err}
			}
			return nil
		})
	}

	for gi_, ci := range global {
		gi := gi_
		if ci.DestinationRank != int32(p.Rank) || int(ci.SourceRank) == p.Rank {
			continue
		}
		source, tag := int(ci.SourceRank), int(commgroup.TagBase)+gi
		g.Go(func() error {
			ch, err := p.Comm.IRecv(source, tag)
			if err != nil {
				return &errs.TransportFailure{Op: "recv", Err: err}
			}
			node := <-ch
			mu.Lock()
			owned[ci.DestinationDomain] = append(owned[ci.DestinationDomain], node)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return owned, nil
}
