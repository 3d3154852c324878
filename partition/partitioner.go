// Package partition implements the serial mesh partitioner (spec.md
// section 4.5): initialize, iteratively split, map, extract, combine,
// and emit output domains, all within a single process.
package partition

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/notargets/meshpartition/chunkextract"
	"github.com/notargets/meshpartition/combine"
	"github.com/notargets/meshpartition/commgroup"
	"github.com/notargets/meshpartition/errs"
	"github.com/notargets/meshpartition/selection"
	"github.com/notargets/meshpartition/splitdriver"
	"github.com/notargets/meshpartition/tree"
)

// Partitioner holds the state the serial repartitioning algorithm
// operates on (spec.md section 3, "Partitioner state").
type Partitioner struct {
	Rank, Size     int
	Target         uint32
	Meshes         []*tree.Node // borrowed, one per source domain
	Selections     []selection.Selection
	SelectedFields []string
	Comm           commgroup.Group
	Logger         *slog.Logger
}

// Initialize resolves mesh into per-domain Meshes, parses options, and
// populates Selections, either from options["selections"] or, absent
// those, one whole-mesh selection per domain (spec.md section 4.5 step
// 1).
func (p *Partitioner) Initialize(mesh *tree.Node, options *tree.Node) error {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Comm == nil {
		p.Comm = commgroup.Local{}
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
				return fmt.Errorf("partition: %w", err)
			}
			p.Selections = append(p.Selections, sel)
		}
	}

	if parsed.targetSet {
		p.Target = parsed.target
	} else {
		// spec.md section 4.5: "target defaults to the current number of
		// selections" when the option is absent.
		p.Target = uint32(len(p.Selections))
	}
	return nil
}

// TotalSelections, LargestSelection, and SplitAt satisfy
// splitdriver.LargestSelector for the single-rank case (spec.md section
// 4.4).
func (p *Partitioner) TotalSelections() (int64, error) {
	return int64(len(p.Selections)), nil
}

func (p *Partitioner) LargestSelection() (int, int, error) {
	best := -1
	var bestLen int64 = -1
	for i, sel := range p.Selections {
		n, err := sel.Length(p.Meshes[sel.Domain()])
		if err != nil {
			return 0, 0, err
		}
		if n > bestLen {
			bestLen, best = n, i
		}
	}
	if best < 0 {
		return 0, 0, fmt.Errorf("partition: no selections to split")
	}
	return 0, best, nil
}

func (p *Partitioner) SplitAt(rank, index int) error {
	sel := p.Selections[index]
	mesh := p.Meshes[sel.Domain()]
	n, err := sel.Length(mesh)
	if err != nil {
		return err
	}
	if n <= 1 {
		p.Logger.Warn((&errs.UnsplittableWarning{SelectionIndex: index, Length: n}).Error())
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

// Execute runs the split loop (splitdriver.Run) and then maps, extracts,
// combines, and emits into output (spec.md section 4.5). There is no
// communicate step: at single rank every chunk is already local.
func (p *Partitioner) Execute(output *tree.Node) error {
	if err := splitdriver.Run(p, p.Target); err != nil {
		return err
	}
	total, _ := p.TotalSelections()
	if total < int64(p.Target) {
		p.Logger.Warn("target domain count not reached", "target", p.Target, "reached", total)
	}

	lengths := make([]int64, len(p.Selections))
	for i, sel := range p.Selections {
		n, err := sel.Length(p.Meshes[sel.Domain()])
		if err != nil {
			return err
		}
		lengths[i] = n
	}
	mapChunks(p.Selections, lengths, p.Target, p.Logger)

	chunksByDomain := make(map[int32][]*tree.Node)
	for i, sel := range p.Selections {
		c, err := chunkextract.Extract(sel, p.Meshes[sel.Domain()], chunkextract.Options{SelectedFields: p.SelectedFields})
		if err != nil {
			p.Logger.Warn("chunk extraction failed, omitting", "selection", i, "err", err)
			continue
		}
		dest := sel.DestinationDomain()
		chunksByDomain[dest] = append(chunksByDomain[dest], c.Mesh)
	}

	return combineAndEmit(chunksByDomain, output)
}

// mapChunks assigns a destination domain to every selection lacking one,
// using the reserved/generate-or-absorb rule from spec.md section 4.6
// ("map_chunks"), specialized to a single rank (no cross-rank gather is
// needed since everything is already local).
func mapChunks(sels []selection.Selection, lengths []int64, target uint32, logger *slog.Logger) {
	reserved := roaring.New()
	loads := make(map[int32]int64)
	var free []int
	for i, sel := range sels {
		if sel.DestinationDomain() != selection.FreeDomain {
			d := uint32(sel.DestinationDomain())
			reserved.Add(d)
		} else {
			free = append(free, i)
		}
	}
	reservedCount := int(reserved.GetCardinality())

	if reservedCount <= int(target) {
		needed := int(target) - reservedCount
		candidate := int32(0)
		for n := 0; n < needed; {
			if !reserved.Contains(uint32(candidate)) {
				reserved.Add(uint32(candidate))
				loads[candidate] = 0
				n++
			}
			candidate++
		}
	} else {
		logger.Warn((&errs.TargetMismatchWarning{Reserved: reservedCount, Target: target}).Error())
	}
	it := reserved.Iterator()
	for it.HasNext() {
		id := int32(it.Next())
		if _, ok := loads[id]; !ok {
			loads[id] = 0
		}
	}

	ids := make([]int32, 0, len(loads))
	for id := range loads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, i := range free {
		sel := sels[i]
		n := lengths[i]
		best := ids[0]
		for _, id := range ids[1:] {
			if loads[id] < loads[best] {
				best = id
			}
		}
		sel.SetDestinationDomain(best)
		loads[best] += n
	}
}

func combineAndEmit(chunksByDomain map[int32][]*tree.Node, output *tree.Node) error {
	ids := make([]int32, 0, len(chunksByDomain))
	for id := range chunksByDomain {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		combined, err := combine.Combine(int64(id), chunksByDomain[id])
		if err != nil {
			return err
		}
		output.AddChild(fmt.Sprintf("domain%d", id)).SetExternal(combined)
	}
	return nil
}
