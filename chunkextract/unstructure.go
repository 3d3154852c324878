package chunkextract

import (
	"github.com/notargets/meshpartition/selection"
	"github.com/notargets/meshpartition/tree"
)

// copyState copies the source mesh's state group into dst, overriding
// domain_id with the selection's assigned destination domain when one has
// been set, otherwise its source domain (spec.md section 4.2 step 8).
func copyState(src, dst *tree.Node, sel selection.Selection) {
	state, ok := src.Child("state")
	if ok {
		if cycle, ok := state.Child("cycle"); ok {
			dst.State().AddChild("cycle").SetExternal(cycle)
		}
		if time, ok := state.Child("time"); ok {
			dst.State().AddChild("time").SetExternal(time)
		}
	}
	domainID := sel.Domain()
	if sel.DestinationDomain() != selection.FreeDomain {
		domainID = int64(sel.DestinationDomain())
	}
	dst.State().AddChild("domain_id").SetInt64Array([]int64{domainID})
}
