// Package tree - selection model
//
// The per-record Selected flag is the single source of truth. No aggregate
// (count, mask) is ever stored beside it; counts are recomputed by traversal
// on every call, so they cannot desynchronize from the flags.
package tree

import "github.com/ephysio/epictree/internal/epoch"

// SetSelected sets the selection flag on records reachable from the node.
//
// With recursive true, every record under the node is flagged. With
// recursive false, only records the node owns directly are flagged; interior
// nodes own no records, so the call is a no-op there.
func (n *Node) SetSelected(value bool, recursive bool) {
	if !recursive {
		for _, e := range n.epochs {
			e.Selected = value
		}
		return
	}
	for _, leaf := range n.LeafNodes() {
		for _, e := range leaf.epochs {
			e.Selected = value
		}
	}
}

// AllEpochs collects leaf epoch lists under the node in depth-first order,
// filtering by the selection flag when onlySelected is true.
func (n *Node) AllEpochs(onlySelected bool) []*epoch.Epoch {
	var out []*epoch.Epoch
	for _, leaf := range n.LeafNodes() {
		for _, e := range leaf.epochs {
			if onlySelected && !e.Selected {
				continue
			}
			out = append(out, e)
		}
	}
	return out
}

// EpochCount returns the number of records under the node.
func (n *Node) EpochCount() int {
	return len(n.AllEpochs(false))
}

// SelectedCount returns the number of selected records under the node.
func (n *Node) SelectedCount() int {
	return len(n.AllEpochs(true))
}

// Epochs returns the records the node owns directly. Non-empty only on
// leaves. The returned slice is shared; callers must treat it as read-only.
func (n *Node) Epochs() []*epoch.Epoch {
	return n.epochs
}
