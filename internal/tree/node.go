// Package tree provides the epoch hierarchy: partitioning, navigation,
// selection, and per-node annotations.
//
// This file defines the Node data model and the read-only navigation API.
// A node represents one grouping level; leaves hold references into the
// record store, interior nodes own their children. The parent link is a
// plain non-owning back-reference.
package tree

import (
	"strings"

	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/errors"
	"github.com/ephysio/epictree/internal/splitter"
)

// Sentinel display values for nodes without a real split value.
const (
	RootValue    = "Root"
	UnknownValue = "Unknown"
)

// Node is one grouping level in the epoch hierarchy.
type Node struct {
	// SplitKey is the name of the rule that produced this node.
	// Empty for the root.
	SplitKey string

	// SplitValue is the scalar key of this bucket. The empty key marks
	// the fallback bucket for records with a missing grouping value.
	SplitValue splitter.Key

	parent   *Node
	children []*Node

	// epochs is non-empty only on leaves. References into the record
	// store, never copies.
	epochs []*epoch.Epoch

	// custom is the node's private annotation map. Lazily allocated.
	custom map[string]any

	// store is set on the root only; the root owns the record store.
	store *epoch.RecordStore

	// leaves memoizes the depth-first leaf collection. Valid for the
	// lifetime of the build; the hierarchy is immutable after Build.
	leaves []*Node
}

// =============================================================================
// Navigation
// =============================================================================

// ChildrenLen returns the number of direct children.
func (n *Node) ChildrenLen() int {
	return len(n.children)
}

// ChildAt returns the i-th child, 1-based. Out-of-range indices are a caller
// error.
func (n *Node) ChildAt(i int) (*Node, error) {
	if i < 1 || i > len(n.children) {
		return nil, errors.Wrapf(errors.ErrIndexOutOfRange, "child %d of %d", i, len(n.children))
	}
	return n.children[i-1], nil
}

// ChildBySplitValue scans direct children for the given split value.
// Returns nil if absent; a missing bucket is not an error.
func (n *Node) ChildBySplitValue(v splitter.Key) *Node {
	for _, child := range n.children {
		if child.SplitValue.Equal(v) {
			return child
		}
	}
	return nil
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// ParentAt returns the ancestor levels steps up. ParentAt(0) is the node
// itself. Walking past the root is a caller error.
func (n *Node) ParentAt(levels int) (*Node, error) {
	if levels < 0 {
		return nil, errors.Wrapf(errors.ErrPastRoot, "negative level %d", levels)
	}
	current := n
	for i := 0; i < levels; i++ {
		if current.parent == nil {
			return nil, errors.Wrapf(errors.ErrPastRoot, "level %d from depth %d", levels, n.Depth())
		}
		current = current.parent
	}
	return current, nil
}

// Depth returns the number of edges to the root. Root depth is 0.
func (n *Node) Depth() int {
	d := 0
	for current := n; current.parent != nil; current = current.parent {
		d++
	}
	return d
}

// Root walks up to the tree root.
func (n *Node) Root() *Node {
	current := n
	for current.parent != nil {
		current = current.parent
	}
	return current
}

// PathFromRoot returns the node list root→self inclusive.
func (n *Node) PathFromRoot() []*Node {
	depth := n.Depth()
	path := make([]*Node, depth+1)
	for current, i := n, depth; current != nil; current, i = current.parent, i-1 {
		path[i] = current
	}
	return path
}

// PathString joins the display values along the path from the root.
func (n *Node) PathString(separator string) string {
	path := n.PathFromRoot()
	parts := make([]string, len(path))
	for i, node := range path {
		parts[i] = node.DisplayValue()
	}
	return strings.Join(parts, separator)
}

// DisplayValue returns the human-readable split value: "Root" for the root,
// "Unknown" for the fallback bucket, the key's string form otherwise.
func (n *Node) DisplayValue() string {
	if n.parent == nil {
		return RootValue
	}
	if n.SplitValue.IsEmpty() {
		return UnknownValue
	}
	return n.SplitValue.String()
}

// LeafNodes returns all leaves under the node in depth-first order.
// The collection is memoized per build.
func (n *Node) LeafNodes() []*Node {
	if n.leaves == nil {
		n.leaves = collectLeaves(n, nil)
	}
	return n.leaves
}

func collectLeaves(n *Node, acc []*Node) []*Node {
	if n.IsLeaf() {
		return append(acc, n)
	}
	for _, child := range n.children {
		acc = collectLeaves(child, acc)
	}
	return acc
}

// Store returns the record store owned by the tree root, or nil when called
// on a non-root node of a tree built without a store.
func (n *Node) Store() *epoch.RecordStore {
	return n.Root().store
}
