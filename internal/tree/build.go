// Package tree - partitioning engine
//
// Build recursively partitions the record store into a node hierarchy by an
// ordered rule list. The no-loss invariant holds for every input: records
// with a missing grouping value fall into the "Unknown" bucket instead of
// being dropped, so the multiset union of all leaf epoch lists always equals
// the store's contents.
package tree

import (
	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/logging"
	"github.com/ephysio/epictree/internal/splitter"
)

var buildLog = logging.Component("tree")

// Build constructs a fresh hierarchy over the store's records.
//
// An empty rule list yields a root that is itself a leaf wrapping the store
// unchanged. The hierarchy is fully rebuilt on every call; callers holding
// nodes or annotations from a previous build must persist what they need
// beforehand.
func Build(store *epoch.RecordStore, rules []splitter.Rule) *Node {
	root := &Node{store: store}
	partition(root, store.Epochs(), rules)
	return root
}

// partition fills node with either the records (leaf) or one child per
// bucket of the first rule, recursing with the remaining rules.
func partition(node *Node, records []*epoch.Epoch, rules []splitter.Rule) {
	if len(rules) == 0 {
		node.epochs = records
		return
	}

	rule := rules[0]
	rest := rules[1:]

	// Bucket by key equality, preserving record order within buckets.
	// Keys are kept in first-seen order here and sorted below.
	var keys []splitter.Key
	buckets := make(map[int][]*epoch.Epoch)
	missing := 0

	for _, record := range records {
		key := rule.Evaluate(record)
		if key.IsEmpty() {
			missing++
		}
		idx := -1
		for i, k := range keys {
			if k.Equal(key) {
				idx = i
				break
			}
		}
		if idx == -1 {
			idx = len(keys)
			keys = append(keys, key)
		}
		buckets[idx] = append(buckets[idx], record)
	}

	if missing > 0 {
		buildLog.Warn("missing grouping key, records moved to fallback bucket",
			"rule", rule.Name(), "count", missing)
	}

	// Deterministic child order: numeric ascending, then lexicographic,
	// fallback bucket last.
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sortBucketOrder(order, keys)

	node.children = make([]*Node, 0, len(keys))
	for _, idx := range order {
		child := &Node{
			SplitKey:   rule.Name(),
			SplitValue: keys[idx],
			parent:     node,
		}
		partition(child, buckets[idx], rest)
		node.children = append(node.children, child)
	}
}

func sortBucketOrder(order []int, keys []splitter.Key) {
	// Insertion sort; rule fan-out is small.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && splitter.Less(keys[order[j]], keys[order[j-1]]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}
