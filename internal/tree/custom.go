// Package tree - annotation store
//
// Each node owns a private key/value map, fully independent of every other
// node's map: no inheritance, no propagation. Analysis code caches derived
// results here at whatever hierarchy level is natural. Lookups on missing
// keys never error.
package tree

// PutCustom stores a value under key, silently overwriting any prior value.
func (n *Node) PutCustom(key string, value any) {
	if n.custom == nil {
		n.custom = make(map[string]any)
	}
	n.custom[key] = value
}

// GetCustom returns the value for key, or (nil, false) if absent.
func (n *Node) GetCustom(key string) (any, bool) {
	v, ok := n.custom[key]
	return v, ok
}

// HasCustom reports whether key is present.
func (n *Node) HasCustom(key string) bool {
	_, ok := n.custom[key]
	return ok
}

// RemoveCustom deletes key. No-op if absent.
func (n *Node) RemoveCustom(key string) {
	delete(n.custom, key)
}

// CustomKeys returns the node's annotation keys in unspecified order.
func (n *Node) CustomKeys() []string {
	keys := make([]string, 0, len(n.custom))
	for k := range n.custom {
		keys = append(keys, k)
	}
	return keys
}
