// Package splitter - canonical rule registry
//
// Common grouping rules used by the CLI and tests. The registry maps a short
// name to a prebuilt rule; unknown names fall back to a field-path rule over
// the attribute bag, so any exported attribute is groupable without code.
package splitter

// Registered canonical rules. Paths follow the dataset export layout
// (cell/protocol attributes flattened onto each epoch at load time).
var registry = map[string]Rule{
	"cellType":     NewFieldPathRule("cell.type"),
	"cellLabel":    NewFieldPathRule("cell.label"),
	"protocol":     NewFieldPathRule("protocol_name"),
	"protocolID":   NewFieldPathRule("protocol_id"),
	"experiment":   NewFieldPathRule("experiment.exp_name"),
	"experimenter": NewFieldPathRule("experiment.experimenter"),
	"rig":          NewFieldPathRule("experiment.rig"),
	"groupLabel":   NewFieldPathRule("group_label"),
	"blockLabel":   NewFieldPathRule("block_label"),
}

// Lookup resolves a rule name. Registered names return the canonical rule;
// anything else is interpreted as a field path.
func Lookup(name string) Rule {
	if r, ok := registry[name]; ok {
		return r
	}
	return NewFieldPathRule(name)
}

// Names returns the registered canonical rule names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
