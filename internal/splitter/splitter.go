// Package splitter defines grouping rules for the partitioning engine.
//
// A rule maps one epoch to a scalar grouping key. Rules are pure and
// non-throwing: any extraction failure degrades to the empty key, so one
// malformed record can never abort partitioning. Two variants exist, a
// field-path extractor over the attribute bag and an arbitrary function.
package splitter

import (
	"sort"
	"strconv"

	"github.com/ephysio/epictree/internal/epoch"
)

// =============================================================================
// Grouping Key
// =============================================================================

// KeyKind discriminates the scalar key variants.
type KeyKind int

const (
	// KeyEmpty marks a missing or unextractable value. Records with an
	// empty key fall into the fallback bucket.
	KeyEmpty KeyKind = iota

	// KeyNumber is a numeric key; bucket equality is numeric equality.
	KeyNumber

	// KeyString is a string key; bucket equality is exact string equality.
	KeyString
)

// Key is the scalar grouping key produced by a rule.
type Key struct {
	Kind KeyKind
	Num  float64
	Str  string
}

// EmptyKey returns the missing-value key.
func EmptyKey() Key {
	return Key{Kind: KeyEmpty}
}

// NumberKey returns a numeric key.
func NumberKey(v float64) Key {
	return Key{Kind: KeyNumber, Num: v}
}

// StringKey returns a string key.
func StringKey(s string) Key {
	return Key{Kind: KeyString, Str: s}
}

// KeyOf coerces an arbitrary attribute value to a Key. Numeric types map to
// numeric keys, strings to string keys, booleans to "true"/"false", and
// anything else (nil, maps, slices) to the empty key.
func KeyOf(v any) Key {
	switch x := v.(type) {
	case nil:
		return EmptyKey()
	case string:
		if x == "" {
			return EmptyKey()
		}
		return StringKey(x)
	case bool:
		return StringKey(strconv.FormatBool(x))
	case int:
		return NumberKey(float64(x))
	case int32:
		return NumberKey(float64(x))
	case int64:
		return NumberKey(float64(x))
	case uint:
		return NumberKey(float64(x))
	case uint32:
		return NumberKey(float64(x))
	case uint64:
		return NumberKey(float64(x))
	case float32:
		return NumberKey(float64(x))
	case float64:
		return NumberKey(x)
	default:
		return EmptyKey()
	}
}

// IsEmpty reports whether k is the missing-value key.
func (k Key) IsEmpty() bool {
	return k.Kind == KeyEmpty
}

// Equal reports bucket equality: numeric equality for numeric keys, exact
// string equality otherwise. Keys of different kinds are never equal.
func (k Key) Equal(other Key) bool {
	if k.Kind != other.Kind {
		return false
	}
	switch k.Kind {
	case KeyNumber:
		return k.Num == other.Num
	case KeyString:
		return k.Str == other.Str
	default:
		return true
	}
}

// String formats the key for display and path strings.
func (k Key) String() string {
	switch k.Kind {
	case KeyNumber:
		return strconv.FormatFloat(k.Num, 'g', -1, 64)
	case KeyString:
		return k.Str
	default:
		return ""
	}
}

// Less defines the deterministic child order: numeric keys ascending first,
// then string keys lexicographic, the empty key last.
func Less(a, b Key) bool {
	if a.Kind != b.Kind {
		return kindRank(a.Kind) < kindRank(b.Kind)
	}
	switch a.Kind {
	case KeyNumber:
		return a.Num < b.Num
	case KeyString:
		return a.Str < b.Str
	default:
		return false
	}
}

func kindRank(k KeyKind) int {
	switch k {
	case KeyNumber:
		return 0
	case KeyString:
		return 1
	default:
		return 2
	}
}

// SortKeys sorts keys in the deterministic child order.
func SortKeys(keys []Key) {
	sort.SliceStable(keys, func(i, j int) bool {
		return Less(keys[i], keys[j])
	})
}

// =============================================================================
// Rules
// =============================================================================

// Rule maps one epoch to a grouping key.
//
// Implementations must be pure and must never panic; extraction failures
// degrade to the empty key.
type Rule interface {
	// Name identifies the rule in node paths and diagnostics.
	Name() string

	// Evaluate extracts the grouping key for one record.
	Evaluate(e *epoch.Epoch) Key
}

// FieldPathRule groups by a dot-separated path into the attribute bag.
type FieldPathRule struct {
	Path string
}

// NewFieldPathRule creates a rule extracting the given attribute path.
func NewFieldPathRule(path string) FieldPathRule {
	return FieldPathRule{Path: path}
}

// Name returns the field path.
func (r FieldPathRule) Name() string {
	return r.Path
}

// Evaluate resolves the path and coerces the value to a key.
// Missing paths and non-scalar values map to the empty key.
func (r FieldPathRule) Evaluate(e *epoch.Epoch) Key {
	if e == nil {
		return EmptyKey()
	}
	v, ok := e.Attributes.Get(r.Path)
	if !ok {
		return EmptyKey()
	}
	return KeyOf(v)
}

// FuncRule wraps an arbitrary extraction function.
type FuncRule struct {
	name string
	fn   func(*epoch.Epoch) Key
}

// NewFuncRule creates a rule from a function. The non-throwing contract is
// enforced here: a panicking fn degrades to the empty key.
func NewFuncRule(name string, fn func(*epoch.Epoch) Key) FuncRule {
	return FuncRule{name: name, fn: fn}
}

// Name returns the rule name.
func (r FuncRule) Name() string {
	return r.name
}

// Evaluate calls the wrapped function, converting panics into the empty key.
func (r FuncRule) Evaluate(e *epoch.Epoch) (key Key) {
	if r.fn == nil || e == nil {
		return EmptyKey()
	}
	defer func() {
		if recover() != nil {
			key = EmptyKey()
		}
	}()
	return r.fn(e)
}
