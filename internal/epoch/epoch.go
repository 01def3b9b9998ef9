// Package epoch defines the epoch record model for the epictree application.
//
// An epoch is one discrete measurement trial: a nested attribute bag, a map of
// named response streams, and a mutable selection flag. Epochs are created by
// the dataset loader and owned by a RecordStore; every other component holds
// references, never copies.
package epoch

import (
	"fmt"
	"strings"
)

// =============================================================================
// Attribute Bag
// =============================================================================

// AttributeBag is a nested key/value structure describing one epoch.
// Nested maps are addressed with dot-separated paths ("cell.type").
type AttributeBag map[string]any

// Get resolves a dot-separated path against the bag.
// Returns (nil, false) for any missing or non-map intermediate segment.
func (b AttributeBag) Get(path string) (any, bool) {
	if b == nil || path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	var current any = map[string]any(b)

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			// Allow AttributeBag values nested inside the bag
			bag, okBag := current.(AttributeBag)
			if !okBag {
				return nil, false
			}
			m = map[string]any(bag)
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// GetString resolves a path and returns its value as a string.
// Non-string scalars are formatted; missing values return "".
func (b AttributeBag) GetString(path string) string {
	v, ok := b.Get(path)
	if !ok || v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// =============================================================================
// Response (waveform handle)
// =============================================================================

// Response is a waveform handle for one named stream of an epoch.
//
// A response is either inline (Data is populated) or lazy (Data is empty and
// ContainerID/InternalPath point into an external container file). Lazy
// responses are resolved through the retrieval layer on demand.
type Response struct {
	// DeviceName is the recording device that produced this stream.
	DeviceName string

	// Data holds inline samples. Empty for lazy responses.
	Data []float64

	// SampleRate is the acquisition rate in Hz. May be zero for lazy
	// responses whose rate lives in the container file.
	SampleRate float64

	// Units is the measurement unit ("mV", "pA", "normalized").
	Units string

	// ContainerID identifies the external container holding the payload.
	ContainerID string

	// InternalPath addresses the payload inside the container.
	InternalPath string
}

// IsLazy reports whether the payload must be fetched from a container.
func (r *Response) IsLazy() bool {
	return len(r.Data) == 0 && r.InternalPath != ""
}

// =============================================================================
// Epoch
// =============================================================================

// Epoch is one measurement trial.
//
// Attributes and Responses are immutable after loading; only Selected and the
// resolution state of lazy responses change during a session.
type Epoch struct {
	// Attributes is the nested metadata bag (cell, protocol, timing, ...).
	Attributes AttributeBag

	// Responses maps stream name to waveform handle.
	Responses map[string]*Response

	// Selected is the inclusion flag. Defaults to true on load and is the
	// single source of truth for all filtered queries.
	Selected bool
}

// New creates an epoch with the given attributes, no responses, and the
// default selection state.
func New(attrs AttributeBag) *Epoch {
	return &Epoch{
		Attributes: attrs,
		Responses:  make(map[string]*Response),
		Selected:   true,
	}
}

// Response returns the handle for the named stream, or nil if absent.
func (e *Epoch) Response(stream string) *Response {
	if e.Responses == nil {
		return nil
	}
	return e.Responses[stream]
}

// StreamNames returns the names of all response streams.
func (e *Epoch) StreamNames() []string {
	names := make([]string, 0, len(e.Responses))
	for name := range e.Responses {
		names = append(names, name)
	}
	return names
}

// IdentityKey derives the stable per-epoch key used to re-match persisted
// selection state after a tree rebuild or reload.
//
// The h5_uuid attribute is used verbatim when present; datasets exported
// without UUIDs fall back to a composite of owning-cell label, acquisition
// start time, and protocol identifier. Positional matching is never used.
func (e *Epoch) IdentityKey() string {
	if uuid := e.Attributes.GetString("h5_uuid"); uuid != "" {
		return uuid
	}

	cell := e.Attributes.GetString("cell.label")
	if cell == "" {
		cell = e.Attributes.GetString("cell_label")
	}
	start := e.Attributes.GetString("start_time")
	protocol := e.Attributes.GetString("protocol_id")
	if protocol == "" {
		protocol = e.Attributes.GetString("protocol_name")
	}

	return cell + "|" + start + "|" + protocol
}
