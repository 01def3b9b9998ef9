// Package loader - field helpers
//
// Parameter flattening and sample-rate parsing for dataset exports.
package loader

import (
	"regexp"
	"strconv"
	"strings"
)

// FlattenParams recursively flattens a nested parameter map into a
// single-level map with underscore-joined keys:
//
//	{"stimulus": {"spot": {"intensity": 0.5}}}
//	→ {"stimulus_spot_intensity": 0.5}
//
// Nil maps flatten to an empty map.
func FlattenParams(params map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	flattenInto(out, params, prefix)
	return out
}

func flattenInto(out map[string]any, params map[string]any, prefix string) {
	for key, value := range params {
		full := key
		if prefix != "" {
			full = prefix + "_" + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(out, nested, full)
			continue
		}
		out[full] = value
	}
}

var sampleRateRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(Hz|kHz|MHz)?`)

// ParseSampleRate converts a sample-rate value to numeric Hz. Numeric values
// pass through; strings like "10000 Hz" or "10 kHz" are parsed. Nil or
// unparseable values return 0.
func ParseSampleRate(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case string:
		return parseSampleRateString(x)
	default:
		return 0
	}
}

func parseSampleRateString(s string) float64 {
	match := sampleRateRegex.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	switch match[2] {
	case "kHz":
		value *= 1e3
	case "MHz":
		value *= 1e6
	}

	return value
}
