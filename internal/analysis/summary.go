// Package analysis computes per-node waveform summaries.
//
// A summary aggregates every sample of a stream across the selected records
// under a node: count, sum, min/max, mean, and DDSketch percentiles. Results
// are cached in the node's annotation store, which also makes them an
// example of the intended caching pattern — the retrieval layer itself never
// caches resolved payloads.
package analysis

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/ephysio/epictree/internal/logging"
	"github.com/ephysio/epictree/internal/retrieval"
	"github.com/ephysio/epictree/internal/tree"
)

var log = logging.Component("analysis")

// DefaultAccuracy is the DDSketch relative accuracy (1% error).
const DefaultAccuracy = 0.01

// customKeyPrefix namespaces summary annotations in the node custom store.
const customKeyPrefix = "analysis/summary/"

// CustomKey returns the annotation key a stream summary is cached under.
func CustomKey(stream string) string {
	return customKeyPrefix + stream
}

// Summary holds aggregate statistics for one stream under one node.
type Summary struct {
	Stream     string
	Records    int
	SampleRate float64

	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64

	// Percentiles over all samples. Valid only if HasPercentiles.
	P50, P90, P95, P99 float64
	HasPercentiles     bool
}

// IsEmpty reports whether the summary covers no samples.
func (s *Summary) IsEmpty() bool {
	return s.Count == 0
}

// Analyzer computes and caches node summaries.
type Analyzer struct {
	svc      *retrieval.Service
	accuracy float64
}

// New creates an analyzer over a retrieval service.
func New(svc *retrieval.Service, accuracy float64) *Analyzer {
	if accuracy <= 0 {
		accuracy = DefaultAccuracy
	}
	return &Analyzer{svc: svc, accuracy: accuracy}
}

// Summarize returns the stream summary for the node's selected records,
// computing and caching it on first request. A node with no selected records
// or no resolvable stream yields an empty summary, not an error.
func (a *Analyzer) Summarize(n *tree.Node, stream string) (*Summary, error) {
	if cached, ok := n.GetCustom(CustomKey(stream)); ok {
		if s, isSummary := cached.(*Summary); isSummary {
			return s, nil
		}
	}

	matrix, used, rate, err := a.svc.GetSelectedData(n, stream)
	if err != nil {
		return nil, err
	}

	summary := compute(matrix, stream, a.accuracy)
	summary.Records = len(used)
	summary.SampleRate = rate

	n.PutCustom(CustomKey(stream), summary)
	log.Debug("summary computed",
		"node", n.PathString("/"), "stream", stream,
		"records", summary.Records, "samples", summary.Count)

	return summary, nil
}

// Invalidate drops the cached summary for a stream, forcing recomputation.
// Callers do this after changing the selection under the node.
func Invalidate(n *tree.Node, stream string) {
	n.RemoveCustom(CustomKey(stream))
}

func compute(matrix retrieval.Matrix, stream string, accuracy float64) *Summary {
	summary := &Summary{
		Stream: stream,
		Min:    math.MaxFloat64,
		Max:    -math.MaxFloat64,
	}

	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		sketch = nil
	}

	for _, row := range matrix {
		for _, v := range row {
			summary.Count++
			summary.Sum += v
			if v < summary.Min {
				summary.Min = v
			}
			if v > summary.Max {
				summary.Max = v
			}
			if sketch != nil {
				sketch.Add(v)
			}
		}
	}

	if summary.Count == 0 {
		summary.Min = 0
		summary.Max = 0
		return summary
	}

	summary.Avg = summary.Sum / float64(summary.Count)

	if sketch != nil {
		p50, err50 := sketch.GetValueAtQuantile(0.50)
		p90, err90 := sketch.GetValueAtQuantile(0.90)
		p95, err95 := sketch.GetValueAtQuantile(0.95)
		p99, err99 := sketch.GetValueAtQuantile(0.99)
		if err50 == nil && err90 == nil && err95 == nil && err99 == nil {
			summary.P50 = p50
			summary.P90 = p90
			summary.P95 = p95
			summary.P99 = p99
			summary.HasPercentiles = true
		}
	}

	return summary
}
