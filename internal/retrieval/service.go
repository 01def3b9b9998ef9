// Package retrieval - data retrieval service
//
// GetSelectedData and GetResponseMatrix resolve a record set to a
// rectangular waveform matrix. Inline responses are used directly; lazy
// responses are fetched synchronously from their container on every call —
// callers needing reuse cache results explicitly through the node annotation
// store.
package retrieval

import (
	"github.com/ephysio/epictree/internal/container"
	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/errors"
	"github.com/ephysio/epictree/internal/tree"
)

// SentinelRate is the sample rate reported for empty results. Callers must
// check for emptiness before using it.
const SentinelRate = 0.0

// Matrix is a rectangular stack of waveforms, one row per record.
type Matrix [][]float64

// IsEmpty reports whether the matrix holds no waveforms.
func (m Matrix) IsEmpty() bool {
	return len(m) == 0
}

// Rows returns the number of waveforms.
func (m Matrix) Rows() int {
	return len(m)
}

// Cols returns the common waveform length, 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Service resolves waveform streams for record sets.
type Service struct {
	resolver *Resolver
}

// New creates a retrieval service over the given container configuration.
func New(cfg Config) *Service {
	return &Service{resolver: NewResolver(cfg)}
}

// NewWithResolver creates a service sharing an existing resolver.
func NewWithResolver(r *Resolver) *Service {
	return &Service{resolver: r}
}

// GetSelectedData resolves the named stream for every selected record under
// the node. Returns the waveform matrix, the records that contributed a row,
// and the common sample rate.
//
// An optional explicit handle forces all lazy resolution to that container,
// bypassing the configured mapping.
func (s *Service) GetSelectedData(n *tree.Node, stream string, override ...container.Handle) (Matrix, []*epoch.Epoch, float64, error) {
	return s.GetResponseMatrix(n.AllEpochs(true), stream, override...)
}

// GetSelectedDataRecords is GetSelectedData over a pre-assembled record
// list; the list is filtered by the selection flag before resolution.
func (s *Service) GetSelectedDataRecords(records []*epoch.Epoch, stream string, override ...container.Handle) (Matrix, []*epoch.Epoch, float64, error) {
	selected := make([]*epoch.Epoch, 0, len(records))
	for _, e := range records {
		if e.Selected {
			selected = append(selected, e)
		}
	}
	return s.GetResponseMatrix(selected, stream, override...)
}

// GetResponseMatrix is the unfiltered primitive underlying GetSelectedData.
// Every record in the list contributes a row if its stream resolves; records
// without the stream, and lazy payloads missing from their container, are
// skipped with a diagnostic rather than failing the call.
//
// Zero resolvable records yields an empty matrix, an empty record list, and
// the sentinel sample rate — not an error. Mismatched sample rates across
// resolved records are a caller error. Mismatched sample counts are
// truncated to the shortest length to keep the matrix rectangular.
func (s *Service) GetResponseMatrix(records []*epoch.Epoch, stream string, override ...container.Handle) (Matrix, []*epoch.Epoch, float64, error) {
	var (
		matrix Matrix
		used   []*epoch.Epoch
		rate   = SentinelRate
	)

	missing := 0
	unresolved := 0

	for _, e := range records {
		resp := e.Response(stream)
		if resp == nil {
			missing++
			continue
		}

		samples, respRate, err := s.resolve(resp, stream, override)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				unresolved++
				continue
			}
			// Container unopenable: fatal, no safe fallback.
			return nil, nil, SentinelRate, err
		}

		if len(samples) == 0 {
			unresolved++
			continue
		}

		if len(used) == 0 {
			rate = respRate
		} else if respRate != rate {
			return nil, nil, SentinelRate, errors.Wrapf(errors.ErrSampleRateMismatch,
				"stream %q: %g Hz vs %g Hz", stream, respRate, rate)
		}

		matrix = append(matrix, samples)
		used = append(used, e)
	}

	if missing > 0 {
		resolverLog.Warn("records without requested stream skipped",
			"stream", stream, "count", missing)
	}
	if unresolved > 0 {
		resolverLog.Warn("lazy payloads unresolved, records skipped",
			"stream", stream, "count", unresolved)
	}

	if len(matrix) == 0 {
		return Matrix{}, nil, SentinelRate, nil
	}

	truncate(matrix, stream)

	return matrix, used, rate, nil
}

// resolve produces the samples and sample rate for one response.
func (s *Service) resolve(resp *epoch.Response, stream string, override []container.Handle) ([]float64, float64, error) {
	if !resp.IsLazy() {
		return resp.Data, resp.SampleRate, nil
	}

	var h container.Handle
	if len(override) > 0 {
		h = override[0]
	} else {
		resolved, err := s.resolver.Resolve(resp.ContainerID)
		if err != nil {
			return nil, 0, err
		}
		h = resolved
	}

	samples, rate, err := container.Read(h, resp.InternalPath, stream)
	if err != nil {
		return nil, 0, err
	}
	if rate == 0 {
		rate = resp.SampleRate
	}
	return samples, rate, nil
}

// truncate cuts all rows to the shortest length. Acquisition jitter can
// leave waveforms a few samples apart; the rectangular-matrix policy trims
// rather than fails, surfaced as a non-fatal warning.
func truncate(m Matrix, stream string) {
	shortest := len(m[0])
	longest := shortest
	for _, row := range m[1:] {
		if len(row) < shortest {
			shortest = len(row)
		}
		if len(row) > longest {
			longest = len(row)
		}
	}
	if shortest == longest {
		return
	}

	resolverLog.Warn("waveform lengths differ, truncating to shortest",
		"stream", stream, "shortest", shortest, "longest", longest)

	for i, row := range m {
		if len(row) > shortest {
			m[i] = row[:shortest]
		}
	}
}
