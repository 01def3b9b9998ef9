// Package container implements the external waveform payload store.
//
// A container is a Parquet file of waveform rows addressed by
// {internal_path, stream_name}. Lazy responses in the record store point into
// a container; the retrieval layer reads the payload synchronously on every
// request. The container is random-access reference data, not a cache: the
// core never evicts or prefetches.
package container

import (
	"io"

	"github.com/ephysio/epictree/internal/errors"
)

// Handle identifies one opened or resolvable container.
type Handle struct {
	// ID is the container identifier referenced by lazy responses.
	ID string

	// Path is the container file location on disk.
	Path string
}

// WaveformRow is the Parquet row layout for one stored waveform.
type WaveformRow struct {
	InternalPath string    `parquet:"internal_path,zstd"`
	StreamName   string    `parquet:"stream_name,zstd"`
	SampleRate   float64   `parquet:"sample_rate"`
	Units        string    `parquet:"units,optional,zstd"`
	Samples      []float64 `parquet:"samples,list"`
}

// readBatchSize bounds memory while scanning for a single waveform.
const readBatchSize = 256

// Read fetches the waveform for {internalPath, streamName} from the
// container file. The read is a direct, uncancellable file scan performed on
// every call.
//
// A container that cannot be opened is fatal. A container that opens but
// holds no matching waveform is a degraded-data condition for the caller:
// Read reports it as ErrNotFound and the retrieval layer maps it to an empty
// result plus a diagnostic.
func Read(h Handle, internalPath, streamName string) ([]float64, float64, error) {
	r, err := Open(h)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	return r.Read(internalPath, streamName)
}

// Find is like Read but distinguishes absence from failure: a missing
// waveform returns (nil, 0, false, nil).
func Find(h Handle, internalPath, streamName string) ([]float64, float64, bool, error) {
	samples, rate, err := Read(h, internalPath, streamName)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	return samples, rate, true, nil
}

// scan drives a row-batch iteration until the predicate matches or the
// source is exhausted.
func scan(next func([]WaveformRow) (int, error), match func(*WaveformRow) bool) (*WaveformRow, error) {
	batch := make([]WaveformRow, readBatchSize)
	for {
		n, err := next(batch)
		for i := 0; i < n; i++ {
			if match(&batch[i]) {
				row := batch[i]
				return &row, nil
			}
		}
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
	}
}
