package container

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/ephysio/epictree/internal/errors"
)

// Reader reads waveforms from one container file.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[WaveformRow]
	handle Handle
}

// Open opens a container file for reading. A file that cannot be opened is a
// fatal condition.
func Open(h Handle) (*Reader, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrContainerNotFound, "container %s at %s", h.ID, h.Path)
		}
		return nil, errors.Wrapf(errors.ErrContainerUnreadable, "container %s: %v", h.ID, err)
	}

	reader := parquet.NewGenericReader[WaveformRow](f)

	return &Reader{
		file:   f,
		reader: reader,
		handle: h,
	}, nil
}

// Read scans for the waveform matching {internalPath, streamName}.
// Returns ErrNotFound if the container holds no such waveform.
func (r *Reader) Read(internalPath, streamName string) ([]float64, float64, error) {
	row, err := scan(r.reader.Read, func(w *WaveformRow) bool {
		return w.InternalPath == internalPath && w.StreamName == streamName
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan container %s: %w", r.handle.ID, err)
	}
	if row == nil {
		return nil, 0, errors.NewNotFound("waveform", internalPath+"/"+streamName)
	}
	return row.Samples, row.SampleRate, nil
}

// ReadAll returns every waveform row in the container. Used by tooling and
// tests; retrieval never loads whole containers.
func (r *Reader) ReadAll() ([]WaveformRow, error) {
	numRows := r.reader.NumRows()
	rows := make([]WaveformRow, numRows)

	n, err := r.reader.Read(rows)
	if err != nil && n < int(numRows) {
		return nil, fmt.Errorf("read container %s: %w", r.handle.ID, err)
	}

	return rows[:n], nil
}

// NumRows returns the number of waveforms in the container.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Handle returns the reader's container handle.
func (r *Reader) Handle() Handle {
	return r.handle
}

// Close closes the reader.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
