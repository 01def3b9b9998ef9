package container

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// Options configures the container writer.
type Options struct {
	// Compression algorithm for waveform payloads.
	Compression CompressionType
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default container options.
func DefaultOptions() Options {
	return Options{Compression: CompressionZstd}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// Writer writes waveforms to a container file. Used by export tooling and
// tests to produce containers the retrieval layer can resolve against.
type Writer struct {
	mu       sync.Mutex
	handle   Handle
	file     *os.File
	writer   *parquet.GenericWriter[WaveformRow]
	rowCount int64
	closed   bool
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("container writer is closed")

// NewWriter creates a container writer at the handle's path.
func NewWriter(h Handle, opts Options) (*Writer, error) {
	dir := filepath.Dir(h.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(h.Path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}

	writer := parquet.NewGenericWriter[WaveformRow](f, writerOpts...)

	return &Writer{
		handle: h,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends waveform rows to the container.
func (w *Writer) Write(rows []WaveformRow) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// WriteWaveform appends a single waveform.
func (w *Writer) WriteWaveform(internalPath, streamName string, sampleRate float64, units string, samples []float64) error {
	return w.Write([]WaveformRow{{
		InternalPath: internalPath,
		StreamName:   streamName,
		SampleRate:   sampleRate,
		Units:        units,
		Samples:      samples,
	}})
}

// Close flushes and closes the writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of waveforms written.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Handle returns the writer's container handle.
func (w *Writer) Handle() Handle {
	return w.handle
}
