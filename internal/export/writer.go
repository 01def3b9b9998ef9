// Package export writes flattened epoch metadata to Parquet and answers
// ad-hoc SQL queries over the exported files.
//
// The export is a downstream-analysis artifact: one row per epoch with the
// identity key, the grouping attributes, and the selection flag at export
// time. It is not consulted by the core; rebuilds and reloads go through the
// dataset file and the side file.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/ephysio/epictree/internal/epoch"
)

// EpochRow is the Parquet row layout for one exported epoch.
type EpochRow struct {
	IdentityKey  string `parquet:"identity_key,zstd"`
	ExpName      string `parquet:"exp_name,zstd"`
	CellLabel    string `parquet:"cell_label,zstd"`
	CellType     string `parquet:"cell_type,zstd"`
	ProtocolName string `parquet:"protocol_name,zstd"`
	ProtocolID   int64  `parquet:"protocol_id"`
	GroupLabel   string `parquet:"group_label,optional,zstd"`
	BlockLabel   string `parquet:"block_label,optional,zstd"`
	StartTime    string `parquet:"start_time,zstd"`
	Selected     bool   `parquet:"selected"`
	StreamCount  int32  `parquet:"stream_count"`
}

// RowFromEpoch flattens one epoch into its export row.
func RowFromEpoch(e *epoch.Epoch) EpochRow {
	protocolID := int64(0)
	if v, ok := e.Attributes.Get("protocol_id"); ok {
		switch x := v.(type) {
		case int:
			protocolID = int64(x)
		case int64:
			protocolID = x
		case float64:
			protocolID = int64(x)
		}
	}

	return EpochRow{
		IdentityKey:  e.IdentityKey(),
		ExpName:      e.Attributes.GetString("experiment.exp_name"),
		CellLabel:    e.Attributes.GetString("cell.label"),
		CellType:     e.Attributes.GetString("cell.type"),
		ProtocolName: e.Attributes.GetString("protocol_name"),
		ProtocolID:   protocolID,
		GroupLabel:   e.Attributes.GetString("group_label"),
		BlockLabel:   e.Attributes.GetString("block_label"),
		StartTime:    e.Attributes.GetString("start_time"),
		Selected:     e.Selected,
		StreamCount:  int32(len(e.Responses)),
	}
}

// Writer writes epoch rows to a Parquet file.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[EpochRow]
	rowCount int64
	closed   bool
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("export writer is closed")

// NewWriter creates an export writer at path.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writer := parquet.NewGenericWriter[EpochRow](f,
		parquet.Compression(&parquet.Zstd))

	return &Writer{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends rows to the export file.
func (w *Writer) Write(rows []EpochRow) error {
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

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// WriteStore exports every record of the store to path.
func WriteStore(store *epoch.RecordStore, path string) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}

	rows := make([]EpochRow, 0, store.Len())
	for _, e := range store.Epochs() {
		rows = append(rows, RowFromEpoch(e))
	}

	if err := w.Write(rows); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}
