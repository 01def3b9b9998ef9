package container

import (
	"path/filepath"
	"testing"

	"github.com/ephysio/epictree/internal/errors"
)

func writeTestContainer(t *testing.T) Handle {
	t.Helper()

	h := Handle{ID: "exp1", Path: filepath.Join(t.TempDir(), "exp1.parquet")}
	w, err := NewWriter(h, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	waveforms := []WaveformRow{
		{InternalPath: "/epochs/e1", StreamName: "Amp1", SampleRate: 10000, Units: "mV",
			Samples: []float64{0.1, 0.2, 0.3}},
		{InternalPath: "/epochs/e1", StreamName: "Amp2", SampleRate: 10000, Units: "mV",
			Samples: []float64{1, 2, 3, 4}},
		{InternalPath: "/epochs/e2", StreamName: "Amp1", SampleRate: 20000, Units: "pA",
			Samples: []float64{5, 6}},
	}
	if err := w.Write(waveforms); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := w.RowCount(); got != 3 {
		t.Fatalf("RowCount = %d, want 3", got)
	}

	return h
}

func TestReadRoundTrip(t *testing.T) {
	h := writeTestContainer(t)

	samples, rate, err := Read(h, "/epochs/e1", "Amp1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rate != 10000 {
		t.Errorf("rate = %g, want 10000", rate)
	}
	want := []float64{0.1, 0.2, 0.3}
	if len(samples) != len(want) {
		t.Fatalf("samples len = %d, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("samples[%d] = %g, want %g", i, samples[i], want[i])
		}
	}
}

func TestRead_StreamSelectsRow(t *testing.T) {
	h := writeTestContainer(t)

	// Same internal path, different stream.
	samples, rate, err := Read(h, "/epochs/e1", "Amp2")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(samples) != 4 || rate != 10000 {
		t.Errorf("Amp2 = %d samples at %g Hz, want 4 at 10000", len(samples), rate)
	}
}

func TestRead_MissingWaveform(t *testing.T) {
	h := writeTestContainer(t)

	_, _, err := Read(h, "/epochs/e1", "NoSuchStream")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_, _, err = Read(h, "/epochs/missing", "Amp1")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRead_MissingContainer(t *testing.T) {
	h := Handle{ID: "ghost", Path: filepath.Join(t.TempDir(), "ghost.parquet")}
	_, _, err := Read(h, "/epochs/e1", "Amp1")
	if !errors.Is(err, errors.ErrContainerNotFound) {
		t.Errorf("err = %v, want ErrContainerNotFound", err)
	}
}

func TestFind(t *testing.T) {
	h := writeTestContainer(t)

	_, _, found, err := Find(h, "/epochs/e2", "Amp1")
	if err != nil || !found {
		t.Errorf("Find existing = found %v, err %v; want true, nil", found, err)
	}

	_, _, found, err = Find(h, "/epochs/e2", "Amp9")
	if err != nil || found {
		t.Errorf("Find missing = found %v, err %v; want false, nil", found, err)
	}
}

func TestReader_NumRows(t *testing.T) {
	h := writeTestContainer(t)

	r, err := Open(h)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if got := r.NumRows(); got != 3 {
		t.Errorf("NumRows = %d, want 3", got)
	}
}

func TestWriter_WriteAfterClose(t *testing.T) {
	h := Handle{ID: "c", Path: filepath.Join(t.TempDir(), "c.parquet")}
	w, err := NewWriter(h, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err = w.Write([]WaveformRow{{InternalPath: "/x", StreamName: "s"}})
	if !errors.Is(err, ErrWriterClosed) {
		t.Errorf("err = %v, want ErrWriterClosed", err)
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		in   string
		want CompressionType
	}{
		{"snappy", CompressionSnappy},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"gzip", CompressionGzip},
		{"none", CompressionNone},
		{"", CompressionNone},
		{"bogus", CompressionZstd},
	}
	for _, tt := range tests {
		if got := ParseCompressionType(tt.in); got != tt.want {
			t.Errorf("ParseCompressionType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
