package retrieval

import (
	"path/filepath"
	"testing"

	"github.com/ephysio/epictree/internal/container"
	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/errors"
	"github.com/ephysio/epictree/internal/splitter"
	"github.com/ephysio/epictree/internal/tree"
)

func inlineEpoch(uuid string, stream string, rate float64, samples ...float64) *epoch.Epoch {
	e := epoch.New(epoch.AttributeBag{"h5_uuid": uuid})
	e.Responses[stream] = &epoch.Response{
		DeviceName: stream,
		Data:       samples,
		SampleRate: rate,
	}
	return e
}

func lazyEpoch(uuid, stream, containerID, internalPath string) *epoch.Epoch {
	e := epoch.New(epoch.AttributeBag{"h5_uuid": uuid})
	e.Responses[stream] = &epoch.Response{
		DeviceName:   stream,
		ContainerID:  containerID,
		InternalPath: internalPath,
	}
	return e
}

// =============================================================================
// Inline Resolution
// =============================================================================

func TestGetResponseMatrix_Inline(t *testing.T) {
	svc := New(Config{})
	records := []*epoch.Epoch{
		inlineEpoch("a", "Amp1", 10000, 1, 2, 3),
		inlineEpoch("b", "Amp1", 10000, 4, 5, 6),
	}

	matrix, used, rate, err := svc.GetResponseMatrix(records, "Amp1")
	if err != nil {
		t.Fatalf("GetResponseMatrix: %v", err)
	}
	if matrix.Rows() != 2 || matrix.Cols() != 3 {
		t.Fatalf("matrix %dx%d, want 2x3", matrix.Rows(), matrix.Cols())
	}
	if len(used) != 2 {
		t.Errorf("used = %d records, want 2", len(used))
	}
	if rate != 10000 {
		t.Errorf("rate = %g, want 10000", rate)
	}
	if matrix[1][0] != 4 {
		t.Errorf("matrix[1][0] = %g, want 4", matrix[1][0])
	}
}

func TestGetResponseMatrix_EmptyResult(t *testing.T) {
	svc := New(Config{})

	// No records at all.
	matrix, used, rate, err := svc.GetResponseMatrix(nil, "Amp1")
	if err != nil {
		t.Fatalf("GetResponseMatrix: %v", err)
	}
	if !matrix.IsEmpty() || len(used) != 0 || rate != SentinelRate {
		t.Errorf("empty input: matrix %d rows, rate %g; want empty, sentinel", matrix.Rows(), rate)
	}

	// Records exist but none carries the stream: empty result, not an error.
	records := []*epoch.Epoch{inlineEpoch("a", "Amp1", 10000, 1)}
	matrix, _, rate, err = svc.GetResponseMatrix(records, "NoSuchStream")
	if err != nil {
		t.Fatalf("absent stream: %v", err)
	}
	if !matrix.IsEmpty() || rate != SentinelRate {
		t.Errorf("absent stream: matrix %d rows, rate %g; want empty, sentinel", matrix.Rows(), rate)
	}
}

func TestGetResponseMatrix_RateMismatch(t *testing.T) {
	svc := New(Config{})
	records := []*epoch.Epoch{
		inlineEpoch("a", "Amp1", 10000, 1, 2),
		inlineEpoch("b", "Amp1", 20000, 3, 4),
	}

	_, _, _, err := svc.GetResponseMatrix(records, "Amp1")
	if !errors.Is(err, errors.ErrSampleRateMismatch) {
		t.Errorf("err = %v, want ErrSampleRateMismatch", err)
	}
}

func TestGetResponseMatrix_TruncatesToShortest(t *testing.T) {
	svc := New(Config{})
	records := []*epoch.Epoch{
		inlineEpoch("a", "Amp1", 10000, 1, 2, 3, 4, 5),
		inlineEpoch("b", "Amp1", 10000, 6, 7, 8),
	}

	matrix, _, _, err := svc.GetResponseMatrix(records, "Amp1")
	if err != nil {
		t.Fatalf("GetResponseMatrix: %v", err)
	}
	for i, row := range matrix {
		if len(row) != 3 {
			t.Errorf("row %d len = %d, want 3", i, len(row))
		}
	}
}

func TestGetResponseMatrix_SkipsRecordsWithoutStream(t *testing.T) {
	svc := New(Config{})
	records := []*epoch.Epoch{
		inlineEpoch("a", "Amp1", 10000, 1, 2),
		inlineEpoch("b", "Amp2", 10000, 3, 4), // different stream
		inlineEpoch("c", "Amp1", 10000, 5, 6),
	}

	matrix, used, _, err := svc.GetResponseMatrix(records, "Amp1")
	if err != nil {
		t.Fatalf("GetResponseMatrix: %v", err)
	}
	if matrix.Rows() != 2 || len(used) != 2 {
		t.Errorf("matrix rows = %d, used = %d; want 2, 2", matrix.Rows(), len(used))
	}
	if used[0].IdentityKey() != "a" || used[1].IdentityKey() != "c" {
		t.Errorf("used = [%s %s], want [a c]", used[0].IdentityKey(), used[1].IdentityKey())
	}
}

// =============================================================================
// Selection Filtering
// =============================================================================

func TestGetSelectedData(t *testing.T) {
	a := inlineEpoch("a", "Amp1", 10000, 1, 2)
	b := inlineEpoch("b", "Amp1", 10000, 3, 4)
	b.Selected = false

	store := epoch.NewRecordStore([]*epoch.Epoch{a, b}, "")
	root := tree.Build(store, []splitter.Rule{})

	svc := New(Config{})
	matrix, used, _, err := svc.GetSelectedData(root, "Amp1")
	if err != nil {
		t.Fatalf("GetSelectedData: %v", err)
	}
	if matrix.Rows() != 1 || len(used) != 1 || used[0] != a {
		t.Errorf("matrix rows = %d, used = %d; want only the selected record", matrix.Rows(), len(used))
	}
}

func TestGetSelectedDataRecords(t *testing.T) {
	a := inlineEpoch("a", "Amp1", 10000, 1)
	b := inlineEpoch("b", "Amp1", 10000, 2)
	a.Selected = false

	svc := New(Config{})
	matrix, used, _, err := svc.GetSelectedDataRecords([]*epoch.Epoch{a, b}, "Amp1")
	if err != nil {
		t.Fatalf("GetSelectedDataRecords: %v", err)
	}
	if matrix.Rows() != 1 || used[0] != b {
		t.Errorf("expected only the selected record, got %d rows", matrix.Rows())
	}
}

// =============================================================================
// Lazy Resolution
// =============================================================================

func writeContainer(t *testing.T, dir, id string) container.Handle {
	t.Helper()
	h := container.Handle{ID: id, Path: filepath.Join(dir, id+".parquet")}
	w, err := container.NewWriter(h, container.DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteWaveform("/epochs/e1", "Amp1", 10000, "mV", []float64{1, 2, 3}); err != nil {
		t.Fatalf("WriteWaveform: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return h
}

func TestGetResponseMatrix_LazyViaLocations(t *testing.T) {
	dir := t.TempDir()
	h := writeContainer(t, dir, "exp1")

	svc := New(Config{Locations: map[string]string{"exp1": h.Path}})
	records := []*epoch.Epoch{lazyEpoch("a", "Amp1", "exp1", "/epochs/e1")}

	matrix, used, rate, err := svc.GetResponseMatrix(records, "Amp1")
	if err != nil {
		t.Fatalf("GetResponseMatrix: %v", err)
	}
	if matrix.Rows() != 1 || len(used) != 1 {
		t.Fatalf("matrix rows = %d, want 1", matrix.Rows())
	}
	if rate != 10000 {
		t.Errorf("rate = %g, want 10000", rate)
	}
}

func TestGetResponseMatrix_LazyViaSearchDirs(t *testing.T) {
	dir := t.TempDir()
	writeContainer(t, dir, "exp2")

	svc := New(Config{SearchDirs: []string{dir}})
	records := []*epoch.Epoch{lazyEpoch("a", "Amp1", "exp2", "/epochs/e1")}

	matrix, _, _, err := svc.GetResponseMatrix(records, "Amp1")
	if err != nil {
		t.Fatalf("GetResponseMatrix: %v", err)
	}
	if matrix.Rows() != 1 {
		t.Errorf("matrix rows = %d, want 1", matrix.Rows())
	}
}

func TestGetResponseMatrix_LazyOverrideHandle(t *testing.T) {
	dir := t.TempDir()
	h := writeContainer(t, dir, "exp3")

	// No configured mapping; the explicit handle must win.
	svc := New(Config{})
	records := []*epoch.Epoch{lazyEpoch("a", "Amp1", "unmapped", "/epochs/e1")}

	matrix, _, _, err := svc.GetResponseMatrix(records, "Amp1", h)
	if err != nil {
		t.Fatalf("GetResponseMatrix with override: %v", err)
	}
	if matrix.Rows() != 1 {
		t.Errorf("matrix rows = %d, want 1", matrix.Rows())
	}
}

func TestGetResponseMatrix_UnmappedContainerIsFatal(t *testing.T) {
	svc := New(Config{})
	records := []*epoch.Epoch{lazyEpoch("a", "Amp1", "nowhere", "/epochs/e1")}

	_, _, _, err := svc.GetResponseMatrix(records, "Amp1")
	if !errors.Is(err, errors.ErrContainerNotFound) {
		t.Errorf("err = %v, want ErrContainerNotFound", err)
	}
}

func TestGetResponseMatrix_MissingWaveformSkipped(t *testing.T) {
	dir := t.TempDir()
	h := writeContainer(t, dir, "exp4")

	svc := New(Config{Locations: map[string]string{"exp4": h.Path}})
	records := []*epoch.Epoch{
		lazyEpoch("a", "Amp1", "exp4", "/epochs/e1"),
		lazyEpoch("b", "Amp1", "exp4", "/epochs/not-there"),
	}

	matrix, used, _, err := svc.GetResponseMatrix(records, "Amp1")
	if err != nil {
		t.Fatalf("GetResponseMatrix: %v", err)
	}
	if matrix.Rows() != 1 || len(used) != 1 || used[0].IdentityKey() != "a" {
		t.Errorf("matrix rows = %d, used = %d; want the resolvable record only", matrix.Rows(), len(used))
	}
}

func TestResolver_CachesLocations(t *testing.T) {
	dir := t.TempDir()
	writeContainer(t, dir, "exp5")

	r := NewResolver(Config{SearchDirs: []string{dir}})
	first, err := r.Resolve("exp5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve("exp5")
	if err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if first != second {
		t.Errorf("resolved handles differ: %+v vs %+v", first, second)
	}
}
