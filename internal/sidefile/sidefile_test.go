package sidefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/errors"
)

func testStore(t *testing.T, uuids ...string) *epoch.RecordStore {
	t.Helper()
	epochs := make([]*epoch.Epoch, 0, len(uuids))
	for _, uuid := range uuids {
		epochs = append(epochs, epoch.New(epoch.AttributeBag{"h5_uuid": uuid}))
	}
	source := filepath.Join(t.TempDir(), "ds.yaml")
	return epoch.NewRecordStore(epochs, source)
}

// =============================================================================
// Save / Load
// =============================================================================

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t, "a", "b", "c")
	store.Epochs()[1].Selected = false

	path := filepath.Join(t.TempDir(), "ds.ugm")
	if err := Save(store, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Flip everything, then restore.
	for _, e := range store.Epochs() {
		e.Selected = true
	}

	report, err := Load(store, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Applied != 3 {
		t.Errorf("Applied = %d, want 3", report.Applied)
	}
	if store.Epochs()[1].Selected {
		t.Error("deselected flag not restored")
	}
	if !store.Epochs()[0].Selected || !store.Epochs()[2].Selected {
		t.Error("selected flags not restored")
	}
}

func TestLoad_PartialMismatch(t *testing.T) {
	// Save from one store, load into a store with one record replaced.
	saved := testStore(t, "a", "b", "gone")
	saved.Epochs()[0].Selected = false

	path := filepath.Join(t.TempDir(), "ds.ugm")
	if err := Save(saved, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	current := testStore(t, "a", "b", "new")
	report, err := Load(current, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if report.Applied != 2 {
		t.Errorf("Applied = %d, want 2", report.Applied)
	}
	if report.UnmatchedEntries != 1 {
		t.Errorf("UnmatchedEntries = %d, want 1", report.UnmatchedEntries)
	}
	if report.UnmatchedRecords != 1 {
		t.Errorf("UnmatchedRecords = %d, want 1", report.UnmatchedRecords)
	}

	if current.Epochs()[0].Selected {
		t.Error("matched flag not applied")
	}
	if !current.Epochs()[2].Selected {
		t.Error("unmatched record must keep its current flag")
	}
}

func TestLoad_CorruptedIdentityKey(t *testing.T) {
	uuids := make([]string, 100)
	for i := range uuids {
		uuids[i] = "u" + string(rune('0'+i/10)) + string(rune('0'+i%10))
	}
	store := testStore(t, uuids...)
	for i, e := range store.Epochs() {
		e.Selected = i%2 == 0
	}

	path := filepath.Join(t.TempDir(), "ds.ugm")
	if err := Save(store, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt one record's identity before reload.
	store.Epochs()[42].Attributes["h5_uuid"] = "corrupted"
	for _, e := range store.Epochs() {
		e.Selected = true
	}

	report, err := Load(store, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Applied != 99 {
		t.Errorf("Applied = %d, want 99", report.Applied)
	}
	if report.UnmatchedEntries != 1 {
		t.Errorf("UnmatchedEntries = %d, want 1", report.UnmatchedEntries)
	}
	for i, e := range store.Epochs() {
		if i == 42 {
			continue
		}
		if want := i%2 == 0; e.Selected != want {
			t.Fatalf("record %d flag = %v, want %v", i, e.Selected, want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	store := testStore(t, "a")
	_, err := Load(store, filepath.Join(t.TempDir(), "absent.ugm"))
	if !errors.Is(err, errors.ErrSideFileUnreadable) {
		t.Errorf("err = %v, want ErrSideFileUnreadable", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ugm")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(testStore(t, "a"), path)
	if !errors.Is(err, errors.ErrSideFileUnreadable) {
		t.Errorf("err = %v, want ErrSideFileUnreadable", err)
	}
}

func TestLoad_RejectsOldVersions(t *testing.T) {
	tests := []string{"1.0", "2.0", ""}
	for _, version := range tests {
		path := filepath.Join(t.TempDir(), "old.ugm")
		doc := "version: \"" + version + "\"\nentries: []\n"
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(testStore(t, "a"), path)
		if !errors.Is(err, errors.ErrSideFileVersion) {
			t.Errorf("version %q: err = %v, want ErrSideFileVersion", version, err)
		}
	}
}

func TestSaveAnnotated(t *testing.T) {
	store := testStore(t, "a")
	path := filepath.Join(t.TempDir(), "ds.ugm")

	err := SaveAnnotated(store, path, func(e *epoch.Epoch) map[string]any {
		return map[string]any{"note": "flagged by " + e.IdentityKey()}
	})
	if err != nil {
		t.Fatalf("SaveAnnotated: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "flagged by a"; !strings.Contains(string(data), want) {
		t.Errorf("side file missing annotation %q", want)
	}
}

// =============================================================================
// Naming
// =============================================================================

func TestGenerateFilename(t *testing.T) {
	at := time.Date(2026, 8, 24, 15, 4, 5, 0, time.UTC)
	got := generateFilenameAt("/data/exp/ds.yaml", at)
	want := filepath.Join("/data/exp", "ds.20260824T150405.ugm")
	if got != want {
		t.Errorf("generateFilenameAt = %q, want %q", got, want)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "ds.yaml")

	times := []time.Time{
		time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	var newest string
	for i, at := range times {
		path := generateFilenameAt(source, at)
		if err := os.WriteFile(path, []byte("version: \"1.1\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if i == 1 {
			newest = path
		}
	}

	// A matching name with a garbage timestamp must be ignored.
	bogus := filepath.Join(dir, "ds.notatimestamp.ugm")
	if err := os.WriteFile(bogus, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindLatest(source)
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if got != newest {
		t.Errorf("FindLatest = %q, want %q", got, newest)
	}
}

func TestFindLatest_NoneExist(t *testing.T) {
	source := filepath.Join(t.TempDir(), "ds.yaml")
	got, err := FindLatest(source)
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if got != "" {
		t.Errorf("FindLatest = %q, want empty", got)
	}
}

// =============================================================================
// Restore Policy
// =============================================================================

func TestParseMode(t *testing.T) {
	tests := []struct {
		in       string
		wantMode Mode
		wantPath string
	}{
		{"", RestoreAuto, ""},
		{"auto", RestoreAuto, ""},
		{"none", RestoreNone, ""},
		{"/data/ds.20260101T000000.ugm", RestoreExplicit, "/data/ds.20260101T000000.ugm"},
	}
	for _, tt := range tests {
		mode, path := ParseMode(tt.in)
		if mode != tt.wantMode || path != tt.wantPath {
			t.Errorf("ParseMode(%q) = %v, %q; want %v, %q",
				tt.in, mode, path, tt.wantMode, tt.wantPath)
		}
	}
}

func TestPolicy_None(t *testing.T) {
	store := testStore(t, "a")
	report, err := Policy{Mode: RestoreNone}.Apply(store)
	if err != nil || report != nil {
		t.Errorf("RestoreNone = %v, %v; want nil, nil", report, err)
	}
}

func TestPolicy_AutoAppliesLatest(t *testing.T) {
	store := testStore(t, "a", "b")
	store.Epochs()[0].Selected = false

	path := GenerateFilename(store.SourceFile)
	if err := Save(store, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store.Epochs()[0].Selected = true
	report, err := Policy{Mode: RestoreAuto}.Apply(store)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report == nil || report.Applied != 2 {
		t.Fatalf("report = %+v, want 2 applied", report)
	}
	if store.Epochs()[0].Selected {
		t.Error("auto restore did not apply the saved flag")
	}
}

func TestPolicy_AutoMissingIsNotAnError(t *testing.T) {
	store := testStore(t, "a")
	report, err := Policy{Mode: RestoreAuto}.Apply(store)
	if err != nil || report != nil {
		t.Errorf("missing side file: report = %v, err = %v; want nil, nil", report, err)
	}
}

func TestPolicy_ExplicitMissingIsFatal(t *testing.T) {
	store := testStore(t, "a")
	_, err := Policy{Mode: RestoreExplicit, Path: "/no/such/file.ugm"}.Apply(store)
	if !errors.Is(err, errors.ErrSideFileUnreadable) {
		t.Errorf("err = %v, want ErrSideFileUnreadable", err)
	}
}
