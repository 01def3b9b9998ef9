// Package sidefile persists user selection state to a versioned side file.
//
// The side file (.ugm, "user-generated metadata") is stored beside the
// dataset's source file and keyed to it by naming convention. Entries match
// records by identity key, never by position, so restoration survives a tree
// rebuild that reorders but does not change record identity. The side file
// is optional: its absence is never an error.
package sidefile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/errors"
	"github.com/ephysio/epictree/internal/logging"
)

var log = logging.Component("sidefile")

// Version is the current side-file format version. Version 1.0 files carried
// a positional selection mask without identity keys and cannot be applied
// safely after a rebuild; they are rejected.
const Version = "1.1"

// Extension is the side-file suffix.
const Extension = ".ugm"

// Entry is one persisted record state.
type Entry struct {
	IdentityKey string         `yaml:"identity_key"`
	Selected    bool           `yaml:"selected"`
	Annotations map[string]any `yaml:"annotations,omitempty"`
}

// File is the side-file document.
type File struct {
	Version    string    `yaml:"version"`
	Created    time.Time `yaml:"created"`
	SourceFile string    `yaml:"source_file,omitempty"`
	EpochCount int       `yaml:"epoch_count"`
	Entries    []Entry   `yaml:"entries"`
}

// Report summarizes a load: how many flags were applied and what did not
// match. Partial mismatch is expected after dataset edits and is never an
// error by itself.
type Report struct {
	// Applied is the number of entries whose record was found and updated.
	Applied int

	// UnmatchedEntries counts persisted entries with no current record.
	UnmatchedEntries int

	// UnmatchedRecords counts current records with no persisted entry;
	// they keep their present flag.
	UnmatchedRecords int

	// SkippedEmpty counts entries without an identity key.
	SkippedEmpty int
}

// AnnotationFunc supplies optional per-record annotations at save time.
type AnnotationFunc func(*epoch.Epoch) map[string]any

// Save writes the selection state of every record in the store to path.
func Save(store *epoch.RecordStore, path string) error {
	return SaveAnnotated(store, path, nil)
}

// SaveAnnotated is Save with an optional per-record annotation provider.
func SaveAnnotated(store *epoch.RecordStore, path string, annotate AnnotationFunc) error {
	doc := File{
		Version:    Version,
		Created:    time.Now(),
		SourceFile: store.SourceFile,
		EpochCount: store.Len(),
		Entries:    make([]Entry, 0, store.Len()),
	}

	for _, e := range store.Epochs() {
		entry := Entry{
			IdentityKey: e.IdentityKey(),
			Selected:    e.Selected,
		}
		if annotate != nil {
			entry.Annotations = annotate(e)
		}
		doc.Entries = append(doc.Entries, entry)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal side file: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write side file: %w", err)
	}

	log.Info("selection state saved", "path", path, "entries", len(doc.Entries))
	return nil
}

// Load reads the side file at path and applies persisted selection flags to
// matching records in the store. Entries with no matching record, and
// records with no matching entry, keep their current state and are counted
// in the report. Only an unreadable or malformed file is an error.
func Load(store *epoch.RecordStore, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSideFileUnreadable, "%s: %v", path, err)
	}

	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(errors.ErrSideFileUnreadable, "%s: %v", path, err)
	}

	if !strings.HasPrefix(doc.Version, "1.") || doc.Version == "1.0" {
		return nil, errors.Wrapf(errors.ErrSideFileVersion, "%s: version %q", path, doc.Version)
	}

	index := store.ByIdentityKey()
	report := &Report{}
	seen := make(map[string]bool, len(doc.Entries))

	for _, entry := range doc.Entries {
		if entry.IdentityKey == "" || entry.IdentityKey == "||" {
			report.SkippedEmpty++
			continue
		}
		record, ok := index[entry.IdentityKey]
		if !ok {
			report.UnmatchedEntries++
			continue
		}
		record.Selected = entry.Selected
		seen[entry.IdentityKey] = true
		report.Applied++
	}

	for key := range index {
		if !seen[key] {
			report.UnmatchedRecords++
		}
	}

	if report.UnmatchedEntries > 0 || report.SkippedEmpty > 0 {
		log.Warn("side file partially matched",
			"path", path,
			"applied", report.Applied,
			"unmatched_entries", report.UnmatchedEntries,
			"skipped_empty", report.SkippedEmpty)
	} else {
		log.Info("selection state restored", "path", path, "applied", report.Applied)
	}

	return report, nil
}
