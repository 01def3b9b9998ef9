// Package epoch - RecordStore
//
// The RecordStore is the canonical ordered collection of epochs for a loaded
// dataset. Membership is fixed at load time; only per-record selection flags
// mutate afterwards. The partitioning engine repartitions the store's records
// into a fresh node hierarchy on every rebuild.
package epoch

// RecordStore owns the flat, ordered epoch collection for one dataset.
type RecordStore struct {
	epochs []*Epoch

	// SourceFile is the path the dataset was loaded from. Used by the
	// persistence layer to derive side-file names. May be empty for
	// in-memory stores (tests).
	SourceFile string
}

// NewRecordStore creates a store over the given epochs. The slice is adopted,
// not copied; callers must not mutate it afterwards.
func NewRecordStore(epochs []*Epoch, sourceFile string) *RecordStore {
	return &RecordStore{
		epochs:     epochs,
		SourceFile: sourceFile,
	}
}

// Epochs returns the store's records in load order. The returned slice is
// shared; callers must treat it as read-only.
func (s *RecordStore) Epochs() []*Epoch {
	return s.epochs
}

// Len returns the number of records.
func (s *RecordStore) Len() int {
	return len(s.epochs)
}

// SelectedCount returns the number of currently selected records, computed by
// scanning the flags. Never cached.
func (s *RecordStore) SelectedCount() int {
	n := 0
	for _, e := range s.epochs {
		if e.Selected {
			n++
		}
	}
	return n
}

// ByIdentityKey builds an index from identity key to record. Records with an
// empty identity key are skipped; on duplicate keys the first record wins.
func (s *RecordStore) ByIdentityKey() map[string]*Epoch {
	idx := make(map[string]*Epoch, len(s.epochs))
	for _, e := range s.epochs {
		key := e.IdentityKey()
		if key == "" || key == "||" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = e
		}
	}
	return idx
}
