// Package sidefile - restore policy
//
// A session-level policy decides whether persisted selection state is
// applied when a dataset is opened: discover the latest side file
// automatically, skip restoration entirely, or force a specific file.
package sidefile

import "github.com/ephysio/epictree/internal/epoch"

// Mode selects the restoration behavior.
type Mode int

const (
	// RestoreAuto applies the most recent side file if one exists.
	// A missing or unreadable candidate degrades to no restoration.
	RestoreAuto Mode = iota

	// RestoreNone skips restoration entirely.
	RestoreNone

	// RestoreExplicit applies exactly the configured path. An unreadable
	// file is a hard failure: the caller named it deliberately.
	RestoreExplicit
)

// ParseMode parses a mode string ("auto", "none", or a file path, which
// implies explicit).
func ParseMode(s string) (Mode, string) {
	switch s {
	case "", "auto":
		return RestoreAuto, ""
	case "none":
		return RestoreNone, ""
	default:
		return RestoreExplicit, s
	}
}

// Policy is the constructor-level restoration setting.
type Policy struct {
	Mode Mode

	// Path is the forced side file for RestoreExplicit.
	Path string
}

// Apply restores selection state into the store per the policy. The returned
// report is nil when nothing was applied. Errors are only possible under
// RestoreExplicit.
func (p Policy) Apply(store *epoch.RecordStore) (*Report, error) {
	switch p.Mode {
	case RestoreNone:
		return nil, nil

	case RestoreExplicit:
		report, err := Load(store, p.Path)
		if err != nil {
			return nil, err
		}
		return report, nil

	default: // RestoreAuto
		latest, err := FindLatest(store.SourceFile)
		if err != nil || latest == "" {
			return nil, nil
		}
		log.Info("restoring selection from latest side file", "path", latest)
		report, err := Load(store, latest)
		if err != nil {
			// Auto-discovered candidates are best effort.
			log.Warn("latest side file could not be applied", "path", latest, "error", err)
			return nil, nil
		}
		return report, nil
	}
}
