// Package config provides configuration defaults and utilities
// for the epictree session tooling.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via the session config file.
package config

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is the default structured-log level.
	// Override via config: logging.level
	DefaultLogLevel = "info"
)

// =============================================================================
// Restore Defaults
// =============================================================================

const (
	// DefaultRestoreMode selects side-file restoration at session start.
	// "auto" restores the newest matching side file when one exists,
	// "none" skips restoration, any other value is an explicit file path.
	// Override via config: restore
	DefaultRestoreMode = "auto"
)

// =============================================================================
// Grouping Defaults
// =============================================================================

// DefaultRules is the grouping-rule list applied when the session config
// names none. Matches the conventional browse order: cell type, then cell,
// then protocol.
// Override via config: rules
var DefaultRules = []string{"cellType", "cellLabel", "protocol"}

// =============================================================================
// Analysis Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the relative accuracy of percentile sketches
	// in stream summaries (1% error).
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Export Defaults
// =============================================================================

const (
	// DefaultExportFilename is the epoch-metadata export name used when the
	// caller gives a directory instead of a file path.
	DefaultExportFilename = "epochs.parquet"
)
