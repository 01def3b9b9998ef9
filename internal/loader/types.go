// Package loader - configuration and dataset types
//
// Defines the YAML session configuration and the dataset export structure.
// The dataset layout mirrors the acquisition hierarchy (experiment → cell →
// epoch group → epoch block → epoch); loading flattens it into the flat
// record store the partitioning engine regroups on demand.
package loader

// =============================================================================
// Session Configuration
// =============================================================================

// Config is the root session configuration.
type Config struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Containers maps container identifiers to filesystem locations for
	// lazy payload resolution. Set once at session start.
	Containers ContainersConfig `yaml:"containers"`

	// Restore selects side-file restoration: "auto", "none", or an
	// explicit file path.
	Restore string `yaml:"restore"`

	// Rules is the default grouping-rule list (canonical names or field
	// paths), applied when the caller gives none.
	Rules []string `yaml:"rules"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error". Default: "info".
	Level string `yaml:"level"`

	// JSON switches output from text to JSON.
	JSON bool `yaml:"json"`
}

// ContainersConfig locates waveform containers.
type ContainersConfig struct {
	// Locations maps a containerID directly to a file path.
	Locations map[string]string `yaml:"locations"`

	// SearchDirs are scanned for "<containerID>.parquet".
	SearchDirs []string `yaml:"search_dirs"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Restore: "auto",
	}
}

// =============================================================================
// Dataset Export Structure
// =============================================================================

// Dataset is the root of a dataset export file.
type Dataset struct {
	FormatVersion string         `yaml:"format_version"`
	Metadata      map[string]any `yaml:"metadata"`
	Experiments   []*Experiment  `yaml:"experiments"`
}

// Experiment is one recording session.
type Experiment struct {
	ExpName      string  `yaml:"exp_name"`
	Label        string  `yaml:"label"`
	H5UUID       string  `yaml:"h5_uuid"`
	Experimenter string  `yaml:"experimenter"`
	Rig          string  `yaml:"rig"`
	Institution  string  `yaml:"institution"`
	Cells        []*Cell `yaml:"cells"`
}

// Cell is one recorded cell.
type Cell struct {
	Label       string         `yaml:"label"`
	Type        string         `yaml:"type"`
	H5UUID      string         `yaml:"h5_uuid"`
	Properties  map[string]any `yaml:"properties"`
	EpochGroups []*EpochGroup  `yaml:"epoch_groups"`
}

// EpochGroup is a labeled run of one protocol.
type EpochGroup struct {
	Label        string        `yaml:"label"`
	ProtocolName string        `yaml:"protocol_name"`
	ProtocolID   int           `yaml:"protocol_id"`
	H5UUID       string        `yaml:"h5_uuid"`
	Blocks       []*EpochBlock `yaml:"epoch_blocks"`
}

// EpochBlock is a contiguous block of trials within a group.
type EpochBlock struct {
	Label        string         `yaml:"label"`
	ProtocolName string         `yaml:"protocol_name"`
	ProtocolID   int            `yaml:"protocol_id"`
	Parameters   map[string]any `yaml:"parameters"`
	Epochs       []*EpochEntry  `yaml:"epochs"`
}

// EpochEntry is one measurement trial in the export.
type EpochEntry struct {
	H5UUID     string           `yaml:"h5_uuid"`
	Label      string           `yaml:"label"`
	StartTime  string           `yaml:"start_time"`
	EndTime    string           `yaml:"end_time"`
	Parameters map[string]any   `yaml:"parameters"`
	Responses  []*ResponseEntry `yaml:"responses"`
}

// ResponseEntry is one waveform stream of a trial. Either Data is inline or
// ContainerID/H5Path reference an external container.
type ResponseEntry struct {
	DeviceName  string    `yaml:"device_name"`
	Data        []float64 `yaml:"data"`
	SampleRate  any       `yaml:"sample_rate"` // number or "10 kHz" style string
	Units       string    `yaml:"units"`
	ContainerID string    `yaml:"container_id"`
	H5Path      string    `yaml:"h5_path"`
}
