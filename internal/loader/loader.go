// Package loader handles session configuration and dataset loading.
//
// This package is responsible for:
//   - Loading the YAML session configuration with env expansion
//   - Validating configuration
//   - Loading dataset export files into a RecordStore
//
// Dataset files are YAML (JSON exports parse as a YAML subset). Loading
// flattens the acquisition hierarchy onto each epoch's attribute bag so
// field-path grouping rules can reach any level.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/errors"
	"github.com/ephysio/epictree/internal/logging"
)

var log = logging.Component("loader")

// =============================================================================
// Session Configuration
// =============================================================================

// LoadConfig loads the session configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate validates the session configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs.AddField("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}

	for id, path := range cfg.Containers.Locations {
		if id == "" {
			errs.AddField("containers.locations", "empty container id")
		}
		if path == "" {
			errs.AddField("containers.locations."+id, "empty path")
		}
	}

	for i, dir := range cfg.Containers.SearchDirs {
		if dir == "" {
			errs.AddField(fmt.Sprintf("containers.search_dirs[%d]", i), "empty directory")
		}
	}

	for i, rule := range cfg.Rules {
		if rule == "" {
			errs.AddField(fmt.Sprintf("rules[%d]", i), "empty rule name")
		}
	}

	return errs.Err()
}

// =============================================================================
// Dataset Loading
// =============================================================================

// LoadDataset reads a dataset export file into a RecordStore.
func LoadDataset(path string) (*epoch.RecordStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidDataset, "parse %s: %v", path, err)
	}

	store := BuildStore(&ds, path)
	log.Info("dataset loaded",
		"path", path,
		"experiments", len(ds.Experiments),
		"epochs", store.Len())

	return store, nil
}

// BuildStore flattens a parsed dataset into a RecordStore. Exposed for
// callers that obtain the dataset structure elsewhere.
func BuildStore(ds *Dataset, sourceFile string) *epoch.RecordStore {
	var epochs []*epoch.Epoch

	for _, exp := range ds.Experiments {
		expAttrs := map[string]any{
			"exp_name":     exp.ExpName,
			"label":        exp.Label,
			"experimenter": exp.Experimenter,
			"rig":          exp.Rig,
			"institution":  exp.Institution,
		}
		for _, cell := range exp.Cells {
			cellAttrs := map[string]any{
				"label": cell.Label,
				"type":  cell.Type,
			}
			for k, v := range cell.Properties {
				cellAttrs[k] = v
			}
			for _, group := range cell.EpochGroups {
				for _, block := range group.Blocks {
					for _, entry := range block.Epochs {
						epochs = append(epochs, buildEpoch(entry, block, group, cellAttrs, expAttrs))
					}
				}
			}
		}
	}

	return epoch.NewRecordStore(epochs, sourceFile)
}

func buildEpoch(entry *EpochEntry, block *EpochBlock, group *EpochGroup, cellAttrs, expAttrs map[string]any) *epoch.Epoch {
	protocolName := block.ProtocolName
	protocolID := block.ProtocolID
	if protocolName == "" {
		protocolName = group.ProtocolName
	}
	if protocolID == 0 {
		protocolID = group.ProtocolID
	}

	attrs := epoch.AttributeBag{
		"h5_uuid":       entry.H5UUID,
		"label":         entry.Label,
		"start_time":    entry.StartTime,
		"end_time":      entry.EndTime,
		"protocol_name": protocolName,
		"protocol_id":   protocolID,
		"group_label":   group.Label,
		"block_label":   block.Label,
		"cell":          cellAttrs,
		"experiment":    expAttrs,
	}

	// Flattened protocol parameters land beside the fixed attributes so a
	// field-path rule like "stimulus_spot_intensity" reaches them.
	for k, v := range FlattenParams(block.Parameters, "") {
		attrs[k] = v
	}
	for k, v := range FlattenParams(entry.Parameters, "") {
		attrs[k] = v
	}

	e := epoch.New(attrs)

	for _, resp := range entry.Responses {
		if resp.DeviceName == "" {
			continue
		}
		e.Responses[resp.DeviceName] = &epoch.Response{
			DeviceName:   resp.DeviceName,
			Data:         resp.Data,
			SampleRate:   ParseSampleRate(resp.SampleRate),
			Units:        resp.Units,
			ContainerID:  resp.ContainerID,
			InternalPath: resp.H5Path,
		}
	}

	return e
}
