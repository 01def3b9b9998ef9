// epict is the epoch-tree session tool: it loads a dataset export, builds
// the grouping tree, restores selection from side files, and opens an
// interactive browsing shell.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ephysio/epictree/config"
	"github.com/ephysio/epictree/internal/analysis"
	"github.com/ephysio/epictree/internal/export"
	"github.com/ephysio/epictree/internal/loader"
	"github.com/ephysio/epictree/internal/logging"
	"github.com/ephysio/epictree/internal/retrieval"
	"github.com/ephysio/epictree/internal/sidefile"
	"github.com/ephysio/epictree/internal/splitter"
	"github.com/ephysio/epictree/internal/tree"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "session config file path")
	restore := flag.String("restore", "", "side-file restore: auto, none, or a path (overrides config)")
	rulesFlag := flag.String("rules", "", "comma-separated grouping rules (overrides config)")
	saveOnExit := flag.Bool("save", false, "write a side file on exit")
	exportPath := flag.String("export", "", "write epoch-metadata parquet and exit")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	logJSON := flag.Bool("log-json", false, "JSON log output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: epict [flags] <dataset.yaml>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	datasetPath := flag.Arg(0)

	// Load config
	cfg := loader.DefaultConfig()
	if *cfgPath != "" {
		loaded, err := loader.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
		cfg = loaded
	}

	// CLI overrides
	if *restore != "" {
		cfg.Restore = *restore
	}
	if *rulesFlag != "" {
		cfg.Rules = strings.Split(*rulesFlag, ",")
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = config.DefaultRules
	}

	if err := loader.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	logging.Info("epict starting", "version", Version, "dataset", datasetPath)

	// =========================================================================
	// Load Dataset
	// =========================================================================

	store, err := loader.LoadDataset(datasetPath)
	if err != nil {
		log.Fatalf("Load dataset: %v", err)
	}

	// =========================================================================
	// Restore Selection from Side File
	// =========================================================================

	mode, sidePath := sidefile.ParseMode(cfg.Restore)
	report, err := sidefile.Policy{Mode: mode, Path: sidePath}.Apply(store)
	if err != nil {
		log.Fatalf("Restore selection: %v", err)
	}
	if report != nil {
		logging.Info("selection restored",
			"applied", report.Applied,
			"unmatched_entries", report.UnmatchedEntries,
			"unmatched_records", report.UnmatchedRecords)
	}

	// =========================================================================
	// Build Tree
	// =========================================================================

	rules := make([]splitter.Rule, 0, len(cfg.Rules))
	for _, name := range cfg.Rules {
		rules = append(rules, splitter.Lookup(name))
	}

	root := tree.Build(store, rules)
	logging.Info("tree built",
		"rules", strings.Join(cfg.Rules, ","),
		"epochs", root.EpochCount(),
		"selected", root.SelectedCount())

	// =========================================================================
	// One-Shot Export Mode
	// =========================================================================

	if *exportPath != "" {
		path := *exportPath
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, config.DefaultExportFilename)
		}
		if err := export.WriteStore(store, path); err != nil {
			log.Fatalf("Export: %v", err)
		}
		logging.Info("export written", "path", path, "rows", store.Len())
		return
	}

	// =========================================================================
	// Interactive Shell
	// =========================================================================

	svc := retrieval.New(retrieval.Config{
		Locations:  cfg.Containers.Locations,
		SearchDirs: cfg.Containers.SearchDirs,
	})
	analyzer := analysis.New(svc, config.DefaultSketchAccuracy)

	sh := newShell(store, root, svc, analyzer, datasetPath)
	sh.run()

	// =========================================================================
	// Save on Exit
	// =========================================================================

	if *saveOnExit || sh.dirty {
		path := sidefile.GenerateFilename(datasetPath)
		if err := sidefile.Save(store, path); err != nil {
			log.Fatalf("Save side file: %v", err)
		}
		logging.Info("side file written", "path", path)
	}
}
