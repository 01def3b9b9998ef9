// Package sidefile - naming convention
//
// Side files are named "<sourceBaseName>.<timestamp>.ugm" and live next to
// the source file. The timestamp suffix makes every save a new artifact;
// discovery picks the most recent one.
package sidefile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// timestampLayout is the filename timestamp format.
const timestampLayout = "20060102T150405"

// GenerateFilename derives a new, timestamp-suffixed side-file path from the
// source file path.
func GenerateFilename(sourceFile string) string {
	return generateFilenameAt(sourceFile, time.Now())
}

func generateFilenameAt(sourceFile string, at time.Time) string {
	dir := filepath.Dir(sourceFile)
	base := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	return filepath.Join(dir, base+"."+at.Format(timestampLayout)+Extension)
}

// FindLatest returns the most recently timestamped side file for the source
// file, or "" if none exist. Files that match the name pattern but carry an
// unparseable timestamp are ignored.
func FindLatest(sourceFile string) (string, error) {
	dir := filepath.Dir(sourceFile)
	base := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))

	pattern := filepath.Join(dir, base+".*"+Extension)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}

	type candidate struct {
		path string
		at   time.Time
	}
	var candidates []candidate

	prefix := base + "."
	for _, match := range matches {
		name := filepath.Base(match)
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), Extension)
		at, perr := time.Parse(timestampLayout, stamp)
		if perr != nil {
			continue
		}
		if info, serr := os.Stat(match); serr != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: match, at: at})
	}

	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].at.After(candidates[j].at)
	})

	return candidates[0].path, nil
}
