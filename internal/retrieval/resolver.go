// Package retrieval resolves waveform data for filtered record sets,
// fetching out-of-core payloads from container files on demand.
//
// This file implements container location resolution. The containerID →
// filesystem mapping is injected configuration with a set-once, read-many
// lifecycle: it is built at session start and consulted on every lazy
// resolution. Only locations are cached here, never payloads.
package retrieval

import (
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ephysio/epictree/internal/container"
	"github.com/ephysio/epictree/internal/errors"
	"github.com/ephysio/epictree/internal/logging"
)

var resolverLog = logging.Component("retrieval")

// Config maps container identifiers to filesystem locations.
type Config struct {
	// Locations maps a containerID directly to its file path.
	// Takes precedence over directory search.
	Locations map[string]string

	// SearchDirs are scanned for "<containerID>.parquet" when the ID has
	// no explicit location.
	SearchDirs []string
}

// Resolver turns container IDs into handles.
type Resolver struct {
	cfg Config

	mu       sync.RWMutex
	resolved map[string]container.Handle

	// group deduplicates concurrent resolutions of the same ID.
	group singleflight.Group
}

// NewResolver creates a resolver over the given configuration.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		cfg:      cfg,
		resolved: make(map[string]container.Handle),
	}
}

// Resolve returns the handle for a container ID. An ID with no configured
// location and no match in the search directories is fatal: lazy payloads
// cannot be fetched without it.
func (r *Resolver) Resolve(id string) (container.Handle, error) {
	r.mu.RLock()
	h, ok := r.resolved[id]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		h, err := r.locate(id)
		if err != nil {
			return container.Handle{}, err
		}

		r.mu.Lock()
		r.resolved[id] = h
		r.mu.Unlock()

		return h, nil
	})
	if err != nil {
		return container.Handle{}, err
	}
	return v.(container.Handle), nil
}

func (r *Resolver) locate(id string) (container.Handle, error) {
	if path, ok := r.cfg.Locations[id]; ok {
		return container.Handle{ID: id, Path: path}, nil
	}

	for _, dir := range r.cfg.SearchDirs {
		path := filepath.Join(dir, id+".parquet")
		if _, err := os.Stat(path); err == nil {
			resolverLog.Debug("container located", "id", id, "path", path)
			return container.Handle{ID: id, Path: path}, nil
		}
	}

	return container.Handle{}, errors.Wrapf(errors.ErrContainerNotFound,
		"container %q has no configured location", id)
}
