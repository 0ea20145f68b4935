package classes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/wikiplace/pkg/types"
)

// cacheFile is the on-disk form of a fetched index.
type cacheFile struct {
	FetchedAt time.Time           `yaml:"fetched_at"`
	Roots     map[string][]string `yaml:"roots"`
	Sets      map[string][]string `yaml:"sets"`
}

// ReadCache loads a cached index. It reports false when the file is
// missing, older than ttl, or was built from different roots.
func ReadCache(path string, roots types.ClassRoots, ttl time.Duration, now time.Time) (*Index, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading class cache: %w", err)
	}

	var cf cacheFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, false, fmt.Errorf("parsing class cache %s: %w", path, err)
	}
	if ttl > 0 && now.Sub(cf.FetchedAt) > ttl {
		return nil, false, nil
	}
	if !sameRoots(cf.Roots, rootsByName(roots)) {
		return nil, false, nil
	}

	idx := &Index{}
	for _, ns := range idx.Sets() {
		*idx.set(ns.Name) = NewSet(cf.Sets[ns.Name]...)
	}
	return idx, true, nil
}

// WriteCache stores idx at path using a temporary file and rename.
func WriteCache(path string, idx *Index, roots types.ClassRoots, now time.Time) error {
	cf := cacheFile{
		FetchedAt: now.UTC(),
		Roots:     rootsByName(roots),
		Sets:      make(map[string][]string),
	}
	for _, ns := range idx.Sets() {
		cf.Sets[ns.Name] = ns.Set.Sorted()
	}

	data, err := yaml.Marshal(&cf)
	if err != nil {
		return fmt.Errorf("marshaling class cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".classes-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing class cache: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Load returns the cached index when it is fresh, and otherwise fetches
// and caches a new one. refresh skips the cache lookup. A cache write
// failure is logged, not returned.
func Load(ctx context.Context, client *http.Client, cfg types.ClassesConfig, refresh bool, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := time.Now()

	if cfg.CachePath != "" && !refresh {
		idx, ok, err := ReadCache(cfg.CachePath, cfg.Roots, cfg.CacheTTL, now)
		if err != nil {
			logger.Warn("ignoring class cache", "path", cfg.CachePath, "error", err)
		} else if ok {
			logger.Info("using cached class index", "path", cfg.CachePath)
			return idx, nil
		}
	}

	idx, err := Fetch(ctx, client, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.CachePath != "" {
		if err := WriteCache(cfg.CachePath, idx, cfg.Roots, now); err != nil {
			logger.Warn("class cache write failed", "path", cfg.CachePath, "error", err)
		}
	}
	return idx, nil
}

func sameRoots(a, b map[string][]string) bool {
	for name, rb := range b {
		ra := a[name]
		if len(ra) == 0 && len(rb) == 0 {
			continue
		}
		if !reflect.DeepEqual(ra, rb) {
			return false
		}
	}
	return true
}
