package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"scenefacts.ai/internal/persistence/indexdb"
	"scenefacts.ai/internal/service"
)

// openRuntimeIndex opens the optional episode index. A nil index means
// indexing is off; the fact log is written either way.
func openRuntimeIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SF_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "episode.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported SF_INDEX_BACKEND: %s", backend)
	}
}

// stepCounter feeds /metrics and forwards to the index when there is one.
type stepCounter struct {
	next service.StepIndex

	steps   atomic.Uint64
	agents  atomic.Uint64
	removed atomic.Uint64
	facts   atomic.Uint64
}

func (c *stepCounter) RecordStep(rec service.StepRecord) {
	c.steps.Add(1)
	c.agents.Add(uint64(rec.Agents))
	c.removed.Add(uint64(rec.Removed))
	c.facts.Add(uint64(rec.Facts))
	if c.next != nil {
		c.next.RecordStep(rec)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
