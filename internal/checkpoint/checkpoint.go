package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/ttrsuite/lexeval/internal/results"
)

// Store is a durable key-set of completed evaluations plus their records.
// Append must reach stable storage before returning: the store is the
// sole recovery point after a crash or forced termination.
type Store interface {
	Contains(key results.Key) bool
	Append(ctx context.Context, rec *results.ResultRecord) error
	Records(ctx context.Context, runID string) ([]*results.ResultRecord, error)
	Runs(ctx context.Context) ([]RunInfo, error)
	Close() error
}

// RunInfo summarizes one run present in the store.
type RunInfo struct {
	RunID     string
	Models    int
	Tasks     int
	StartedAt time.Time
	LastAt    time.Time
}

// ErrCorrupt marks a checkpoint database that exists but cannot be
// trusted. Resume must fail loudly on it: silently restarting from empty
// state would duplicate completed work and distort aggregates.
var ErrCorrupt = errors.New("checkpoint corrupt")
