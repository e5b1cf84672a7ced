// Package metadata implements the metadata store collaborator: run/entry
// bookkeeping for resource nodes, kept behind an interface so the core
// never depends on a concrete database.
//
// Grounded on original_source/anacostia_pipeline/metadata/sql_metadata_store.py
// (Run/Metric/Param/Tag/Sample/Node models, get_run_id/create_entry/
// add_run_id/add_end_time/start_run/end_run) and
// smilemakc-mbflow/internal/infrastructure/storage/bun_store.go for the
// Postgres-backed implementation's transaction/upsert style.
package metadata

import (
	"context"
	"errors"
	"time"
)

// EntryState is the lifecycle phase of a tracked resource entry:
// new -> current -> old.
type EntryState string

const (
	StateNew     EntryState = "new"
	StateCurrent EntryState = "current"
	StateOld     EntryState = "old"
)

// Entry is one tracked artifact/file under a resource node.
type Entry struct {
	ID        int64
	NodeName  string
	Filepath  string
	State     EntryState
	RunID     int64
	CreatedAt time.Time
}

// ErrNoActiveRun is returned by operations that require a started run
// when none is active.
var ErrNoActiveRun = errors.New("metadata: no active run")

// Store is the collaborator interface: start_run, end_run, get_run_id,
// create_resource_tracker, create_entry, add_run_id, add_end_time,
// get_num_entries. CreateMetric/CreateParam/CreateTag recover the
// original's Metric/Param/Tag tables; nothing outside this package's
// tests calls them.
type Store interface {
	StartRun(ctx context.Context) (int64, error)
	EndRun(ctx context.Context, runID int64) error
	GetRunID(ctx context.Context) (int64, error)

	CreateResourceTracker(ctx context.Context, nodeName string) error
	CreateEntry(ctx context.Context, nodeName, filepath string, state EntryState, runID int64) (Entry, error)
	AddRunID(ctx context.Context, entryID, runID int64) error
	AddEndTime(ctx context.Context, entryID int64) error
	GetNumEntries(ctx context.Context, nodeName string, state EntryState) (int, error)

	CreateMetric(ctx context.Context, runID int64, key string, value float64) error
	CreateParam(ctx context.Context, runID int64, key, value string) error
	CreateTag(ctx context.Context, runID int64, key, value string) error
}
