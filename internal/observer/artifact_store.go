package observer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smilemakc/anacostia/internal/logging"
	"github.com/smilemakc/anacostia/internal/metadata"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/resource"
)

// ArtifactRecord is one entry in the persisted artifact index: filepath,
// state, created_at.
type ArtifactRecord struct {
	Filepath  string    `json:"filepath"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// ArtifactStoreNode is a ResourceNode that maintains data_store.json, a
// JSON index of tracked files moving through new -> current -> old
// states, grounded on
// original_source/.../resources/artifact_store.py's ArtifactStoreNode
// (setup/on_modified/update_state).
type ArtifactStoreNode struct {
	*resource.ResourceNode

	indexPath string
	store     metadata.Store

	mu      sync.Mutex
	records map[string]*ArtifactRecord
}

// NewArtifactStoreNode builds an ArtifactStoreNode named name, backing
// its index at dir/data_store.json and recording transitions through
// store.
func NewArtifactStoreNode(name, dir string, store metadata.Store, log logging.Sink) *ArtifactStoreNode {
	a := &ArtifactStoreNode{
		indexPath: filepath.Join(dir, "data_store.json"),
		store:     store,
		records:   make(map[string]*ArtifactRecord),
	}

	hooks := &node.BaseHooks{
		SetupFunc: func(ctx context.Context, n *node.Node) error {
			return a.loadIndex()
		},
		ExecuteFunc: func(ctx context.Context, n *node.Node) (bool, error) {
			a.Mutate(ctx, a.promoteNewToCurrent)
			return true, nil
		},
	}

	n := node.New(name, node.KindResource, node.WithAutoTrigger(false), node.WithLogSink(log), node.WithHooks(hooks))
	a.ResourceNode = resource.New(n)
	return a
}

// Track registers filepath as a newly observed artifact (state "new"),
// following artifact_store.py's on_modified handler. Called by a
// DirWatcher or any external caller that observed a new file.
func (a *ArtifactStoreNode) Track(ctx context.Context, path string) error {
	a.mu.Lock()
	a.records[path] = &ArtifactRecord{
		Filepath:  path,
		State:     string(metadata.StateNew),
		CreatedAt: time.Now(),
	}
	a.mu.Unlock()
	if err := a.persistIndex(); err != nil {
		return err
	}
	if a.store != nil {
		_, err := a.store.CreateEntry(ctx, a.Name, path, metadata.StateNew, 0)
		return err
	}
	return nil
}

// promoteNewToCurrent moves every "new" record to "current" and demotes
// the previous "current" generation to "old", mirroring update_state's
// current->old, new->current transitions. Must run under the resource
// mutex (i.e. from within Mutate).
func (a *ArtifactStoreNode) promoteNewToCurrent() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.records {
		switch r.State {
		case string(metadata.StateCurrent):
			r.State = string(metadata.StateOld)
		case string(metadata.StateNew):
			r.State = string(metadata.StateCurrent)
		}
	}
}

func (a *ArtifactStoreNode) loadIndex() error {
	data, err := os.ReadFile(a.indexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var records []ArtifactRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range records {
		r := records[i]
		a.records[r.Filepath] = &r
	}
	return nil
}

func (a *ArtifactStoreNode) persistIndex() error {
	a.mu.Lock()
	records := make([]ArtifactRecord, 0, len(a.records))
	for _, r := range a.records {
		records = append(records, *r)
	}
	a.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.indexPath, data, 0o644)
}
