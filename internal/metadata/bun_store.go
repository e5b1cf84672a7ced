package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// runModel, entryModel, metricModel, paramModel, tagModel are bun-tagged
// row models, following WorkflowModel's shape in
// smilemakc-mbflow/internal/infrastructure/storage/bun_store.go.
type runModel struct {
	bun.BaseModel `bun:"table:runs,alias:r"`

	ID        int64     `bun:"id,pk,autoincrement"`
	StartedAt time.Time `bun:"started_at,notnull"`
	EndedAt   *time.Time `bun:"ended_at"`
}

type entryModel struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	ID        int64     `bun:"id,pk,autoincrement"`
	NodeName  string    `bun:"node_name,notnull"`
	Filepath  string    `bun:"filepath,notnull"`
	State     string    `bun:"state,notnull"`
	RunID     int64     `bun:"run_id"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type trackerModel struct {
	bun.BaseModel `bun:"table:resource_trackers,alias:t"`

	NodeName string `bun:"node_name,pk"`
}

type metricModel struct {
	bun.BaseModel `bun:"table:metrics,alias:m"`

	ID    int64   `bun:"id,pk,autoincrement"`
	RunID int64   `bun:"run_id,notnull"`
	Key   string  `bun:"key,notnull"`
	Value float64 `bun:"value,notnull"`
}

type paramModel struct {
	bun.BaseModel `bun:"table:params,alias:p"`

	ID    int64  `bun:"id,pk,autoincrement"`
	RunID int64  `bun:"run_id,notnull"`
	Key   string `bun:"key,notnull"`
	Value string `bun:"value,notnull"`
}

type tagModel struct {
	bun.BaseModel `bun:"table:tags,alias:tg"`

	ID    int64  `bun:"id,pk,autoincrement"`
	RunID int64  `bun:"run_id,notnull"`
	Key   string `bun:"key,notnull"`
	Value string `bun:"value,notnull"`
}

// BunStore is a PostgreSQL-backed Store on github.com/uptrace/bun,
// grounded on bun_store.go's connector/schema/transaction style.
type BunStore struct {
	db        *bun.DB
	activeRun int64
}

// NewBunStore opens a pgdriver connection and wraps it in a bun.DB, the
// same construction sequence as bun_store.go's NewBunStore.
func NewBunStore(dsn string) (*BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}, nil
}

// InitSchema creates the tables this store needs if they don't already
// exist, following bun_store.go's CreateTable().IfNotExists() pattern.
func (s *BunStore) InitSchema(ctx context.Context) error {
	models := []any{
		(*runModel)(nil),
		(*entryModel)(nil),
		(*trackerModel)(nil),
		(*metricModel)(nil),
		(*paramModel)(nil),
		(*tagModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", m, err)
		}
	}
	return nil
}

func (s *BunStore) StartRun(ctx context.Context) (int64, error) {
	run := &runModel{StartedAt: time.Now()}
	if _, err := s.db.NewInsert().Model(run).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("starting run: %w", err)
	}
	s.activeRun = run.ID
	return run.ID, nil
}

func (s *BunStore) EndRun(ctx context.Context, runID int64) error {
	now := time.Now()
	_, err := s.db.NewUpdate().Model((*runModel)(nil)).
		Set("ended_at = ?", now).
		Where("id = ?", runID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ending run %d: %w", runID, err)
	}
	if s.activeRun == runID {
		s.activeRun = 0
	}
	return nil
}

func (s *BunStore) GetRunID(ctx context.Context) (int64, error) {
	if s.activeRun == 0 {
		return 0, ErrNoActiveRun
	}
	return s.activeRun, nil
}

func (s *BunStore) CreateResourceTracker(ctx context.Context, nodeName string) error {
	_, err := s.db.NewInsert().Model(&trackerModel{NodeName: nodeName}).
		On("CONFLICT (node_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("creating resource tracker for %q: %w", nodeName, err)
	}
	return nil
}

func (s *BunStore) CreateEntry(ctx context.Context, nodeName, filepath string, state EntryState, runID int64) (Entry, error) {
	row := &entryModel{
		NodeName:  nodeName,
		Filepath:  filepath,
		State:     string(state),
		RunID:     runID,
		CreatedAt: time.Now(),
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return Entry{}, fmt.Errorf("creating entry for %q: %w", filepath, err)
	}
	return Entry{
		ID:        row.ID,
		NodeName:  row.NodeName,
		Filepath:  row.Filepath,
		State:     EntryState(row.State),
		RunID:     row.RunID,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *BunStore) AddRunID(ctx context.Context, entryID, runID int64) error {
	_, err := s.db.NewUpdate().Model((*entryModel)(nil)).
		Set("run_id = ?", runID).
		Set("state = ?", string(StateCurrent)).
		Where("id = ?", entryID).
		Exec(ctx)
	return err
}

func (s *BunStore) AddEndTime(ctx context.Context, entryID int64) error {
	_, err := s.db.NewUpdate().Model((*entryModel)(nil)).
		Set("state = ?", string(StateOld)).
		Where("id = ?", entryID).
		Exec(ctx)
	return err
}

func (s *BunStore) GetNumEntries(ctx context.Context, nodeName string, state EntryState) (int, error) {
	count, err := s.db.NewSelect().Model((*entryModel)(nil)).
		Where("node_name = ? AND state = ?", nodeName, string(state)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting entries for %q/%s: %w", nodeName, state, err)
	}
	return count, nil
}

func (s *BunStore) CreateMetric(ctx context.Context, runID int64, key string, value float64) error {
	_, err := s.db.NewInsert().Model(&metricModel{RunID: runID, Key: key, Value: value}).Exec(ctx)
	return err
}

func (s *BunStore) CreateParam(ctx context.Context, runID int64, key, value string) error {
	_, err := s.db.NewInsert().Model(&paramModel{RunID: runID, Key: key, Value: value}).Exec(ctx)
	return err
}

func (s *BunStore) CreateTag(ctx context.Context, runID int64, key, value string) error {
	_, err := s.db.NewInsert().Model(&tagModel{RunID: runID, Key: key, Value: value}).Exec(ctx)
	return err
}
