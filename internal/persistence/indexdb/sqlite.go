package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"scenefacts.ai/internal/scene/describe"
	"scenefacts.ai/internal/scene/registry"
	"scenefacts.ai/internal/service"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable side index of an episode: the entity registry
// built at startup and one row per described step. The fact log stays the
// source of truth; steps are dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan stepRow
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	drops  atomic.Uint64
	now    func() time.Time
}

type stepRow struct {
	Step       uint64
	Agents     int
	Removed    int
	Facts      int
	RecordedAt string
}

// StepSummary is a row of the steps table.
type StepSummary struct {
	Step       uint64 `json:"step"`
	Agents     int    `json:"agents"`
	Removed    int    `json:"removed"`
	Facts      int    `json:"facts"`
	RecordedAt string `json:"recorded_at"`
}

type Stats struct {
	DropStepTotal uint64
	QueueDepth    int
	QueueCapacity int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, buffer int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		ch:  make(chan stepRow, buffer),
		now: time.Now,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS entities (
			kind TEXT NOT NULL,
			id INTEGER NOT NULL,
			centroid_row INTEGER NOT NULL,
			centroid_col INTEGER NOT NULL,
			size INTEGER NOT NULL,
			cells_json TEXT NOT NULL,
			PRIMARY KEY (kind, id)
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			step INTEGER PRIMARY KEY,
			agents INTEGER NOT NULL,
			removed INTEGER NOT NULL,
			facts INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordEntities replaces the entity rows of kind. It runs synchronously:
// it is called once per episode, before any step is described.
func (s *SQLiteIndex) RecordEntities(ctx context.Context, kind describe.Kind, ents []registry.Entity) error {
	if s == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('substrate',?)`, string(kind)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE kind=?`, string(kind)); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entities(kind,id,centroid_row,centroid_col,size,cells_json) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range ents {
		cells := make([][2]int, 0, len(e.Members))
		for _, p := range e.Members {
			cells = append(cells, p.ToArray())
		}
		b, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, string(kind), e.ID, e.Centroid.Row, e.Centroid.Col, len(e.Members), string(b)); err != nil {
			return fmt.Errorf("entity %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// RecordStep queues a step summary. It never blocks the caller.
func (s *SQLiteIndex) RecordStep(rec service.StepRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	r := stepRow{
		Step:       rec.Step,
		Agents:     rec.Agents,
		Removed:    rec.Removed,
		Facts:      rec.Facts,
		RecordedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- r:
	default:
		s.drops.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropStepTotal: s.drops.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

// Meta returns a value of the meta table ("" when unset).
func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// RecentSteps returns up to limit steps, newest first.
func (s *SQLiteIndex) RecentSteps(ctx context.Context, limit int) ([]StepSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT step,agents,removed,facts,recorded_at FROM steps ORDER BY step DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StepSummary{}
	for rows.Next() {
		var (
			st   StepSummary
			step int64
		)
		if err := rows.Scan(&step, &st.Agents, &st.Removed, &st.Facts, &st.RecordedAt); err != nil {
			return nil, err
		}
		st.Step = uint64(step)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertStep, _ := s.db.Prepare(`INSERT OR REPLACE INTO steps(step,agents,removed,facts,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertStep != nil {
			_ = insertStep.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil || insertStep == nil {
			continue
		}
		if _, err := tx.Stmt(insertStep).Exec(int64(r.Step), r.Agents, r.Removed, r.Facts, r.RecordedAt); err != nil {
			rollback()
			continue
		}
		opCount++
		// Commit eagerly once the queue drains so readers see recent steps.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}
