package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ttrsuite/lexeval/internal/results"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB

	insertStmt  *sql.Stmt
	recordsStmt *sql.Stmt

	mu        sync.RWMutex
	completed map[results.Key]bool
}

var checkpointColumns = []string{
	"run_id", "model_id", "task_id", "backend", "benchmark", "category",
	"prompt", "raw_response", "parsed_answer", "ground_truth",
	"score", "is_correct", "inst_level", "latency_ms", "tokens_generated",
	"thinking_tokens", "tok_s", "error", "created_at",
}

// Open opens or creates a checkpoint store at path. An existing database
// that fails validation returns ErrCorrupt.
func Open(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("checkpoint: empty sqlite path")
	}

	existed := false
	if path != ":memory:" {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			existed = true
		}
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("checkpoint: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		if existed {
			return nil, fmt.Errorf("checkpoint: %w: %v", ErrCorrupt, err)
		}
		return nil, fmt.Errorf("checkpoint: ping sqlite: %w", err)
	}

	if existed {
		if err := validateSchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := &SQLiteStore{db: db, completed: make(map[results.Key]bool)}
	if err := st.prepareStatements(); err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := st.loadCompleted(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = FULL`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			run_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			backend TEXT NOT NULL,
			benchmark TEXT NOT NULL,
			category TEXT NOT NULL,
			prompt TEXT NOT NULL,
			raw_response TEXT NOT NULL,
			parsed_answer TEXT NOT NULL,
			ground_truth TEXT NOT NULL,
			score REAL NOT NULL,
			is_correct INTEGER NOT NULL,
			inst_level REAL NOT NULL,
			latency_ms INTEGER NOT NULL,
			tokens_generated INTEGER NOT NULL,
			thinking_tokens INTEGER NOT NULL,
			tok_s REAL NOT NULL,
			error TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, model_id, task_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_model ON checkpoints(model_id, benchmark)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("checkpoint: init schema: %w", err)
		}
	}
	return nil
}

// validateSchema confirms an existing database carries the expected
// checkpoints table with the expected columns.
func validateSchema(db *sql.DB) error {
	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'checkpoints'`,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checkpoint: %w: checkpoints table missing", ErrCorrupt)
	}
	if err != nil {
		return fmt.Errorf("checkpoint: %w: %v", ErrCorrupt, err)
	}

	rows, err := db.Query(`PRAGMA table_info(checkpoints)`)
	if err != nil {
		return fmt.Errorf("checkpoint: %w: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("checkpoint: %w: %v", ErrCorrupt, err)
		}
		cols[colName] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checkpoint: %w: %v", ErrCorrupt, err)
	}

	for _, want := range checkpointColumns {
		if !cols[want] {
			return fmt.Errorf("checkpoint: %w: column %q missing", ErrCorrupt, want)
		}
	}
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error
	s.insertStmt, err = s.db.Prepare(`INSERT OR REPLACE INTO checkpoints (
		run_id, model_id, task_id, backend, benchmark, category,
		prompt, raw_response, parsed_answer, ground_truth,
		score, is_correct, inst_level, latency_ms, tokens_generated,
		thinking_tokens, tok_s, error, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("checkpoint: prepare insert: %w", err)
	}

	s.recordsStmt, err = s.db.Prepare(`SELECT
		run_id, model_id, task_id, backend, benchmark, category,
		prompt, raw_response, parsed_answer, ground_truth,
		score, is_correct, inst_level, latency_ms, tokens_generated,
		thinking_tokens, tok_s, error, created_at
	FROM checkpoints WHERE run_id = ? ORDER BY created_at, model_id, task_id`)
	if err != nil {
		return fmt.Errorf("checkpoint: prepare records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadCompleted() error {
	rows, err := s.db.Query(`SELECT run_id, model_id, task_id FROM checkpoints`)
	if err != nil {
		return fmt.Errorf("checkpoint: load keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k results.Key
		if err := rows.Scan(&k.RunID, &k.ModelID, &k.TaskID); err != nil {
			return fmt.Errorf("checkpoint: %w: %v", ErrCorrupt, err)
		}
		s.completed[k] = true
	}
	return rows.Err()
}

// Contains reports whether a completed record exists for key.
func (s *SQLiteStore) Contains(key results.Key) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed[key]
}

// Append durably stores one record. synchronous=FULL makes the insert a
// flush-to-stable-storage barrier before the executor advances.
func (s *SQLiteStore) Append(ctx context.Context, rec *results.ResultRecord) error {
	if s == nil || s.insertStmt == nil {
		return errors.New("checkpoint: nil store")
	}
	if rec == nil {
		return errors.New("checkpoint: nil record")
	}
	if ctx == nil {
		return errors.New("checkpoint: nil context")
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.insertStmt.ExecContext(ctx,
		rec.RunID, rec.ModelID, rec.TaskID, rec.Backend, rec.Benchmark, rec.Category,
		rec.Prompt, rec.RawResponse, rec.ParsedAnswer, rec.GroundTruth,
		rec.Score, boolToInt(rec.Correct), rec.InstLevelScore, rec.LatencyMs, rec.TokensGenerated,
		rec.ThinkingTokens, rec.TokensPerSec, rec.Error, ts.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("checkpoint: append: %w", err)
	}

	s.mu.Lock()
	s.completed[results.RecordKey(rec)] = true
	s.mu.Unlock()
	return nil
}

// Records returns all records of a run in insertion order.
func (s *SQLiteStore) Records(ctx context.Context, runID string) ([]*results.ResultRecord, error) {
	if s == nil || s.recordsStmt == nil {
		return nil, errors.New("checkpoint: nil store")
	}

	rows, err := s.recordsStmt.QueryContext(ctx, strings.TrimSpace(runID))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: records: %w", err)
	}
	defer rows.Close()

	var out []*results.ResultRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Runs lists runs present in the store, most recent first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunInfo, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("checkpoint: nil store")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		run_id, COUNT(DISTINCT model_id), COUNT(*), MIN(created_at), MAX(created_at)
	FROM checkpoints GROUP BY run_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info            RunInfo
			startMs, lastMs int64
		)
		if err := rows.Scan(&info.RunID, &info.Models, &info.Tasks, &startMs, &lastMs); err != nil {
			return nil, fmt.Errorf("checkpoint: scan run: %w", err)
		}
		info.StartedAt = time.UnixMilli(startMs)
		info.LastAt = time.UnixMilli(lastMs)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	if s.insertStmt != nil {
		_ = s.insertStmt.Close()
	}
	if s.recordsStmt != nil {
		_ = s.recordsStmt.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanRecord(rows *sql.Rows) (*results.ResultRecord, error) {
	var (
		rec       results.ResultRecord
		isCorrect int
		createdMs int64
	)
	if err := rows.Scan(
		&rec.RunID, &rec.ModelID, &rec.TaskID, &rec.Backend, &rec.Benchmark, &rec.Category,
		&rec.Prompt, &rec.RawResponse, &rec.ParsedAnswer, &rec.GroundTruth,
		&rec.Score, &isCorrect, &rec.InstLevelScore, &rec.LatencyMs, &rec.TokensGenerated,
		&rec.ThinkingTokens, &rec.TokensPerSec, &rec.Error, &createdMs,
	); err != nil {
		return nil, fmt.Errorf("checkpoint: scan record: %w", err)
	}
	rec.Correct = isCorrect != 0
	rec.Timestamp = time.UnixMilli(createdMs)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
