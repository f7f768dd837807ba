package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/pkg/filesystem"
	"github.com/doeshing/spechealth/internal/ports"
)

// timestampLayout sorts lexically in the same order as chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists run summaries in a SQLite database. When the database
// cannot be opened it degrades to a JSONL FileStore next to it.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
	mu       sync.Mutex
}

// DefaultDir is where history lives unless configured otherwise.
func DefaultDir() string {
	return filesystem.AppPath("history")
}

// NewSQLiteStore creates (or opens) dir/history.db.
func NewSQLiteStore(dir string) *SQLiteStore {
	path := filepath.Join(dir, "history.db")
	fallback := NewFileStore(filepath.Join(dir, "history.jsonl"))
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return &SQLiteStore{path: path, fallback: fallback}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path, fallback: fallback}
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return &SQLiteStore{path: path, fallback: fallback}
	}
	return store
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		repo_path TEXT,
		provider_type TEXT,
		total INTEGER,
		passed INTEGER,
		failed INTEGER,
		warnings INTEGER,
		skipped INTEGER,
		score INTEGER,
		execution_time_ms INTEGER,
		orchestration_error TEXT
	);`)
	return err
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.HistoryRecord) error {
	if s.db == nil {
		return s.fallback.Save(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO runs
		(run_id, timestamp, repo_path, provider_type, total, passed, failed, warnings, skipped, score, execution_time_ms, orchestration_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Timestamp.UTC().Format(timestampLayout),
		record.RepoPath,
		record.ProviderType,
		record.Total,
		record.Passed,
		record.Failed,
		record.Warnings,
		record.Skipped,
		record.Score,
		record.ExecutionTimeMS,
		record.OrchestrationError,
	)
	return errors.Wrap(err, "insert run")
}

// Records returns the newest records first; limit <= 0 means all.
func (s *SQLiteStore) Records(limit int) ([]domain.HistoryRecord, error) {
	if s.db == nil {
		return s.fallback.Records(limit)
	}
	builder := strings.Builder{}
	builder.WriteString(`SELECT run_id, timestamp, repo_path, provider_type, total, passed, failed,
		warnings, skipped, score, execution_time_ms, orchestration_error FROM runs ORDER BY timestamp DESC, id DESC`)
	var args []interface{}
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var (
			rec     domain.HistoryRecord
			ts      string
			orchErr sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &ts, &rec.RepoPath, &rec.ProviderType, &rec.Total, &rec.Passed, &rec.Failed,
			&rec.Warnings, &rec.Skipped, &rec.Score, &rec.ExecutionTimeMS, &orchErr); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if t, err := time.Parse(timestampLayout, ts); err == nil {
			rec.Timestamp = t
		}
		rec.OrchestrationError = orchErr.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes records older than the cutoff and reports how many went.
func (s *SQLiteStore) Prune(olderThan time.Time) (int, error) {
	if s.db == nil {
		return s.fallback.Prune(olderThan)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM runs WHERE timestamp < ?", olderThan.UTC().Format(timestampLayout))
	if err != nil {
		return 0, errors.Wrap(err, "prune runs")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback.Clear()
	}
	_, err := s.db.Exec("DELETE FROM runs")
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the backing database path, or the JSONL path in fallback mode.
func (s *SQLiteStore) Path() string {
	if s.db == nil {
		return s.fallback.Path()
	}
	return s.path
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
