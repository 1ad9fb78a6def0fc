package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

// SQLiteStore keeps one row per (date, group) in a local SQLite database
type SQLiteStore struct {
	db       *sql.DB
	dbPath   string
	clock    clock.Clock
	mutex    sync.RWMutex
	prepared map[string]*sql.Stmt
}

// NewSQLiteStore opens or creates the database at dbPath
func NewSQLiteStore(dbPath string, clk clock.Clock) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL&_cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		dbPath:   dbPath,
		clock:    clk,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	klog.V(2).InfoS("Opened sample database", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS group_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sample_date DATETIME NOT NULL,
		group_key TEXT NOT NULL,
		value REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(sample_date, group_key)
	);

	CREATE INDEX IF NOT EXISTS idx_sample_date ON group_samples(sample_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	statements := map[string]string{
		"upsert": `
			INSERT INTO group_samples (sample_date, group_key, value)
			VALUES (?, ?, ?)
			ON CONFLICT(sample_date, group_key) DO UPDATE SET value = excluded.value
		`,
		"select_range": `
			SELECT sample_date, group_key, value
			FROM group_samples
			WHERE sample_date BETWEEN ? AND ?
			ORDER BY sample_date ASC, group_key ASC
		`,
		"select_all": `
			SELECT sample_date, group_key, value
			FROM group_samples
			ORDER BY sample_date ASC, group_key ASC
		`,
		"cleanup": `
			DELETE FROM group_samples
			WHERE sample_date < ?
		`,
	}

	for name, query := range statements {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		s.prepared[name] = stmt
	}
	return nil
}

// Store upserts every group value of the sample in one transaction
func (s *SQLiteStore) Store(sample series.Sample) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt := tx.Stmt(s.prepared["upsert"])
	date := sample.Date.UTC()
	for group, value := range sample.Values {
		if _, err := stmt.Exec(date, string(group), value); err != nil {
			tx.Rollback()
			klog.V(2).InfoS("Failed to store sample", "date", date, "group", group, "err", err)
			return fmt.Errorf("failed to store %s on %s: %w", group, date.Format(time.DateOnly), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sample: %w", err)
	}

	klog.V(3).InfoS("Stored sample",
		"date", date,
		"groups", len(sample.Values))
	return nil
}

// Range returns samples dated within [start, end]
func (s *SQLiteStore) Range(start, end time.Time) ([]series.Sample, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.prepared["select_range"].Query(start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// All returns every stored sample
func (s *SQLiteStore) All() ([]series.Sample, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.prepared["select_all"].Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// scanSamples folds consecutive (date, group, value) rows into samples
func scanSamples(rows *sql.Rows) ([]series.Sample, error) {
	var samples []series.Sample

	for rows.Next() {
		var (
			date  time.Time
			group string
			value float64
		)
		if err := rows.Scan(&date, &group, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		date = date.UTC()

		if n := len(samples); n == 0 || !samples[n-1].Date.Equal(date) {
			samples = append(samples, series.Sample{
				Date:   date,
				Values: make(map[common.GroupKey]float64),
			})
		}
		samples[len(samples)-1].Values[common.GroupKey(group)] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return samples, nil
}

// Cleanup removes samples dated before the retention window. A
// non-positive retention keeps everything.
func (s *SQLiteStore) Cleanup(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoffTime := cutoff(s.clock, retentionDays)
	result, err := s.prepared["cleanup"].Exec(cutoffTime)
	if err != nil {
		return fmt.Errorf("failed to cleanup old samples: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	klog.V(2).InfoS("Cleaned up old samples",
		"cutoff", cutoffTime,
		"rowsDeleted", rowsAffected)
	return nil
}

// Close releases the prepared statements and the database
func (s *SQLiteStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, stmt := range s.prepared {
		stmt.Close()
	}
	return s.db.Close()
}
