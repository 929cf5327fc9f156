package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded per item.
const (
	ActionDelete = "DELETE"
	ActionDryRun = "DRY_RUN"
	ActionSkip   = "SKIP"
	ActionError  = "ERROR"
)

// Phases of a cleanup run.
const (
	PhasePrimary = "primary"
	PhasePrune   = "prune"
)

// HistoryDB manages the SQLite database of processed items
type HistoryDB struct {
	db *sql.DB
}

// Record represents one processed item
type Record struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	Action       string
	Phase        string
	Path         string
	FileName     string
	ObjectType   string
	Size         int64
	BackupPath   string
	ErrorMessage string
}

// Open creates a new database connection and initializes schema
func Open(dbPath string) (*HistoryDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto makes DATETIME columns scan into time.Time.
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	h := &HistoryDB{db: db}
	if err = h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return h, nil
}

func (h *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		phase TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		backup_path TEXT,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_history_run ON history(run_id);
	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp);
	CREATE INDEX IF NOT EXISTS idx_history_action ON history(action);
	CREATE INDEX IF NOT EXISTS idx_history_path ON history(path);
	CREATE INDEX IF NOT EXISTS idx_history_size ON history(size);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := h.db.Exec(schema)
	return err
}

// Record inserts one processed item. Zero Timestamp means now.
func (h *HistoryDB) Record(r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.FileName == "" {
		r.FileName = filepath.Base(r.Path)
	}

	_, err := h.db.Exec(`
	INSERT INTO history (
		run_id, timestamp, action, phase, path, file_name,
		object_type, size, backup_path, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		r.Timestamp,
		r.Action,
		r.Phase,
		r.Path,
		r.FileName,
		r.ObjectType,
		r.Size,
		nullable(r.BackupPath),
		nullable(r.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", r.Path, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Vacuum reclaims space after DeleteOldRecords.
func (h *HistoryDB) Vacuum() error {
	_, err := h.db.Exec("VACUUM")
	return err
}

// NewRunID returns a sortable identifier for one cleanup run.
func NewRunID(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return now.UTC().Format("20060102T150405Z") + "-" + hex.EncodeToString(b[:])
}
