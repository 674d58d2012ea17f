package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"imagededup/logging"
	"imagededup/types"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS descriptors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		hash_size INTEGER NOT NULL,
		descriptor TEXT NOT NULL,
		modified_at TEXT NOT NULL,
		size INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(path, kind, hash_size)
	);
	CREATE INDEX IF NOT EXISTS idx_descriptors_path ON descriptors(path);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		variant TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		reference TEXT,
		threshold REAL NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		state TEXT NOT NULL,
		matched_path TEXT,
		distance REAL,
		destination TEXT,
		error TEXT,
		recorded_at TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs (id)
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);`

// InitDatabase opens the journal database and creates its schema
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// One writer keeps sqlite3 from reporting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logging.DebugLog("Journal database ready at %s", dbPath)
	return db, nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// LookupDescriptor returns the cached descriptor for path when its stored
// modification time and size still match the file.
func LookupDescriptor(db *sql.DB, path, kind string, hashSize int, modifiedAt string, size int64) (string, bool, error) {
	var descriptor, storedMod string
	var storedSize int64
	err := db.QueryRow(
		`SELECT descriptor, modified_at, size FROM descriptors WHERE path = ? AND kind = ? AND hash_size = ?`,
		path, kind, hashSize,
	).Scan(&descriptor, &storedMod, &storedSize)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("database error for %s: %w", path, err)
	}

	if storedMod != modifiedAt || storedSize != size {
		return "", false, nil
	}
	return descriptor, true, nil
}

// StoreDescriptor inserts or replaces the cached descriptor of an image
func StoreDescriptor(db *sql.DB, rec types.ImageRecord, hashSize int) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO descriptors (
			path, kind, hash_size, descriptor, modified_at, size, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Path, rec.Kind, hashSize, rec.Descriptor, rec.ModifiedAt, rec.Size,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cannot store descriptor for %s: %w", rec.Path, err)
	}
	return nil
}

// Run describes one scan invocation
type Run struct {
	ID          string
	Variant     string
	Source      string
	Destination string
	Reference   string
	Threshold   float64
	DryRun      bool
}

// StartRun records the beginning of a scan
func StartRun(db *sql.DB, run Run) error {
	_, err := db.Exec(`
		INSERT INTO runs (id, variant, source, destination, reference, threshold, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Variant, run.Source, run.Destination, run.Reference, run.Threshold, run.DryRun,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cannot start run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stamps the end time of a scan
func FinishRun(db *sql.DB, runID string) error {
	_, err := db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("cannot finish run %s: %w", runID, err)
	}
	return nil
}

// Outcome is the terminal state of one file in a run
type Outcome struct {
	RunID       string
	Path        string
	State       types.FileState
	MatchedPath string
	Distance    float64
	Destination string
	Error       string
}

// RecordOutcome stores a file outcome
func RecordOutcome(db *sql.DB, o Outcome) error {
	_, err := db.Exec(`
		INSERT INTO outcomes (run_id, path, state, matched_path, distance, destination, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Path, string(o.State), nullString(o.MatchedPath), o.Distance,
		nullString(o.Destination), nullString(o.Error), time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cannot record outcome for %s: %w", o.Path, err)
	}
	return nil
}

// RunStats contains statistics from a scan operation
type RunStats struct {
	Run        Run
	StartedAt  string
	FinishedAt string
	Unique     int
	Duplicates int
	Errors     int
}

// GetRunStats retrieves the outcome counts of one run
func GetRunStats(db *sql.DB, runID string) (*RunStats, error) {
	stats := RunStats{}
	var reference, finished sql.NullString
	err := db.QueryRow(`
		SELECT id, variant, source, destination, reference, threshold, dry_run, started_at, finished_at
		FROM runs WHERE id = ?`, runID,
	).Scan(&stats.Run.ID, &stats.Run.Variant, &stats.Run.Source, &stats.Run.Destination,
		&reference, &stats.Run.Threshold, &stats.Run.DryRun, &stats.StartedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	stats.Run.Reference = reference.String
	stats.FinishedAt = finished.String

	rows, err := db.Query(`SELECT state, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY state`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		switch types.FileState(state) {
		case types.StateUnique:
			stats.Unique = count
		case types.StateDuplicate:
			stats.Duplicates = count
		case types.StateError:
			stats.Errors = count
		}
	}
	return &stats, rows.Err()
}

// ListRuns returns the most recent runs, newest first
func ListRuns(db *sql.DB, limit int) ([]RunStats, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]RunStats, 0, len(ids))
	for _, id := range ids {
		stats, err := GetRunStats(db, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *stats)
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
