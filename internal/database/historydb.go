package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/claimbot/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "claimbot.db"

// HistoryDB provides SQLite-based storage for cycles and rejected proxies.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	logger *slog.Logger
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// Logger receives diagnostics of best-effort writes.
	Logger *slog.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		Logger:            slog.Default(),
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create): %w", dbPath, ErrDatabaseNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// ErrDatabaseNotFound is returned by Open when the database must exist but does not.
var ErrDatabaseNotFound = errors.New("database not found")

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per finished cycle
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL,
		store TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		proxies INTEGER DEFAULT 0,
		claimed INTEGER DEFAULT 0,
		already_claimed INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		exhausted INTEGER DEFAULT 0,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at);

	-- Outcome of every credential in a cycle
	CREATE TABLE IF NOT EXISTS credential_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL REFERENCES cycles(id),
		label TEXT NOT NULL,
		outcome TEXT NOT NULL,
		claimed INTEGER DEFAULT 0,
		already_claimed INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		attempts INTEGER DEFAULT 0,
		last_proxy TEXT,
		last_error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_results_cycle ON credential_results(cycle_id);
	CREATE INDEX IF NOT EXISTS idx_results_label ON credential_results(label);

	-- Raw proxy lines that were rejected
	CREATE TABLE IF NOT EXISTS rejected_proxies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		line TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rejected_recorded ON rejected_proxies(recorded_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCycle stores a finished cycle and its credential results in one transaction.
func (hdb *HistoryDB) SaveCycle(ctx context.Context, summary *model.CycleSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize cycle: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	_, err = tx.ExecContext(ctx, `
	INSERT INTO cycles (id, number, store, started_at, finished_at, proxies, claimed, already_claimed, failed, exhausted, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.ID,
		summary.Number,
		summary.Store,
		formatTimestamp(summary.StartedAt),
		formatTimestamp(summary.FinishedAt),
		summary.Proxies,
		summary.Totals.Claimed,
		summary.Totals.AlreadyClaimed,
		summary.Totals.Failed,
		summary.Exhausted(),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save cycle: %w", err)
	}

	for _, r := range summary.Results {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO credential_results (cycle_id, label, outcome, claimed, already_claimed, failed, attempts, last_proxy, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			summary.ID,
			r.Label,
			r.Outcome.Kind.String(),
			r.Outcome.Counts.Claimed,
			r.Outcome.Counts.AlreadyClaimed,
			r.Outcome.Counts.Failed,
			len(r.Outcome.Attempts),
			r.Outcome.LastProxy(),
			r.Outcome.LastError(),
		)
		if err != nil {
			return fmt.Errorf("failed to save credential result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	return nil
}

// GetCycle retrieves a cycle by ID. It returns nil, nil when no such cycle exists.
func (hdb *HistoryDB) GetCycle(ctx context.Context, id string) (*model.CycleSummary, error) {
	var summaryJSON string
	err := hdb.db.QueryRowContext(ctx, `SELECT summary_json FROM cycles WHERE id = ?`, id).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}

	var summary model.CycleSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse cycle: %w", err)
	}
	return &summary, nil
}

// ListCycles returns the most recent cycles, newest first.
// A limit of zero or less returns every cycle.
func (hdb *HistoryDB) ListCycles(ctx context.Context, limit int) ([]*model.CycleSummary, error) {
	query := `SELECT summary_json FROM cycles ORDER BY started_at DESC, number DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*model.CycleSummary
	for rows.Next() {
		var summaryJSON string
		if err := rows.Scan(&summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}

		var summary model.CycleSummary
		if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
			continue // Skip malformed rows
		}
		cycles = append(cycles, &summary)
	}

	return cycles, rows.Err()
}

// CredentialStats aggregates the stored results of one credential.
type CredentialStats struct {
	Label     string
	Cycles    int
	Exhausted int
	Counts    model.Counts
}

// CredentialTotals sums the results of every credential across all cycles.
func (hdb *HistoryDB) CredentialTotals(ctx context.Context) ([]CredentialStats, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT label, COUNT(*), SUM(outcome = 'exhausted'), SUM(claimed), SUM(already_claimed), SUM(failed)
	FROM credential_results
	GROUP BY label
	ORDER BY label
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credential totals: %w", err)
	}
	defer rows.Close()

	var results []CredentialStats
	for rows.Next() {
		var s CredentialStats
		if err := rows.Scan(&s.Label, &s.Cycles, &s.Exhausted, &s.Counts.Claimed, &s.Counts.AlreadyClaimed, &s.Counts.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan credential totals: %w", err)
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

// RecordRejectedProxy stores a rejected raw proxy line.
func (hdb *HistoryDB) RecordRejectedProxy(ctx context.Context, line string) error {
	_, err := hdb.db.ExecContext(ctx,
		`INSERT INTO rejected_proxies (line, recorded_at) VALUES (?, ?)`,
		line, formatTimestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to record rejected proxy: %w", err)
	}
	return nil
}

// Reject implements proxy.Rejector. Write errors are logged and dropped.
func (hdb *HistoryDB) Reject(line string) {
	if err := hdb.RecordRejectedProxy(context.Background(), line); err != nil {
		hdb.logger.Debug("failed to record rejected proxy", "error", err)
	}
}

// ListRejectedProxies returns the most recently rejected lines, newest first.
// A limit of zero or less returns every line.
func (hdb *HistoryDB) ListRejectedProxies(ctx context.Context, limit int) ([]model.RejectedProxy, error) {
	query := `SELECT line, recorded_at FROM rejected_proxies ORDER BY id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected proxies: %w", err)
	}
	defer rows.Close()

	var results []model.RejectedProxy
	for rows.Next() {
		var r model.RejectedProxy
		var recordedAt string
		if err := rows.Scan(&r.Line, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rejected proxy: %w", err)
		}
		r.RecordedAt = parseTimestamp(recordedAt)
		results = append(results, r)
	}

	return results, rows.Err()
}

// History loads the recent cycles and, when withRejected is set, the
// recently rejected proxies into one report model.
func (hdb *HistoryDB) History(ctx context.Context, limit int, withRejected bool) (*model.History, error) {
	cycles, err := hdb.ListCycles(ctx, limit)
	if err != nil {
		return nil, err
	}

	history := &model.History{
		GeneratedAt: time.Now(),
		Cycles:      cycles,
	}
	if withRejected {
		rejected, err := hdb.ListRejectedProxies(ctx, limit)
		if err != nil {
			return nil, err
		}
		history.Rejected = rejected
	}
	return history, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
