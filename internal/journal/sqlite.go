package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a journal database and runs migrations.
func OpenSQLite(path string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}

	// Concurrent invocations may write at the same time.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: busy timeout: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			case_id    TEXT NOT NULL,
			ticket_id  TEXT NOT NULL DEFAULT '',
			detail     TEXT NOT NULL DEFAULT '',
			profile    TEXT NOT NULL DEFAULT '',
			run_id     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_case ON events(case_id);
		CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
	`)
	if err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Record(ctx context.Context, ev protocol.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events (id, kind, case_id, ticket_id, detail, profile, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, string(ev.Kind), ev.CaseID, ev.TicketID, ev.Detail, ev.Profile, ev.RunID,
		ev.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) List(ctx context.Context, filter Filter) ([]protocol.Event, error) {
	query := "SELECT id, kind, case_id, ticket_id, detail, profile, run_id, created_at FROM events WHERE 1=1"
	var args []any

	if filter.CaseID != "" {
		query += " AND case_id = ?"
		args = append(args, filter.CaseID)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var events []protocol.Event
	for rows.Next() {
		var ev protocol.Event
		var kind, createdAt string
		if err := rows.Scan(&ev.ID, &kind, &ev.CaseID, &ev.TicketID, &ev.Detail, &ev.Profile, &ev.RunID, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: list scan: %w", err)
		}
		ev.Kind = protocol.EventKind(kind)
		ev.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
