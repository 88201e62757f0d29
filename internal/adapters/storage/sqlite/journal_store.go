package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// JournalStore is a SQLite-backed domain.TurnJournal.
type JournalStore struct {
	db *sql.DB
}

var _ domain.TurnJournal = (*JournalStore)(nil)

// DSNForFile builds a DSN with WAL and a busy timeout for a database file.
func DSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("sqlite journal: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

// Open creates the parent directory of path if needed and opens the journal.
func Open(path string) (*JournalStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "sqlite journal: create directory %s", dir)
		}
	}
	dsn, err := DSNForFile(path)
	if err != nil {
		return nil, err
	}
	return NewJournalStore(dsn)
}

func NewJournalStore(dsn string) (*JournalStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite journal: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite journal: open")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite journal: ping")
	}
	s := &JournalStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *JournalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *JournalStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			user_ordinal INTEGER NOT NULL,
			user_text TEXT NOT NULL,
			assistant_text TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS turns_by_session ON turns(session_id, seq);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite journal: migrate")
		}
	}
	return nil
}

func (s *JournalStore) RecordTurn(ctx context.Context, entry *domain.TurnEntry) error {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = domain.TurnEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (
			id, session_id, user_ordinal, user_text, assistant_text,
			provider, model, latency_ms, created_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(entry.ID),
		string(entry.SessionID),
		entry.UserOrdinal,
		entry.UserText,
		entry.AssistantText,
		entry.Provider,
		entry.Model,
		entry.LatencyMs,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return errors.Wrap(err, "sqlite journal: insert turn")
	}
	return nil
}

// ListTurns returns the most recent `limit` entries, oldest first.
// An empty sessionID lists across all sessions.
func (s *JournalStore) ListTurns(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.TurnEntry, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	query := `
		SELECT id, session_id, user_ordinal, user_text, assistant_text,
		       provider, model, latency_ms, created_at_ms
		FROM turns`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, string(sessionID))
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite journal: list turns")
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.TurnEntry{}
	for rows.Next() {
		var (
			e           domain.TurnEntry
			id, sid     string
			createdAtMs int64
		)
		if err := rows.Scan(
			&id, &sid, &e.UserOrdinal, &e.UserText, &e.AssistantText,
			&e.Provider, &e.Model, &e.LatencyMs, &createdAtMs,
		); err != nil {
			return nil, errors.Wrap(err, "sqlite journal: scan turn")
		}
		e.ID = domain.TurnEntryID(id)
		e.SessionID = domain.SessionID(sid)
		e.CreatedAt = time.UnixMilli(createdAtMs)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite journal: iterate turns")
	}

	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
