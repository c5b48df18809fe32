package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/liteclient/pkg/model"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width so stored timestamps compare correctly as text.
// It is only used for writes and comparisons: the driver hands DATETIME
// columns back in RFC 3339 form with trailing zeros trimmed.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// defaultAuditLimit caps audit queries that do not set a limit.
const defaultAuditLimit = 100

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func (s *SQLite) SaveSession(ctx context.Context, rec *model.SessionRecord) error {
	if rec.TokenHash == "" {
		return errors.New("save session: token hash required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, email, name, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(token_hash) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   expires_at = excluded.expires_at`,
		rec.TokenHash, rec.User.Email, rec.User.Name,
		formatTime(rec.ExpiresAt), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, tokenHash string) (*model.SessionRecord, error) {
	var (
		rec                model.SessionRecord
		expires, createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, email, name, expires_at, created_at
		 FROM sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&rec.TokenHash, &rec.User.Email, &rec.User.Name, &expires, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if rec.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLite) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLite) PruneSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLite) RecordAudit(ctx context.Context, entry *model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Input == "" {
		entry.Input = "{}"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, procedure, actor, input, outcome, error_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Procedure, entry.Actor, entry.Input,
		entry.Outcome, entry.ErrorKind, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *SQLite) QueryAudit(ctx context.Context, filter model.AuditFilter) ([]model.AuditEntry, error) {
	query := "SELECT id, procedure, actor, input, outcome, error_kind, created_at FROM audit_log"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var (
			e         model.AuditEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Procedure, &e.Actor, &e.Input,
			&e.Outcome, &e.ErrorKind, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhereClause constructs a SQL WHERE clause from an AuditFilter.
func buildWhereClause(filter model.AuditFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Procedure != "" {
		conditions = append(conditions, "procedure = ?")
		args = append(args, filter.Procedure)
	}
	if filter.Actor != "" {
		conditions = append(conditions, "actor = ?")
		args = append(args, filter.Actor)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	return strings.Join(conditions, " AND "), args
}
