package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// SessionStore persists admin sessions.
type SessionStore interface {
	// SaveSession creates or replaces the session keyed by its token hash.
	SaveSession(ctx context.Context, rec *model.SessionRecord) error

	// GetSession retrieves a session by token hash.
	GetSession(ctx context.Context, tokenHash string) (*model.SessionRecord, error)

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, tokenHash string) error

	// PruneSessions deletes sessions that expired before now and returns
	// how many were removed.
	PruneSessions(ctx context.Context, now time.Time) (int64, error)
}

// AuditStore persists the audit trail of admin mutations.
type AuditStore interface {
	// RecordAudit appends an audit entry.
	RecordAudit(ctx context.Context, entry *model.AuditEntry) error

	// QueryAudit returns entries matching the filter, newest first.
	QueryAudit(ctx context.Context, filter model.AuditFilter) ([]model.AuditEntry, error)
}

// Storage is the complete local persistence layer.
type Storage interface {
	SessionStore
	AuditStore

	// Close releases resources.
	Close() error
}
