// Package auth authenticates administrators and manages their sessions.
// Session tokens are opaque to callers; only their SHA-256 digest is
// persisted.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ogulcanaydogan/liteclient/pkg/model"
	"github.com/ogulcanaydogan/liteclient/pkg/storage"
)

// DefaultSessionTTL is how long a session lasts when no TTL is configured.
const DefaultSessionTTL = 30 * 24 * time.Hour

var (
	// ErrInvalidCredentials is returned when no admin matches the login.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrNoSession is returned when a token does not resolve to a live session.
	ErrNoSession = errors.New("auth: no valid session")
)

// Admin is an administrator allowed to sign in. Exactly one of Password
// and PasswordHash (bcrypt) should be set.
type Admin struct {
	Email        string
	Name         string
	Password     string
	PasswordHash string
}

func (a Admin) checkPassword(password string) bool {
	if a.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
	}
	if a.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) == 1
}

func (a Admin) displayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "Admin"
}

// Authenticator verifies admin credentials and issues sessions.
type Authenticator struct {
	admins []Admin
	store  storage.SessionStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// NewAuthenticator creates an authenticator for the given admins.
func NewAuthenticator(admins []Admin, store storage.SessionStore, opts ...Option) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("auth: session store required")
	}
	if len(admins) == 0 {
		return nil, errors.New("auth: at least one admin required")
	}
	for i, adm := range admins {
		if adm.Email == "" {
			return nil, fmt.Errorf("auth: admin %d: email required", i)
		}
		if adm.Password == "" && adm.PasswordHash == "" {
			return nil, fmt.Errorf("auth: admin %q: password or password hash required", adm.Email)
		}
	}

	a := &Authenticator{
		admins: admins,
		store:  store,
		ttl:    DefaultSessionTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Login checks the credentials and starts a session. The returned token is
// shown to the caller once and must be presented on later requests.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, *model.Session, error) {
	adm, ok := a.match(email, password)
	if !ok {
		a.logger.Info("login rejected", zap.String("email", email))
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.New().String()
	now := a.now().UTC()
	rec := &model.SessionRecord{
		TokenHash: HashToken(token),
		User:      model.SessionUser{Email: adm.Email, Name: adm.displayName()},
		ExpiresAt: now.Add(a.ttl),
		CreatedAt: now,
	}
	if err := a.store.SaveSession(ctx, rec); err != nil {
		return "", nil, fmt.Errorf("start session: %w", err)
	}

	a.logger.Info("admin signed in", zap.String("email", adm.Email))
	return token, rec.Session(), nil
}

// match finds the admin for email and password. Every admin is checked,
// even after a match.
func (a *Authenticator) match(email, password string) (Admin, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	var (
		found Admin
		ok    bool
	)
	for _, adm := range a.admins {
		emailMatch := subtle.ConstantTimeCompare([]byte(strings.ToLower(adm.Email)), []byte(email)) == 1
		if emailMatch && adm.checkPassword(password) && !ok {
			found, ok = adm, true
		}
	}
	return found, ok
}

// Resolve returns the live session for token.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	rec, err := a.store.GetSession(ctx, HashToken(token))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	session := rec.Session()
	if !session.Valid(a.now()) {
		return nil, ErrNoSession
	}
	return session, nil
}

// Logout ends the session for token. Unknown tokens are ignored.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := a.store.DeleteSession(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// HashToken returns the digest under which a session token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type sessionKey struct{}

// WithSession returns a context carrying the caller's session.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession, or nil.
func SessionFromContext(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionKey{}).(*model.Session)
	return s
}
