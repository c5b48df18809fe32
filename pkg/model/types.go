package model

import "time"

// Customer is an end-user of the upstream LLM proxy, flattened to the
// shape the dashboard works with.
type Customer struct {
	UserID    string   `json:"user_id" yaml:"user_id" validate:"required"`
	Spend     float64  `json:"spend" yaml:"spend" validate:"gte=0"`
	MaxBudget *float64 `json:"max_budget" yaml:"max_budget"`
}

// CustomerDetail is a customer together with its associated budgets.
// The upstream currently links at most one budget per customer.
type CustomerDetail struct {
	UserID    string   `json:"user_id" yaml:"user_id" validate:"required"`
	Spend     float64  `json:"spend" yaml:"spend" validate:"gte=0"`
	MaxBudget *float64 `json:"max_budget" yaml:"max_budget"`
	Budgets   []Budget `json:"budgets" yaml:"budgets" validate:"dive"`
}

// Budget is a spending-limit policy owned by the upstream service.
type Budget struct {
	BudgetID  string   `json:"budget_id" yaml:"budget_id" validate:"required"`
	MaxBudget *float64 `json:"max_budget" yaml:"max_budget"`
	Spend     float64  `json:"spend" yaml:"spend" validate:"gte=0"`
}

// BudgetCreateRequest describes a new budget. Currency and ResetInterval
// are forwarded as-is.
type BudgetCreateRequest struct {
	BudgetID      string  `json:"budget_id" yaml:"budget_id" validate:"required"`
	MaxBudget     float64 `json:"max_budget" yaml:"max_budget"`
	Currency      string  `json:"currency" yaml:"currency"`
	ResetInterval string  `json:"reset_interval" yaml:"reset_interval"`
}

// BudgetAssignment links a customer to an existing budget.
type BudgetAssignment struct {
	UserID   string `json:"user_id" yaml:"user_id" validate:"required"`
	BudgetID string `json:"budget_id" yaml:"budget_id" validate:"required"`
}

// BudgetResponse is what the upstream returns for budget mutations.
type BudgetResponse struct {
	BudgetID  string   `json:"budget_id" yaml:"budget_id" validate:"required"`
	MaxBudget *float64 `json:"max_budget" yaml:"max_budget"`
}

// CustomerInfoInput selects a single customer.
type CustomerInfoInput struct {
	EndUserID string `json:"end_user_id" validate:"required"`
}

// SessionUser identifies the administrator behind a session.
type SessionUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is proof that the caller authenticated as an administrator.
type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}

// Valid reports whether the session identifies a user and has not expired.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.User.Email == "" {
		return false
	}
	return s.Expires.IsZero() || now.Before(s.Expires)
}

// SessionRecord is a persisted session. Only the hash of the session token
// is stored.
type SessionRecord struct {
	TokenHash string
	User      SessionUser
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Session returns the caller-facing view of the record.
func (r *SessionRecord) Session() *Session {
	return &Session{User: r.User, Expires: r.ExpiresAt}
}

// AuditEntry records one admin mutation and its outcome.
type AuditEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Procedure string    `json:"procedure" yaml:"procedure"`
	Actor     string    `json:"actor" yaml:"actor"`
	Input     string    `json:"input" yaml:"input"`
	Outcome   string    `json:"outcome" yaml:"outcome"`
	ErrorKind string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// AuditFilter narrows an audit log query.
type AuditFilter struct {
	Procedure string
	Actor     string
	Since     time.Time
	Limit     int
}

// Float returns a pointer to v, for building nullable amounts.
func Float(v float64) *float64 {
	return &v
}
