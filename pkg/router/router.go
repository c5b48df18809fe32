// Package router is the single entry point for budget procedures. Every
// procedure runs behind the same admin guard, validates its input before
// anything reaches the upstream client, and validates what it returns.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ogulcanaydogan/liteclient/internal/metrics"
	"github.com/ogulcanaydogan/liteclient/pkg/alerts"
	"github.com/ogulcanaydogan/liteclient/pkg/apierr"
	"github.com/ogulcanaydogan/liteclient/pkg/auth"
	"github.com/ogulcanaydogan/liteclient/pkg/contract"
	"github.com/ogulcanaydogan/liteclient/pkg/model"
	"github.com/ogulcanaydogan/liteclient/pkg/storage"
)

// unauthorizedMessage is returned to callers without a valid session.
const unauthorizedMessage = "Admin session required."

// Upstream is the client the router dispatches to.
type Upstream interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomerInfo(ctx context.Context, endUserID string) (*model.CustomerDetail, error)
	CreateBudget(ctx context.Context, req model.BudgetCreateRequest) (*model.BudgetResponse, error)
	AssignBudget(ctx context.Context, userID, budgetID string) (*model.BudgetResponse, error)
}

// Router exposes the budget procedures.
type Router struct {
	upstream Upstream
	audit    storage.AuditStore
	notifier alerts.Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// Option customizes a Router.
type Option func(*Router)

// WithAuditStore records every authorized mutation in store.
func WithAuditStore(store storage.AuditStore) Option {
	return func(r *Router) { r.audit = store }
}

// WithNotifier announces successful mutations through n.
func WithNotifier(n alerts.Notifier) Option {
	return func(r *Router) { r.notifier = n }
}

// WithClock replaces the time source used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router dispatching to upstream.
func New(upstream Upstream, opts ...Option) (*Router, error) {
	if upstream == nil {
		return nil, errors.New("router: upstream client required")
	}
	r := &Router{
		upstream: upstream,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// ListCustomers implements budget.listCustomers.
func (r *Router) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	out, _, err := invoke(ctx, r, contract.ListCustomers, nil, r.upstream.ListCustomers)
	return out, err
}

// GetCustomerInfo implements budget.getCustomerInfo.
func (r *Router) GetCustomerInfo(ctx context.Context, in model.CustomerInfoInput) (*model.CustomerDetail, error) {
	out, _, err := invoke(ctx, r, contract.GetCustomerInfo, in, func(ctx context.Context) (*model.CustomerDetail, error) {
		return r.upstream.GetCustomerInfo(ctx, in.EndUserID)
	})
	return out, err
}

// CreateBudget implements budget.createBudget.
func (r *Router) CreateBudget(ctx context.Context, in model.BudgetCreateRequest) (*model.BudgetResponse, error) {
	out, session, err := invoke(ctx, r, contract.CreateBudget, in, func(ctx context.Context) (*model.BudgetResponse, error) {
		return r.upstream.CreateBudget(ctx, in)
	})
	if err != nil {
		return nil, err
	}

	r.notify(ctx, alerts.Event{
		Type:          alerts.EventBudgetCreated,
		Actor:         session.User.Email,
		BudgetID:      out.BudgetID,
		MaxBudget:     out.MaxBudget,
		Currency:      in.Currency,
		ResetInterval: in.ResetInterval,
		Time:          r.now().UTC(),
	})
	return out, nil
}

// AssignBudget implements budget.assignBudget.
func (r *Router) AssignBudget(ctx context.Context, in model.BudgetAssignment) (*model.BudgetResponse, error) {
	out, session, err := invoke(ctx, r, contract.AssignBudget, in, func(ctx context.Context) (*model.BudgetResponse, error) {
		return r.upstream.AssignBudget(ctx, in.UserID, in.BudgetID)
	})
	if err != nil {
		return nil, err
	}

	r.notify(ctx, alerts.Event{
		Type:      alerts.EventBudgetAssigned,
		Actor:     session.User.Email,
		BudgetID:  out.BudgetID,
		UserID:    in.UserID,
		MaxBudget: out.MaxBudget,
		Time:      r.now().UTC(),
	})
	return out, nil
}

// guard admits only callers whose context carries a live admin session.
func (r *Router) guard(ctx context.Context) (*model.Session, error) {
	session := auth.SessionFromContext(ctx)
	if !session.Valid(r.now()) {
		return nil, &apierr.UnauthorizedError{Message: unauthorizedMessage}
	}
	return session, nil
}

// invoke runs one procedure: guard, input validation, dispatch, output
// validation. Errors that are not already classified are reported as
// upstream failures of op.
func invoke[T any](ctx context.Context, r *Router, op contract.Operation, input any, dispatch func(context.Context) (T, error)) (T, *model.Session, error) {
	var zero T
	start := time.Now()

	session, err := r.guard(ctx)
	if err != nil {
		r.finish(op, nil, start, err)
		return zero, nil, err
	}

	if input != nil {
		if err := contract.Input(op, input); err != nil {
			r.finish(op, session, start, err)
			return zero, nil, err
		}
	}

	out, err := dispatch(ctx)
	if err != nil && !apierr.IsTyped(err) {
		err = apierr.Upstream(op.Name, op.UpstreamFailure, err)
	}
	if err == nil {
		err = contract.Output(op, out)
	}

	if op.Mutation {
		r.recordAudit(ctx, op, session, input, err)
	}
	r.finish(op, session, start, err)
	if err != nil {
		return zero, nil, err
	}
	return out, session, nil
}

// finish logs and counts a completed procedure call.
func (r *Router) finish(op contract.Operation, session *model.Session, start time.Time, err error) {
	actor := ""
	if session != nil {
		actor = session.User.Email
	}
	outcome := "ok"
	if err != nil {
		outcome = string(apierr.KindOf(err))
	}
	metrics.ObserveProcedure(op.Procedure, outcome, start)

	fields := []zap.Field{
		zap.String("procedure", op.Procedure),
		zap.String("actor", actor),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		r.logger.Warn("procedure failed", append(fields, zap.String("error", apierr.Describe(err)))...)
		return
	}
	r.logger.Info("procedure completed", fields...)
}

func (r *Router) recordAudit(ctx context.Context, op contract.Operation, session *model.Session, input any, err error) {
	if r.audit == nil {
		return
	}

	entry := &model.AuditEntry{
		Procedure: op.Procedure,
		Actor:     session.User.Email,
		Outcome:   "ok",
		CreatedAt: r.now().UTC(),
	}
	if data, merr := json.Marshal(input); merr == nil {
		entry.Input = string(data)
	}
	if err != nil {
		entry.Outcome = "error"
		entry.ErrorKind = string(apierr.KindOf(err))
	}

	if aerr := r.audit.RecordAudit(context.WithoutCancel(ctx), entry); aerr != nil {
		r.logger.Warn("audit record failed", zap.String("procedure", op.Procedure), zap.Error(aerr))
	}
}

func (r *Router) notify(ctx context.Context, event alerts.Event) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Warn("notification failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
