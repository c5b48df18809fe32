package alerts

import (
	"context"
	"fmt"
	"time"
)

// EventType identifies the admin action being announced.
type EventType string

const (
	EventBudgetCreated  EventType = "budget_created"  // A budget was created upstream
	EventBudgetAssigned EventType = "budget_assigned" // A customer was linked to a budget
)

// Event is a notification about a completed admin mutation.
type Event struct {
	Type          EventType `json:"type"`
	Actor         string    `json:"actor"`
	BudgetID      string    `json:"budget_id"`
	UserID        string    `json:"user_id,omitempty"`
	MaxBudget     *float64  `json:"max_budget"`
	Currency      string    `json:"currency,omitempty"`
	ResetInterval string    `json:"reset_interval,omitempty"`
	Time          time.Time `json:"time"`
}

// Summary renders a one-line description of the event.
func (e Event) Summary() string {
	switch e.Type {
	case EventBudgetCreated:
		return fmt.Sprintf("%s created budget %s (%s)", e.Actor, e.BudgetID, formatAmount(e.MaxBudget))
	case EventBudgetAssigned:
		return fmt.Sprintf("%s assigned customer %s to budget %s", e.Actor, e.UserID, e.BudgetID)
	default:
		return fmt.Sprintf("%s performed %s", e.Actor, e.Type)
	}
}

func formatAmount(v *float64) string {
	if v == nil {
		return "no limit"
	}
	return fmt.Sprintf("$%.2f", *v)
}

// Notifier sends events to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an event. Implementations must be safe for concurrent use.
	Send(ctx context.Context, event Event) error
}
