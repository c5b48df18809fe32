package alerts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Dispatcher fans an event out to every configured notifier.
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher over notifiers.
func NewDispatcher(logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

func (d *Dispatcher) Name() string { return "dispatcher" }

// Send delivers event to every notifier, attempting all of them even when
// some fail. The returned error joins the individual failures.
func (d *Dispatcher) Send(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Send(ctx, event); err != nil {
			d.logger.Warn("notification failed",
				zap.String("notifier", n.Name()),
				zap.String("event", string(event.Type)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of notifiers.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}
