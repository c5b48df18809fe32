package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/liteclient/pkg/storage"
)

// DefaultPruneSchedule runs session pruning every 15 minutes.
const DefaultPruneSchedule = "@every 15m"

// Pruner periodically deletes expired sessions.
type Pruner struct {
	store  storage.SessionStore
	cron   *cron.Cron
	now    func() time.Time
	logger *zap.Logger
}

// NewPruner schedules pruning of store on the given cron schedule.
func NewPruner(store storage.SessionStore, schedule string, logger *zap.Logger) (*Pruner, error) {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pruner{
		store:  store,
		cron:   cron.New(),
		now:    time.Now,
		logger: logger,
	}
	if _, err := p.cron.AddFunc(schedule, func() {
		if _, err := p.Prune(context.Background()); err != nil {
			p.logger.Warn("session prune failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Prune deletes sessions that have expired and reports how many went.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	n, err := p.store.PruneSessions(ctx, p.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("pruned expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

// Start begins running the schedule in the background.
func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}
