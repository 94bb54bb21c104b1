package forum

import (
	"context"
	"time"

	"gorm.io/gorm"

	forumrepo "github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/envutil"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

// Dispatcher scans for due schedules and hands each one to the job queue.
// Claiming nulls next_fire_at conditionally on the value the scan read, so
// two overlapping ticks (or two replicas) enqueue at most one job per
// schedule per fire time.
type Dispatcher struct {
	db        *gorm.DB
	schedules forumrepo.AgentScheduleRepo
	queue     Queue
	now       Clock
	interval  time.Duration
	log       *logger.Logger
}

func NewDispatcher(db *gorm.DB, schedules forumrepo.AgentScheduleRepo, queue Queue, now Clock, baseLog *logger.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		db:        db,
		schedules: schedules,
		queue:     queue,
		now:       now,
		interval:  time.Duration(envutil.Int("FORUM_DISPATCH_INTERVAL_SECONDS", 60)) * time.Second,
		log:       baseLog.With("component", "forum.Dispatcher"),
	}
}

// Start runs the tick loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info("Dispatcher starting", "interval", d.interval.String())
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.log.Info("Dispatcher stopping")
			return
		case <-ticker.C:
			if n, err := d.Tick(ctx); err != nil {
				d.log.Error("Dispatch tick failed", "error", err)
			} else if n > 0 {
				d.log.Info("Dispatched schedules", "count", n)
			}
		}
	}
}

// Tick claims every due schedule and enqueues a reply job for each claim it
// wins. Returns the number of jobs enqueued.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	due, err := d.schedules.ListDue(dbctx.Context{Ctx: ctx}, d.now().UTC())
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, sched := range due {
		if sched.NextFireAt == nil {
			continue
		}
		expected := *sched.NextFireAt
		err := inTx(ctx, d.db, func(dbc dbctx.Context) error {
			won, err := d.schedules.Claim(dbc, sched.ID, expected)
			if err != nil {
				return err
			}
			if !won {
				d.log.Debug("Schedule claimed elsewhere", "schedule_id", sched.ID)
				return nil
			}
			_, err = d.queue.Enqueue(dbc, JobTypeAgentReply, map[string]any{
				"schedule_id": sched.ID.String(),
			}, 0)
			if err != nil {
				return err
			}
			enqueued++
			return nil
		})
		if err != nil {
			// One bad schedule must not starve the rest of the batch.
			d.log.Error("Failed to dispatch schedule", "schedule_id", sched.ID, "error", err)
		}
	}
	return enqueued, nil
}
