package forum

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baldboard/baldboard-backend/internal/data/repos"
	forumrepo "github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

const (
	minInitialPersonas = 3
	maxInitialPersonas = 5
)

// Initializer creates the per-persona schedules for a newly posted thread.
// It picks a random subset of active personas and staggers their first
// fire times so replies trickle in rather than landing at once.
type Initializer struct {
	db        *gorm.DB
	personas  forumrepo.PersonaRepo
	schedules forumrepo.AgentScheduleRepo
	now       Clock
	log       *logger.Logger
}

func NewInitializer(db *gorm.DB, personas forumrepo.PersonaRepo, schedules forumrepo.AgentScheduleRepo, now Clock, baseLog *logger.Logger) *Initializer {
	if now == nil {
		now = time.Now
	}
	return &Initializer{
		db:        db,
		personas:  personas,
		schedules: schedules,
		now:       now,
		log:       baseLog.With("component", "forum.Initializer"),
	}
}

// InitThread creates schedules for threadID and returns how many it made.
// Zero with no error means the thread proceeds without agent participation.
// Idempotent via the (thread_id, persona_id) unique index: a redelivered
// job that races an earlier run fails on insert instead of doubling the
// roster.
func (in *Initializer) InitThread(ctx context.Context, threadID uuid.UUID) (int, error) {
	if threadID == uuid.Nil {
		return 0, fmt.Errorf("missing thread_id")
	}
	scheduled := 0
	err := inTx(ctx, in.db, func(dbc dbctx.Context) error {
		existing, err := in.schedules.ListActiveByThread(dbc, threadID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			in.log.Debug("Thread already has schedules", "thread_id", threadID, "count", len(existing))
			return nil
		}

		personas, err := in.personas.ListActive(dbc)
		if err != nil {
			return err
		}
		if len(personas) == 0 {
			in.log.Warn("No active personas, thread gets no agent replies", "thread_id", threadID)
			return nil
		}

		chosen := pickPersonas(personas)
		now := in.now().UTC()
		rows := make([]*types.ForumAgentSchedule, 0, len(chosen))
		for i, p := range chosen {
			// Stagger: persona i fires 2+i minutes out plus up to a
			// minute of jitter, so first fire times strictly increase.
			delay := time.Duration(float64(2+i)+rand.Float64()) * time.Minute
			fireAt := now.Add(delay)
			rows = append(rows, &types.ForumAgentSchedule{
				ThreadID:   threadID,
				PersonaID:  p.ID,
				NextFireAt: &fireAt,
				ReplyCount: 0,
				IsActive:   true,
			})
		}
		if _, err := in.schedules.Create(dbc, rows); err != nil {
			if repos.IsUniqueViolation(err, "") {
				in.log.Debug("Lost init race, schedules already exist", "thread_id", threadID)
				return nil
			}
			return err
		}
		scheduled = len(rows)
		in.log.Info("Initialized thread schedules", "thread_id", threadID, "personas", scheduled)
		return nil
	})
	return scheduled, err
}

// pickPersonas returns a uniformly random subset of size
// min(rand[3,5], len(personas)) without repeats.
func pickPersonas(personas []*types.ForumPersona) []*types.ForumPersona {
	n := minInitialPersonas + rand.Intn(maxInitialPersonas-minInitialPersonas+1)
	if n > len(personas) {
		n = len(personas)
	}
	shuffled := make([]*types.ForumPersona, len(personas))
	copy(shuffled, personas)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
