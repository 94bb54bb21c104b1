package forum

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	forumrepo "github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	userrepo "github.com/baldboard/baldboard-backend/internal/data/repos/user"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

// Generator produces one agent reply for a claimed schedule. The LLM call
// runs outside any transaction; database state is touched in two short
// transactions around it so a slow model never holds row locks.
type Generator struct {
	db        *gorm.DB
	schedules forumrepo.AgentScheduleRepo
	threads   forumrepo.ThreadRepo
	replies   forumrepo.ReplyRepo
	personas  forumrepo.PersonaRepo
	users     userrepo.UserRepo
	llm       TextGenerator
	now       Clock
	log       *logger.Logger
}

func NewGenerator(
	db *gorm.DB,
	schedules forumrepo.AgentScheduleRepo,
	threads forumrepo.ThreadRepo,
	replies forumrepo.ReplyRepo,
	personas forumrepo.PersonaRepo,
	users userrepo.UserRepo,
	llm TextGenerator,
	now Clock,
	baseLog *logger.Logger,
) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		db:        db,
		schedules: schedules,
		threads:   threads,
		replies:   replies,
		personas:  personas,
		users:     users,
		llm:       llm,
		now:       now,
		log:       baseLog.With("component", "forum.Generator"),
	}
}

// claim carries the state loaded under the schedule lock out to the
// LLM-call phase.
type claim struct {
	schedule *types.ForumAgentSchedule
	thread   *types.ForumThread
	persona  *types.ForumPersona
	reply    *types.ForumReply
}

// scheduleState is the outcome of loading a claimed schedule. Everything but
// scheduleReady is a clean skip, not an error.
type scheduleState int

const (
	scheduleReady scheduleState = iota
	scheduleMissing
	scheduleInactive
	scheduleRearmed
	scheduleOrphaned
)

func (s scheduleState) String() string {
	switch s {
	case scheduleReady:
		return "ready"
	case scheduleMissing:
		return "missing"
	case scheduleInactive:
		return "inactive"
	case scheduleRearmed:
		return "rearmed"
	case scheduleOrphaned:
		return "orphaned"
	}
	return "unknown"
}

// GenerateReply runs the full lifecycle for one claimed schedule: validate
// under lock, insert a pending placeholder reply, generate text, then
// complete the reply and arm the next fire time. Every terminal state
// reschedules or deactivates the schedule; a claimed schedule is never left
// with next_fire_at null except on unexpected errors, which the job queue
// retries.
func (g *Generator) GenerateReply(ctx context.Context, scheduleID uuid.UUID) error {
	if scheduleID == uuid.Nil {
		return fmt.Errorf("missing schedule_id")
	}

	var (
		cl    *claim
		state scheduleState
	)
	err := inTx(ctx, g.db, func(dbc dbctx.Context) error {
		var err error
		state, cl, err = g.openClaim(dbc, scheduleID)
		return err
	})
	if err != nil {
		return err
	}
	if state != scheduleReady {
		g.log.Debug("Skipping schedule", "schedule_id", scheduleID, "state", state.String())
		return nil
	}

	if err := g.replies.UpdateFields(dbctx.Context{Ctx: ctx}, cl.reply.ID, map[string]interface{}{
		"status": types.ReplyStatusProcessing,
	}); err != nil {
		return g.fail(ctx, cl, fmt.Errorf("mark processing: %w", err))
	}

	system, user, err := g.buildPrompt(dbctx.Context{Ctx: ctx}, cl)
	if err != nil {
		return g.fail(ctx, cl, fmt.Errorf("build prompt: %w", err))
	}

	text, err := g.llm.GenerateText(ctx, system, user)
	if err != nil {
		return g.fail(ctx, cl, fmt.Errorf("generate text: %w", err))
	}

	return inTx(ctx, g.db, func(dbc dbctx.Context) error {
		return g.complete(dbc, cl, text)
	})
}

// openClaim validates the schedule under a row lock and inserts the pending
// placeholder. Any state other than scheduleReady means there is nothing to
// do; an orphaned schedule (thread or persona gone) is deactivated here.
func (g *Generator) openClaim(dbc dbctx.Context, scheduleID uuid.UUID) (scheduleState, *claim, error) {
	sched, err := g.schedules.LockByID(dbc, scheduleID)
	if err != nil {
		return scheduleMissing, nil, err
	}
	if sched == nil {
		return scheduleMissing, nil, nil
	}
	if !sched.IsActive {
		return scheduleInactive, nil, nil
	}
	// A non-null next_fire_at here means the bumper rearmed the schedule
	// after the dispatcher claimed it. The newer timer supersedes this job.
	if sched.NextFireAt != nil {
		return scheduleRearmed, nil, nil
	}

	thread, err := g.threads.GetByID(dbc, sched.ThreadID)
	if err != nil {
		return scheduleOrphaned, nil, err
	}
	if thread == nil {
		g.log.Info("Thread deleted, deactivating schedule", "schedule_id", scheduleID)
		return scheduleOrphaned, nil, g.schedules.UpdateFields(dbc, scheduleID, map[string]interface{}{"is_active": false})
	}

	personas, err := g.personas.GetByIDs(dbc, []uuid.UUID{sched.PersonaID})
	if err != nil {
		return scheduleOrphaned, nil, err
	}
	if len(personas) == 0 || !personas[0].IsActive {
		g.log.Info("Persona missing or inactive, deactivating schedule", "schedule_id", scheduleID)
		return scheduleOrphaned, nil, g.schedules.UpdateFields(dbc, scheduleID, map[string]interface{}{"is_active": false})
	}
	persona := personas[0]

	created, err := g.replies.Create(dbc, []*types.ForumReply{{
		ThreadID:  thread.ID,
		PersonaID: &persona.ID,
		Status:    types.ReplyStatusPending,
	}})
	if err != nil {
		return scheduleReady, nil, err
	}
	return scheduleReady, &claim{schedule: sched, thread: thread, persona: persona, reply: created[0]}, nil
}

func (g *Generator) buildPrompt(dbc dbctx.Context, cl *claim) (string, string, error) {
	recent, err := g.replies.ListRecentCompleted(dbc, cl.thread.ID, cl.reply.ID, maxContextReplies)
	if err != nil {
		return "", "", err
	}
	// Newest-first from the repo; the prompt wants chronological order.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	lines, err := g.renderLines(dbc, recent)
	if err != nil {
		return "", "", err
	}
	system := BuildPersonaPrompt(cl.persona.SystemPrompt, cl.thread.Title, cl.thread.Content, lines)
	return system, WriteReplyInstruction(), nil
}

// renderLines resolves reply authorship to display names with one batch
// load per author kind.
func (g *Generator) renderLines(dbc dbctx.Context, replies []*types.ForumReply) ([]ReplyLine, error) {
	var personaIDs, userIDs []uuid.UUID
	for _, r := range replies {
		switch a := r.Author(); a.Kind {
		case types.AuthorKindPersona:
			personaIDs = append(personaIDs, a.PersonaID)
		case types.AuthorKindUser:
			userIDs = append(userIDs, a.UserID)
		}
	}

	personaNames := map[uuid.UUID]string{}
	if len(personaIDs) > 0 {
		rows, err := g.personas.GetByIDs(dbc, personaIDs)
		if err != nil {
			return nil, err
		}
		for _, p := range rows {
			personaNames[p.ID] = p.Name
		}
	}
	userNames := map[uuid.UUID]string{}
	if len(userIDs) > 0 {
		rows, err := g.users.GetByIDs(dbc, userIDs)
		if err != nil {
			return nil, err
		}
		for _, u := range rows {
			userNames[u.ID] = u.DisplayName
		}
	}

	lines := make([]ReplyLine, 0, len(replies))
	for _, r := range replies {
		if r.Content == nil {
			continue
		}
		var name string
		switch a := r.Author(); a.Kind {
		case types.AuthorKindPersona:
			name = personaNames[a.PersonaID]
		case types.AuthorKindUser:
			name = userNames[a.UserID]
		}
		lines = append(lines, ReplyLine{AuthorName: name, Content: *r.Content})
	}
	return lines, nil
}

// complete publishes the generated text and arms the next fire time under a
// fresh schedule lock.
func (g *Generator) complete(dbc dbctx.Context, cl *claim, text string) error {
	now := g.now().UTC()
	if err := g.replies.UpdateFields(dbc, cl.reply.ID, map[string]interface{}{
		"content": text,
		"status":  types.ReplyStatusCompleted,
	}); err != nil {
		return err
	}

	sched, err := g.schedules.LockByID(dbc, cl.schedule.ID)
	if err != nil {
		return err
	}
	if sched != nil && sched.IsActive {
		newCount := sched.ReplyCount + 1
		next := now.Add(time.Duration(NextDelayMinutes(newCount)) * time.Minute)
		if err := g.schedules.UpdateFields(dbc, sched.ID, map[string]interface{}{
			"reply_count":     newCount,
			"last_replied_at": now,
			"next_fire_at":    next,
		}); err != nil {
			return err
		}
	}

	if err := g.threads.BumpActivity(dbc, cl.thread.ID, now); err != nil {
		return err
	}
	g.log.Info("Agent reply completed",
		"thread_id", cl.thread.ID, "persona", cl.persona.Name, "reply_id", cl.reply.ID)
	return nil
}

// fail marks the placeholder failed and rearms the schedule with the same
// backoff it would have used on success, so one bad LLM call never stalls a
// thread permanently.
func (g *Generator) fail(ctx context.Context, cl *claim, cause error) error {
	g.log.Error("Agent reply failed",
		"schedule_id", cl.schedule.ID, "reply_id", cl.reply.ID, "error", cause)
	err := inTx(ctx, g.db, func(dbc dbctx.Context) error {
		if err := g.replies.UpdateFields(dbc, cl.reply.ID, map[string]interface{}{
			"status":  types.ReplyStatusFailed,
			"content": failedReplyContent,
		}); err != nil {
			return err
		}
		sched, err := g.schedules.LockByID(dbc, cl.schedule.ID)
		if err != nil {
			return err
		}
		if sched == nil || !sched.IsActive || sched.NextFireAt != nil {
			return nil
		}
		next := g.now().UTC().Add(time.Duration(NextDelayMinutes(sched.ReplyCount+1)) * time.Minute)
		return g.schedules.UpdateFields(dbc, sched.ID, map[string]interface{}{
			"next_fire_at": next,
		})
	})
	if err != nil {
		g.log.Error("Failure cleanup failed", "schedule_id", cl.schedule.ID, "error", err)
	}
	return cause
}
