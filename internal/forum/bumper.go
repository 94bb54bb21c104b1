package forum

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	forumrepo "github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

// bumpGuard leaves schedules alone when they already fire within this
// window, so an actively chatting thread does not keep resetting its timers.
const bumpGuard = 2 * time.Minute

// failedReplyContent is the fallback text polling clients render when
// generation fails.
const failedReplyContent = "Error generating response"

// Bumper pulls a thread's schedules forward after a human posts, so agents
// answer within a minute or two instead of waiting out their backoff.
type Bumper struct {
	db        *gorm.DB
	schedules forumrepo.AgentScheduleRepo
	now       Clock
	log       *logger.Logger
}

func NewBumper(db *gorm.DB, schedules forumrepo.AgentScheduleRepo, now Clock, baseLog *logger.Logger) *Bumper {
	if now == nil {
		now = time.Now
	}
	return &Bumper{db: db, schedules: schedules, now: now, log: baseLog.With("component", "forum.Bumper")}
}

// Bump rearms every active schedule in the thread that is unarmed or more
// than bumpGuard away, staggered 60-120s apart. Returns how many it moved.
func (b *Bumper) Bump(ctx context.Context, threadID uuid.UUID) (int, error) {
	if threadID == uuid.Nil {
		return 0, fmt.Errorf("missing thread_id")
	}
	bumped := 0
	err := inTx(ctx, b.db, func(dbc dbctx.Context) error {
		schedules, err := b.schedules.ListActiveByThread(dbc, threadID)
		if err != nil {
			return err
		}
		now := b.now().UTC()
		cutoff := now.Add(bumpGuard)
		for i, sched := range schedules {
			if sched.NextFireAt != nil && !sched.NextFireAt.After(cutoff) {
				continue
			}
			delay := time.Duration(60+i*20+rand.Intn(10)) * time.Second
			fireAt := now.Add(delay)
			if err := b.schedules.UpdateFields(dbc, sched.ID, map[string]interface{}{
				"next_fire_at": fireAt,
			}); err != nil {
				return err
			}
			bumped++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if bumped > 0 {
		b.log.Info("Bumped schedules", "thread_id", threadID, "count", bumped)
	}
	return bumped, nil
}

// DirectResponder generates a nested agent answer to a specific human
// message. Unlike scheduled replies it touches no schedule state; a random
// active persona answers once.
type DirectResponder struct {
	db       *gorm.DB
	threads  forumrepo.ThreadRepo
	replies  forumrepo.ReplyRepo
	personas forumrepo.PersonaRepo
	gen      *Generator
	llm      TextGenerator
	now      Clock
	log      *logger.Logger
}

func NewDirectResponder(
	db *gorm.DB,
	threads forumrepo.ThreadRepo,
	replies forumrepo.ReplyRepo,
	personas forumrepo.PersonaRepo,
	gen *Generator,
	llm TextGenerator,
	now Clock,
	baseLog *logger.Logger,
) *DirectResponder {
	if now == nil {
		now = time.Now
	}
	return &DirectResponder{
		db:       db,
		threads:  threads,
		replies:  replies,
		personas: personas,
		gen:      gen,
		llm:      llm,
		now:      now,
		log:      baseLog.With("component", "forum.DirectResponder"),
	}
}

// Respond answers the human reply parentReplyID with a nested persona reply.
func (d *DirectResponder) Respond(ctx context.Context, threadID, parentReplyID uuid.UUID, userContent string) error {
	if threadID == uuid.Nil || parentReplyID == uuid.Nil {
		return fmt.Errorf("missing thread_id or parent_reply_id")
	}

	var (
		persona *types.ForumPersona
		thread  *types.ForumThread
		reply   *types.ForumReply
	)
	err := inTx(ctx, d.db, func(dbc dbctx.Context) error {
		var err error
		persona, err = d.personas.RandomActive(dbc)
		if err != nil {
			return err
		}
		if persona == nil {
			return fmt.Errorf("no active personas")
		}
		thread, err = d.threads.GetByID(dbc, threadID)
		if err != nil {
			return err
		}
		if thread == nil {
			return fmt.Errorf("thread not found")
		}
		parent, err := d.replies.GetByID(dbc, parentReplyID)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("parent reply not found")
		}
		created, err := d.replies.Create(dbc, []*types.ForumReply{{
			ThreadID:  threadID,
			ParentID:  &parentReplyID,
			PersonaID: &persona.ID,
			Status:    types.ReplyStatusPending,
		}})
		if err != nil {
			return err
		}
		reply = created[0]
		return nil
	})
	if err != nil {
		return err
	}

	dbc := dbctx.Context{Ctx: ctx}
	if err := d.replies.UpdateFields(dbc, reply.ID, map[string]interface{}{
		"status": types.ReplyStatusProcessing,
	}); err != nil {
		return d.failDirect(ctx, reply.ID, err)
	}

	system, user, err := d.buildPrompt(dbc, persona, thread, reply.ID, userContent)
	if err != nil {
		return d.failDirect(ctx, reply.ID, err)
	}

	text, err := d.llm.GenerateText(ctx, system, user)
	if err != nil {
		return d.failDirect(ctx, reply.ID, err)
	}

	err = inTx(ctx, d.db, func(dbc dbctx.Context) error {
		if err := d.replies.UpdateFields(dbc, reply.ID, map[string]interface{}{
			"content": text,
			"status":  types.ReplyStatusCompleted,
		}); err != nil {
			return err
		}
		return d.threads.BumpActivity(dbc, threadID, d.now().UTC())
	})
	if err != nil {
		return err
	}
	d.log.Info("Direct reply completed", "thread_id", threadID, "persona", persona.Name, "reply_id", reply.ID)
	return nil
}

func (d *DirectResponder) buildPrompt(dbc dbctx.Context, persona *types.ForumPersona, thread *types.ForumThread, excludeID uuid.UUID, userContent string) (string, string, error) {
	recent, err := d.replies.ListRecentCompleted(dbc, thread.ID, excludeID, maxContextReplies)
	if err != nil {
		return "", "", err
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	lines, err := d.gen.renderLines(dbc, recent)
	if err != nil {
		return "", "", err
	}
	system := BuildPersonaPrompt(persona.SystemPrompt, thread.Title, thread.Content, lines)
	return system, DirectReplyInstruction(userContent), nil
}

func (d *DirectResponder) failDirect(ctx context.Context, replyID uuid.UUID, cause error) error {
	d.log.Error("Direct reply failed", "reply_id", replyID, "error", cause)
	if err := d.replies.UpdateFields(dbctx.Context{Ctx: ctx}, replyID, map[string]interface{}{
		"status":  types.ReplyStatusFailed,
		"content": failedReplyContent,
	}); err != nil {
		d.log.Error("Failure cleanup failed", "reply_id", replyID, "error", err)
	}
	return cause
}
