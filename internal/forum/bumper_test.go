package forum

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/baldboard/baldboard-backend/internal/domain"
)

func TestBumpRearmsDistantAndUnarmed(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	threadID := uuid.New()

	unarmed := &types.ForumAgentSchedule{ID: uuid.New(), ThreadID: threadID, PersonaID: uuid.New(), IsActive: true}
	farOut := armedSchedule(now.Add(4 * time.Hour))
	farOut.ThreadID = threadID
	soon := armedSchedule(now.Add(45 * time.Second))
	soon.ThreadID = threadID
	soonFire := *soon.NextFireAt
	otherThread := armedSchedule(now.Add(4 * time.Hour))

	schedules := &fakeScheduleRepo{rows: []*types.ForumAgentSchedule{unarmed, farOut, soon, otherThread}}
	b := NewBumper(nil, schedules, fixedClock(now), testLogger())

	bumped, err := b.Bump(context.Background(), threadID)
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if bumped != 2 {
		t.Fatalf("bumped = %d, want 2", bumped)
	}

	// Bumped schedules land 60-130s out, staggered 20s apart per index.
	for i, s := range []*types.ForumAgentSchedule{unarmed, farOut} {
		if s.NextFireAt == nil {
			t.Fatalf("schedule %d left unarmed", i)
		}
		min := now.Add(time.Duration(60+i*20) * time.Second)
		max := min.Add(10 * time.Second)
		if s.NextFireAt.Before(min) || !s.NextFireAt.Before(max) {
			t.Errorf("schedule %d fires at %v, want in [%v,%v)", i, s.NextFireAt, min, max)
		}
	}
	if !soon.NextFireAt.Equal(soonFire) {
		t.Error("schedule already firing soon was reset")
	}
	if !otherThread.NextFireAt.Equal(now.Add(4 * time.Hour)) {
		t.Error("schedule in another thread was touched")
	}
}

func TestBumpInactiveUntouched(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	threadID := uuid.New()
	dead := &types.ForumAgentSchedule{ID: uuid.New(), ThreadID: threadID, PersonaID: uuid.New(), IsActive: false}
	schedules := &fakeScheduleRepo{rows: []*types.ForumAgentSchedule{dead}}
	b := NewBumper(nil, schedules, fixedClock(now), testLogger())

	bumped, err := b.Bump(context.Background(), threadID)
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if bumped != 0 || dead.NextFireAt != nil {
		t.Error("inactive schedule was bumped")
	}
}

type directFixture struct {
	personas *fakePersonaRepo
	threads  *fakeThreadRepo
	replies  *fakeReplyRepo
	users    *fakeUserRepo
	llm      *fakeLLM
	resp     *DirectResponder

	thread  *types.ForumThread
	persona *types.ForumPersona
	parent  *types.ForumReply
	now     time.Time
}

func newDirectFixture(t *testing.T) *directFixture {
	t.Helper()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	persona := &types.ForumPersona{ID: uuid.New(), Name: "Sunny", SystemPrompt: "You are Sunny.", IsActive: true}
	thread := &types.ForumThread{ID: uuid.New(), UserID: uuid.New(), Title: "t", Content: "c"}
	userID := uuid.New()
	content := "is this normal shedding?"

	f := &directFixture{
		personas: &fakePersonaRepo{rows: []*types.ForumPersona{persona}},
		threads:  newFakeThreadRepo(),
		replies:  &fakeReplyRepo{},
		users:    &fakeUserRepo{},
		llm:      &fakeLLM{text: "Totally normal, breathe."},
		thread:   thread,
		persona:  persona,
		now:      now,
	}
	f.threads.rows[thread.ID] = thread
	created, _ := f.replies.Create(dbcNone(), []*types.ForumReply{{
		ThreadID: thread.ID,
		UserID:   &userID,
		Content:  &content,
		Status:   types.ReplyStatusCompleted,
	}})
	f.parent = created[0]

	schedules := &fakeScheduleRepo{}
	gen := NewGenerator(nil, schedules, f.threads, f.replies, f.personas, f.users, f.llm, fixedClock(now), testLogger())
	f.resp = NewDirectResponder(nil, f.threads, f.replies, f.personas, gen, f.llm, fixedClock(now), testLogger())
	return f
}

func TestDirectRespondHappyPath(t *testing.T) {
	f := newDirectFixture(t)

	err := f.resp.Respond(context.Background(), f.thread.ID, f.parent.ID, "is this normal shedding?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if len(f.replies.rows) != 2 {
		t.Fatalf("have %d replies, want parent + nested answer", len(f.replies.rows))
	}
	nested := f.replies.rows[1]
	if nested.ParentID == nil || *nested.ParentID != f.parent.ID {
		t.Error("answer not nested under the human reply")
	}
	if nested.PersonaID == nil || *nested.PersonaID != f.persona.ID {
		t.Error("answer not attributed to the persona")
	}
	if nested.Status != types.ReplyStatusCompleted || nested.Content == nil || *nested.Content != "Totally normal, breathe." {
		t.Errorf("answer state: status=%s content=%v", nested.Status, nested.Content)
	}
	if !f.thread.UpdatedAt.Equal(f.now) {
		t.Error("thread activity not bumped")
	}

	if len(f.llm.users) != 1 || !strings.Contains(f.llm.users[0], "is this normal shedding?") {
		t.Errorf("user turn missing quoted message: %v", f.llm.users)
	}
	if !strings.Contains(f.llm.systems[0], "You are Sunny.") {
		t.Error("system prompt missing persona prompt")
	}
}

func TestDirectRespondLLMFailure(t *testing.T) {
	f := newDirectFixture(t)
	f.llm.err = errors.New("timeout")

	err := f.resp.Respond(context.Background(), f.thread.ID, f.parent.ID, "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	nested := f.replies.rows[1]
	if nested.Status != types.ReplyStatusFailed {
		t.Errorf("status = %s, want failed", nested.Status)
	}
	if nested.Content == nil || *nested.Content != "Error generating response" {
		t.Errorf("content = %v", nested.Content)
	}
}

func TestDirectRespondMissingParent(t *testing.T) {
	f := newDirectFixture(t)
	err := f.resp.Respond(context.Background(), f.thread.ID, uuid.New(), "hi")
	if err == nil {
		t.Fatal("expected error for missing parent reply")
	}
	if len(f.replies.rows) != 1 {
		t.Error("placeholder created despite missing parent")
	}
}

func TestDirectRespondNoPersonas(t *testing.T) {
	f := newDirectFixture(t)
	f.personas.rows = nil
	if err := f.resp.Respond(context.Background(), f.thread.ID, f.parent.ID, "hi"); err == nil {
		t.Fatal("expected error with no active personas")
	}
}
