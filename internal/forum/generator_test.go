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

type generatorFixture struct {
	personas  *fakePersonaRepo
	threads   *fakeThreadRepo
	replies   *fakeReplyRepo
	schedules *fakeScheduleRepo
	users     *fakeUserRepo
	llm       *fakeLLM
	gen       *Generator

	thread   *types.ForumThread
	persona  *types.ForumPersona
	schedule *types.ForumAgentSchedule
	now      time.Time
}

// newGeneratorFixture builds a thread with one claimed schedule, ready for
// GenerateReply.
func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	persona := &types.ForumPersona{
		ID:           uuid.New(),
		Name:         "Chrome Dome Charlie",
		SystemPrompt: "You are Chrome Dome Charlie.",
		IsActive:     true,
	}
	thread := &types.ForumThread{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Title:   "Shaved it all off",
		Content: "Best decision of my life.",
	}
	schedule := &types.ForumAgentSchedule{
		ID:         uuid.New(),
		ThreadID:   thread.ID,
		PersonaID:  persona.ID,
		ReplyCount: 0,
		IsActive:   true,
		// NextFireAt nil: the dispatcher already claimed this schedule.
	}

	f := &generatorFixture{
		personas:  &fakePersonaRepo{rows: []*types.ForumPersona{persona}},
		threads:   newFakeThreadRepo(),
		replies:   &fakeReplyRepo{},
		schedules: &fakeScheduleRepo{rows: []*types.ForumAgentSchedule{schedule}},
		users:     &fakeUserRepo{},
		llm:       &fakeLLM{text: "Welcome to the chrome side."},
		thread:    thread,
		persona:   persona,
		schedule:  schedule,
		now:       now,
	}
	f.threads.rows[thread.ID] = thread
	f.gen = NewGenerator(nil, f.schedules, f.threads, f.replies, f.personas, f.users, f.llm, fixedClock(now), testLogger())
	return f
}

func TestGenerateReplyHappyPath(t *testing.T) {
	f := newGeneratorFixture(t)

	if err := f.gen.GenerateReply(context.Background(), f.schedule.ID); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}

	if len(f.replies.rows) != 1 {
		t.Fatalf("created %d replies, want 1", len(f.replies.rows))
	}
	reply := f.replies.rows[0]
	if reply.Status != types.ReplyStatusCompleted {
		t.Errorf("reply status = %s, want completed", reply.Status)
	}
	if reply.Content == nil || *reply.Content != "Welcome to the chrome side." {
		t.Errorf("reply content = %v", reply.Content)
	}
	if reply.PersonaID == nil || *reply.PersonaID != f.persona.ID {
		t.Error("reply not attributed to persona")
	}
	if reply.UserID != nil {
		t.Error("agent reply must have nil user_id")
	}

	if f.schedule.ReplyCount != 1 {
		t.Errorf("reply_count = %d, want 1", f.schedule.ReplyCount)
	}
	if f.schedule.LastRepliedAt == nil || !f.schedule.LastRepliedAt.Equal(f.now) {
		t.Errorf("last_replied_at = %v, want %v", f.schedule.LastRepliedAt, f.now)
	}
	wantNext := f.now.Add(time.Duration(NextDelayMinutes(1)) * time.Minute)
	if f.schedule.NextFireAt == nil || !f.schedule.NextFireAt.Equal(wantNext) {
		t.Errorf("next_fire_at = %v, want %v", f.schedule.NextFireAt, wantNext)
	}
	if !f.thread.UpdatedAt.Equal(f.now) {
		t.Errorf("thread activity not bumped: %v", f.thread.UpdatedAt)
	}
}

func TestGenerateReplyBackoffProgression(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()

	cases := []struct {
		countBefore int
		wantMinutes int
	}{
		{1, 15},
		{2, 30},
		{3, 60},
		{7, 1440},
		{40, 1440},
	}
	for _, c := range cases {
		f.schedule.ReplyCount = c.countBefore
		f.schedule.NextFireAt = nil
		if err := f.gen.GenerateReply(ctx, f.schedule.ID); err != nil {
			t.Fatalf("count %d: %v", c.countBefore, err)
		}
		if f.schedule.ReplyCount != c.countBefore+1 {
			t.Fatalf("count %d: reply_count = %d", c.countBefore, f.schedule.ReplyCount)
		}
		wantNext := f.now.Add(time.Duration(c.wantMinutes) * time.Minute)
		if f.schedule.NextFireAt == nil || !f.schedule.NextFireAt.Equal(wantNext) {
			t.Fatalf("count %d: next_fire_at = %v, want %v", c.countBefore, f.schedule.NextFireAt, wantNext)
		}
	}
}

func TestGenerateReplyPromptWindow(t *testing.T) {
	f := newGeneratorFixture(t)

	human := &types.User{ID: uuid.New(), Email: "x@y.z", DisplayName: "slickrick"}
	f.users.rows = append(f.users.rows, human)

	mk := func(content string, userID *uuid.UUID, personaID *uuid.UUID, status types.ForumReplyStatus) {
		c := content
		_, _ = f.replies.Create(dbcNone(), []*types.ForumReply{{
			ThreadID:  f.thread.ID,
			UserID:    userID,
			PersonaID: personaID,
			Content:   &c,
			Status:    status,
		}})
	}
	mk("first post reply", &human.ID, nil, types.ReplyStatusCompleted)
	mk("persona take", nil, &f.persona.ID, types.ReplyStatusCompleted)
	mk("still cooking", &human.ID, nil, types.ReplyStatusPending)

	if err := f.gen.GenerateReply(context.Background(), f.schedule.ID); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if len(f.llm.systems) != 1 {
		t.Fatalf("LLM called %d times, want 1", len(f.llm.systems))
	}
	system := f.llm.systems[0]

	if !strings.Contains(system, "You are Chrome Dome Charlie.") {
		t.Error("system prompt missing persona prompt")
	}
	if !strings.Contains(system, "slickrick: first post reply") {
		t.Errorf("human reply missing or misattributed:\n%s", system)
	}
	if !strings.Contains(system, "Chrome Dome Charlie: persona take") {
		t.Errorf("persona reply missing or misattributed:\n%s", system)
	}
	if strings.Contains(system, "still cooking") {
		t.Error("pending reply leaked into the prompt window")
	}
	// Chronological: the older human reply renders before the persona's.
	if strings.Index(system, "first post reply") > strings.Index(system, "persona take") {
		t.Error("window not in chronological order")
	}
	if f.llm.users[0] != WriteReplyInstruction() {
		t.Errorf("user turn = %q", f.llm.users[0])
	}
}

func TestGenerateReplySkipsRearmedSchedule(t *testing.T) {
	f := newGeneratorFixture(t)
	fireAt := f.now.Add(90 * time.Second)
	f.schedule.NextFireAt = &fireAt

	if err := f.gen.GenerateReply(context.Background(), f.schedule.ID); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if len(f.replies.rows) != 0 {
		t.Error("rearmed schedule still produced a reply")
	}
	if len(f.llm.systems) != 0 {
		t.Error("rearmed schedule still called the LLM")
	}
	if f.schedule.NextFireAt == nil || !f.schedule.NextFireAt.Equal(fireAt) {
		t.Error("rearmed fire time was disturbed")
	}
}

func TestGenerateReplySkipsInactiveSchedule(t *testing.T) {
	f := newGeneratorFixture(t)
	f.schedule.IsActive = false

	if err := f.gen.GenerateReply(context.Background(), f.schedule.ID); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if len(f.replies.rows) != 0 || len(f.llm.systems) != 0 {
		t.Error("inactive schedule still generated")
	}
}

func TestGenerateReplyMissingScheduleNoop(t *testing.T) {
	f := newGeneratorFixture(t)
	if err := f.gen.GenerateReply(context.Background(), uuid.New()); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if len(f.replies.rows) != 0 {
		t.Error("missing schedule produced a reply")
	}
}

func TestGenerateReplyThreadDeletedDeactivates(t *testing.T) {
	f := newGeneratorFixture(t)
	delete(f.threads.rows, f.thread.ID)

	if err := f.gen.GenerateReply(context.Background(), f.schedule.ID); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if f.schedule.IsActive {
		t.Error("schedule still active after thread deletion")
	}
	if len(f.replies.rows) != 0 {
		t.Error("reply created for deleted thread")
	}
}

func TestGenerateReplyPersonaDeactivatedDeactivates(t *testing.T) {
	f := newGeneratorFixture(t)
	f.persona.IsActive = false

	if err := f.gen.GenerateReply(context.Background(), f.schedule.ID); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if f.schedule.IsActive {
		t.Error("schedule still active after persona deactivation")
	}
}

func TestGenerateReplyLLMFailure(t *testing.T) {
	f := newGeneratorFixture(t)
	f.llm.err = errors.New("model overloaded")

	err := f.gen.GenerateReply(context.Background(), f.schedule.ID)
	if err == nil {
		t.Fatal("expected error")
	}

	if len(f.replies.rows) != 1 {
		t.Fatalf("created %d replies, want 1 failed placeholder", len(f.replies.rows))
	}
	if f.replies.rows[0].Status != types.ReplyStatusFailed {
		t.Errorf("reply status = %s, want failed", f.replies.rows[0].Status)
	}
	// Polling clients render this fallback text in place of the reply.
	if f.replies.rows[0].Content == nil || *f.replies.rows[0].Content != failedReplyContent {
		t.Errorf("failed reply content = %v, want %q", f.replies.rows[0].Content, failedReplyContent)
	}

	// The schedule rearms with the delay the success path would have used,
	// so one bad call never stalls the thread.
	wantNext := f.now.Add(time.Duration(NextDelayMinutes(f.schedule.ReplyCount+1)) * time.Minute)
	if f.schedule.NextFireAt == nil || !f.schedule.NextFireAt.Equal(wantNext) {
		t.Errorf("next_fire_at = %v, want %v", f.schedule.NextFireAt, wantNext)
	}
	if f.schedule.ReplyCount != 0 {
		t.Errorf("failed generation incremented reply_count to %d", f.schedule.ReplyCount)
	}
}
