package forum_test

import (
	"context"
	"testing"
	"time"

	forumrepo "github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	"github.com/baldboard/baldboard-backend/internal/data/repos/testutil"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
)

func TestReplyListRecentCompleted(t *testing.T) {
	dbh := testutil.DB(t)
	tx := testutil.Tx(t, dbh)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := forumrepo.NewReplyRepo(dbh, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "recent@test.local")
	thread := testutil.SeedThread(t, ctx, tx, user.ID, "recent thread")
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	var agents []*types.ForumReply
	for i := 0; i < 12; i++ {
		agents = append(agents, testutil.SeedReply(t, ctx, tx, thread.ID, &user.ID, nil, "msg", base.Add(time.Duration(i)*time.Minute)))
	}
	// Non-completed replies never enter the window.
	pending := testutil.SeedReply(t, ctx, tx, thread.ID, &user.ID, nil, "late", base.Add(time.Hour))
	if err := repo.UpdateFields(dbc, pending.ID, map[string]interface{}{"status": types.ReplyStatusPending}); err != nil {
		t.Fatalf("mark pending: %v", err)
	}

	got, err := repo.ListRecentCompleted(dbc, thread.ID, agents[11].ID, 10)
	if err != nil {
		t.Fatalf("ListRecentCompleted: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d replies, want 10", len(got))
	}
	// Newest first, excluded id absent.
	for i, r := range got {
		if r.ID == agents[11].ID || r.ID == pending.ID {
			t.Errorf("excluded reply present at %d", i)
		}
		if i > 0 && got[i-1].CreatedAt.Before(r.CreatedAt) {
			t.Errorf("not newest-first at %d", i)
		}
	}
	if got[0].ID != agents[10].ID {
		t.Errorf("newest completed reply missing from window head")
	}
}

func TestThreadBumpActivityMonotonic(t *testing.T) {
	dbh := testutil.DB(t)
	tx := testutil.Tx(t, dbh)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := forumrepo.NewThreadRepo(dbh, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "bumpact@test.local")
	thread := testutil.SeedThread(t, ctx, tx, user.ID, "bump thread")

	future := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	if err := repo.BumpActivity(dbc, thread.ID, future); err != nil {
		t.Fatalf("BumpActivity: %v", err)
	}
	got, err := repo.GetByID(dbc, thread.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.UpdatedAt.Equal(future) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, future)
	}

	// An older timestamp must not move it backward.
	if err := repo.BumpActivity(dbc, thread.ID, future.Add(-30*time.Minute)); err != nil {
		t.Fatalf("second BumpActivity: %v", err)
	}
	got, _ = repo.GetByID(dbc, thread.ID)
	if !got.UpdatedAt.Equal(future) {
		t.Errorf("updated_at moved backward to %v", got.UpdatedAt)
	}
}

func TestThreadDeleteCascades(t *testing.T) {
	dbh := testutil.DB(t)
	tx := testutil.Tx(t, dbh)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	threadRepo := forumrepo.NewThreadRepo(dbh, testutil.Logger(t))
	replyRepo := forumrepo.NewReplyRepo(dbh, testutil.Logger(t))
	schedRepo := forumrepo.NewAgentScheduleRepo(dbh, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "cascade@test.local")
	persona := testutil.SeedPersona(t, ctx, tx, "Cascade Persona", true)
	thread := testutil.SeedThread(t, ctx, tx, user.ID, "cascade thread")
	testutil.SeedReply(t, ctx, tx, thread.ID, &user.ID, nil, "a reply", time.Now().UTC())
	testutil.SeedSchedule(t, ctx, tx, thread.ID, persona.ID, nil, 0)

	if err := threadRepo.Delete(dbc, thread.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	gone, err := threadRepo.GetByID(dbc, thread.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gone != nil {
		t.Error("thread still readable after delete")
	}
	replies, err := replyRepo.ListByThread(dbc, thread.ID)
	if err != nil {
		t.Fatalf("ListByThread: %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("%d replies survived thread delete", len(replies))
	}
	scheds, err := schedRepo.ListActiveByThread(dbc, thread.ID)
	if err != nil {
		t.Fatalf("ListActiveByThread: %v", err)
	}
	if len(scheds) != 0 {
		t.Errorf("%d schedules survived thread delete", len(scheds))
	}
}
