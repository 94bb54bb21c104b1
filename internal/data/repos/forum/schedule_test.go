package forum_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	forumrepo "github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	"github.com/baldboard/baldboard-backend/internal/data/repos/testutil"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
)

func TestScheduleClaim(t *testing.T) {
	dbh := testutil.DB(t)
	tx := testutil.Tx(t, dbh)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := forumrepo.NewAgentScheduleRepo(dbh, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "claim@test.local")
	persona := testutil.SeedPersona(t, ctx, tx, "Claim Persona", true)
	thread := testutil.SeedThread(t, ctx, tx, user.ID, "claim thread")
	fireAt := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	sched := testutil.SeedSchedule(t, ctx, tx, thread.ID, persona.ID, &fireAt, 0)

	won, err := repo.Claim(dbc, sched.ID, fireAt)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !won {
		t.Fatal("first claim lost")
	}

	got, err := repo.GetByID(dbc, sched.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.NextFireAt != nil {
		t.Errorf("next_fire_at not cleared: %v", got.NextFireAt)
	}

	// Same expected value again: the row no longer matches.
	won, err = repo.Claim(dbc, sched.ID, fireAt)
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if won {
		t.Error("claim won twice for the same fire time")
	}
}

func TestScheduleClaimStaleExpected(t *testing.T) {
	dbh := testutil.DB(t)
	tx := testutil.Tx(t, dbh)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := forumrepo.NewAgentScheduleRepo(dbh, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "stale@test.local")
	persona := testutil.SeedPersona(t, ctx, tx, "Stale Persona", true)
	thread := testutil.SeedThread(t, ctx, tx, user.ID, "stale thread")
	fireAt := time.Now().UTC().Truncate(time.Microsecond)
	sched := testutil.SeedSchedule(t, ctx, tx, thread.ID, persona.ID, &fireAt, 0)

	won, err := repo.Claim(dbc, sched.ID, fireAt.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if won {
		t.Error("claim won with a stale expected fire time")
	}
	got, _ := repo.GetByID(dbc, sched.ID)
	if got.NextFireAt == nil || !got.NextFireAt.Equal(fireAt) {
		t.Errorf("losing claim mutated next_fire_at: %v", got.NextFireAt)
	}
}

func TestScheduleListDue(t *testing.T) {
	dbh := testutil.DB(t)
	tx := testutil.Tx(t, dbh)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := forumrepo.NewAgentScheduleRepo(dbh, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "due@test.local")
	thread := testutil.SeedThread(t, ctx, tx, user.ID, "due thread")
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	p1 := testutil.SeedPersona(t, ctx, tx, "Due A", true)
	p2 := testutil.SeedPersona(t, ctx, tx, "Due B", true)
	p3 := testutil.SeedPersona(t, ctx, tx, "Due C", true)
	p4 := testutil.SeedPersona(t, ctx, tx, "Due D", true)

	due := testutil.SeedSchedule(t, ctx, tx, thread.ID, p1.ID, &past, 0)
	testutil.SeedSchedule(t, ctx, tx, thread.ID, p2.ID, &future, 0)
	testutil.SeedSchedule(t, ctx, tx, thread.ID, p3.ID, nil, 0)
	inactive := testutil.SeedSchedule(t, ctx, tx, thread.ID, p4.ID, &past, 0)
	if err := repo.UpdateFields(dbc, inactive.ID, map[string]interface{}{"is_active": false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := repo.ListDue(dbc, now)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		ids := make([]uuid.UUID, 0, len(got))
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		t.Fatalf("ListDue = %v, want only %v", ids, due.ID)
	}
}

func TestScheduleUniquePerThreadPersona(t *testing.T) {
	dbh := testutil.DB(t)
	tx := testutil.Tx(t, dbh)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := forumrepo.NewAgentScheduleRepo(dbh, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "uniq@test.local")
	persona := testutil.SeedPersona(t, ctx, tx, "Uniq Persona", true)
	thread := testutil.SeedThread(t, ctx, tx, user.ID, "uniq thread")
	testutil.SeedSchedule(t, ctx, tx, thread.ID, persona.ID, nil, 0)

	_, err := repo.Create(dbc, []*types.ForumAgentSchedule{{ThreadID: thread.ID, PersonaID: persona.ID, IsActive: true}})
	if err == nil {
		t.Fatal("duplicate (thread_id, persona_id) accepted")
	}
}
