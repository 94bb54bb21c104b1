package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/baldboard/baldboard-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:                uuid.New(),
		Email:             email,
		Password:          "pw",
		DisplayName:       "tester",
		ShowOnLeaderboard: true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedPersona(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, active bool) *types.ForumPersona {
	tb.Helper()
	p := &types.ForumPersona{
		ID:           uuid.New(),
		Name:         name,
		SystemPrompt: "You are " + name + ".",
		IsActive:     active,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed persona: %v", err)
	}
	return p
}

func SeedThread(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string) *types.ForumThread {
	tb.Helper()
	th := &types.ForumThread{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Content: "original post",
	}
	if err := tx.WithContext(ctx).Create(th).Error; err != nil {
		tb.Fatalf("seed thread: %v", err)
	}
	return th
}

func SeedReply(tb testing.TB, ctx context.Context, tx *gorm.DB, threadID uuid.UUID, userID *uuid.UUID, personaID *uuid.UUID, content string, at time.Time) *types.ForumReply {
	tb.Helper()
	r := &types.ForumReply{
		ID:        uuid.New(),
		ThreadID:  threadID,
		UserID:    userID,
		PersonaID: personaID,
		Content:   &content,
		Status:    types.ReplyStatusCompleted,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed reply: %v", err)
	}
	return r
}

func SeedSchedule(tb testing.TB, ctx context.Context, tx *gorm.DB, threadID uuid.UUID, personaID uuid.UUID, nextFireAt *time.Time, replyCount int) *types.ForumAgentSchedule {
	tb.Helper()
	s := &types.ForumAgentSchedule{
		ID:         uuid.New(),
		ThreadID:   threadID,
		PersonaID:  personaID,
		NextFireAt: nextFireAt,
		ReplyCount: replyCount,
		IsActive:   true,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed schedule: %v", err)
	}
	return s
}
