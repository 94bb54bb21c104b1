package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/baldboard/baldboard-backend/internal/clients/redis"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

const (
	leaderboardCacheKey = "leaderboard:activity:v1"
	leaderboardCacheTTL = 60 * time.Second
	leaderboardLimit    = 20

	scorePerThread  = 10
	scorePerReply   = 5
	scorePerSession = 5
)

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Threads     int64     `json:"threads"`
	Replies     int64     `json:"replies"`
	Sessions    int64     `json:"sessions"`
	Score       int64     `json:"score"`
}

// Leaderboard ranks users by forum and counseling activity.
type Leaderboard struct {
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// LeaderboardService computes the activity ranking. Results are cached in
// redis for a minute; three aggregates run concurrently on a miss.
type LeaderboardService interface {
	Get(ctx context.Context) (*Leaderboard, error)
}

type leaderboardService struct {
	db    *gorm.DB
	cache redis.Cache
	log   *logger.Logger
}

func NewLeaderboardService(db *gorm.DB, cache redis.Cache, baseLog *logger.Logger) LeaderboardService {
	return &leaderboardService{
		db:    db,
		cache: cache,
		log:   baseLog.With("service", "LeaderboardService"),
	}
}

func (s *leaderboardService) Get(ctx context.Context) (*Leaderboard, error) {
	if s.cache != nil {
		var cached Leaderboard
		hit, err := s.cache.GetJSON(ctx, leaderboardCacheKey, &cached)
		if err != nil {
			s.log.Warn("Leaderboard cache read failed", "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	board, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, leaderboardCacheKey, board, leaderboardCacheTTL); err != nil {
			s.log.Warn("Leaderboard cache write failed", "error", err)
		}
	}
	return board, nil
}

type activityRow struct {
	UserID uuid.UUID
	N      int64
}

func (s *leaderboardService) compute(ctx context.Context) (*Leaderboard, error) {
	var threadRows, replyRows, sessionRows []activityRow

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Raw(`SELECT user_id, COUNT(*) AS n FROM forum_thread WHERE deleted_at IS NULL GROUP BY user_id`).
			Scan(&threadRows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Raw(`SELECT user_id, COUNT(*) AS n FROM forum_reply WHERE deleted_at IS NULL AND user_id IS NOT NULL GROUP BY user_id`).
			Scan(&replyRows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Raw(`SELECT user_id, COUNT(*) AS n FROM counseling_session WHERE deleted_at IS NULL GROUP BY user_id`).
			Scan(&sessionRows).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := map[uuid.UUID]*LeaderboardEntry{}
	get := func(id uuid.UUID) *LeaderboardEntry {
		if e, ok := entries[id]; ok {
			return e
		}
		e := &LeaderboardEntry{UserID: id}
		entries[id] = e
		return e
	}
	for _, r := range threadRows {
		get(r.UserID).Threads = r.N
	}
	for _, r := range replyRows {
		get(r.UserID).Replies = r.N
	}
	for _, r := range sessionRows {
		get(r.UserID).Sessions = r.N
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	// Opted-out and deleted users drop off the board.
	var users []struct {
		ID          uuid.UUID
		DisplayName string
		AvatarURL   string
	}
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).
			Raw(`SELECT id, display_name, avatar_url FROM "user" WHERE id IN ? AND deleted_at IS NULL AND show_on_leaderboard = true`, ids).
			Scan(&users).Error; err != nil {
			return nil, err
		}
	}

	ranked := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		e := entries[u.ID]
		e.DisplayName = u.DisplayName
		e.AvatarURL = u.AvatarURL
		e.Score = e.Threads*scorePerThread + e.Replies*scorePerReply + e.Sessions*scorePerSession
		ranked = append(ranked, *e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DisplayName < ranked[j].DisplayName
	})
	if len(ranked) > leaderboardLimit {
		ranked = ranked[:leaderboardLimit]
	}

	return &Leaderboard{Entries: ranked, GeneratedAt: time.Now().UTC()}, nil
}
