package forum

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

type AgentScheduleRepo interface {
	Create(dbc dbctx.Context, rows []*types.ForumAgentSchedule) ([]*types.ForumAgentSchedule, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumAgentSchedule, error)
	// ListDue returns active schedules whose next_fire_at has passed.
	ListDue(dbc dbctx.Context, now time.Time) ([]*types.ForumAgentSchedule, error)
	ListActiveByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ForumAgentSchedule, error)
	// LockByID takes a row lock; requires dbc.Tx.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumAgentSchedule, error)
	// Claim nulls next_fire_at only if it still holds the value the caller
	// read. Returns false when another dispatcher tick won the race.
	Claim(dbc dbctx.Context, id uuid.UUID, expectedFireAt time.Time) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type agentScheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentScheduleRepo(db *gorm.DB, baseLog *logger.Logger) AgentScheduleRepo {
	return &agentScheduleRepo{db: db, log: baseLog.With("repo", "AgentScheduleRepo")}
}

func (r *agentScheduleRepo) Create(dbc dbctx.Context, rows []*types.ForumAgentSchedule) ([]*types.ForumAgentSchedule, error) {
	if len(rows) == 0 {
		return []*types.ForumAgentSchedule{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	// The (thread_id, persona_id) unique index rejects duplicate timers; the
	// violation surfaces to the caller rather than silently doubling up.
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *agentScheduleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumAgentSchedule, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.ForumAgentSchedule
	err := txx.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *agentScheduleRepo) ListDue(dbc dbctx.Context, now time.Time) ([]*types.ForumAgentSchedule, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ForumAgentSchedule
	if err := txx.WithContext(dbc.Ctx).
		Where("is_active = ? AND next_fire_at IS NOT NULL AND next_fire_at <= ?", true, now).
		Order("next_fire_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *agentScheduleRepo) ListActiveByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ForumAgentSchedule, error) {
	if threadID == uuid.Nil {
		return nil, fmt.Errorf("missing thread_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ForumAgentSchedule
	if err := txx.WithContext(dbc.Ctx).
		Where("thread_id = ? AND is_active = ?", threadID, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *agentScheduleRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumAgentSchedule, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	var out types.ForumAgentSchedule
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *agentScheduleRepo) Claim(dbc dbctx.Context, id uuid.UUID, expectedFireAt time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.ForumAgentSchedule{}).
		Where("id = ? AND next_fire_at = ?", id, expectedFireAt).
		Updates(map[string]interface{}{
			"next_fire_at": nil,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *agentScheduleRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ForumAgentSchedule{}).
		Where("id = ?", id).
		Updates(updates).Error
}
