package forum

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

type ThreadRepo interface {
	Create(dbc dbctx.Context, rows []*types.ForumThread) ([]*types.ForumThread, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumThread, error)
	List(dbc dbctx.Context, page int, perPage int) ([]*types.ForumThread, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// BumpActivity moves updated_at forward, never backward.
	BumpActivity(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type threadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return &threadRepo{db: db, log: baseLog.With("repo", "ThreadRepo")}
}

func (r *threadRepo) Create(dbc dbctx.Context, rows []*types.ForumThread) ([]*types.ForumThread, error) {
	if len(rows) == 0 {
		return []*types.ForumThread{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *threadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumThread, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.ForumThread
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

func (r *threadRepo) List(dbc dbctx.Context, page int, perPage int) ([]*types.ForumThread, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var total int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ForumThread{}).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.ForumThread
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ForumThread{}).
		Order("is_pinned DESC, updated_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *threadRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ForumThread{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *threadRepo) BumpActivity(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ForumThread{}).
		Where("id = ? AND updated_at < ?", id, at).
		Update("updated_at", at).Error
}

func (r *threadRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	// Cascades: replies and schedules go with the thread.
	return txx.WithContext(dbc.Ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("thread_id = ?", id).Delete(&types.ForumAgentSchedule{}).Error; err != nil {
			return err
		}
		if err := inner.Where("thread_id = ?", id).Delete(&types.ForumReply{}).Error; err != nil {
			return err
		}
		return inner.Where("id = ?", id).Delete(&types.ForumThread{}).Error
	})
}
