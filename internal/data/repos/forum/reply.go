package forum

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

type ReplyRepo interface {
	Create(dbc dbctx.Context, rows []*types.ForumReply) ([]*types.ForumReply, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumReply, error)
	ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ForumReply, error)
	// ListRecentCompleted returns up to limit completed replies in the thread,
	// newest first, excluding excludeID. Callers reverse for chronological order.
	ListRecentCompleted(dbc dbctx.Context, threadID uuid.UUID, excludeID uuid.UUID, limit int) ([]*types.ForumReply, error)
	CountByThread(dbc dbctx.Context, threadIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type replyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReplyRepo(db *gorm.DB, baseLog *logger.Logger) ReplyRepo {
	return &replyRepo{db: db, log: baseLog.With("repo", "ReplyRepo")}
}

func (r *replyRepo) Create(dbc dbctx.Context, rows []*types.ForumReply) ([]*types.ForumReply, error) {
	if len(rows) == 0 {
		return []*types.ForumReply{}, nil
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

func (r *replyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumReply, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.ForumReply
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

func (r *replyRepo) ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.ForumReply, error) {
	if threadID == uuid.Nil {
		return nil, fmt.Errorf("missing thread_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ForumReply
	if err := txx.WithContext(dbc.Ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *replyRepo) ListRecentCompleted(dbc dbctx.Context, threadID uuid.UUID, excludeID uuid.UUID, limit int) ([]*types.ForumReply, error) {
	if threadID == uuid.Nil {
		return nil, fmt.Errorf("missing thread_id")
	}
	if limit <= 0 {
		limit = 10
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).
		Where("thread_id = ? AND status = ?", threadID, types.ReplyStatusCompleted)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var out []*types.ForumReply
	if err := q.Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *replyRepo) CountByThread(dbc dbctx.Context, threadIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := map[uuid.UUID]int64{}
	if len(threadIDs) == 0 {
		return out, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var rows []struct {
		ThreadID uuid.UUID
		N        int64
	}
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ForumReply{}).
		Select("thread_id, COUNT(*) AS n").
		Where("thread_id IN ?", threadIDs).
		Group("thread_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ThreadID] = row.N
	}
	return out, nil
}

func (r *replyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ForumReply{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *replyRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.ForumReply{}).Error
}
