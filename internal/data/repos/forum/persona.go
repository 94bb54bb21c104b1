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

type PersonaRepo interface {
	Create(dbc dbctx.Context, rows []*types.ForumPersona) ([]*types.ForumPersona, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ForumPersona, error)
	GetByName(dbc dbctx.Context, name string) (*types.ForumPersona, error)
	List(dbc dbctx.Context) ([]*types.ForumPersona, error)
	ListActive(dbc dbctx.Context) ([]*types.ForumPersona, error)
	RandomActive(dbc dbctx.Context) (*types.ForumPersona, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return &personaRepo{db: db, log: baseLog.With("repo", "PersonaRepo")}
}

func (r *personaRepo) Create(dbc dbctx.Context, rows []*types.ForumPersona) ([]*types.ForumPersona, error) {
	if len(rows) == 0 {
		return []*types.ForumPersona{}, nil
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

func (r *personaRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ForumPersona, error) {
	if len(ids) == 0 {
		return []*types.ForumPersona{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ForumPersona
	if err := txx.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personaRepo) GetByName(dbc dbctx.Context, name string) (*types.ForumPersona, error) {
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.ForumPersona
	err := txx.WithContext(dbc.Ctx).
		Where("name = ?", name).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *personaRepo) List(dbc dbctx.Context) ([]*types.ForumPersona, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ForumPersona
	if err := txx.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personaRepo) ListActive(dbc dbctx.Context) ([]*types.ForumPersona, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ForumPersona
	if err := txx.WithContext(dbc.Ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personaRepo) RandomActive(dbc dbctx.Context) (*types.ForumPersona, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.ForumPersona
	err := txx.WithContext(dbc.Ctx).
		Where("is_active = ?", true).
		Order("RANDOM()").
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *personaRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ForumPersona{}).
		Where("id = ?", id).
		Updates(updates).Error
}
