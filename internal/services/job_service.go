package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/baldboard/baldboard-backend/internal/data/repos"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

// JobService is the enqueue side of the background job queue. Delivery is
// at-least-once: a crashed worker leaves a stale heartbeat and the job is
// re-claimed, so handlers are written to tolerate duplicate delivery.
type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, payload map[string]any, delay time.Duration) (*types.JobRun, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, payload map[string]any, delay time.Duration) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	run := &types.JobRun{
		ID:      uuid.New(),
		JobType: jobType,
		Status:  types.JobStatusQueued,
		Payload: datatypes.JSON(raw),
		Result:  datatypes.JSON([]byte(`{}`)),
	}
	if delay > 0 {
		at := time.Now().Add(delay)
		run.RunAt = &at
	}

	created, err := s.repo.Create(dbc, []*types.JobRun{run})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 || created[0] == nil {
		return nil, fmt.Errorf("failed to enqueue job")
	}
	s.log.Debug("Enqueued job", "job_type", jobType, "job_id", run.ID, "delay", delay.String())
	return created[0], nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rows, err := s.repo.GetByIDs(dbc, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("job not found")
	}
	return rows[0], nil
}
