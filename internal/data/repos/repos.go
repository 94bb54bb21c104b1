package repos

import (
	"gorm.io/gorm"

	"github.com/baldboard/baldboard-backend/internal/data/repos/counseling"
	"github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	"github.com/baldboard/baldboard-backend/internal/data/repos/jobs"
	"github.com/baldboard/baldboard-backend/internal/data/repos/user"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type PersonaRepo = forum.PersonaRepo
type ThreadRepo = forum.ThreadRepo
type ReplyRepo = forum.ReplyRepo
type AgentScheduleRepo = forum.AgentScheduleRepo

type CounselingSessionRepo = counseling.SessionRepo
type CounselingMessageRepo = counseling.MessageRepo

type JobRunRepo = jobs.JobRunRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return forum.NewPersonaRepo(db, baseLog)
}
func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return forum.NewThreadRepo(db, baseLog)
}
func NewReplyRepo(db *gorm.DB, baseLog *logger.Logger) ReplyRepo {
	return forum.NewReplyRepo(db, baseLog)
}
func NewAgentScheduleRepo(db *gorm.DB, baseLog *logger.Logger) AgentScheduleRepo {
	return forum.NewAgentScheduleRepo(db, baseLog)
}

func NewCounselingSessionRepo(db *gorm.DB, baseLog *logger.Logger) CounselingSessionRepo {
	return counseling.NewSessionRepo(db, baseLog)
}
func NewCounselingMessageRepo(db *gorm.DB, baseLog *logger.Logger) CounselingMessageRepo {
	return counseling.NewMessageRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
