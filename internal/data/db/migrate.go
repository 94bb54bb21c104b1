package db

import (
	"fmt"

	types "github.com/baldboard/baldboard-backend/internal/domain"
)

func (s *PostgresService) AutoMigrateAll() error {
	if err := s.db.AutoMigrate(
		&types.User{},

		&types.ForumPersona{},
		&types.ForumThread{},
		&types.ForumReply{},
		&types.ForumAgentSchedule{},

		&types.CounselingSession{},
		&types.CounselingMessage{},

		&types.JobRun{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
