package forum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AgentSchedule is the per-(thread, persona) timer governing when that
// persona next posts. NextFireAt == nil means the schedule is either claimed
// and awaiting generation, or not yet scheduled. ReplyCount only increases
// and is the sole input to the backoff policy.
type AgentSchedule struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ThreadID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:uq_agent_schedule_thread_persona" json:"thread_id"`
	PersonaID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:uq_agent_schedule_thread_persona" json:"persona_id"`
	NextFireAt    *time.Time `gorm:"column:next_fire_at;index" json:"next_fire_at,omitempty"`
	ReplyCount    int        `gorm:"column:reply_count;not null;default:0" json:"reply_count"`
	LastRepliedAt *time.Time `gorm:"column:last_replied_at" json:"last_replied_at,omitempty"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AgentSchedule) TableName() string { return "forum_agent_schedule" }
