package forum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Thread struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title    string    `gorm:"not null;column:title" json:"title"`
	Content  string    `gorm:"type:text;not null;column:content" json:"content"`
	IsPinned bool      `gorm:"column:is_pinned;not null;default:false" json:"is_pinned"`

	// UpdatedAt doubles as the last-activity timestamp: every completed
	// reply, human or agent, bumps it. Monotonically non-decreasing.
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Thread) TableName() string { return "forum_thread" }
