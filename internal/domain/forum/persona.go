package forum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Persona is a named simulated forum participant. Its prompt text is opaque
// to the scheduling code; only the LLM call consumes it.
type Persona struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	SystemPrompt string    `gorm:"type:text;not null;column:system_prompt" json:"-"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Persona) TableName() string { return "forum_persona" }
