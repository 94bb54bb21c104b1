package forum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReplyStatus string

const (
	ReplyStatusPending    ReplyStatus = "pending"
	ReplyStatusProcessing ReplyStatus = "processing"
	ReplyStatusCompleted  ReplyStatus = "completed"
	ReplyStatusFailed     ReplyStatus = "failed"
)

// Reply is a single post in a thread, authored by either a human or a
// persona. Content is null while an agent reply is pending/processing so
// polling clients can render an "agent is typing" placeholder.
type Reply struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ThreadID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"thread_id"`
	UserID    *uuid.UUID  `gorm:"type:uuid;index" json:"user_id,omitempty"`
	PersonaID *uuid.UUID  `gorm:"type:uuid;index" json:"persona_id,omitempty"`
	ParentID  *uuid.UUID  `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Content   *string     `gorm:"type:text" json:"content"`
	Status    ReplyStatus `gorm:"not null;default:'completed';index" json:"status"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Reply) TableName() string { return "forum_reply" }

type AuthorKind string

const (
	AuthorKindUser    AuthorKind = "user"
	AuthorKindPersona AuthorKind = "persona"
	AuthorKindNone    AuthorKind = "none"
)

// ReplyAuthor is the resolved authorship of a reply. Exactly one of the ID
// fields is set for user/persona kinds; none means the author row was
// deleted and the reply is orphaned.
type ReplyAuthor struct {
	Kind      AuthorKind
	UserID    uuid.UUID
	PersonaID uuid.UUID
}

// Author resolves the user-vs-persona union once so callers never branch on
// which foreign key happens to be populated.
func (r *Reply) Author() ReplyAuthor {
	switch {
	case r.PersonaID != nil && *r.PersonaID != uuid.Nil:
		return ReplyAuthor{Kind: AuthorKindPersona, PersonaID: *r.PersonaID}
	case r.UserID != nil && *r.UserID != uuid.Nil:
		return ReplyAuthor{Kind: AuthorKindUser, UserID: *r.UserID}
	default:
		return ReplyAuthor{Kind: AuthorKindNone}
	}
}

func (r *Reply) IsAgentReply() bool { return r.Author().Kind == AuthorKindPersona }
