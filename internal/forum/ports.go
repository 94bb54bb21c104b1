package forum

import (
	"context"
	"time"

	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
)

// Job types owned by this package.
const (
	JobTypeThreadInit  = "forum_thread_init"
	JobTypeAgentReply  = "forum_agent_reply"
	JobTypeDirectReply = "forum_direct_reply"
	JobTypeBump        = "forum_bump_schedules"
)

// Queue is the enqueue side of the background job queue. services.JobService
// satisfies it; tests use an in-memory fake.
type Queue interface {
	Enqueue(dbc dbctx.Context, jobType string, payload map[string]any, delay time.Duration) (*types.JobRun, error)
}

// TextGenerator is the text-generation collaborator. The scheduler treats
// prompt text as opaque; only this boundary consumes it.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

// Clock is the injectable time source every scheduling component uses for
// "now" so tests can pin time.
type Clock func() time.Time
