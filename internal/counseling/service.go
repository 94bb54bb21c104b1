package counseling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baldboard/baldboard-backend/internal/clients/openai"
	counselingrepo "github.com/baldboard/baldboard-backend/internal/data/repos/counseling"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

// JobTypeReply is the background job that fills in a pending assistant
// message.
const JobTypeReply = "counseling_generate_reply"

// Queue is the enqueue side of the job queue, satisfied by
// services.JobService.
type Queue interface {
	Enqueue(dbc dbctx.Context, jobType string, payload map[string]any, delay time.Duration) (*types.JobRun, error)
}

// ChatGenerator produces one assistant turn for a conversation history.
type ChatGenerator interface {
	GenerateChat(ctx context.Context, system string, turns []openai.Turn) (string, error)
}

// SessionWithCount pairs a session with its message count for list views.
type SessionWithCount struct {
	Session      *types.CounselingSession `json:"session"`
	MessageCount int64                    `json:"message_count"`
}

// Service owns counseling sessions and their message lifecycle. Sending a
// message writes the user turn plus a pending assistant placeholder, then
// hands generation to the job queue; clients poll the message until it
// completes.
type Service struct {
	db       *gorm.DB
	sessions counselingrepo.SessionRepo
	messages counselingrepo.MessageRepo
	queue    Queue
	llm      ChatGenerator
	log      *logger.Logger
}

func NewService(db *gorm.DB, sessions counselingrepo.SessionRepo, messages counselingrepo.MessageRepo, queue Queue, llm ChatGenerator, baseLog *logger.Logger) *Service {
	return &Service{
		db:       db,
		sessions: sessions,
		messages: messages,
		queue:    queue,
		llm:      llm,
		log:      baseLog.With("service", "CounselingService"),
	}
}

func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID) (*types.CounselingSession, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	created, err := s.sessions.Create(dbctx.Context{Ctx: ctx}, []*types.CounselingSession{{UserID: userID}})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) ([]SessionWithCount, error) {
	dbc := dbctx.Context{Ctx: ctx}
	sessions, err := s.sessions.ListByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	counts, err := s.messages.CountBySessions(dbc, ids)
	if err != nil {
		return nil, err
	}
	out := make([]SessionWithCount, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionWithCount{Session: sess, MessageCount: counts[sess.ID]})
	}
	return out, nil
}

// GetSession returns the session and its full message history. Ownership is
// enforced here: other users' sessions read as not found.
func (s *Service) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*types.CounselingSession, []*types.CounselingMessage, error) {
	dbc := dbctx.Context{Ctx: ctx}
	sess, err := s.sessions.GetByIDForUser(dbc, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, nil
	}
	msgs, err := s.messages.ListBySession(dbc, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return sess, msgs, nil
}

// SendMessage records the user turn, creates the pending assistant message,
// and enqueues generation. Returns the assistant placeholder for polling.
func (s *Service) SendMessage(ctx context.Context, sessionID, userID uuid.UUID, content string) (*types.CounselingMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty message")
	}

	var assistant *types.CounselingMessage
	err := inTx(ctx, s.db, func(dbc dbctx.Context) error {
		sess, err := s.sessions.GetByIDForUser(dbc, sessionID, userID)
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session not found")
		}

		userMsg := &types.CounselingMessage{
			SessionID: sessionID,
			Role:      types.CounselingRoleUser,
			Content:   &content,
			Status:    types.CounselingStatusCompleted,
		}
		pending := &types.CounselingMessage{
			SessionID: sessionID,
			Role:      types.CounselingRoleAssistant,
			Status:    types.CounselingStatusPending,
		}
		created, err := s.messages.Create(dbc, []*types.CounselingMessage{userMsg, pending})
		if err != nil {
			return err
		}
		assistant = created[1]

		_, err = s.queue.Enqueue(dbc, JobTypeReply, map[string]any{
			"message_id": assistant.ID.String(),
			"session_id": sessionID.String(),
		}, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assistant, nil
}

// GetMessage is the polling endpoint's lookup.
func (s *Service) GetMessage(ctx context.Context, messageID uuid.UUID) (*types.CounselingMessage, error) {
	return s.messages.GetByID(dbctx.Context{Ctx: ctx}, messageID)
}

// GenerateResponse fills in the pending assistant message. Runs as a job
// handler body.
func (s *Service) GenerateResponse(ctx context.Context, messageID, sessionID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}

	msg, err := s.messages.GetByID(dbc, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		s.log.Warn("Assistant message gone, skipping", "message_id", messageID)
		return nil
	}
	if err := s.messages.UpdateFields(dbc, messageID, map[string]interface{}{
		"status": types.CounselingStatusProcessing,
	}); err != nil {
		return err
	}

	history, err := s.messages.ListBySession(dbc, sessionID)
	if err != nil {
		return s.failMessage(dbc, messageID, err)
	}

	var turns []openai.Turn
	var firstUserMsg string
	for _, m := range history {
		if m.ID == messageID || m.Status != types.CounselingStatusCompleted || m.Content == nil {
			continue
		}
		if firstUserMsg == "" && m.Role == types.CounselingRoleUser {
			firstUserMsg = *m.Content
		}
		turns = append(turns, openai.Turn{Role: string(m.Role), Content: *m.Content})
	}
	if len(turns) == 0 {
		return s.failMessage(dbc, messageID, fmt.Errorf("session has no completed turns"))
	}

	text, err := s.llm.GenerateChat(ctx, CounselorPrompt(), turns)
	if err != nil {
		return s.failMessage(dbc, messageID, err)
	}

	return inTx(ctx, s.db, func(dbc dbctx.Context) error {
		if err := s.messages.UpdateFields(dbc, messageID, map[string]interface{}{
			"content": text,
			"status":  types.CounselingStatusCompleted,
		}); err != nil {
			return err
		}
		return s.maybeTitleSession(dbc, sessionID, firstUserMsg)
	})
}

// maybeTitleSession derives a title from the first user message once.
func (s *Service) maybeTitleSession(dbc dbctx.Context, sessionID uuid.UUID, firstUserMsg string) error {
	if firstUserMsg == "" {
		return nil
	}
	return s.sessions.SetTitleIfEmpty(dbc, sessionID, TitleFromMessage(firstUserMsg))
}

// TitleFromMessage truncates a message to its first five words.
func TitleFromMessage(content string) string {
	words := strings.Fields(content)
	if len(words) <= 5 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:5], " ") + "..."
}

func (s *Service) failMessage(dbc dbctx.Context, messageID uuid.UUID, cause error) error {
	s.log.Error("Counseling response failed", "message_id", messageID, "error", cause)
	if err := s.messages.UpdateFields(dbc, messageID, map[string]interface{}{
		"status":  types.CounselingStatusFailed,
		"content": "Error: " + cause.Error(),
	}); err != nil {
		s.log.Error("Failure cleanup failed", "message_id", messageID, "error", err)
	}
	return cause
}

func inTx(ctx context.Context, db *gorm.DB, fn func(dbc dbctx.Context) error) error {
	if db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
