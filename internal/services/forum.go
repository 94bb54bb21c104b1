package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baldboard/baldboard-backend/internal/data/repos"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/forum"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

// UserBrief is the public slice of a user shown on forum content.
type UserBrief struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// AgentInfo marks a reply as persona-authored.
type AgentInfo struct {
	DisplayName string `json:"display_name"`
}

// ReplyView is a reply with resolved authorship. Exactly one of User/Agent
// is set; both nil means the author account is gone.
type ReplyView struct {
	ID        uuid.UUID              `json:"id"`
	Content   *string                `json:"content"`
	Status    types.ForumReplyStatus `json:"status"`
	User      *UserBrief             `json:"user,omitempty"`
	Agent     *AgentInfo             `json:"agent,omitempty"`
	ParentID  *uuid.UUID             `json:"parent_id,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ThreadListItem is one row of the thread index.
type ThreadListItem struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	User           *UserBrief `json:"user,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ReplyCount     int64      `json:"reply_count"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	IsPinned       bool       `json:"is_pinned"`
}

// ThreadList is the paginated thread index.
type ThreadList struct {
	Threads []ThreadListItem `json:"threads"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// ThreadDetail is a thread with its full reply list.
type ThreadDetail struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	User      *UserBrief  `json:"user,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	IsPinned  bool        `json:"is_pinned"`
	Replies   []ReplyView `json:"replies"`
}

// PersonaView is the public slice of a persona; prompts never leave the
// server.
type PersonaView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
}

// ReplyStatus is the polling payload for pending agent replies.
type ReplyStatus struct {
	ID      uuid.UUID              `json:"id"`
	Status  types.ForumReplyStatus `json:"status"`
	Content *string                `json:"content"`
}

var (
	ErrNotFound  = fmt.Errorf("not found")
	ErrForbidden = fmt.Errorf("forbidden")
)

// ForumService is the request-path surface of the forum. Everything slow
// (schedule creation, generation, bumping) goes through the job queue; the
// request path only writes rows and enqueues.
type ForumService interface {
	CreateThread(ctx context.Context, userID uuid.UUID, title, content string) (*ThreadListItem, error)
	ListThreads(ctx context.Context, page, perPage int) (*ThreadList, error)
	GetThread(ctx context.Context, threadID uuid.UUID) (*ThreadDetail, error)
	DeleteThread(ctx context.Context, threadID, userID uuid.UUID) error
	CreateReply(ctx context.Context, threadID, userID uuid.UUID, content string) (*ReplyView, error)
	CreateNestedReply(ctx context.Context, parentReplyID, userID uuid.UUID, content string) (*ReplyView, error)
	GetReplyStatus(ctx context.Context, replyID uuid.UUID) (*ReplyStatus, error)
	DeleteReply(ctx context.Context, replyID, userID uuid.UUID) error
	ListPersonas(ctx context.Context) ([]PersonaView, error)
}

type forumService struct {
	db       *gorm.DB
	threads  repos.ThreadRepo
	replies  repos.ReplyRepo
	personas repos.PersonaRepo
	users    repos.UserRepo
	jobs     JobService
	log      *logger.Logger
}

func NewForumService(
	db *gorm.DB,
	threads repos.ThreadRepo,
	replies repos.ReplyRepo,
	personas repos.PersonaRepo,
	users repos.UserRepo,
	jobs JobService,
	baseLog *logger.Logger,
) ForumService {
	return &forumService{
		db:       db,
		threads:  threads,
		replies:  replies,
		personas: personas,
		users:    users,
		jobs:     jobs,
		log:      baseLog.With("service", "ForumService"),
	}
}

func (s *forumService) CreateThread(ctx context.Context, userID uuid.UUID, title, content string) (*ThreadListItem, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("title and content are required")
	}

	var thread *types.ForumThread
	err := s.inTx(ctx, func(dbc dbctx.Context) error {
		created, err := s.threads.Create(dbc, []*types.ForumThread{{
			UserID:  userID,
			Title:   title,
			Content: content,
		}})
		if err != nil {
			return err
		}
		thread = created[0]
		_, err = s.jobs.Enqueue(dbc, forum.JobTypeThreadInit, map[string]any{
			"thread_id": thread.ID.String(),
		}, 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	author, _ := s.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	return &ThreadListItem{
		ID:             thread.ID,
		Title:          thread.Title,
		User:           briefOf(author),
		CreatedAt:      thread.CreatedAt,
		ReplyCount:     0,
		LastActivityAt: thread.CreatedAt,
		IsPinned:       thread.IsPinned,
	}, nil
}

func (s *forumService) ListThreads(ctx context.Context, page, perPage int) (*ThreadList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	dbc := dbctx.Context{Ctx: ctx}

	threads, total, err := s.threads.List(dbc, page, perPage)
	if err != nil {
		return nil, err
	}

	threadIDs := make([]uuid.UUID, 0, len(threads))
	userIDs := make([]uuid.UUID, 0, len(threads))
	for _, t := range threads {
		threadIDs = append(threadIDs, t.ID)
		userIDs = append(userIDs, t.UserID)
	}
	counts, err := s.replies.CountByThread(dbc, threadIDs)
	if err != nil {
		return nil, err
	}
	authors, err := s.userBriefs(dbc, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]ThreadListItem, 0, len(threads))
	for _, t := range threads {
		items = append(items, ThreadListItem{
			ID:             t.ID,
			Title:          t.Title,
			User:           authors[t.UserID],
			CreatedAt:      t.CreatedAt,
			ReplyCount:     counts[t.ID],
			LastActivityAt: t.UpdatedAt,
			IsPinned:       t.IsPinned,
		})
	}
	return &ThreadList{Threads: items, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *forumService) GetThread(ctx context.Context, threadID uuid.UUID) (*ThreadDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	thread, err := s.threads.GetByID(dbc, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrNotFound
	}
	replies, err := s.replies.ListByThread(dbc, threadID)
	if err != nil {
		return nil, err
	}
	views, err := s.replyViews(dbc, replies)
	if err != nil {
		return nil, err
	}
	authors, err := s.userBriefs(dbc, []uuid.UUID{thread.UserID})
	if err != nil {
		return nil, err
	}
	return &ThreadDetail{
		ID:        thread.ID,
		Title:     thread.Title,
		Content:   thread.Content,
		User:      authors[thread.UserID],
		CreatedAt: thread.CreatedAt,
		IsPinned:  thread.IsPinned,
		Replies:   views,
	}, nil
}

func (s *forumService) DeleteThread(ctx context.Context, threadID, userID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	thread, err := s.threads.GetByID(dbc, threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		return ErrNotFound
	}
	if err := s.authorize(dbc, thread.UserID, userID); err != nil {
		return err
	}
	return s.threads.Delete(dbc, threadID)
}

func (s *forumService) CreateReply(ctx context.Context, threadID, userID uuid.UUID, content string) (*ReplyView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	var reply *types.ForumReply
	err := s.inTx(ctx, func(dbc dbctx.Context) error {
		thread, err := s.threads.GetByID(dbc, threadID)
		if err != nil {
			return err
		}
		if thread == nil {
			return ErrNotFound
		}
		created, err := s.replies.Create(dbc, []*types.ForumReply{{
			ThreadID: threadID,
			UserID:   &userID,
			Content:  &content,
			Status:   types.ReplyStatusCompleted,
		}})
		if err != nil {
			return err
		}
		reply = created[0]
		if err := s.threads.BumpActivity(dbc, threadID, time.Now().UTC()); err != nil {
			return err
		}
		_, err = s.jobs.Enqueue(dbc, forum.JobTypeBump, map[string]any{
			"thread_id": threadID.String(),
		}, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.replyView(dbctx.Context{Ctx: ctx}, reply)
}

func (s *forumService) CreateNestedReply(ctx context.Context, parentReplyID, userID uuid.UUID, content string) (*ReplyView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	var reply *types.ForumReply
	var parentIsAgent bool
	var threadID uuid.UUID
	err := s.inTx(ctx, func(dbc dbctx.Context) error {
		parent, err := s.replies.GetByID(dbc, parentReplyID)
		if err != nil {
			return err
		}
		if parent == nil {
			return ErrNotFound
		}
		threadID = parent.ThreadID
		parentIsAgent = parent.IsAgentReply()

		created, err := s.replies.Create(dbc, []*types.ForumReply{{
			ThreadID: threadID,
			UserID:   &userID,
			ParentID: &parentReplyID,
			Content:  &content,
			Status:   types.ReplyStatusCompleted,
		}})
		if err != nil {
			return err
		}
		reply = created[0]
		if err := s.threads.BumpActivity(dbc, threadID, time.Now().UTC()); err != nil {
			return err
		}

		if parentIsAgent {
			// The answered persona responds to this exact message after a
			// humanizing 60-90s delay.
			delay := time.Duration((60 + 30*rand.Float64()) * float64(time.Second))
			_, err = s.jobs.Enqueue(dbc, forum.JobTypeDirectReply, map[string]any{
				"thread_id":          threadID.String(),
				"parent_reply_id":    reply.ID.String(),
				"user_reply_content": content,
			}, delay)
			return err
		}
		_, err = s.jobs.Enqueue(dbc, forum.JobTypeBump, map[string]any{
			"thread_id": threadID.String(),
		}, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.replyView(dbctx.Context{Ctx: ctx}, reply)
}

func (s *forumService) GetReplyStatus(ctx context.Context, replyID uuid.UUID) (*ReplyStatus, error) {
	reply, err := s.replies.GetByID(dbctx.Context{Ctx: ctx}, replyID)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, ErrNotFound
	}
	return &ReplyStatus{ID: reply.ID, Status: reply.Status, Content: reply.Content}, nil
}

func (s *forumService) DeleteReply(ctx context.Context, replyID, userID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	reply, err := s.replies.GetByID(dbc, replyID)
	if err != nil {
		return err
	}
	if reply == nil {
		return ErrNotFound
	}
	owner := uuid.Nil
	if reply.UserID != nil {
		owner = *reply.UserID
	}
	if err := s.authorize(dbc, owner, userID); err != nil {
		return err
	}
	return s.replies.Delete(dbc, replyID)
}

func (s *forumService) ListPersonas(ctx context.Context) ([]PersonaView, error) {
	personas, err := s.personas.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	out := make([]PersonaView, 0, len(personas))
	for _, p := range personas {
		out = append(out, PersonaView{ID: p.ID, Name: p.Name, IsActive: p.IsActive})
	}
	return out, nil
}

// authorize allows the owner or an admin.
func (s *forumService) authorize(dbc dbctx.Context, ownerID, userID uuid.UUID) error {
	if ownerID == userID {
		return nil
	}
	user, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return err
	}
	if user == nil || !user.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *forumService) replyView(dbc dbctx.Context, reply *types.ForumReply) (*ReplyView, error) {
	views, err := s.replyViews(dbc, []*types.ForumReply{reply})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// replyViews resolves authorship for a batch of replies with one load per
// author kind.
func (s *forumService) replyViews(dbc dbctx.Context, replies []*types.ForumReply) ([]ReplyView, error) {
	var personaIDs, userIDs []uuid.UUID
	for _, r := range replies {
		switch a := r.Author(); a.Kind {
		case types.AuthorKindPersona:
			personaIDs = append(personaIDs, a.PersonaID)
		case types.AuthorKindUser:
			userIDs = append(userIDs, a.UserID)
		}
	}

	personaNames := map[uuid.UUID]string{}
	if len(personaIDs) > 0 {
		rows, err := s.personas.GetByIDs(dbc, personaIDs)
		if err != nil {
			return nil, err
		}
		for _, p := range rows {
			personaNames[p.ID] = p.Name
		}
	}
	users, err := s.userBriefs(dbc, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]ReplyView, 0, len(replies))
	for _, r := range replies {
		v := ReplyView{
			ID:        r.ID,
			Content:   r.Content,
			Status:    r.Status,
			ParentID:  r.ParentID,
			CreatedAt: r.CreatedAt,
		}
		switch a := r.Author(); a.Kind {
		case types.AuthorKindPersona:
			v.Agent = &AgentInfo{DisplayName: personaNames[a.PersonaID]}
		case types.AuthorKindUser:
			v.User = users[a.UserID]
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *forumService) userBriefs(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*UserBrief, error) {
	out := map[uuid.UUID]*UserBrief{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.users.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = briefOf(u)
	}
	return out, nil
}

func briefOf(u *types.User) *UserBrief {
	if u == nil {
		return nil
	}
	return &UserBrief{ID: u.ID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

func (s *forumService) inTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if s.db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
