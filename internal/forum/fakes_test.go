package forum

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

func dbcNone() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type fakePersonaRepo struct {
	rows []*types.ForumPersona
}

func (f *fakePersonaRepo) Create(_ dbctx.Context, rows []*types.ForumPersona) ([]*types.ForumPersona, error) {
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.rows = append(f.rows, r)
	}
	return rows, nil
}

func (f *fakePersonaRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.ForumPersona, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.ForumPersona
	for _, r := range f.rows {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePersonaRepo) GetByName(_ dbctx.Context, name string) (*types.ForumPersona, error) {
	for _, r := range f.rows {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakePersonaRepo) List(_ dbctx.Context) ([]*types.ForumPersona, error) {
	return f.rows, nil
}

func (f *fakePersonaRepo) ListActive(_ dbctx.Context) ([]*types.ForumPersona, error) {
	var out []*types.ForumPersona
	for _, r := range f.rows {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePersonaRepo) RandomActive(dbc dbctx.Context) (*types.ForumPersona, error) {
	active, _ := f.ListActive(dbc)
	if len(active) == 0 {
		return nil, nil
	}
	return active[0], nil
}

func (f *fakePersonaRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	for _, r := range f.rows {
		if r.ID != id {
			continue
		}
		if v, ok := updates["is_active"]; ok {
			r.IsActive = v.(bool)
		}
		return nil
	}
	return fmt.Errorf("persona not found")
}

type fakeThreadRepo struct {
	rows map[uuid.UUID]*types.ForumThread
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{rows: map[uuid.UUID]*types.ForumThread{}}
}

func (f *fakeThreadRepo) Create(_ dbctx.Context, rows []*types.ForumThread) ([]*types.ForumThread, error) {
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.rows[r.ID] = r
	}
	return rows, nil
}

func (f *fakeThreadRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.ForumThread, error) {
	return f.rows[id], nil
}

func (f *fakeThreadRepo) List(_ dbctx.Context, _ int, _ int) ([]*types.ForumThread, int64, error) {
	var out []*types.ForumThread
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeThreadRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("thread not found")
	}
	if v, ok := updates["title"]; ok {
		t.Title = v.(string)
	}
	return nil
}

func (f *fakeThreadRepo) BumpActivity(_ dbctx.Context, id uuid.UUID, at time.Time) error {
	t, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("thread not found")
	}
	if at.After(t.UpdatedAt) {
		t.UpdatedAt = at
	}
	return nil
}

func (f *fakeThreadRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeReplyRepo struct {
	rows []*types.ForumReply
	seq  int
}

func (f *fakeReplyRepo) Create(_ dbctx.Context, rows []*types.ForumReply) ([]*types.ForumReply, error) {
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.CreatedAt.IsZero() {
			f.seq++
			r.CreatedAt = time.Unix(int64(f.seq), 0)
		}
		f.rows = append(f.rows, r)
	}
	return rows, nil
}

func (f *fakeReplyRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.ForumReply, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeReplyRepo) ListByThread(_ dbctx.Context, threadID uuid.UUID) ([]*types.ForumReply, error) {
	var out []*types.ForumReply
	for _, r := range f.rows {
		if r.ThreadID == threadID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReplyRepo) ListRecentCompleted(_ dbctx.Context, threadID uuid.UUID, excludeID uuid.UUID, limit int) ([]*types.ForumReply, error) {
	var out []*types.ForumReply
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.ThreadID != threadID || r.ID == excludeID || r.Status != types.ReplyStatusCompleted {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReplyRepo) CountByThread(_ dbctx.Context, threadIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := map[uuid.UUID]int64{}
	for _, id := range threadIDs {
		for _, r := range f.rows {
			if r.ThreadID == id {
				out[id]++
			}
		}
	}
	return out, nil
}

func (f *fakeReplyRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	for _, r := range f.rows {
		if r.ID != id {
			continue
		}
		if v, ok := updates["status"]; ok {
			r.Status = v.(types.ForumReplyStatus)
		}
		if v, ok := updates["content"]; ok {
			s := v.(string)
			r.Content = &s
		}
		return nil
	}
	return fmt.Errorf("reply not found")
}

func (f *fakeReplyRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeScheduleRepo struct {
	rows []*types.ForumAgentSchedule
}

func (f *fakeScheduleRepo) Create(_ dbctx.Context, rows []*types.ForumAgentSchedule) ([]*types.ForumAgentSchedule, error) {
	for _, r := range rows {
		for _, have := range f.rows {
			if have.ThreadID == r.ThreadID && have.PersonaID == r.PersonaID {
				return nil, fmt.Errorf("duplicate (thread_id, persona_id)")
			}
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.rows = append(f.rows, r)
	}
	return rows, nil
}

func (f *fakeScheduleRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.ForumAgentSchedule, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeScheduleRepo) ListDue(_ dbctx.Context, now time.Time) ([]*types.ForumAgentSchedule, error) {
	var out []*types.ForumAgentSchedule
	for _, r := range f.rows {
		if r.IsActive && r.NextFireAt != nil && !r.NextFireAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListActiveByThread(_ dbctx.Context, threadID uuid.UUID) ([]*types.ForumAgentSchedule, error) {
	var out []*types.ForumAgentSchedule
	for _, r := range f.rows {
		if r.ThreadID == threadID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ForumAgentSchedule, error) {
	return f.GetByID(dbc, id)
}

func (f *fakeScheduleRepo) Claim(_ dbctx.Context, id uuid.UUID, expectedFireAt time.Time) (bool, error) {
	for _, r := range f.rows {
		if r.ID != id {
			continue
		}
		if r.NextFireAt == nil || !r.NextFireAt.Equal(expectedFireAt) {
			return false, nil
		}
		r.NextFireAt = nil
		return true, nil
	}
	return false, nil
}

func (f *fakeScheduleRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	for _, r := range f.rows {
		if r.ID != id {
			continue
		}
		if v, ok := updates["is_active"]; ok {
			r.IsActive = v.(bool)
		}
		if v, ok := updates["reply_count"]; ok {
			r.ReplyCount = v.(int)
		}
		if v, ok := updates["last_replied_at"]; ok {
			at := v.(time.Time)
			r.LastRepliedAt = &at
		}
		if v, ok := updates["next_fire_at"]; ok {
			if v == nil {
				r.NextFireAt = nil
			} else {
				at := v.(time.Time)
				r.NextFireAt = &at
			}
		}
		return nil
	}
	return fmt.Errorf("schedule not found")
}

type fakeUserRepo struct {
	rows []*types.User
}

func (f *fakeUserRepo) Create(_ dbctx.Context, rows []*types.User) ([]*types.User, error) {
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.rows = append(f.rows, r)
	}
	return rows, nil
}

func (f *fakeUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.User, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.User
	for _, r := range f.rows {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmail(_ dbctx.Context, email string) (*types.User, error) {
	for _, r := range f.rows {
		if r.Email == email {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpdateFields(_ dbctx.Context, _ uuid.UUID, _ map[string]interface{}) error {
	return nil
}

type enqueuedJob struct {
	jobType string
	payload map[string]any
	delay   time.Duration
}

type fakeQueue struct {
	jobs []enqueuedJob
	err  error
}

func (f *fakeQueue) Enqueue(_ dbctx.Context, jobType string, payload map[string]any, delay time.Duration) (*types.JobRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.jobs = append(f.jobs, enqueuedJob{jobType: jobType, payload: payload, delay: delay})
	return &types.JobRun{ID: uuid.New(), JobType: jobType}, nil
}

type fakeLLM struct {
	text    string
	err     error
	systems []string
	users   []string
}

func (f *fakeLLM) GenerateText(_ context.Context, system string, user string) (string, error) {
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}
