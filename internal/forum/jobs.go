package forum

import (
	"fmt"

	"github.com/baldboard/baldboard-backend/internal/jobs/runtime"
)

// ThreadInitJob runs schedule creation for a freshly posted thread.
type ThreadInitJob struct {
	Initializer *Initializer
}

func (j *ThreadInitJob) Type() string { return JobTypeThreadInit }

func (j *ThreadInitJob) Run(jc *runtime.Context) error {
	threadID, ok := jc.PayloadUUID("thread_id")
	if !ok {
		jc.Fail("decode", fmt.Errorf("payload missing thread_id"))
		return nil
	}
	scheduled, err := j.Initializer.InitThread(jc.Ctx, threadID)
	if err != nil {
		jc.Fail("init_thread", err)
		return nil
	}
	jc.Succeed(map[string]any{"thread_id": threadID.String(), "scheduled": scheduled})
	return nil
}

// AgentReplyJob runs reply generation for one claimed schedule.
type AgentReplyJob struct {
	Generator *Generator
}

func (j *AgentReplyJob) Type() string { return JobTypeAgentReply }

func (j *AgentReplyJob) Run(jc *runtime.Context) error {
	scheduleID, ok := jc.PayloadUUID("schedule_id")
	if !ok {
		jc.Fail("decode", fmt.Errorf("payload missing schedule_id"))
		return nil
	}
	if err := j.Generator.GenerateReply(jc.Ctx, scheduleID); err != nil {
		jc.Fail("generate_reply", err)
		return nil
	}
	jc.Succeed(map[string]any{"schedule_id": scheduleID.String()})
	return nil
}

// DirectReplyJob answers a specific human message with a nested persona
// reply. The enqueue side delays it 60-90s so the answer feels typed, not
// instant.
type DirectReplyJob struct {
	Responder *DirectResponder
}

func (j *DirectReplyJob) Type() string { return JobTypeDirectReply }

func (j *DirectReplyJob) Run(jc *runtime.Context) error {
	threadID, ok := jc.PayloadUUID("thread_id")
	if !ok {
		jc.Fail("decode", fmt.Errorf("payload missing thread_id"))
		return nil
	}
	parentReplyID, ok := jc.PayloadUUID("parent_reply_id")
	if !ok {
		jc.Fail("decode", fmt.Errorf("payload missing parent_reply_id"))
		return nil
	}
	userContent := jc.PayloadString("user_reply_content")
	if err := j.Responder.Respond(jc.Ctx, threadID, parentReplyID, userContent); err != nil {
		jc.Fail("direct_reply", err)
		return nil
	}
	jc.Succeed(map[string]any{"thread_id": threadID.String(), "parent_reply_id": parentReplyID.String()})
	return nil
}

// BumpJob pulls a thread's schedules forward after a human reply.
type BumpJob struct {
	Bumper *Bumper
}

func (j *BumpJob) Type() string { return JobTypeBump }

func (j *BumpJob) Run(jc *runtime.Context) error {
	threadID, ok := jc.PayloadUUID("thread_id")
	if !ok {
		jc.Fail("decode", fmt.Errorf("payload missing thread_id"))
		return nil
	}
	bumped, err := j.Bumper.Bump(jc.Ctx, threadID)
	if err != nil {
		jc.Fail("bump", err)
		return nil
	}
	jc.Succeed(map[string]any{"thread_id": threadID.String(), "bumped": bumped})
	return nil
}

// RegisterHandlers wires every forum job type into the registry.
func RegisterHandlers(reg *runtime.Registry, init *Initializer, gen *Generator, resp *DirectResponder, bump *Bumper) error {
	handlers := []runtime.Handler{
		&ThreadInitJob{Initializer: init},
		&AgentReplyJob{Generator: gen},
		&DirectReplyJob{Responder: resp},
		&BumpJob{Bumper: bump},
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
