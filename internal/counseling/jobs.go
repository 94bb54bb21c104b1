package counseling

import (
	"fmt"

	"github.com/baldboard/baldboard-backend/internal/jobs/runtime"
)

// ReplyJob fills in a pending assistant message.
type ReplyJob struct {
	Service *Service
}

func (j *ReplyJob) Type() string { return JobTypeReply }

func (j *ReplyJob) Run(jc *runtime.Context) error {
	messageID, ok := jc.PayloadUUID("message_id")
	if !ok {
		jc.Fail("decode", fmt.Errorf("payload missing message_id"))
		return nil
	}
	sessionID, ok := jc.PayloadUUID("session_id")
	if !ok {
		jc.Fail("decode", fmt.Errorf("payload missing session_id"))
		return nil
	}
	if err := j.Service.GenerateResponse(jc.Ctx, messageID, sessionID); err != nil {
		jc.Fail("generate_response", err)
		return nil
	}
	jc.Succeed(map[string]any{"message_id": messageID.String()})
	return nil
}

// RegisterHandlers wires the counseling job type into the registry.
func RegisterHandlers(reg *runtime.Registry, svc *Service) error {
	return reg.Register(&ReplyJob{Service: svc})
}
