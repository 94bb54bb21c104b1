package domain

import (
	"github.com/baldboard/baldboard-backend/internal/domain/counseling"
	"github.com/baldboard/baldboard-backend/internal/domain/forum"
	"github.com/baldboard/baldboard-backend/internal/domain/jobs"
	"github.com/baldboard/baldboard-backend/internal/domain/user"
)

type User = user.User

type ForumPersona = forum.Persona
type ForumThread = forum.Thread
type ForumReply = forum.Reply
type ForumAgentSchedule = forum.AgentSchedule
type ForumReplyStatus = forum.ReplyStatus
type ForumReplyAuthor = forum.ReplyAuthor
type AuthorKind = forum.AuthorKind

const (
	ReplyStatusPending    = forum.ReplyStatusPending
	ReplyStatusProcessing = forum.ReplyStatusProcessing
	ReplyStatusCompleted  = forum.ReplyStatusCompleted
	ReplyStatusFailed     = forum.ReplyStatusFailed

	AuthorKindUser    = forum.AuthorKindUser
	AuthorKindPersona = forum.AuthorKindPersona
	AuthorKindNone    = forum.AuthorKindNone
)

type CounselingSession = counseling.Session
type CounselingMessage = counseling.Message
type CounselingMessageRole = counseling.MessageRole
type CounselingMessageStatus = counseling.MessageStatus

const (
	CounselingRoleUser      = counseling.RoleUser
	CounselingRoleAssistant = counseling.RoleAssistant

	CounselingStatusPending    = counseling.MessageStatusPending
	CounselingStatusProcessing = counseling.MessageStatusProcessing
	CounselingStatusCompleted  = counseling.MessageStatusCompleted
	CounselingStatusFailed     = counseling.MessageStatusFailed
)

type JobRun = jobs.JobRun

const (
	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
)
