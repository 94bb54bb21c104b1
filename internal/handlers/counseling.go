package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baldboard/baldboard-backend/internal/counseling"
	"github.com/baldboard/baldboard-backend/internal/middleware"
)

type CounselingHandler struct {
	service *counseling.Service
}

func NewCounselingHandler(service *counseling.Service) *CounselingHandler {
	return &CounselingHandler{service: service}
}

func (ch *CounselingHandler) CreateSession(c *gin.Context) {
	sess, err := ch.service.CreateSession(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "create_failed", err)
		return
	}
	RespondCreated(c, sess)
}

func (ch *CounselingHandler) ListSessions(c *gin.Context) {
	sessions, err := ch.service.ListSessions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}

func (ch *CounselingHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	sess, msgs, err := ch.service.GetSession(c.Request.Context(), sessionID, middleware.UserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if sess == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	RespondOK(c, gin.H{"session": sess, "messages": msgs})
}

func (ch *CounselingHandler) SendMessage(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	pending, err := ch.service.SendMessage(c.Request.Context(), sessionID, middleware.UserID(c), req.Content)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "send_failed", err)
		return
	}
	RespondCreated(c, pending)
}

// GetMessage is the polling endpoint for a pending assistant message.
func (ch *CounselingHandler) GetMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	msg, err := ch.service.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if msg == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	RespondOK(c, msg)
}
