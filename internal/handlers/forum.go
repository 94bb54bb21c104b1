package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baldboard/baldboard-backend/internal/middleware"
	"github.com/baldboard/baldboard-backend/internal/services"
)

type ForumHandler struct {
	forumService services.ForumService
}

func NewForumHandler(forumService services.ForumService) *ForumHandler {
	return &ForumHandler{forumService: forumService}
}

func respondForumError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrForbidden):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}

func (fh *ForumHandler) ListThreads(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	list, err := fh.forumService.ListThreads(c.Request.Context(), page, perPage)
	if err != nil {
		respondForumError(c, err)
		return
	}
	RespondOK(c, list)
}

func (fh *ForumHandler) CreateThread(c *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	item, err := fh.forumService.CreateThread(c.Request.Context(), middleware.UserID(c), req.Title, req.Content)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_failed", err)
		return
	}
	RespondCreated(c, item)
}

func (fh *ForumHandler) GetThread(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("thread_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	detail, err := fh.forumService.GetThread(c.Request.Context(), threadID)
	if err != nil {
		respondForumError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (fh *ForumHandler) DeleteThread(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("thread_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := fh.forumService.DeleteThread(c.Request.Context(), threadID, middleware.UserID(c)); err != nil {
		respondForumError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (fh *ForumHandler) CreateReply(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("thread_id"))
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
	view, err := fh.forumService.CreateReply(c.Request.Context(), threadID, middleware.UserID(c), req.Content)
	if err != nil {
		respondForumError(c, err)
		return
	}
	RespondCreated(c, view)
}

func (fh *ForumHandler) CreateNestedReply(c *gin.Context) {
	parentID, err := uuid.Parse(c.Param("reply_id"))
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
	view, err := fh.forumService.CreateNestedReply(c.Request.Context(), parentID, middleware.UserID(c), req.Content)
	if err != nil {
		respondForumError(c, err)
		return
	}
	RespondCreated(c, view)
}

func (fh *ForumHandler) GetReplyStatus(c *gin.Context) {
	replyID, err := uuid.Parse(c.Param("reply_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	status, err := fh.forumService.GetReplyStatus(c.Request.Context(), replyID)
	if err != nil {
		respondForumError(c, err)
		return
	}
	RespondOK(c, status)
}

func (fh *ForumHandler) DeleteReply(c *gin.Context) {
	replyID, err := uuid.Parse(c.Param("reply_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := fh.forumService.DeleteReply(c.Request.Context(), replyID, middleware.UserID(c)); err != nil {
		respondForumError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (fh *ForumHandler) ListPersonas(c *gin.Context) {
	personas, err := fh.forumService.ListPersonas(c.Request.Context())
	if err != nil {
		respondForumError(c, err)
		return
	}
	RespondOK(c, gin.H{"personas": personas})
}
