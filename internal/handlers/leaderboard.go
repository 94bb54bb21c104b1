package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baldboard/baldboard-backend/internal/data/repos"
	"github.com/baldboard/baldboard-backend/internal/middleware"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/services"
)

type LeaderboardHandler struct {
	service services.LeaderboardService
	users   repos.UserRepo
}

func NewLeaderboardHandler(service services.LeaderboardService, users repos.UserRepo) *LeaderboardHandler {
	return &LeaderboardHandler{service: service, users: users}
}

// Get serves the activity ranking. Premium or admin only.
func (lh *LeaderboardHandler) Get(c *gin.Context) {
	user, err := lh.users.GetByID(dbctx.Context{Ctx: c.Request.Context()}, middleware.UserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("user not found"))
		return
	}
	if !user.IsPremium && !user.IsAdmin {
		RespondError(c, http.StatusPaymentRequired, "premium_required", fmt.Errorf("leaderboard requires premium"))
		return
	}

	board, err := lh.service.Get(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, board)
}
