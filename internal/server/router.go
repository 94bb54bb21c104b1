package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/baldboard/baldboard-backend/internal/handlers"
	"github.com/baldboard/baldboard-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	ForumHandler       *handlers.ForumHandler
	CounselingHandler  *handlers.CounselingHandler
	LeaderboardHandler *handlers.LeaderboardHandler
	HealthcheckHandler *handlers.HealthcheckHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", cfg.HealthcheckHandler.Get)
	router.POST("/api/auth/register", cfg.AuthHandler.Register)
	router.POST("/api/auth/login", cfg.AuthHandler.Login)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Forum
	api.GET("/forum/threads", cfg.ForumHandler.ListThreads)
	api.POST("/forum/threads", cfg.ForumHandler.CreateThread)
	api.GET("/forum/threads/:thread_id", cfg.ForumHandler.GetThread)
	api.DELETE("/forum/threads/:thread_id", cfg.ForumHandler.DeleteThread)
	api.POST("/forum/threads/:thread_id/replies", cfg.ForumHandler.CreateReply)
	api.POST("/forum/replies/:reply_id/replies", cfg.ForumHandler.CreateNestedReply)
	api.GET("/forum/replies/:reply_id/status", cfg.ForumHandler.GetReplyStatus)
	api.DELETE("/forum/replies/:reply_id", cfg.ForumHandler.DeleteReply)
	api.GET("/forum/personas", cfg.ForumHandler.ListPersonas)

	// Counseling
	api.POST("/counseling/sessions", cfg.CounselingHandler.CreateSession)
	api.GET("/counseling/sessions", cfg.CounselingHandler.ListSessions)
	api.GET("/counseling/sessions/:session_id", cfg.CounselingHandler.GetSession)
	api.POST("/counseling/sessions/:session_id/messages", cfg.CounselingHandler.SendMessage)
	api.GET("/counseling/messages/:message_id", cfg.CounselingHandler.GetMessage)

	// Leaderboard
	api.GET("/leaderboard", cfg.LeaderboardHandler.Get)

	return router
}
