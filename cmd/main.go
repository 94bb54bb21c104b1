package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/baldboard/baldboard-backend/internal/clients/openai"
	redisclient "github.com/baldboard/baldboard-backend/internal/clients/redis"
	"github.com/baldboard/baldboard-backend/internal/counseling"
	"github.com/baldboard/baldboard-backend/internal/data/db"
	"github.com/baldboard/baldboard-backend/internal/data/repos"
	"github.com/baldboard/baldboard-backend/internal/forum"
	"github.com/baldboard/baldboard-backend/internal/handlers"
	"github.com/baldboard/baldboard-backend/internal/jobs/runtime"
	"github.com/baldboard/baldboard-backend/internal/jobs/worker"
	"github.com/baldboard/baldboard-backend/internal/middleware"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/envutil"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
	"github.com/baldboard/baldboard-backend/internal/server"
	"github.com/baldboard/baldboard-backend/internal/services"
)

func main() {
	log, err := logger.New(envutil.String("APP_ENV", "dev"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to connect to postgres", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to migrate", "error", err)
	}
	gdb := pg.DB()

	userRepo := repos.NewUserRepo(gdb, log)
	personaRepo := repos.NewPersonaRepo(gdb, log)
	threadRepo := repos.NewThreadRepo(gdb, log)
	replyRepo := repos.NewReplyRepo(gdb, log)
	scheduleRepo := repos.NewAgentScheduleRepo(gdb, log)
	sessionRepo := repos.NewCounselingSessionRepo(gdb, log)
	messageRepo := repos.NewCounselingMessageRepo(gdb, log)
	jobRunRepo := repos.NewJobRunRepo(gdb, log)

	llm, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("Failed to build OpenAI client", "error", err)
	}

	var cache redisclient.Cache
	cache, err = redisclient.NewCache(log)
	if err != nil {
		// The leaderboard recomputes on every request without redis.
		log.Warn("Redis unavailable, leaderboard cache disabled", "error", err)
		cache = nil
	}

	jobService := services.NewJobService(gdb, log, jobRunRepo)
	authService, err := services.NewAuthService(userRepo, log)
	if err != nil {
		log.Fatal("Failed to build auth service", "error", err)
	}
	forumService := services.NewForumService(gdb, threadRepo, replyRepo, personaRepo, userRepo, jobService, log)
	leaderboardService := services.NewLeaderboardService(gdb, cache, log)
	counselingService := counseling.NewService(gdb, sessionRepo, messageRepo, jobService, llm, log)

	catalog := forum.NewCatalog(personaRepo, log)
	if err := catalog.Seed(dbctx.Context{Ctx: context.Background()}); err != nil {
		log.Fatal("Failed to seed personas", "error", err)
	}

	initializer := forum.NewInitializer(gdb, personaRepo, scheduleRepo, nil, log)
	generator := forum.NewGenerator(gdb, scheduleRepo, threadRepo, replyRepo, personaRepo, userRepo, llm, nil, log)
	responder := forum.NewDirectResponder(gdb, threadRepo, replyRepo, personaRepo, generator, llm, nil, log)
	bumper := forum.NewBumper(gdb, scheduleRepo, nil, log)
	dispatcher := forum.NewDispatcher(gdb, scheduleRepo, jobService, nil, log)

	registry := runtime.NewRegistry()
	if err := forum.RegisterHandlers(registry, initializer, generator, responder, bumper); err != nil {
		log.Fatal("Failed to register forum jobs", "error", err)
	}
	if err := counseling.RegisterHandlers(registry, counselingService); err != nil {
		log.Fatal("Failed to register counseling jobs", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worker.NewWorker(gdb, log, jobRunRepo, registry).Start(ctx)
	go dispatcher.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:        handlers.NewAuthHandler(authService),
		AuthMiddleware:     middleware.NewAuthMiddleware(log, authService),
		ForumHandler:       handlers.NewForumHandler(forumService),
		CounselingHandler:  handlers.NewCounselingHandler(counselingService),
		LeaderboardHandler: handlers.NewLeaderboardHandler(leaderboardService, userRepo),
		HealthcheckHandler: handlers.NewHealthcheckHandler(gdb),
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server starting", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
