package router

import (
	"net/http"

	"metabento/config"
	"metabento/internal/cache"
	"metabento/internal/handler"
	"metabento/internal/metrics"
	"metabento/internal/middleware"
	"metabento/internal/repository"
	"metabento/internal/service"
	"metabento/internal/ws"
	"metabento/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the process-level resources the router wires services from. Redis and Cloudinary
// may be nil; the leaderboard then reads straight from the database and avatar uploads
// answer 503.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	Cloud cloudinary.Client
	Hub   *ws.Hub
	Log   logrus.FieldLogger
}

func Setup(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Log
	hub := deps.Hub
	if hub == nil {
		hub = ws.NewHub()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(metrics.Middleware())
	r.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))

	store := repository.NewStore(deps.DB)
	board := cache.NewLeaderboardCache(deps.Redis, cfg.Redis.LeaderboardTTL)

	// Services
	notifSvc := service.NewNotificationService(store.Notifications, hub)
	ledger := service.NewLedger(store, cfg.Points, board, notifSvc, log)
	authSvc := service.NewAuthService(cfg, store, log)
	pointsSvc := service.NewPointsService(ledger)
	connSvc := service.NewConnectionService(ledger)
	swapSvc := service.NewSwapService(ledger)
	progressSvc := service.NewProgressionService(ledger)
	profileSvc := service.NewProfileService(store, deps.Cloud, log)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, log)
	connHandler := handler.NewConnectionHandler(connSvc, log)
	pointsHandler := handler.NewPointsHandler(pointsSvc, log)
	adminHandler := handler.NewAdminHandler(pointsSvc, log)
	swapHandler := handler.NewSwapHandler(swapSvc, log)
	progressHandler := handler.NewProgressionHandler(progressSvc, log)
	meHandler := handler.NewMeHandler(profileSvc, log)
	uploadHandler := handler.NewUploadHandler(profileSvc, log)
	notificationHandler := handler.NewNotificationHandler(notifSvc, log)

	authMw := middleware.AuthRequired(&cfg.JWT)
	optionalMw := middleware.OptionalAuth(&cfg.JWT)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/nonce", authHandler.Nonce)
			authGroup.POST("/wallet-login", authHandler.WalletLogin)
			authGroup.POST("/check-wallet", authHandler.CheckWallet)
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		api.POST("/connections", authMw, connHandler.Create)
		api.POST("/scans", authMw, connHandler.Scan)
		api.GET("/leaderboard", pointsHandler.Leaderboard)
		api.GET("/profiles/:username", optionalMw, meHandler.PublicProfile)

		users := api.Group("/users/:id")
		{
			users.GET("/stats", pointsHandler.Stats)
			users.GET("/level", progressHandler.Level)
			users.GET("/achievements", progressHandler.Achievements)
			users.GET("/connections", optionalMw, connHandler.List)
			users.GET("/scans", authMw, connHandler.ScanHistory)
			users.POST("/swaps", authMw, swapHandler.Create)
			users.GET("/swaps", authMw, swapHandler.History)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("", meHandler.Get)
			me.PATCH("/profile", meHandler.UpdateProfile)
			me.POST("/avatar", uploadHandler.UploadAvatar)
			me.POST("/daily-bonus", pointsHandler.DailyBonus)
			me.GET("/transactions", pointsHandler.Transactions)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.POST("/points", adminHandler.AwardPoints)
		}
	}

	r.GET("/ws/notifications", ws.UpgradeNotifications(&cfg.JWT, hub, log))

	return r
}
