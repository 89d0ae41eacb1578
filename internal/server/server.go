package server

import (
	"log"
	"strings"
	"time"

	"anoa.com/creatorviewer/internal/config"
	"anoa.com/creatorviewer/internal/handler"
	"anoa.com/creatorviewer/internal/middleware"
	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/internal/repository"
	"anoa.com/creatorviewer/internal/service"
	"anoa.com/creatorviewer/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	watchRepo := repository.NewWatchRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	pointLogRepo := repository.NewPointLogRepository(db)

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Printf("cloudinary storage disabled: %v", err)
		imageStorage = nil
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := service.NewSearchService(meiliClient)

	notifier := service.NewPointsNotifier(redisClient)

	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := handler.NewAuthHandler(authSvc)

	userSvc := service.NewUserService(userRepo, watchRepo, pointLogRepo, imageStorage)
	userHandler := handler.NewUserHandler(userSvc)

	videoSvc := service.NewVideoService(videoRepo, searchSvc, imageStorage, cfg.DefaultPointsPerMinute, cfg.CloudinaryUploadFolder)
	videoHandler := handler.NewVideoHandler(videoSvc)

	accrualSvc := service.NewAccrualService(watchRepo, videoRepo, redisClient, notifier, cfg.ReportThrottle, cfg.ReportTimeout)
	watchHandler := handler.NewWatchHandler(accrualSvc)

	watchlistSvc := service.NewWatchlistService(watchlistRepo, videoRepo)
	watchlistHandler := handler.NewWatchlistHandler(watchlistSvc)

	analyticsSvc := service.NewAnalyticsService(watchRepo, videoRepo, pointLogRepo)
	leaderboardSvc := service.NewLeaderboardService(userRepo, redisClient, cfg.LeaderboardCacheTTL)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc, leaderboardSvc)

	pointsFeedHandler := handler.NewPointsFeedHandler(redisClient)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// User routes
		protected.GET("/users/me", userHandler.GetMe)
		protected.PUT("/users/me", userHandler.UpdateMe)
		protected.POST("/users/me/avatar", userHandler.UploadAvatar)
		protected.GET("/users/me/points", userHandler.GetMyPoints)
		protected.POST("/users/transfer-points", authMiddleware.LoadUser(), userHandler.TransferPoints)
		protected.GET("/users/:id", userHandler.GetUser)

		// Video routes
		protected.POST("/videos", authMiddleware.RequireRole(model.RoleCreator), videoHandler.CreateVideo)
		protected.GET("/videos/discover", videoHandler.Discover)
		protected.GET("/videos/search", videoHandler.SearchVideos)
		protected.GET("/videos/my-videos", authMiddleware.RequireRole(model.RoleCreator), videoHandler.GetMyVideos)
		protected.GET("/videos/:id", videoHandler.GetVideo)
		protected.PUT("/videos/:id", authMiddleware.RequireRole(model.RoleCreator), videoHandler.UpdateVideo)
		protected.DELETE("/videos/:id", authMiddleware.RequireRole(model.RoleCreator), videoHandler.DeleteVideo)
		protected.POST("/videos/:id/thumbnail", authMiddleware.RequireRole(model.RoleCreator), videoHandler.UploadThumbnail)

		// Watch reporting
		protected.POST("/videos/:id/watch", authMiddleware.RequireRole(model.RoleViewer), watchHandler.ReportWatch)
		protected.GET("/videos/:id/progress", watchHandler.GetProgress)

		// Watchlist routes
		protected.POST("/videos/:id/watchlist", watchlistHandler.AddToWatchlist)
		protected.DELETE("/videos/:id/watchlist", watchlistHandler.RemoveFromWatchlist)
		protected.GET("/watchlist", watchlistHandler.GetWatchlist)

		// Analytics routes
		protected.GET("/analytics/videos/:id", analyticsHandler.GetVideoAnalytics)
		protected.GET("/analytics/my-videos", authMiddleware.RequireRole(model.RoleCreator), analyticsHandler.GetMyVideosAnalytics)
		protected.GET("/analytics/trending", analyticsHandler.GetTrending)

		// Other protected routes
		protected.GET("/leaderboard", analyticsHandler.GetLeaderboard)
		protected.GET("/points/ws", pointsFeedHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
