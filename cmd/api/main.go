package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "helpdesk/api/swagger" // swagger docs
	"helpdesk/internal/answer"
	"helpdesk/internal/config"
	"helpdesk/internal/database"
	"helpdesk/internal/handler"
	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/notify"
	"helpdesk/internal/queue"
	"helpdesk/internal/repository"
	"helpdesk/internal/sequencer"
	"helpdesk/internal/service"
	"helpdesk/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title           HR Helpdesk API
// @version         1.0
// @description     Employee questions answered by the HR bot, with ordered chat history and HR escalation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	logger.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	notifiers := notify.Multi{wsHub}
	if cfg.Queue.URL != "" {
		publisher := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Queue, logger)
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, rate limiting fails open", zap.Error(err))
		}
	} else {
		logger.Info("REDIS_ADDR not set, rate limiting disabled")
	}

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	chatRepo := repository.NewChatRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	txManager := repository.NewTransactionManager(db)

	answerClient := answer.NewClient(answer.Config{
		URL:          cfg.Answer.URL,
		Timeout:      cfg.Answer.Timeout,
		MaxRetries:   cfg.Answer.MaxRetries,
		RetryBackoff: cfg.Answer.RetryBackoff,
	}, logger)

	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	authService := service.NewAuthService(userRepo, tokens, cfg.BcryptCost, logger)
	if cfg.SeedHR.Email != "" {
		created, err := authService.EnsureUser(ctx, service.CreateUserRequest{
			Name:     cfg.SeedHR.Name,
			Email:    cfg.SeedHR.Email,
			Mobile:   cfg.SeedHR.Mobile,
			Password: cfg.SeedHR.Password,
			Role:     model.RoleHR,
		})
		if err != nil {
			logger.Fatal("seeding hr account failed", zap.Error(err))
		}
		if created {
			logger.Info("seeded hr account", zap.String("email", cfg.SeedHR.Email))
		}
	}
	channelService := service.NewChannelService(userRepo, channelRepo, auditRepo, txManager, notifiers, logger)
	conversationService := service.NewConversationService(
		userRepo, channelRepo, chatRepo, auditRepo, txManager,
		sequencer.New(chatRepo), answerClient, notifiers, logger,
	)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statsRepo)

	authMW := middleware.Authenticate(authService)
	limiter := middleware.RateLimit(cfg.Limit, rdb, logger)
	cookies := middleware.CookieOptions{
		Secure:     cfg.IsRelease(),
		AccessTTL:  cfg.JWT.AccessExpiry,
		RefreshTTL: cfg.JWT.RefreshExpiry,
	}

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, cookies, authMW)
	channelHandler := handler.NewChannelHandler(channelService, authMW)
	chatHandler := handler.NewChatHandler(conversationService, authMW, limiter)
	auditHandler := handler.NewAuditHandler(auditService, authMW)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, authMW)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, func(token string) (string, string, error) {
			p, err := authService.ResolvePrincipal(c.Request.Context(), token)
			return p.UserID, p.Role, err
		})
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	channelHandler.RegisterRoutes(router.Group(""))
	chatHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if cfg.Env == "development" && !cfg.IsRelease() {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
