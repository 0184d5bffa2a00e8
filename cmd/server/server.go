package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bigsoczeq/ai-chatbot2/internal/config"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/quota"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/title"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/tool"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/turn"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/auth"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/database"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/llmprovider"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/logger"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/observability"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/registry"
	chatrepo "github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/repository/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/streamstore"
	"github.com/bigsoczeq/ai-chatbot2/internal/interfaces/httpserver"
)

// @title Chat API
// @version 1.0
// @description Conversational AI service with tool calling and resumable streaming.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	conversationRepository := chatrepo.NewConversationRepository(db)
	messageRepository := chatrepo.NewMessageRepository(db)
	streamHandleRepository := chatrepo.NewStreamHandleRepository(db)

	llmClient := llmprovider.NewClient(cfg.LLMAPIURL, cfg.LLMAPIKey)
	registryClient := registry.NewClient(cfg.RegistryAPIURL, cfg.RegistryAPIKey, log)
	toolGateway, err := tool.NewGateway(log, tool.NewCompanyLookup(registryClient))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize tool gateway")
	}

	streamManager := newStreamManager(cfg, log)

	quotaGuard := quota.NewGuard(messageRepository, cfg.QuotaGuestDaily, cfg.QuotaRegularDaily, log)
	titleGenerator := title.NewGenerator(llmClient, cfg.TitleModel, log)

	orchestrator := turn.NewOrchestrator(
		conversationRepository,
		messageRepository,
		streamHandleRepository,
		llmClient,
		toolGateway,
		streamManager,
		quotaGuard,
		titleGenerator,
		turn.Options{
			ChatModel:         cfg.ChatModel,
			ReasoningModel:    cfg.ReasoningModel,
			SystemPrompt:      cfg.SystemPrompt,
			MaxToolRounds:     cfg.MaxToolRounds,
			ToolTimeout:       cfg.ToolTimeout,
			GenerationTimeout: cfg.GenerationTimeout,
			ResumeWindow:      cfg.ResumeWindow,
		},
		log,
	)

	conversationService := chat.NewService(conversationRepository, messageRepository, log)

	httpServer := httpserver.New(cfg, log, orchestrator, conversationService, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// newStreamManager picks the resumable Redis-backed manager when a Redis URL
// is configured, and the in-process no-resume manager otherwise.
func newStreamManager(cfg *config.Config, log zerolog.Logger) stream.Manager {
	if !cfg.ResumeEnabled() {
		log.Info().Msg("resumable streaming disabled: no REDIS_URL configured")
		return streamstore.NewDisabled()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("parse redis url")
	}
	return streamstore.NewRedisManager(redis.NewClient(opts), streamstore.DefaultTTL, log)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
