package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rentchat/internal/config"
	"rentchat/internal/filter"
	"rentchat/internal/handler"
	"rentchat/internal/repository"
	"rentchat/internal/service"
	"rentchat/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := cfg.Logging.NewLogger(os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting rental chat service",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	gin.SetMode(cfg.Server.GinMode)

	// Completion client
	var completer service.Completer
	var openaiClient *service.OpenAIClient
	if cfg.OpenAI.Enabled {
		openaiClient = service.NewOpenAIClient(&cfg.OpenAI, logger)
		completer = openaiClient
		logger.Info("openai client initialized",
			"api_base", cfg.OpenAI.APIBase,
			"chat_model", cfg.OpenAI.ChatModel,
			"timeout_s", cfg.OpenAI.Timeout,
			"embeddings", cfg.OpenAI.EmbeddingEnabled,
		)
	} else {
		logger.Warn("OPENAI_API_KEY is not set: every chat turn will return the fallback reply")
	}

	assistant := service.NewAssistant(completer, cfg.Chat, logger)

	// Property search
	var searchService *service.SearchService
	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return err
		}
		defer repo.Close()

		ranker := service.NewRanker(cfg.Ranking.WeightText, cfg.Ranking.WeightPrice, cfg.Ranking.WeightRecency)
		var embedder service.Embedder
		if openaiClient != nil {
			embedder = openaiClient
		}
		searchService = service.NewSearchService(repo, embedder, ranker, logger)
		logger.Info("connected to PostgreSQL", "database", cfg.PostgreSQL.Database)
	} else {
		logger.Info("property search disabled: chat turns return filters without results")
	}

	// Conversation store
	var conversations store.ConversationStore
	if cfg.Store.Path != "" {
		bs, err := store.NewBoltStore(cfg.Store.Path, cfg.Store.MaxMessages)
		if err != nil {
			return err
		}
		defer bs.Close()
		conversations = bs
		logger.Info("conversation store opened", "path", cfg.Store.Path)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"service":       "rental-chat",
			"version":       Version,
			"llm":           cfg.OpenAI.Enabled,
			"search":        searchService != nil,
			"conversations": conversations != nil,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	limits := filter.Limits{MaxTextLen: cfg.Chat.FieldMaxLen, MaxAmenities: cfg.Chat.MaxAmenities}
	chatHandler := handler.NewChatHandler(assistant, searchService, conversations,
		cfg.Search.DefaultLimit, cfg.Search.MaxLimit, logger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.Chat)
		apiV1.POST("/chat/stream", chatHandler.ChatStream)

		if searchService != nil {
			searchHandler := handler.NewSearchHandler(searchService, limits, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
			apiV1.POST("/search", searchHandler.Search)
			apiV1.GET("/properties/:id", searchHandler.GetProperty)

			embeddingHandler := handler.NewEmbeddingHandler(searchService)
			apiV1.POST("/embeddings/refresh", embeddingHandler.Refresh)
		}

		if conversations != nil {
			conversationHandler := handler.NewConversationHandler(conversations)
			apiV1.POST("/conversations", conversationHandler.Create)
			apiV1.GET("/conversations/:id", conversationHandler.Get)
			apiV1.DELETE("/conversations/:id", conversationHandler.Delete)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// requestLogger logs each request at info level, or debug for /health
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.FullPath() == "/health" {
			level = slog.LevelDebug
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
