package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/suPer8Hu/ai-chatroom/internal/ai"
	"github.com/suPer8Hu/ai-chatroom/internal/auth"
	"github.com/suPer8Hu/ai-chatroom/internal/chat"
	"github.com/suPer8Hu/ai-chatroom/internal/config"
	"github.com/suPer8Hu/ai-chatroom/internal/db"
	"github.com/suPer8Hu/ai-chatroom/internal/httpapi"
	"github.com/suPer8Hu/ai-chatroom/internal/httpapi/handlers"
	"github.com/suPer8Hu/ai-chatroom/internal/logging"
	"github.com/suPer8Hu/ai-chatroom/internal/store/rabbitmq"
	"github.com/suPer8Hu/ai-chatroom/internal/store/redisstore"
	"github.com/suPer8Hu/ai-chatroom/internal/users"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// a missing .env is fine; real env vars win
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := ai.NewBuiltinRegistry(ai.Options{
		GeminiAPIKey:      cfg.GeminiAPIKey,
		OllamaBaseURL:     cfg.OllamaBaseURL,
		OpenRouterBaseURL: cfg.OpenRouterBaseURL,
		OpenRouterAPIKey:  cfg.OpenRouterAPIKey,
		OpenRouterSiteURL: cfg.OpenRouterSiteURL,
		OpenRouterAppName: cfg.OpenRouterAppName,
	})
	provider, err := reg.Get(ctx, cfg.AIProvider, cfg.AIModel())
	if err != nil {
		// keep serving; triggered posts degrade to a warning
		logger.Error("ai provider unavailable",
			zap.String("provider", cfg.AIProvider),
			zap.Strings("available", reg.Names()),
			zap.Error(err))
		provider = nil
	}
	responder := ai.NewResponder(provider, cfg.AIModel(), cfg.AITimeout, cfg.AIReplyPrefix)

	opts := chat.Options{
		ContextWindowSize: cfg.ChatContextWindowSize,
		MaxContentLength:  cfg.ChatMaxContentLength,
		ListCap:           cfg.ChatListCap,
		Logger:            logger,
	}

	if cfg.RedisAddr != "" {
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rs.Ping(pctx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, recent cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = rs.Close()
		} else {
			defer rs.Close()
			opts.Cache = rs.RecentMessages(cfg.ChatListCap)
		}
	}

	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		} else {
			defer pub.Close()
			opts.Events = pub
		}
	}

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL, nil)
	svc := chat.NewService(chat.NewRepo(gdb), responder, opts)
	h := handlers.NewHandler(users.NewStore(gdb), tokens, svc, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h, tokens, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("ai_provider", cfg.AIProvider),
			zap.String("ai_model", cfg.AIModel()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
