package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/heartnote/backend/internal/config"
	"github.com/zhouzirui/heartnote/backend/internal/handler"
	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/realtime"
	"github.com/zhouzirui/heartnote/backend/internal/service/ai"
	"github.com/zhouzirui/heartnote/backend/internal/service/chat"
	emotionservice "github.com/zhouzirui/heartnote/backend/internal/service/emotion"
	"github.com/zhouzirui/heartnote/backend/internal/service/journey"
	"github.com/zhouzirui/heartnote/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		logger.Fatal("failed to initialize logger", "error", err)
	}
	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	defer st.Close()
	logger.Info("database ready", "driver", cfg.Database.Driver)

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			logger.Warn("failed to initialize AI service, continuing without companion replies", "error", err)
			aiService = nil
		} else {
			logger.Info("AI service initialized", "model", cfg.AI.Model)
		}
	} else {
		logger.Info("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	// Emotion tagging: LLM when available, keyword heuristics otherwise.
	emotionCfg := emotionservice.Config{
		Enabled:      cfg.AI.EmotionLLMEnabled,
		HistoryLimit: cfg.AI.EmotionHistoryLimit,
	}
	var chatModelForEmotion model.ChatModel
	if aiService != nil {
		chatModelForEmotion = aiService.GetChatModel()
	}
	emotionSvc, err := emotionservice.NewService(ctx, chatModelForEmotion, emotionCfg)
	if err != nil {
		logger.Warn("failed to initialize emotion tagger, using heuristics", "error", err)
		emotionSvc, _ = emotionservice.NewService(ctx, nil, emotionservice.Config{HistoryLimit: emotionCfg.HistoryLimit})
	} else if emotionSvc.Enabled() {
		logger.Info("LLM emotion tagger enabled")
	} else if emotionCfg.Enabled {
		logger.Warn("LLM emotion tagger requested but chat model unavailable, falling back to heuristics")
	}

	hub := realtime.NewHub(16)
	engine := journey.NewEngine(st, journey.ConfigFrom(cfg.Journey), journey.WithNotifier(hub))

	// A typed nil *ai.Service must not reach the chat service as a non-nil Replier.
	var replier chat.Replier
	if aiService != nil && cfg.AI.ReplyEnabled {
		replier = aiService
	}
	chatSvc := chat.NewService(st, emotionSvc, engine, replier)

	router := handler.NewRouter(st, chatSvc, engine, hub)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("HeartNote backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", "error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
