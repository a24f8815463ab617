package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/chatroom/internal/config"
	"github.com/zhouzirui/chatroom/internal/handler"
	"github.com/zhouzirui/chatroom/internal/handler/room"
	"github.com/zhouzirui/chatroom/internal/repository"
	"github.com/zhouzirui/chatroom/internal/service/ai"
	"github.com/zhouzirui/chatroom/internal/service/chat"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// run owns every resource main opens so deferred cleanup happens before exit.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	rooms, err := openRoomRepository(cfg.Server)
	if err != nil {
		return fmt.Errorf("open room storage: %w", err)
	}
	defer func() {
		if err := rooms.Close(); err != nil {
			log.Printf("warning: failed to close room storage: %v", err)
		}
	}()

	chatService := chat.NewService(rooms)

	// The auto-reply agent is optional.
	var agent room.AgentResponder
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without auto replies - 请检查 Ark 模型相关环境变量")
		} else {
			agent = aiService
			log.Printf("AI agent %q initialized successfully", aiService.Name())
		}
	} else {
		log.Println("Ark 凭证未配置，跳过自动回复初始化")
	}

	router := handler.NewRouter(cfg, chatService, agent)

	return startServer(ctx, cfg.Server, router)
}

func openRoomRepository(serverCfg config.ServerConfig) (repository.RoomRepository, error) {
	if serverCfg.RoomDB == "" {
		log.Println("CHAT_ROOM_DB not set, keeping rooms in memory")
		return repository.NewMemoryRoomRepository(), nil
	}
	repo, err := repository.OpenSQLite(serverCfg.RoomDB)
	if err != nil {
		return nil, err
	}
	log.Printf("storing rooms in sqlite database %s", serverCfg.RoomDB)
	return repo, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chat room server listening on %s", addr)
	return runServer(ctx, srv)
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
