package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/hiddenrole/mafia/internal/adapter/http"
	"github.com/hiddenrole/mafia/internal/adapter/store"
	"github.com/hiddenrole/mafia/internal/adapter/ws"
	"github.com/hiddenrole/mafia/internal/domain/service"
	"github.com/hiddenrole/mafia/internal/pkg/config"
	"github.com/hiddenrole/mafia/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.IsDev())

	log.Info("starting server",
		"port", cfg.Port,
		"env", cfg.Env,
		"staticDir", cfg.StaticDir,
	)

	var chatStore service.ChatStore
	if cfg.DB_DSN != "" {
		chatStoreImpl, err := store.Open(cfg.DB_DSN)
		if err != nil {
			log.Error("failed to open chat store", "error", err)
			os.Exit(1)
		}
		chatStore = chatStoreImpl
	} else {
		log.Warn("DB_DSN not set, chat history will not be persisted")
	}

	rooms := service.NewRoomRegistry(log)
	conns := service.NewConnectionRegistry()

	hub := ws.NewHub(log)
	go hub.Run()

	emitter := ws.NewEmitter(hub, conns, rooms)
	engine := service.NewEngine(rooms, conns, emitter, chatStore, cfg, log)

	router := ws.NewRouter(hub, engine, log)
	wsHandler := ws.NewHandler(hub, log, router.HandleMessage, router.HandleDisconnect)

	server := httpAdapter.NewServer(log, cfg.StaticDir, rooms, engine, chatStore, cfg.ChatHistoryLimitMax, wsHandler)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
