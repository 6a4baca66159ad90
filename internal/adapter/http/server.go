// Package http exposes the external collaborator surface named in §1
// (room creation and history, specified here for test coverage; auth,
// TLS, and the static asset pipeline are out of scope).
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hiddenrole/mafia/internal/domain/service"
)

type Server struct {
	router    *chi.Mux
	logger    *slog.Logger
	staticDir string

	rooms     *service.RoomRegistry
	engine    *service.Engine
	store     service.ChatStore
	limit     int
	wsHandler http.Handler
}

func NewServer(logger *slog.Logger, staticDir string, rooms *service.RoomRegistry, engine *service.Engine, store service.ChatStore, historyLimitMax int, wsHandler http.Handler) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		staticDir: staticDir,
		rooms:     rooms,
		engine:    engine,
		store:     store,
		limit:     historyLimitMax,
		wsHandler: wsHandler,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
	})

	s.router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.wsHandler.ServeHTTP(w, r)
	})

	s.router.Post("/create-game", s.handleCreateGame)
	s.router.Route("/rooms/{roomCode}", func(r chi.Router) {
		r.Get("/players", s.handleRoomPlayers)
		r.Get("/messages", s.handleRoomMessages)
	})

	s.serveStaticFiles()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateGame implements §1's "room creation" collaborator: it hands
// back a fresh room code for the client to join over the WebSocket.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	room := s.rooms.Create()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"room_code": room.Code,
	})
}

func (s *Server) handleRoomPlayers(w http.ResponseWriter, r *http.Request) {
	players, hostID, err := s.engine.RoomPlayers(chi.URLParam(r, "roomCode"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"players": players,
		"host_id": hostID,
	})
}

// handleRoomMessages implements §1's "room history" collaborator, used by
// tests to assert on persisted chat without a live WebSocket (§6).
func (s *Server) handleRoomMessages(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "chat history unavailable"})
		return
	}
	roomCode := chi.URLParam(r, "roomCode")
	scope := service.ChatScope(r.URL.Query().Get("scope"))

	key := roomCode
	switch scope {
	case service.ChatScopeKillers:
		key = roomCode + "__killers"
	case service.ChatScopeDoctors:
		key = roomCode + "__doctors"
	}

	limit := s.limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	msgs, err := s.store.History(key, limit)
	if err != nil {
		s.logger.Error("history lookup failed", "room", roomCode, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) serveStaticFiles() {
	if _, err := os.Stat(s.staticDir); os.IsNotExist(err) {
		s.logger.Warn("static directory not found, skipping static file serving", "dir", s.staticDir)
		return
	}

	fileServer := http.FileServer(http.Dir(s.staticDir))

	s.router.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(s.staticDir, r.URL.Path)

		if _, err := os.Stat(path); os.IsNotExist(err) || isDir(path) {
			http.ServeFile(w, r, filepath.Join(s.staticDir, "index.html"))
			return
		}

		fileServer.ServeHTTP(w, r)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
