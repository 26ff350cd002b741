package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/raceroom/game/config"
	"github.com/wricardo/mcp-training/raceroom/game/registry"
	"github.com/wricardo/mcp-training/raceroom/game/room"
	"github.com/wricardo/mcp-training/raceroom/game/service"
	"github.com/wricardo/mcp-training/raceroom/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service   service.LobbyService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string
	log       *logrus.Entry
}

// NewServer creates a new API server. hub may be nil when no websocket
// gateway is attached; staticDir may be empty to disable file serving.
func NewServer(lobby service.LobbyService, hub *websocket.Hub, staticDir string) *Server {
	s := &Server{
		service:   lobby,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: staticDir,
		log:       logrus.WithField("component", "api"),
	}

	s.setupRoutes()
	return s
}

// Router exposes the underlying router so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Rooms (read-only, mutations go through the websocket)
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// MountStatic serves the game client from staticDir. It must be called after
// every other route is registered because it matches any path.
func (s *Server) MountStatic() {
	if s.staticDir == "" {
		return
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"rooms":       stats.Rooms,
		"players":     stats.Players,
		"connections": stats.Connections,
		"preset":      stats.Preset,
	})
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := len(rooms)

	query := r.URL.Query()
	state := query.Get("state")   // "pending", "started", "finished"
	limitStr := query.Get("limit") // number of rooms to return

	if state != "" {
		filtered := make([]*service.RoomInfo, 0, len(rooms))
		for _, info := range rooms {
			if info.State == room.State(state) {
				filtered = append(filtered, info)
			}
		}
		rooms = filtered
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(rooms) {
			rooms = rooms[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"total": total,
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	info, err := s.service.GetRoom(r.Context(), code)
	if err != nil {
		if errors.Is(err, registry.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if configs == nil {
		configs = []*service.ConfigInfo{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(configs),
		"configs": configs,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	preset, err := s.service.LoadConfig(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, config.ErrConfigNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, config.ErrInvalidConfig):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, preset)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket gateway unavailable", http.StatusServiceUnavailable)
		return
	}
	s.hub.ServeWS(w, r)
}
