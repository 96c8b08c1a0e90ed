// Package api provides the HTTP API for playing and inspecting a career.
// Reads and player actions are public. Save management and scheduler
// control require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/career-clicker/internal/engine"
	"github.com/talgya/career-clicker/internal/persistence"
)

const maxBodyBytes = 4 << 20

// HistorySource lists recorded saves. *persistence.DB implements it.
type HistorySource interface {
	SaveHistory(ctx context.Context, slot string, limit int) ([]persistence.SaveRecord, error)
}

// Server serves the career session over HTTP.
type Server struct {
	Session     *engine.Session
	Scheduler   *engine.Scheduler
	Saves       *persistence.Saves
	History     HistorySource // optional; nil disables /history
	Port        int
	AdminKey    string   // Bearer token for admin endpoints. Empty = admin disabled.
	CORSOrigins []string // allowed in addition to localhost dev servers

	// ImportLimiter throttles save imports. Nil uses 10 per minute.
	ImportLimiter *RateLimiter

	baseCtx context.Context
}

// Start begins serving the HTTP API in a goroutine. The listener is shut
// down when ctx ends; ctx also bounds scheduler runs started over HTTP.
func (s *Server) Start(ctx context.Context) {
	s.baseCtx = ctx
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "history", s.History != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}()
}

// Handler returns the routed API with CORS applied.
func (s *Server) Handler() http.Handler {
	if s.ImportLimiter == nil {
		s.ImportLimiter = NewRateLimiter(10, time.Minute)
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("GET /api/v1/prestige", s.handlePrestigeSummary)
	mux.HandleFunc("POST /api/v1/prestige", s.handlePrestige)
	mux.HandleFunc("POST /api/v1/action", s.handleAction)
	mux.HandleFunc("GET /api/v1/export", s.handleExport)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/scheduler", s.handleScheduler)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/import", s.adminOnly(RateLimitMiddleware(s.ImportLimiter, s.handleImport)))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("POST /api/v1/reset", s.adminOnly(s.handleReset))
	mux.HandleFunc("POST /api/v1/scheduler", s.adminOnly(s.handleScheduler))

	return corsMiddleware(s.CORSOrigins, mux)
}

func (s *Server) runContext() context.Context {
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CAREER_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Session.Snapshot()
	writeJSON(w, map[string]any{
		"name":       st.Player.Name,
		"day":        st.Day,
		"turns_left": st.TurnsLeft,
		"stage":      st.Stage,
		"cash":       st.Resources.Cash,
		"reputation": st.Resources.Reputation,
		"morale":     st.Resources.Morale,
		"active":     len(st.Jobs.Active),
		"completed":  len(st.Jobs.Completed),
		"charters":   st.Prestige.Charters,
		"running":    s.Scheduler.Running(),
		"speed":      s.Scheduler.Speed(),
		"ticks":      s.Scheduler.Ticks(),
		"changes":    s.Session.Changes(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Snapshot())
}

type actionResponse struct {
	Changed bool          `json:"changed"`
	State   *engine.State `json:"state"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var in engine.Intent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	st, changed, err := s.Session.Dispatch(in)
	if errors.Is(err, engine.ErrUnknownIntent) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("intent failed", "type", in.Type, "error", err)
		http.Error(w, "action failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, actionResponse{Changed: changed, State: st})
}

func (s *Server) handlePrestigeSummary(w http.ResponseWriter, r *http.Request) {
	st := s.Session.Snapshot()
	writeJSON(w, s.Session.Game().PrestigeSummary(st))
}

func (s *Server) handlePrestige(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Choices []string `json:"choices"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	st, changed, err := s.Session.Dispatch(engine.Intent{Type: engine.IntentPrestige, Choices: req.Choices})
	if err != nil {
		slog.Error("prestige failed", "error", err)
		http.Error(w, "prestige failed", http.StatusInternalServerError)
		return
	}
	if changed {
		slog.Info("prestige performed", "charters", st.Prestige.Charters, "choices", req.Choices)
	}
	writeJSON(w, actionResponse{Changed: changed, State: st})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	raw, err := s.Saves.Export(s.Session.Snapshot())
	if err != nil {
		slog.Error("export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="career-save.json"`)
	w.Write(raw)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	st, err := s.Saves.Import(raw)
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidSaveData) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("import failed", "error", err)
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}

	s.Session.Replace(st)
	saved := true
	if err := s.Saves.Save(r.Context(), st); err != nil {
		slog.Warn("imported save not persisted", "error", err)
		saved = false
	}
	slog.Info("save imported", "day", st.Day, "stage", st.Stage)

	writeJSON(w, map[string]any{
		"day":     st.Day,
		"stage":   st.Stage,
		"saved":   saved,
		"message": "save imported",
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	st := s.Session.Snapshot()
	if err := s.Saves.Save(r.Context(), st); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"day":     st.Day,
		"message": "snapshot saved",
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Saves.Clear(r.Context()); err != nil {
		slog.Error("reset failed", "error", err)
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	st := s.Session.Game().NewState(nil)
	s.Session.Replace(st)
	slog.Info("career reset")

	writeJSON(w, map[string]any{
		"day":     st.Day,
		"message": "career reset",
	})
}

func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Action string   `json:"action"` // start, stop or empty
			Speed  *float64 `json:"speed"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed != nil {
			if *req.Speed < 0 || *req.Speed > 1000 {
				http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
				return
			}
			s.Scheduler.SetSpeed(*req.Speed)
			slog.Info("speed changed", "speed", *req.Speed)
		}
		switch req.Action {
		case "start":
			s.Scheduler.Start(s.runContext())
		case "stop":
			s.Scheduler.Stop()
		case "":
		default:
			http.Error(w, "action must be start or stop", http.StatusBadRequest)
			return
		}
	}

	writeJSON(w, map[string]any{
		"running": s.Scheduler.Running(),
		"speed":   s.Scheduler.Speed(),
		"ticks":   s.Scheduler.Ticks(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	rows, err := s.History.SaveHistory(r.Context(), s.Saves.Key, limit)
	if err != nil {
		slog.Error("save history query failed", "error", err)
		writeJSON(w, []persistence.SaveRecord{})
		return
	}
	if rows == nil {
		rows = []persistence.SaveRecord{}
	}
	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
