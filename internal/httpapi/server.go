// Package httpapi exposes Clara over HTTP: /health, /chat and session
// inspection. It is a thin layer over the orchestrator; each session gets
// its own orchestrator instance keyed by session id, created on first use.
package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mymy770/Clara/internal/config"
	"github.com/mymy770/Clara/internal/dispatch"
	"github.com/mymy770/Clara/internal/fsdriver"
	"github.com/mymy770/Clara/internal/llm"
	"github.com/mymy770/Clara/internal/logging"
	"github.com/mymy770/Clara/internal/memory"
	"github.com/mymy770/Clara/internal/orchestrator"
	"github.com/mymy770/Clara/internal/tracing"
)

// Server serves the chat API over a shared model, memory store and file
// driver. Sessions are independent; two turns of the same session are
// serialized by the session's orchestrator.
type Server struct {
	settings config.Settings
	model    llm.LanguageModel
	store    memory.Store
	fs       *fsdriver.Driver
	logger   *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	orch   *orchestrator.Orchestrator
	tracer *tracing.SessionTracer
}

// NewServer creates the API server.
func NewServer(settings config.Settings, model llm.LanguageModel, store memory.Store, fs *fsdriver.Driver) *Server {
	return &Server{
		settings: settings,
		model:    model,
		store:    store,
		fs:       fs,
		logger:   logging.Get(),
		sessions: make(map[string]*session),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Debug     bool   `json:"debug"`
}

type chatResponse struct {
	SessionID string             `json:"session_id"`
	Reply     string             `json:"reply"`
	Debug     *tracing.TurnTrace `json:"debug,omitempty"`
}

// handleChat runs one turn. A missing session_id creates a new session.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, err := s.session(req.SessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, trace := sess.orch.HandleTurn(r.Context(), req.Message)

	resp := chatResponse{SessionID: sess.orch.SessionID(), Reply: reply}
	if req.Debug {
		resp.Debug = &trace
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	infos := make([]map[string]any, 0, len(s.sessions))
	for id, sess := range s.sessions {
		infos = append(infos, map[string]any{
			"session_id": id,
			"turns":      len(sess.tracer.Turns()),
		})
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i]["session_id"].(string) < infos[j]["session_id"].(string)
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

// handleGetSession replays a session's recorded turns.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown session: "+id)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"turns":      sess.tracer.Turns(),
	})
}

// session returns the session for id, creating it when id is empty or
// unknown.
func (s *Server) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess, nil
		}
	} else {
		id = uuid.NewString()
	}

	tracer, err := tracing.NewSessionTracer(id,
		tracing.WithSessionsDir(s.settings.Paths.SessionLogs),
		tracing.WithDebugDir(s.settings.Paths.DebugLogs))
	if err != nil {
		return nil, fmt.Errorf("create session tracer: %w", err)
	}

	orch := orchestrator.New(id, s.model, dispatch.New(s.store, s.fs), s.store,
		orchestrator.WithSystemPrompt(s.settings.SystemPrompt),
		orchestrator.WithMaxHistory(s.settings.MaxHistory),
		orchestrator.WithTracer(tracer))

	sess := &session{orch: orch, tracer: tracer}
	s.sessions[id] = sess
	s.logger.Info("Session created", "session", id)
	return sess, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}
