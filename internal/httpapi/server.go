// Package httpapi exposes the game over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"sqlbadlands/internal/curriculum"
	"sqlbadlands/internal/dataset"
	"sqlbadlands/internal/game"
	"sqlbadlands/internal/telemetry"
)

const (
	SessionHeader   = "X-Session-ID"
	maxRequestBytes = 64 << 10
)

type Game interface {
	Submit(ctx context.Context, sub game.Submission) (game.Outcome, error)
	Chapter(number int) (game.ChapterView, error)
	Missions() []game.MissionView
	Catalog(ctx context.Context) ([]dataset.Table, error)
}

type Server struct {
	addr   string
	game   Game
	logger *telemetry.Logger
	policy *bluemonday.Policy

	readTimeout  time.Duration
	writeTimeout time.Duration

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

type Option func(*Server)

func WithLogger(l *telemetry.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

func NewServer(addr string, g Game, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		game:         g,
		logger:       telemetry.Discard(),
		policy:       bluemonday.StrictPolicy(),
		readTimeout:  10 * time.Second,
		writeTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed handler without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/chapter/{id}", s.handleChapter)
	mux.HandleFunc("/api/missions", s.handleMissions)
	mux.HandleFunc("/api/schema", s.handleSchema)
	mux.HandleFunc("/api/run-query", s.handleSubmit(game.KindQuery))
	mux.HandleFunc("/api/run-command", s.handleSubmit(game.KindCommand))
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("httpapi: server already started")
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.addr, err)
	}
	s.listener = listener
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http.serve_failed", map[string]any{"error": err.Error()})
		}
	}()
	s.logger.Info("http.listening", map[string]any{"addr": listener.Addr().String()})
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid chapter id"})
		return
	}
	view, err := s.game.Chapter(id)
	if err != nil {
		if errors.Is(err, curriculum.ErrChapterNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chapter not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "chapter lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"missions": s.game.Missions()})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	tables, err := s.game.Catalog(r.Context())
	if err != nil {
		s.logger.Error("schema.catalog_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "schema unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

type submitRequest struct {
	Query   string `json:"query"`
	Chapter int    `json:"chapter"`
	Mission int    `json:"mission"`
}

// submitResult carries the fields shared by every run-query and run-command reply.
type submitResult struct {
	OK               bool    `json:"ok"`
	RunID            string  `json:"runId,omitempty"`
	Correct          bool    `json:"correct"`
	Status           string  `json:"status,omitempty"`
	Message          string  `json:"message"`
	StoryProgression *string `json:"storyProgression,omitempty"`
	ExecutionTime    int64   `json:"executionTime"`
}

// queryResponse always carries rows and columns, even when both are empty.
type queryResponse struct {
	submitResult
	Rows    []map[string]any `json:"rows"`
	Columns []string         `json:"columns"`
}

type commandResponse struct {
	submitResult
	AffectedRows int64 `json:"affectedRows"`
}

// failureResponse keeps the engine text verbatim in message and hint.
// The *Html fields hold copies that are safe to drop into markup.
type failureResponse struct {
	submitResult
	Hint        string `json:"hint,omitempty"`
	MessageHTML string `json:"messageHtml"`
	HintHTML    string `json:"hintHtml,omitempty"`
}

func (s *Server) handleSubmit(kind game.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		w.Header().Set(SessionHeader, sessionID)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"ok": false, "message": "payload exceeds limit"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "unable to read body"})
			return
		}
		var req submitRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "invalid json"})
			return
		}

		out, err := s.game.Submit(r.Context(), game.Submission{
			SessionID: sessionID,
			Query:     req.Query,
			Chapter:   req.Chapter,
			Mission:   req.Mission,
			Kind:      kind,
		})
		if err != nil {
			if errors.Is(err, game.ErrEmptyQuery) {
				writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "No query provided"})
				return
			}
			s.logger.Error("submit.failed", map[string]any{"session_id": sessionID, "error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": failureMessage(kind)})
			return
		}
		writeJSON(w, http.StatusOK, s.toResponse(kind, out))
	}
}

func (s *Server) toResponse(kind game.Kind, out game.Outcome) any {
	base := submitResult{
		OK:            out.OK,
		RunID:         out.RunID,
		Correct:       out.Correct,
		Status:        out.Status,
		Message:       out.Message,
		ExecutionTime: out.Duration.Milliseconds(),
	}
	if !out.OK {
		if base.Message == "" {
			base.Message = failureMessage(kind)
		}
		return failureResponse{
			submitResult: base,
			Hint:         out.Hint,
			MessageHTML:  s.policy.Sanitize(base.Message),
			HintHTML:     s.policy.Sanitize(out.Hint),
		}
	}
	if out.StoryProgression != "" {
		story := out.StoryProgression
		base.StoryProgression = &story
	}
	if kind == game.KindCommand {
		return commandResponse{submitResult: base, AffectedRows: out.AffectedRows}
	}
	resp := queryResponse{submitResult: base, Rows: out.Rows, Columns: out.Columns}
	if resp.Rows == nil {
		resp.Rows = []map[string]any{}
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	return resp
}

func failureMessage(kind game.Kind) string {
	if kind == game.KindCommand {
		return "Command execution failed"
	}
	return "Query execution failed"
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
