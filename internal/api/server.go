// Package api exposes the flow engine over HTTP: trigger, stop, status,
// result, flow history, and a server-sent-events log stream.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/flow"
	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/internal/publish"
	"github.com/Blynx-ai/blynx-backend/internal/store"
)

// userHeader identifies the caller. Authentication proper sits in front
// of this service; the engine only needs a stable owner ID.
const userHeader = "X-User-ID"

// Server carries the handler dependencies.
type Server struct {
	manager   *flow.Manager
	publisher *publish.Publisher
	store     store.Store
	origins   []string
}

// NewServer creates the HTTP surface over the flow engine. The store
// may be nil, which disables the flow history endpoint's persistence
// lookups. An empty origins list allows all origins.
func NewServer(manager *flow.Manager, publisher *publish.Publisher, st store.Store, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{manager: manager, publisher: publisher, store: st, origins: origins}
}

// Router builds the chi router with all agent routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", userHeader},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1/agents", func(r chi.Router) {
		r.Post("/trigger", s.handleTrigger)
		r.Post("/stop/{flowID}", s.handleStop)
		r.Get("/status/{flowID}", s.handleStatus)
		r.Get("/result/{flowID}", s.handleResult)
		r.Get("/logs/{flowID}", s.handleLogs)
		r.Get("/flows", s.handleListFlows)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// triggerRequest is the business profile to evaluate. Explicit source
// URLs override the ones derived from the profile.
type triggerRequest struct {
	Business   model.Business `json:"business"`
	SourceURLs []string       `json:"source_urls,omitempty"`
}

type triggerResponse struct {
	FlowID     string    `json:"flow_id"`
	Status     string    `json:"status"`
	SourceURLs []string  `json:"source_urls"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.SourceURLs) == 0 && len(req.Business.SourceURLs()) == 0 {
		writeError(w, http.StatusBadRequest, "business has no source URLs")
		return
	}

	flowID, err := s.manager.Start(r.Context(), userID, req.Business, req.SourceURLs...)
	if err != nil {
		if eris.Is(err, flow.ErrActiveFlow) {
			writeError(w, http.StatusConflict, "user already has an active flow")
			return
		}
		zap.L().Error("api: trigger failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start flow")
		return
	}

	f, err := s.manager.State().Flow(flowID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read flow")
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResponse{
		FlowID:     f.ID,
		Status:     string(f.Status),
		SourceURLs: f.SourceURLs,
		CreatedAt:  f.CreatedAt,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	flowID := chi.URLParam(r, "flowID")

	if err := s.manager.Stop(flowID, userID); err != nil {
		switch {
		case eris.Is(err, flow.ErrNotFound):
			writeError(w, http.StatusNotFound, "flow not found")
		case eris.Is(err, flow.ErrNotOwner):
			writeError(w, http.StatusForbidden, "flow not owned by user")
		case eris.Is(err, flow.ErrTerminal):
			writeError(w, http.StatusConflict, "flow already finished")
		default:
			zap.L().Error("api: stop failed", zap.String("flow_id", flowID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to stop flow")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"flow_id": flowID,
		"status":  string(model.FlowStatusStopped),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFlow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFlow(w, r)
	if !ok {
		return
	}

	report, err := s.manager.State().Report(f.ID)
	if err != nil {
		if eris.Is(err, flow.ErrNoResult) {
			writeError(w, http.StatusConflict, "result not available: flow is "+string(f.Status))
			return
		}
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleLogs streams flow progress as server-sent events until the flow
// reaches a terminal status or the client disconnects.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFlow(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, err := s.publisher.Subscribe(r.Context(), f.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for ev := range events {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if err := enc.Encode(ev); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []model.Flow{})
		return
	}

	filter := store.FlowFilter{UserID: userID, Limit: 50}
	if status := r.URL.Query().Get("status"); status != "" {
		fs := model.FlowStatus(status)
		if !fs.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status "+status)
			return
		}
		filter.Status = fs
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	flows, err := s.store.ListFlows(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list flows failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list flows")
		return
	}
	if flows == nil {
		flows = []model.Flow{}
	}
	writeJSON(w, http.StatusOK, flows)
}

// ownedFlow resolves the flow in the URL and enforces that the caller
// owns it.
func (s *Server) ownedFlow(w http.ResponseWriter, r *http.Request) (model.Flow, bool) {
	userID, ok := s.userID(w, r)
	if !ok {
		return model.Flow{}, false
	}
	flowID := chi.URLParam(r, "flowID")

	f, err := s.manager.State().Flow(flowID)
	if err != nil {
		writeError(w, http.StatusNotFound, "flow not found")
		return model.Flow{}, false
	}
	if f.UserID != userID {
		writeError(w, http.StatusForbidden, "flow not owned by user")
		return model.Flow{}, false
	}
	return f, true
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(userHeader)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, userHeader+" header required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnauthorized, "invalid "+userHeader+" header")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
