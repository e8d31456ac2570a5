// Package api provides the HTTP surface of a running tracker: REST endpoints
// that feed the capture loop, plus SSE and WebSocket streams of display updates.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/tokenwatt/internal/bridge"
	"github.com/zjrosen/tokenwatt/internal/capture"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
	"github.com/zjrosen/tokenwatt/internal/tracing"
)

// Controller is the capture surface the API drives.
type Controller interface {
	bridge.Controller
	Snapshot(ctx context.Context) (session.Update, error)
}

// Handler provides HTTP endpoints for a tracker.
type Handler struct {
	ctrl       Controller
	dispatcher *bridge.Dispatcher
	broker     *pubsub.Broker[session.Update]
	tracer     trace.Tracer
	hub        *Hub
	heartbeat  time.Duration
}

// HandlerConfig configures the API handler.
type HandlerConfig struct {
	// Controller drives the capture loop (required).
	Controller Controller
	// Dispatcher is shared with other bridge transports. Created from
	// Controller when nil.
	Dispatcher *bridge.Dispatcher
	// Broker streams display updates to SSE and WebSocket clients (required).
	Broker *pubsub.Broker[session.Update]
	// Tracer wraps every request in a span (optional).
	Tracer trace.Tracer
	// Heartbeat is the SSE keep-alive interval. Defaults to 30s.
	Heartbeat time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	d := cfg.Dispatcher
	if d == nil {
		d = bridge.NewDispatcher(cfg.Controller)
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Handler{
		ctrl:       cfg.Controller,
		dispatcher: d,
		broker:     cfg.Broker,
		tracer:     cfg.Tracer,
		hub:        NewHub(d),
		heartbeat:  heartbeat,
	}
}

// Hub returns the WebSocket hub.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracing.HTTPMiddleware(h.tracer))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", h.OpenDocument)
		r.Post("/edits", h.Edit)
		r.Post("/flush", h.Flush)
		r.Put("/logging", h.SetLogging)
		r.Get("/totals", h.Totals)

		r.Get("/events", h.StreamEvents)
		r.Get("/ws", h.ServeWS)
	})

	r.Get("/health", h.Health)

	return r
}

// === Request/Response Types ===

// OpenDocumentRequest is the request body for switching the active document.
type OpenDocumentRequest struct {
	Document string `json:"document"`
	Text     string `json:"text"`
}

// EditRequest is the request body for an edit notification. With Snapshot
// set, Changes are ignored and derived from the previous text of the document.
type EditRequest struct {
	Document string           `json:"document"`
	Text     string           `json:"text"`
	Changes  []capture.Change `json:"changes,omitempty"`
	Snapshot bool             `json:"snapshot,omitempty"`
}

// LoggingRequest is the request body for the logging toggle. A missing
// Enabled flips the current state.
type LoggingRequest struct {
	Enabled *bool `json:"enabled"`
}

// ErrorResponse is the response body for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the response body for the health check.
type HealthResponse struct {
	Status      string `json:"status"`
	State       string `json:"state,omitempty"`
	Enabled     bool   `json:"enabled"`
	Subscribers int    `json:"subscribers"`
	WSClients   int    `json:"ws_clients"`
	Dropped     int64  `json:"dropped_events"`
}

// === Handlers ===

// OpenDocument switches the active document.
// POST /v1/documents
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	var req OpenDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Document == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "document is required", "")
		return
	}
	h.apply(w, r, bridge.Message{Type: bridge.TypeOpen, Document: req.Document, Text: req.Text})
}

// Edit delivers an edit notification.
// POST /v1/edits
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg := bridge.Message{Type: bridge.TypeEdit, Document: req.Document, Text: req.Text, Changes: req.Changes}
	if req.Snapshot {
		if req.Document == "" {
			h.writeError(w, http.StatusBadRequest, "validation_error", "document is required for snapshots", "")
			return
		}
		msg.Type = bridge.TypeSnapshot
		msg.Changes = nil
	}
	h.apply(w, r, msg)
}

// Flush closes the open episode now.
// POST /v1/flush
func (h *Handler) Flush(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, bridge.Message{Type: bridge.TypeFlush})
}

// SetLogging enables or disables capture.
// PUT /v1/logging
func (h *Handler) SetLogging(w http.ResponseWriter, r *http.Request) {
	var req LoggingRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	h.apply(w, r, bridge.Message{Type: bridge.TypeToggle, Enabled: req.Enabled})
}

// Totals returns the session totals.
// GET /v1/totals
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ctrl.Snapshot(r.Context())
	if err != nil {
		h.writeControlError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// Health reports whether the capture loop is answering.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Subscribers: h.broker.SubscriberCount(),
		WSClients:   h.hub.ClientCount(),
		Dropped:     h.broker.Dropped(),
	}

	status, err := h.ctrl.Status(r.Context())
	if err != nil {
		resp.Status = "unhealthy"
		h.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.State = status.State.String()
	resp.Enabled = status.Enabled

	h.writeJSON(w, http.StatusOK, resp)
}

// === Helpers ===

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return false
	}
	return true
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, msg bridge.Message) {
	reply, err := h.dispatcher.Apply(r.Context(), msg)
	if err != nil {
		h.writeControlError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrInactiveDocument):
		h.writeError(w, http.StatusConflict, "inactive_document", "Document is not the active document", err.Error())
	case errors.Is(err, capture.ErrLoopStopped):
		h.writeError(w, http.StatusServiceUnavailable, "stopped", "Capture loop is not running", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusServiceUnavailable, "timeout", "Capture loop did not respond", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Request failed", err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatAPI, "Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
