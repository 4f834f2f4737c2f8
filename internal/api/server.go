// Package api exposes the HTTP ingress: the webhook endpoint game servers post
// events to, plus health and version endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shaharia-lab/mc-webhooks/internal/dispatch"
	"github.com/shaharia-lab/mc-webhooks/internal/metrics"
)

// maxBodyBytes bounds the size of a webhook body.
const maxBodyBytes = 1 << 20

// Webhook outcomes, used as response messages and metric labels.
const (
	msgProcessed     = "Webhook received and processed"
	msgInvalidJSON   = "Invalid JSON payload"
	msgInternalError = "Internal server error"
)

// Server holds the dependencies for the ingress handlers.
type Server struct {
	dispatcher dispatch.EventHandler
	endpoint   string
	logger     *slog.Logger
}

// New creates a Server that hands every decoded webhook to dispatcher.
// endpoint is the webhook path; it is served with and without a trailing slash.
func New(dispatcher dispatch.EventHandler, endpoint string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		dispatcher: dispatcher,
		endpoint:   "/" + strings.Trim(endpoint, "/"),
		logger:     logger,
	}
}

// Endpoint returns the normalised webhook path.
func (s *Server) Endpoint() string { return s.endpoint }

// Mount registers the ingress routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Post(s.endpoint, s.handleWebhook)
	if s.endpoint != "/" {
		r.Post(s.endpoint+"/", s.handleWebhook)
	}
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		s.logger.Warn("rejecting webhook with invalid body",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		metrics.WebhooksReceived.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	tag, _ := payload["event"].(string)
	s.logger.Debug("webhook received",
		"event_type", tag,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if err := s.dispatch(r.Context(), tag, payload); err != nil {
		s.logger.Error("webhook dispatch failed",
			"event_type", tag,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		metrics.WebhooksReceived.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	metrics.WebhooksReceived.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, response{Status: "success", Message: msgProcessed})
}

// dispatch hands the event over, converting a panic into an error.
func (s *Server) dispatch(ctx context.Context, tag string, payload map[string]any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("dispatcher panicked: %v", rec)
		}
	}()
	s.dispatcher.HandleEvent(ctx, tag, payload)
	return nil
}

// decodePayload reads the request body as a single JSON object.
func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("decoding body: not a JSON object")
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Status: "error", Message: msg})
}
