// ABOUTME: HTTP endpoints for health checks, session inspection, the lifecycle ledger, and metrics
// ABOUTME: Read-only; sessions are created and used over gRPC

package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/chatbot-gateway/internal/auth"
	"github.com/2389/chatbot-gateway/internal/session"
	"github.com/2389/chatbot-gateway/internal/store"
)

// SessionsResponse is the JSON response for GET /api/sessions.
type SessionsResponse struct {
	Sessions    []session.Snapshot `json:"sessions"`
	Count       int                `json:"count"`
	MaxSessions int                `json:"max_sessions"`
}

// SessionEventResponse is one entry of GET /api/sessions/{id}/events.
type SessionEventResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Model     string `json:"model,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Handler builds the HTTP mux. Health and metrics are open; the session API
// requires a bearer token when verifier is non-nil.
func (g *Gateway) Handler(verifier auth.TokenVerifier) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	protect := auth.HTTPMiddleware(verifier)
	mux.Handle("GET /api/sessions", protect(http.HandlerFunc(g.handleListSessions)))
	mux.Handle("GET /api/sessions/{id}", protect(http.HandlerFunc(g.handleGetSession)))
	mux.Handle("GET /api/sessions/{id}/events", protect(http.HandlerFunc(g.handleSessionEvents)))

	if g.config.Metrics.Enabled {
		mux.Handle("GET "+g.config.Metrics.Path, g.metrics.Handler())
	}
	return mux
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK while the sweep loop is running.
func (g *Gateway) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !g.registry.Running() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("session sweep not running"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready (" + strconv.Itoa(g.registry.Len()) + " sessions)"))
}

func (g *Gateway) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := g.registry.List()
	g.writeJSON(w, http.StatusOK, SessionsResponse{
		Sessions:    sessions,
		Count:       len(sessions),
		MaxSessions: g.registry.Config().MaxSessions,
	})
}

func (g *Gateway) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := g.registry.Get(r.PathValue("id"))
	if !ok {
		g.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	g.writeJSON(w, http.StatusOK, snap)
}

// handleSessionEvents returns ledger entries for a session, newest first.
// Works for sessions that no longer exist. Supports ?limit=N (max 1000),
// ?kind=K and ?since=RFC3339.
func (g *Gateway) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if g.store == nil {
		g.sendJSONError(w, http.StatusNotFound, "session ledger disabled")
		return
	}

	filter := store.EventFilter{SessionID: r.PathValue("id"), Limit: 50}
	q := r.URL.Query()
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(parsed, 1000)
	}
	if kind := q.Get("kind"); kind != "" {
		filter.Kind = store.EventKind(kind)
		if !filter.Kind.Valid() {
			g.sendJSONError(w, http.StatusBadRequest, "unknown event kind")
			return
		}
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = &t
	}

	events, err := g.store.ListEvents(r.Context(), filter)
	if err != nil {
		g.logger.Error("failed to list session events", "error", err, "session_id", filter.SessionID)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]SessionEventResponse, len(events))
	for i, e := range events {
		response[i] = SessionEventResponse{
			ID:        e.ID,
			SessionID: e.SessionID,
			Kind:      string(e.Kind),
			Model:     e.Model,
			Detail:    e.Detail,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	g.writeJSON(w, http.StatusOK, response)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, msg string) {
	g.writeJSON(w, status, map[string]string{"error": msg})
}
