package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/itsmrval/willitbemax/internal/client"
	"github.com/itsmrval/willitbemax/pkg/models"
)

const serviceName = "race-weekend-service"

// SnapshotSource is the read side of the state store
type SnapshotSource interface {
	Snapshot() models.Snapshot
}

// Broadcaster is the part of the hub the handlers use
type Broadcaster interface {
	Register(c *client.Client)
	Unregister(c *client.Client)
	GetClientCount() int
	GetMetrics() map[string]interface{}
}

// Handler serves the read-only weekend surface
type Handler struct {
	store    SnapshotSource
	hub      Broadcaster
	ctx      context.Context
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a handler. ctx bounds the lifetime of websocket pumps; origins
// lists the allowed websocket origins, "*" allowing any.
func NewHandler(ctx context.Context, store SnapshotSource, hub Broadcaster, origins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store: store,
		hub:   hub,
		ctx:   ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		logger: logger.With("component", "handlers"),
	}
}

// HealthCheck reports service health. It always answers 200; a failed last cycle is
// reported as degraded.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()

	status := "healthy"
	if snap.Failed() {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         status,
		"service":        serviceName,
		"timestamp":      time.Now().UTC(),
		"active_clients": h.hub.GetClientCount(),
		"version":        snap.Version,
	})
}

// GetWeekend returns the current refresh snapshot
// GET /api/v1/weekend
func (h *Handler) GetWeekend(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Snapshot())
}

// GetHubMetrics returns websocket hub counters
// GET /api/v1/hub
func (h *Handler) GetHubMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.hub.GetMetrics())
}

// HandleWebSocket upgrades the connection and attaches it to the hub
// GET /ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := client.NewClient(uuid.New().String(), conn, h.hub, h.logger)
	h.hub.Register(c)

	// Pumps follow the handler context, not the request context
	go c.WritePump(h.ctx)
	go c.ReadPump(h.ctx)

	h.logger.Debug("websocket connection established", "client_id", c.ID)
}

// NotFound answers unknown routes with the JSON error body
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "route not found")
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
