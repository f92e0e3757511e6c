package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/itsmrval/willitbemax/internal/client"
	"github.com/itsmrval/willitbemax/internal/metrics"
	"github.com/itsmrval/willitbemax/pkg/models"
)

// metricsInterval is how often hub metrics are logged
const metricsInterval = 30 * time.Second

// Hub maintains the set of active clients and pushes every snapshot to them
type Hub struct {
	// Registered clients
	clients   map[*client.Client]bool
	clientsMu sync.RWMutex

	// Register requests from clients
	register chan *client.Client

	// Unregister requests from clients
	unregister chan *client.Client

	// Closed when Run returns
	done chan struct{}

	// Last snapshot seen, sent to newly registered clients
	current    models.Snapshot
	hasCurrent bool

	// Metrics
	totalConnections int64
	totalMessages    int64
	metricsMu        sync.Mutex

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHub creates a new Hub instance
func NewHub(m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client.Client]bool),
		register:   make(chan *client.Client),
		unregister: make(chan *client.Client),
		done:       make(chan struct{}),
		metrics:    m,
		logger:     logger.With("component", "hub"),
	}
}

// Run starts the hub's main loop, broadcasting every snapshot received on updates
func (h *Hub) Run(ctx context.Context, updates <-chan models.Snapshot) {
	defer close(h.done)
	h.logger.Info("hub started")

	go h.reportMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case snap, ok := <-updates:
			if !ok {
				// Store closed; keep serving registrations until shutdown
				updates = nil
				continue
			}
			h.current = snap
			h.hasCurrent = true
			h.broadcastSnapshot(snap)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *client.Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *client.Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// registerClient adds a client and sends it the latest snapshot
func (h *Hub) registerClient(c *client.Client) {
	h.clientsMu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	h.incrementTotalConnections()
	h.metrics.SetClients(count)
	h.logger.Info("client connected", "client_id", c.ID, "total", count)

	if h.hasCurrent {
		c.TrySend(stateMessage(h.current))
	}
}

// unregisterClient removes a client from the active clients map
func (h *Hub) unregisterClient(c *client.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.CloseSend()
		h.metrics.SetClients(len(h.clients))
		h.logger.Info("client disconnected", "client_id", c.ID, "total", len(h.clients))
	}
}

// broadcastSnapshot sends a snapshot to every client, dropping the ones too slow to keep up
func (h *Hub) broadcastSnapshot(snap models.Snapshot) {
	h.clientsMu.RLock()
	clients := make([]*client.Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	message := stateMessage(snap)
	sent := 0

	for _, c := range clients {
		if c.TrySend(message) {
			sent++
			continue
		}
		h.logger.Warn("client buffer full, disconnecting", "client_id", c.ID)
		go h.Unregister(c)
	}

	if sent > 0 {
		h.incrementTotalMessages()
	}
}

// GetMetrics returns hub metrics
func (h *Hub) GetMetrics() map[string]interface{} {
	h.metricsMu.Lock()
	totalConnections := h.totalConnections
	totalMessages := h.totalMessages
	h.metricsMu.Unlock()

	return map[string]interface{}{
		"active_clients":    h.GetClientCount(),
		"total_connections": totalConnections,
		"total_messages":    totalMessages,
	}
}

// GetClientCount returns the number of active clients
func (h *Hub) GetClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// shutdown closes all client connections
func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.logger.Info("shutting down hub", "active_clients", len(h.clients))

	for c := range h.clients {
		c.CloseSend()
		delete(h.clients, c)
	}
	h.metrics.SetClients(0)
}

// reportMetrics periodically logs hub metrics
func (h *Hub) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := h.GetMetrics()
			h.logger.Debug("hub metrics",
				"clients", m["active_clients"],
				"total_connections", m["total_connections"],
				"messages", m["total_messages"])
		}
	}
}

func (h *Hub) incrementTotalConnections() {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	h.totalConnections++
}

func (h *Hub) incrementTotalMessages() {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	h.totalMessages++
}

func stateMessage(snap models.Snapshot) models.ServerMessage {
	return models.ServerMessage{
		Type:      models.MessageTypeState,
		Payload:   snap,
		Timestamp: time.Now(),
	}
}
