package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/itsmrval/willitbemax/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHub implements the Hub interface for testing
type mockHub struct {
	mu           sync.Mutex
	unregistered []*Client
}

func (m *mockHub) Unregister(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, c)
}

// mockConn replays scripted inbound messages and records outbound ones
type mockConn struct {
	mu      sync.Mutex
	inbound []string
	written []models.ServerMessage
	closed  bool
}

func (m *mockConn) ReadJSON(v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbound) == 0 {
		return io.EOF
	}
	next := m.inbound[0]
	m.inbound = m.inbound[1:]
	return json.Unmarshal([]byte(next), v)
}

func (m *mockConn) WriteJSON(v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("use of closed connection")
	}
	m.written = append(m.written, v.(models.ServerMessage))
	return nil
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error { return nil }
func (m *mockConn) SetReadLimit(limit int64)                        {}
func (m *mockConn) SetReadDeadline(t time.Time) error               { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error              { return nil }
func (m *mockConn) SetPongHandler(h func(appData string) error)     {}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) writtenTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.written))
	for _, msg := range m.written {
		types = append(types, msg.Type)
	}
	return types
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_ReadPumpAnswersHeartbeatAndRejectsOthers(t *testing.T) {
	conn := &mockConn{inbound: []string{
		`{"type":"heartbeat"}`,
		`{"type":"subscribe","payload":{"sports":["f1"]}}`,
	}}
	hub := &mockHub{}
	c := NewClient("client-1", conn, hub, quietLogger())

	c.ReadPump(context.Background())

	require.Len(t, c.Send, 2)
	heartbeat := <-c.Send
	assert.Equal(t, models.MessageTypeHeartbeat, heartbeat.Type)
	stats, ok := heartbeat.Payload.(models.ConnectionStats)
	require.True(t, ok)
	assert.Equal(t, "client-1", stats.ClientID)
	assert.Equal(t, int64(1), stats.MessagesReceived)

	errMsg := <-c.Send
	assert.Equal(t, models.MessageTypeError, errMsg.Type)
	payload, ok := errMsg.Payload.(models.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, "unknown_message_type", payload.Code)

	assert.Equal(t, []*Client{c}, hub.unregistered)
	assert.True(t, conn.closed)
}

func TestClient_TrySendFullBuffer(t *testing.T) {
	c := NewClient("client-2", &mockConn{}, &mockHub{}, quietLogger())

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.TrySend(models.ServerMessage{Type: models.MessageTypeState}))
	}
	assert.False(t, c.TrySend(models.ServerMessage{Type: models.MessageTypeState}))

	stats := c.GetStats()
	assert.Equal(t, 100.0, stats.BufferUtilization)
}

func TestClient_CloseSendIsIdempotent(t *testing.T) {
	c := NewClient("client-3", &mockConn{}, &mockHub{}, quietLogger())

	c.CloseSend()
	c.CloseSend()

	assert.False(t, c.TrySend(models.ServerMessage{Type: models.MessageTypeState}))
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestClient_WritePumpDrainsUntilClosed(t *testing.T) {
	conn := &mockConn{}
	c := NewClient("client-4", conn, &mockHub{}, quietLogger())

	require.True(t, c.TrySend(models.ServerMessage{Type: models.MessageTypeState}))
	require.True(t, c.TrySend(models.ServerMessage{Type: models.MessageTypeHeartbeat}))
	c.CloseSend()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.WritePump(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WritePump did not return after Send was closed")
	}

	assert.Equal(t, []string{models.MessageTypeState, models.MessageTypeHeartbeat}, conn.writtenTypes())
	assert.Equal(t, int64(2), c.GetStats().MessagesSent)
}
