// Package connection manages raftfleetctl's connection to a raftfleetd
// admin API endpoint.
package connection

import (
	"net/http"
	"strings"
	"time"

	"github.com/raftfleet/raftfleet/internal/adminapi"
)

// Connection describes a raftfleetd admin endpoint raftfleetctl talks to.
type Connection struct {
	Name   string
	Server string
}

// Manager tracks the current connection. It holds no client; the
// package-level Client builds a new adminapi.Client on each call.
type Manager struct {
	current *Connection
}

// NewManager creates a new connection manager with no current connection.
func NewManager() *Manager {
	return &Manager{}
}

// Connect makes conn the current connection.
func (m *Manager) Connect(conn *Connection) error {
	m.current = conn
	return nil
}

// Disconnect clears the current connection.
func (m *Manager) Disconnect() {
	m.current = nil
}

// Current returns the current connection, or nil if none is set.
func (m *Manager) Current() *Connection {
	return m.current
}

// IsConnected reports whether a current connection is set.
func (m *Manager) IsConnected() bool {
	return m.current != nil
}

// Client builds an adminapi.Client against server, normalizing it to a
// full "http://" or "https://" base address the way raftfleetd's own
// listener address is usually written (host:port, no scheme).
func Client(server string) *adminapi.Client {
	base := server
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return adminapi.NewClient(httpClient, base)
}
