package broker

import (
	"context"
	"sync"
)

// MockTransport is an in-process Transport for tests: Send appends to an
// outbox the test can inspect, Recv pops from a pre-seeded inbox (or
// invokes a caller-supplied handler to synthesize one on demand).
type MockTransport struct {
	mu sync.Mutex

	Outbox []*Request
	Inbox  []*Response

	// Handler, if set, is consulted by Recv after Inbox is exhausted: it
	// receives the most recently sent request and returns the response
	// to hand back, letting tests script request-specific replies
	// without pre-seeding Inbox in send order.
	Handler func(req *Request) (*Response, error)

	connected bool
	closed    bool
}

// NewMockTransport returns a connected MockTransport with no seeded
// responses.
func NewMockTransport() *MockTransport {
	return &MockTransport{connected: true}
}

func (m *MockTransport) Send(ctx context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.Outbox = append(m.Outbox, req)
	return nil
}

func (m *MockTransport) Recv(ctx context.Context) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	if len(m.Inbox) > 0 {
		resp := m.Inbox[0]
		m.Inbox = m.Inbox[1:]
		return resp, nil
	}
	if m.Handler != nil && len(m.Outbox) > 0 {
		return m.Handler(m.Outbox[len(m.Outbox)-1])
	}
	m.connected = false
	return nil, ErrNotConnected
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && !m.closed
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.connected = false
	return nil
}

// Disconnect simulates a transport EOF/unrecoverable I/O error: subsequent
// Send/Recv calls fail with ErrNotConnected.
func (m *MockTransport) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}
