package mocks

import (
	"context"
	"sync"

	"github.com/you/ratelink/domain"
)

// MockRealtimeChannel implements domain.RealtimeChannel interface for
// testing. It records handler registrations and counts lifecycle calls so
// tests can assert the channel is opened and closed exactly once per
// transition. Emit dispatches to a registered handler the way the real read
// pump does.
type MockRealtimeChannel struct {
	ConnectFunc    func(ctx context.Context) error
	DisconnectFunc func() error

	mu          sync.Mutex
	connected   bool
	token       string
	handlers    map[string]func(payload []byte)
	Connects    int
	Disconnects int
	OffCalls    []string
	TokensSet   []string
}

// NewMockRealtimeChannel creates a new MockRealtimeChannel with default behaviors
func NewMockRealtimeChannel() *MockRealtimeChannel {
	return &MockRealtimeChannel{handlers: make(map[string]func(payload []byte))}
}

// Connect opens the channel
func (m *MockRealtimeChannel) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.Connects++
	m.connected = true
	m.mu.Unlock()
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	// Default behavior: success
	return nil
}

// Disconnect closes the channel
func (m *MockRealtimeChannel) Disconnect() error {
	m.mu.Lock()
	m.Disconnects++
	m.connected = false
	m.mu.Unlock()
	if m.DisconnectFunc != nil {
		return m.DisconnectFunc()
	}
	// Default behavior: success
	return nil
}

// Connected reports the mock connection state
func (m *MockRealtimeChannel) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetToken records the handshake token
func (m *MockRealtimeChannel) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.TokensSet = append(m.TokensSet, token)
	m.mu.Unlock()
}

// On registers an event handler
func (m *MockRealtimeChannel) On(event string, handler func(payload []byte)) {
	m.mu.Lock()
	m.handlers[event] = handler
	m.mu.Unlock()
}

// Off removes an event handler
func (m *MockRealtimeChannel) Off(event string) {
	m.mu.Lock()
	delete(m.handlers, event)
	m.OffCalls = append(m.OffCalls, event)
	m.mu.Unlock()
}

// Emit dispatches an event to its registered handler, if any, mimicking the
// real read pump. Returns whether a handler ran.
func (m *MockRealtimeChannel) Emit(event string, payload []byte) bool {
	m.mu.Lock()
	handler := m.handlers[event]
	m.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(payload)
	return true
}

// Handler returns the registered handler for an event, or nil
func (m *MockRealtimeChannel) Handler(event string) func(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[event]
}

// Compile-time interface compliance verification
var _ domain.RealtimeChannel = (*MockRealtimeChannel)(nil)
