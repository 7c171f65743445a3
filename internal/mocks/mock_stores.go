package mocks

import (
	"context"

	"github.com/you/ratelink/domain"
)

// MockSessionStore implements domain.SessionStore interface for testing
type MockSessionStore struct {
	SaveSessionFunc  func(ctx context.Context, session *domain.Session) error
	LoadSessionFunc  func(ctx context.Context) (*domain.Session, error)
	ClearSessionFunc func(ctx context.Context) error
	GetFunc          func(ctx context.Context, key string) (string, error)
	SetFunc          func(ctx context.Context, key, value string) error
}

// NewMockSessionStore creates a new MockSessionStore with default behaviors
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

// SaveSession persists a session
func (m *MockSessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	if m.SaveSessionFunc != nil {
		return m.SaveSessionFunc(ctx, session)
	}
	// Default behavior: success
	return nil
}

// LoadSession loads the persisted session
func (m *MockSessionStore) LoadSession(ctx context.Context) (*domain.Session, error) {
	if m.LoadSessionFunc != nil {
		return m.LoadSessionFunc(ctx)
	}
	// Default behavior: nothing stored
	return nil, domain.ErrSessionNotFound
}

// ClearSession removes the persisted session
func (m *MockSessionStore) ClearSession(ctx context.Context) error {
	if m.ClearSessionFunc != nil {
		return m.ClearSessionFunc(ctx)
	}
	// Default behavior: success
	return nil
}

// Get reads a single key
func (m *MockSessionStore) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	// Default behavior: not found
	return "", domain.ErrKeyNotFound
}

// Set writes a single key
func (m *MockSessionStore) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	// Default behavior: success
	return nil
}

// MockSecureStore implements domain.SecureStore interface for testing
type MockSecureStore struct {
	SaveCredentialsFunc  func(ctx context.Context, session *domain.Session) error
	LoadCredentialsFunc  func(ctx context.Context) (*domain.Session, error)
	BiometricEnabledFunc func(ctx context.Context) (bool, error)
	ClearFunc            func(ctx context.Context) error
}

// NewMockSecureStore creates a new MockSecureStore with default behaviors
func NewMockSecureStore() *MockSecureStore {
	return &MockSecureStore{}
}

// SaveCredentials persists the biometric-unlock credentials
func (m *MockSecureStore) SaveCredentials(ctx context.Context, session *domain.Session) error {
	if m.SaveCredentialsFunc != nil {
		return m.SaveCredentialsFunc(ctx, session)
	}
	// Default behavior: success
	return nil
}

// LoadCredentials loads the stored credentials
func (m *MockSecureStore) LoadCredentials(ctx context.Context) (*domain.Session, error) {
	if m.LoadCredentialsFunc != nil {
		return m.LoadCredentialsFunc(ctx)
	}
	// Default behavior: nothing stored
	return nil, domain.ErrSessionNotFound
}

// BiometricEnabled reports whether biometric unlock was set up
func (m *MockSecureStore) BiometricEnabled(ctx context.Context) (bool, error) {
	if m.BiometricEnabledFunc != nil {
		return m.BiometricEnabledFunc(ctx)
	}
	// Default behavior: disabled
	return false, nil
}

// Clear removes the stored credentials
func (m *MockSecureStore) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	// Default behavior: success
	return nil
}
