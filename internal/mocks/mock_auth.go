package mocks

import (
	"context"

	"github.com/you/ratelink/domain"
)

// MockBiometricAuthenticator implements domain.BiometricAuthenticator
// interface for testing
type MockBiometricAuthenticator struct {
	PromptFunc func(ctx context.Context, reason string) (bool, error)
	Prompts    int
}

// NewMockBiometricAuthenticator creates a new MockBiometricAuthenticator with default behaviors
func NewMockBiometricAuthenticator() *MockBiometricAuthenticator {
	return &MockBiometricAuthenticator{}
}

// Prompt asks for a biometric unlock
func (m *MockBiometricAuthenticator) Prompt(ctx context.Context, reason string) (bool, error) {
	m.Prompts++
	if m.PromptFunc != nil {
		return m.PromptFunc(ctx, reason)
	}
	// Default behavior: denied
	return false, nil
}

// MockTokenInspector implements domain.TokenInspector interface for testing
type MockTokenInspector struct {
	ExpiredFunc func(token string) bool
}

// NewMockTokenInspector creates a new MockTokenInspector with default behaviors
func NewMockTokenInspector() *MockTokenInspector {
	return &MockTokenInspector{}
}

// Expired reports whether the token is past its expiry
func (m *MockTokenInspector) Expired(token string) bool {
	if m.ExpiredFunc != nil {
		return m.ExpiredFunc(token)
	}
	// Default behavior: not expired
	return false
}

// MockCasbinEnforcer implements domain.CasbinEnforcer interface for testing
type MockCasbinEnforcer struct {
	AddPolicyFunc    func(params ...interface{}) (bool, error)
	RemovePolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	GetPolicyFunc    func() ([][]string, error)
}

// NewMockCasbinEnforcer creates a new MockCasbinEnforcer with default behaviors
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{}
}

// AddPolicy adds a policy rule
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}
	// Default behavior: added
	return true, nil
}

// RemovePolicy removes a policy rule
func (m *MockCasbinEnforcer) RemovePolicy(params ...interface{}) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(params...)
	}
	// Default behavior: removed
	return true, nil
}

// Enforce evaluates a request against the policies
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	// Default behavior: allowed
	return true, nil
}

// GetPolicy returns all policy rules
func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	// Default behavior: empty
	return nil, nil
}

// Compile-time interface compliance verification
var (
	_ domain.BiometricAuthenticator = (*MockBiometricAuthenticator)(nil)
	_ domain.TokenInspector         = (*MockTokenInspector)(nil)
	_ domain.CasbinEnforcer         = (*MockCasbinEnforcer)(nil)
)
