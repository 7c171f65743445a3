package mocks

import (
	"context"

	"github.com/you/ratelink/domain"
)

// MockAuthAPI implements domain.AuthAPI interface for testing
type MockAuthAPI struct {
	RequestOTPFunc func(ctx context.Context, phone string, force bool) (*domain.OTPResult, error)
	VerifyOTPFunc  func(ctx context.Context, phone, otp string) (*domain.Session, error)
}

// NewMockAuthAPI creates a new MockAuthAPI with default behaviors
func NewMockAuthAPI() *MockAuthAPI {
	return &MockAuthAPI{}
}

// RequestOTP asks the backend to send an OTP
func (m *MockAuthAPI) RequestOTP(ctx context.Context, phone string, force bool) (*domain.OTPResult, error) {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, phone, force)
	}
	// Default behavior: sent
	return &domain.OTPResult{Sent: true}, nil
}

// VerifyOTP exchanges the code for a session
func (m *MockAuthAPI) VerifyOTP(ctx context.Context, phone, otp string) (*domain.Session, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, otp)
	}
	// Default behavior: rejected
	return nil, domain.ErrOTPRejected
}

// MockDeviceRegistrar implements domain.DeviceRegistrar interface for testing
type MockDeviceRegistrar struct {
	RegisterFunc func(ctx context.Context, userID string) error
	ClearFunc    func(ctx context.Context, userID string) error
}

// NewMockDeviceRegistrar creates a new MockDeviceRegistrar with default behaviors
func NewMockDeviceRegistrar() *MockDeviceRegistrar {
	return &MockDeviceRegistrar{}
}

// Register registers the device token
func (m *MockDeviceRegistrar) Register(ctx context.Context, userID string) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, userID)
	}
	// Default behavior: success
	return nil
}

// Clear clears the device token
func (m *MockDeviceRegistrar) Clear(ctx context.Context, userID string) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, userID)
	}
	// Default behavior: success
	return nil
}

// MockRateAPI implements domain.RateAPI interface for testing
type MockRateAPI struct {
	LiveFunc          func(ctx context.Context) (*domain.LiveRates, error)
	BroadcastFunc     func(ctx context.Context, input domain.BroadcastRateInput) error
	MyRatesFunc       func(ctx context.Context, wholesalerID string) ([]domain.CurrentRate, error)
	RetailerRatesFunc func(ctx context.Context) ([]domain.CurrentRate, error)
}

// NewMockRateAPI creates a new MockRateAPI with default behaviors
func NewMockRateAPI() *MockRateAPI {
	return &MockRateAPI{}
}

// Live fetches the live rate snapshot
func (m *MockRateAPI) Live(ctx context.Context) (*domain.LiveRates, error) {
	if m.LiveFunc != nil {
		return m.LiveFunc(ctx)
	}
	// Default behavior: empty snapshot
	return &domain.LiveRates{}, nil
}

// Broadcast publishes a wholesaler rate
func (m *MockRateAPI) Broadcast(ctx context.Context, input domain.BroadcastRateInput) error {
	if m.BroadcastFunc != nil {
		return m.BroadcastFunc(ctx, input)
	}
	// Default behavior: success
	return nil
}

// MyRates lists a wholesaler's published rates
func (m *MockRateAPI) MyRates(ctx context.Context, wholesalerID string) ([]domain.CurrentRate, error) {
	if m.MyRatesFunc != nil {
		return m.MyRatesFunc(ctx, wholesalerID)
	}
	// Default behavior: empty
	return nil, nil
}

// RetailerRates lists the rates visible to a retailer
func (m *MockRateAPI) RetailerRates(ctx context.Context) ([]domain.CurrentRate, error) {
	if m.RetailerRatesFunc != nil {
		return m.RetailerRatesFunc(ctx)
	}
	// Default behavior: empty
	return nil, nil
}

// MockUserAPI implements domain.UserAPI interface for testing
type MockUserAPI struct {
	ListByRoleFunc  func(ctx context.Context, role domain.Role) ([]domain.UserSummary, error)
	CreateFunc      func(ctx context.Context, input domain.CreateUserInput) (*domain.UserSummary, error)
	MyRetailersFunc func(ctx context.Context, wholesalerID string) ([]domain.Retailer, error)
}

// NewMockUserAPI creates a new MockUserAPI with default behaviors
func NewMockUserAPI() *MockUserAPI {
	return &MockUserAPI{}
}

// ListByRole lists users of a role
func (m *MockUserAPI) ListByRole(ctx context.Context, role domain.Role) ([]domain.UserSummary, error) {
	if m.ListByRoleFunc != nil {
		return m.ListByRoleFunc(ctx, role)
	}
	// Default behavior: empty
	return nil, nil
}

// Create registers a new user
func (m *MockUserAPI) Create(ctx context.Context, input domain.CreateUserInput) (*domain.UserSummary, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}
	// Default behavior: echo the input
	return &domain.UserSummary{Name: input.Name, Phone: input.Phone, Role: input.Role}, nil
}

// MyRetailers lists a wholesaler's retailers
func (m *MockUserAPI) MyRetailers(ctx context.Context, wholesalerID string) ([]domain.Retailer, error) {
	if m.MyRetailersFunc != nil {
		return m.MyRetailersFunc(ctx, wholesalerID)
	}
	// Default behavior: empty
	return nil, nil
}
