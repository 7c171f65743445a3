package domain

import "context"

// SessionStore is the plain durable tier holding normal session data.
// Layout: keys "user" (JSON), "token", "role", "userId", "wholesalerId".
type SessionStore interface {
	SaveSession(ctx context.Context, session *Session) error
	LoadSession(ctx context.Context) (*Session, error)
	ClearSession(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SecureStore is the encrypted tier reserved for biometric-unlock
// credentials. Layout: keys "auth_token", "user", "biometricEnabled".
type SecureStore interface {
	SaveCredentials(ctx context.Context, session *Session) error
	LoadCredentials(ctx context.Context) (*Session, error)
	BiometricEnabled(ctx context.Context) (bool, error)
	Clear(ctx context.Context) error
}

// BiometricAuthenticator prompts the local user for a biometric unlock.
// A false result covers both failure and cancellation; the two are not
// distinguished.
type BiometricAuthenticator interface {
	Prompt(ctx context.Context, reason string) (bool, error)
}

// AuthAPI is the backend OTP flow
type AuthAPI interface {
	RequestOTP(ctx context.Context, phone string, force bool) (*OTPResult, error)
	VerifyOTP(ctx context.Context, phone, otp string) (*Session, error)
}

// DeviceRegistrar registers and clears the push device token with the
// backend. Both operations are best-effort from the caller's perspective.
type DeviceRegistrar interface {
	Register(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
}

// RealtimeChannel is the single shared bidirectional connection. Exactly one
// instance exists process-wide; its lifecycle is bound to authentication
// state by the session service, never by feature code.
type RealtimeChannel interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool
	SetToken(token string)
	On(event string, handler func(payload []byte))
	Off(event string)
}

// RateAPI is the backend rate surface
type RateAPI interface {
	Live(ctx context.Context) (*LiveRates, error)
	Broadcast(ctx context.Context, input BroadcastRateInput) error
	MyRates(ctx context.Context, wholesalerID string) ([]CurrentRate, error)
	RetailerRates(ctx context.Context) ([]CurrentRate, error)
}

// UserAPI is the backend user-management surface
type UserAPI interface {
	ListByRole(ctx context.Context, role Role) ([]UserSummary, error)
	Create(ctx context.Context, input CreateUserInput) (*UserSummary, error)
	MyRetailers(ctx context.Context, wholesalerID string) ([]Retailer, error)
}

// PolicyService decides which backend operations a role may invoke
type PolicyService interface {
	Allow(role Role, resource, action string) (bool, error)
	Policies() [][]string
}

// TokenInspector performs local, signature-free token inspection. The client
// never validates signatures; it only reads the expiry claim to avoid
// restoring a session the backend would reject anyway.
type TokenInspector interface {
	Expired(token string) bool
}

// CasbinEnforcer is the subset of the Casbin enforcer the policy service needs
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
}
