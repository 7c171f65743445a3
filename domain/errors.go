package domain

import "errors"

// Authentication errors
var (
	ErrNoPendingPhone = errors.New("no pending phone number for otp verification")
	ErrBadPayload     = errors.New("malformed backend payload")
	ErrOTPRejected    = errors.New("otp verification rejected")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotPermitted   = errors.New("operation not permitted for role")
	ErrRoleUnknown    = errors.New("unknown role")
)

// Session store errors
var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrSessionNotFound = errors.New("no stored session")
	ErrStoreCorrupt    = errors.New("stored session is corrupt")
)

// Token errors
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Realtime channel errors
var (
	ErrChannelClosed     = errors.New("realtime channel is closed")
	ErrAlreadyConnected  = errors.New("realtime channel already connected")
	ErrBiometricDisabled = errors.New("biometric unlock not enabled")
)
