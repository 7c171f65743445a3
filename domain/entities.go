package domain

import "time"

// Role identifies what a user is allowed to do on the rate service
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleWholesaler Role = "WHOLESALER"
	RoleRetailer   Role = "RETAILER"
)

// ParseRole validates a role string received from the backend
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleWholesaler, RoleRetailer:
		return Role(s), nil
	}
	return "", ErrRoleUnknown
}

// User represents the authenticated account as returned by the backend
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role"`
	WholesalerID string    `json:"wholesalerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// Session is the authenticated session. It is always replaced whole: created
// by OTP verification or biometric unlock, destroyed by logout.
type Session struct {
	User  *User
	Token string
}

// Valid reports whether the session carries enough data to be usable
func (s *Session) Valid() bool {
	return s != nil && s.User != nil && s.User.ID != "" && s.User.Role != "" && s.Token != ""
}

// OTPInfo carries the optional debug OTP echoed by non-production backends
type OTPInfo struct {
	OTP string `json:"otp,omitempty"`
}

// OTPResult is the tagged outcome of an OTP request. A conflict means the
// backend detected another active session for the phone; it never carries a
// token and the caller must explicitly re-request with force to proceed.
type OTPResult struct {
	Sent     bool
	Conflict bool
	Message  string
	Info     *OTPInfo
}

// CreateUserInput is the admin user-creation payload
type CreateUserInput struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Role         Role   `json:"role"`
	WholesalerID string `json:"wholesalerId,omitempty"`
}

// UserSummary is a row in the admin user listings
type UserSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"mobile"`
	Role           Role   `json:"role"`
	WholesalerName string `json:"wholesalerName,omitempty"`
}

// Retailer is a row in a wholesaler's retailer roster
type Retailer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"mobile"`
	UserCode       string    `json:"userCode,omitempty"`
	WholesalerName string    `json:"wholesalerName,omitempty"`
	LinkedAt       time.Time `json:"linkedAt,omitempty"`
}

// LiveRates is the full metal rate snapshot
type LiveRates struct {
	Gold24K      float64 `json:"goldPrice24K"`
	Gold24K995   float64 `json:"goldPrice24K995"`
	Gold24K995GW float64 `json:"goldPrice24K995GW"`
	Gold22K      float64 `json:"goldPrice22K"`
	Gold18K      float64 `json:"goldPrice18K"`
	Gold14K      float64 `json:"goldPrice14K"`
	Silver       float64 `json:"silverPrice"`
	SilverBar    float64 `json:"silverBarPrice"`
	Platinum     float64 `json:"platinumPrice"`
}

// CurrentRate is a single broadcast rate as published by a wholesaler
type CurrentRate struct {
	ID           string    `json:"id,omitempty"`
	Rate         float64   `json:"rate"`
	Purity       string    `json:"purity"`
	WholesalerID string    `json:"wholesalerId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BroadcastRateInput is a wholesaler's outbound rate publication
type BroadcastRateInput struct {
	Rate         float64 `json:"rate"`
	Purity       string  `json:"purity"`
	WholesalerID string  `json:"wholesalerId"`
}

// RateUpdate is the payload of a realtime rate push
type RateUpdate struct {
	Rate         float64   `json:"rate"`
	Purity       string    `json:"purity"`
	WholesalerID string    `json:"wholesalerId"`
	Timestamp    time.Time `json:"timestamp"`
}
