package domain

// Realtime channel events pushed by the backend
const (
	// EventForceLogout instructs the client to destroy its session. It has
	// no payload; arrival while unauthenticated is a no-op.
	EventForceLogout = "force_logout"

	// EventRateUpdated carries a RateUpdate payload for the dashboards
	EventRateUpdated = "rateUpdated"
)

// LogoutReason records which of the three triggers initiated a logout
type LogoutReason string

const (
	LogoutUser         LogoutReason = "USER"
	LogoutForced       LogoutReason = "FORCED"
	LogoutUnauthorized LogoutReason = "UNAUTHORIZED"
)

// AuthEvent is published to subscribers whenever the authentication state
// transitions. Consumers receive a snapshot, never live state.
type AuthEvent struct {
	Authenticated bool
	Session       *Session
	Reason        LogoutReason
}
