package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/you/ratelink/domain"
)

// JWTInspectorImpl implements domain.TokenInspector. Tokens are issued and
// signed by the backend; the client never holds the signing key, so claims
// are read without signature verification. The only question answered here
// is whether a stored token is already past its expiry and a restored
// session should be discarded instead of replayed.
type JWTInspectorImpl struct {
	clock  func() time.Time
	leeway time.Duration
}

// NewJWTInspector creates a token inspector. Leeway is subtracted from the
// expiry so a token about to lapse is treated as already expired.
func NewJWTInspector(leeway time.Duration) *JWTInspectorImpl {
	return &JWTInspectorImpl{clock: time.Now, leeway: leeway}
}

// Expired implements domain.TokenInspector. Tokens that cannot be parsed or
// carry no exp claim are reported as not expired; the backend remains the
// authority and rejects them with 401 if they are bad.
func (j *JWTInspectorImpl) Expired(token string) bool {
	if token == "" {
		return true
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return j.clock().Add(j.leeway).After(exp.Time)
}

// Compile-time interface compliance verification
var _ domain.TokenInspector = (*JWTInspectorImpl)(nil)
