package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
)

// StaticAuthenticator implements domain.BiometricAuthenticator with a fixed
// outcome. The real prompt lives in the host platform; embedders plug their
// own implementation into the container, and deployments without a
// biometric surface run with a denying authenticator so the OTP path is the
// only way in.
type StaticAuthenticator struct {
	allow  bool
	logger *zap.Logger
}

// NewStaticAuthenticator creates an authenticator that always answers the
// same way.
func NewStaticAuthenticator(allow bool, logger *zap.Logger) *StaticAuthenticator {
	return &StaticAuthenticator{allow: allow, logger: logger}
}

// Prompt implements domain.BiometricAuthenticator
func (a *StaticAuthenticator) Prompt(ctx context.Context, reason string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.logger.Debug("biometric prompt",
		zap.String("reason", reason),
		zap.Bool("allow", a.allow))
	return a.allow, nil
}

// Compile-time interface compliance verification
var _ domain.BiometricAuthenticator = (*StaticAuthenticator)(nil)
