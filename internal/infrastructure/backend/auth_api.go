package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/you/ratelink/domain"
)

// AuthAPIImpl implements domain.AuthAPI against the backend OTP endpoints
type AuthAPIImpl struct {
	gw *Gateway
}

// NewAuthAPI creates the backend auth surface
func NewAuthAPI(gw *Gateway) domain.AuthAPI {
	return &AuthAPIImpl{gw: gw}
}

type sendOTPRequest struct {
	Mobile string `json:"mobile"`
	Force  bool   `json:"force,omitempty"`
}

type sendOTPResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Info    *domain.OTPInfo `json:"info"`
}

type verifyOTPRequest struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type verifyOTPResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	User    wireUser `json:"user"`
}

// RequestOTP implements domain.AuthAPI. A 409 response with a conflict body
// becomes the typed conflict result; every other failure is returned as an
// error for the caller to present.
func (a *AuthAPIImpl) RequestOTP(ctx context.Context, phone string, force bool) (*domain.OTPResult, error) {
	var resp sendOTPResponse
	err := a.gw.Post(ctx, "/api/auth/send-otp", sendOTPRequest{Mobile: phone, Force: force}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && apiErr.Conflict {
			return &domain.OTPResult{Conflict: true, Message: apiErr.Message}, nil
		}
		return nil, err
	}
	if !resp.Success {
		return nil, domain.ErrOTPRejected
	}
	return &domain.OTPResult{Sent: true, Message: resp.Msg, Info: resp.Info}, nil
}

// VerifyOTP implements domain.AuthAPI
func (a *AuthAPIImpl) VerifyOTP(ctx context.Context, phone, otp string) (*domain.Session, error) {
	var resp verifyOTPResponse
	if err := a.gw.Post(ctx, "/api/auth/verify-otp", verifyOTPRequest{Mobile: phone, OTP: otp}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Token == "" {
		return nil, domain.ErrOTPRejected
	}
	user, err := resp.User.toDomain()
	if err != nil {
		return nil, err
	}
	return &domain.Session{User: user, Token: resp.Token}, nil
}

// Compile-time interface compliance verification
var _ domain.AuthAPI = (*AuthAPIImpl)(nil)
