package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// UserServiceImpl serves the user-management surface. Input validation runs
// at this boundary so malformed payloads never reach the backend; the
// backend still validates on its side.
type UserServiceImpl struct {
	api      domain.UserAPI
	sessions SessionReader
	policy   domain.PolicyService
	logger   *zap.Logger
}

// NewUserService creates the user service
func NewUserService(api domain.UserAPI, sessions SessionReader, policy domain.PolicyService, logger *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		api:      api,
		sessions: sessions,
		policy:   policy,
		logger:   logger,
	}
}

// List returns the users of the given role. Admin only.
func (u *UserServiceImpl) List(ctx context.Context, role domain.Role) ([]domain.UserSummary, error) {
	if err := u.require(ResourceUsers, ActionRead); err != nil {
		return nil, err
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return nil, err
	}
	return u.api.ListByRole(ctx, role)
}

// Create registers a new user account. Admin only.
func (u *UserServiceImpl) Create(ctx context.Context, input domain.CreateUserInput) (*domain.UserSummary, error) {
	if err := u.require(ResourceUsers, ActionWrite); err != nil {
		return nil, err
	}
	if err := validateCreateUser(input); err != nil {
		return nil, err
	}

	created, err := u.api.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	u.logger.Info("user created",
		zap.String("user_id", created.ID),
		zap.String("role", string(created.Role)))
	return created, nil
}

// MyRetailers lists the retailers linked to the calling wholesaler
func (u *UserServiceImpl) MyRetailers(ctx context.Context) ([]domain.Retailer, error) {
	session := u.sessions.Current()
	if !session.Valid() {
		return nil, domain.ErrUnauthorized
	}
	ok, err := u.policy.Allow(session.User.Role, ResourceRetailers, ActionRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotPermitted
	}
	return u.api.MyRetailers(ctx, session.User.ID)
}

func (u *UserServiceImpl) require(resource, action string) error {
	session := u.sessions.Current()
	if !session.Valid() {
		return domain.ErrUnauthorized
	}
	ok, err := u.policy.Allow(session.User.Role, resource, action)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotPermitted
	}
	return nil
}

// validateCreateUser enforces the account form rules: name at least two
// characters, exactly ten digit phone, a known role, and a wholesaler link
// for retailer accounts.
func validateCreateUser(input domain.CreateUserInput) error {
	if len(strings.TrimSpace(input.Name)) < 2 {
		return fmt.Errorf("name must be at least 2 characters: %w", domain.ErrBadPayload)
	}
	if !phonePattern.MatchString(input.Phone) {
		return fmt.Errorf("phone must be exactly 10 digits: %w", domain.ErrBadPayload)
	}
	if _, err := domain.ParseRole(string(input.Role)); err != nil {
		return err
	}
	if input.Role == domain.RoleRetailer && input.WholesalerID == "" {
		return fmt.Errorf("retailer accounts need a wholesaler: %w", domain.ErrBadPayload)
	}
	return nil
}
