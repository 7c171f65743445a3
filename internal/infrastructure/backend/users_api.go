package backend

import (
	"context"
	"net/url"

	"github.com/you/ratelink/domain"
)

// UserAPIImpl implements domain.UserAPI against the admin and wholesaler
// user-management endpoints
type UserAPIImpl struct {
	gw *Gateway
}

// NewUserAPI creates the backend user-management surface
func NewUserAPI(gw *Gateway) domain.UserAPI {
	return &UserAPIImpl{gw: gw}
}

// roleListEndpoints maps a role to its admin listing endpoint
var roleListEndpoints = map[domain.Role]string{
	domain.RoleAdmin:      "listAdmins",
	domain.RoleWholesaler: "listWholesalers",
	domain.RoleRetailer:   "listRetailers",
}

// ListByRole implements domain.UserAPI
func (u *UserAPIImpl) ListByRole(ctx context.Context, role domain.Role) ([]domain.UserSummary, error) {
	endpoint, ok := roleListEndpoints[role]
	if !ok {
		return nil, domain.ErrRoleUnknown
	}
	var rows []wireUserSummary
	if err := u.gw.Get(ctx, "/api/admin/"+endpoint, &rows); err != nil {
		return nil, err
	}
	users := make([]domain.UserSummary, 0, len(rows))
	for i := range rows {
		summary, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, *summary)
	}
	return users, nil
}

type createUserResponse struct {
	Success bool            `json:"success"`
	User    wireUserSummary `json:"user"`
}

// Create implements domain.UserAPI
func (u *UserAPIImpl) Create(ctx context.Context, input domain.CreateUserInput) (*domain.UserSummary, error) {
	var resp createUserResponse
	if err := u.gw.Post(ctx, "/api/admin/createUser", input, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, domain.ErrBadPayload
	}
	return resp.User.toDomain()
}

// MyRetailers implements domain.UserAPI
func (u *UserAPIImpl) MyRetailers(ctx context.Context, wholesalerID string) ([]domain.Retailer, error) {
	path := "/api/wholesaler/myRetailers?wholesalerId=" + url.QueryEscape(wholesalerID)
	var rows []wireRetailer
	if err := u.gw.Get(ctx, path, &rows); err != nil {
		return nil, err
	}
	retailers := make([]domain.Retailer, len(rows))
	for i := range rows {
		retailers[i] = rows[i].toDomain()
	}
	return retailers, nil
}

// Compile-time interface compliance verification
var _ domain.UserAPI = (*UserAPIImpl)(nil)
