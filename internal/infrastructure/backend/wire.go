package backend

import (
	"encoding/json"
	"time"

	"github.com/you/ratelink/domain"
)

// wireUser is the user payload as the backend sends it. Numeric and string
// ids both occur in the wild, so ids decode through json.Number. Conversion
// to the domain type validates the role and rejects malformed payloads
// instead of letting untyped data reach state.
type wireUser struct {
	ID           json.Number `json:"id"`
	Name         string      `json:"name"`
	Phone        string      `json:"phone"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	WholesalerID json.Number `json:"wholesalerId"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func (w *wireUser) toDomain() (*domain.User, error) {
	if w.ID.String() == "" {
		return nil, domain.ErrBadPayload
	}
	role, err := domain.ParseRole(w.Role)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           w.ID.String(),
		Name:         w.Name,
		Phone:        w.Phone,
		Email:        w.Email,
		Role:         role,
		WholesalerID: w.WholesalerID.String(),
		CreatedAt:    w.CreatedAt,
	}, nil
}

// wireUserSummary mirrors the admin listing rows, including the nested
// retailer link that carries the wholesaler name for retailers
type wireUserSummary struct {
	ID            json.Number `json:"id"`
	Name          string      `json:"name"`
	Mobile        string      `json:"mobile"`
	Role          string      `json:"role"`
	RetailerLinks []struct {
		Wholesaler *struct {
			Name string `json:"name"`
		} `json:"wholesaler"`
	} `json:"retailerLinks"`
}

func (w *wireUserSummary) toDomain() (*domain.UserSummary, error) {
	role, err := domain.ParseRole(w.Role)
	if err != nil {
		return nil, err
	}
	summary := &domain.UserSummary{
		ID:    w.ID.String(),
		Name:  w.Name,
		Phone: w.Mobile,
		Role:  role,
	}
	if len(w.RetailerLinks) > 0 && w.RetailerLinks[0].Wholesaler != nil {
		summary.WholesalerName = w.RetailerLinks[0].Wholesaler.Name
	}
	return summary, nil
}

// wireCurrentRate mirrors a broadcast rate row
type wireCurrentRate struct {
	ID           json.Number `json:"id"`
	Rate         float64     `json:"rate"`
	Purity       string      `json:"purity"`
	WholesalerID json.Number `json:"wholesalerId"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func (w *wireCurrentRate) toDomain() domain.CurrentRate {
	return domain.CurrentRate{
		ID:           w.ID.String(),
		Rate:         w.Rate,
		Purity:       w.Purity,
		WholesalerID: w.WholesalerID.String(),
		CreatedAt:    w.CreatedAt,
	}
}

// wireRetailer mirrors a wholesaler roster row
type wireRetailer struct {
	ID             json.Number `json:"id"`
	Name           string      `json:"name"`
	Mobile         string      `json:"mobile"`
	UserCode       string      `json:"userCode"`
	WholesalerName string      `json:"wholesalerName"`
	LinkedAt       time.Time   `json:"linkedAt"`
}

func (w *wireRetailer) toDomain() domain.Retailer {
	return domain.Retailer{
		ID:             w.ID.String(),
		Name:           w.Name,
		Phone:          w.Mobile,
		UserCode:       w.UserCode,
		WholesalerName: w.WholesalerName,
		LinkedAt:       w.LinkedAt,
	}
}
