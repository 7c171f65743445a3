package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/you/ratelink/domain"
)

// RateAPIImpl implements domain.RateAPI against the backend rate endpoints
type RateAPIImpl struct {
	gw *Gateway
}

// NewRateAPI creates the backend rate surface
func NewRateAPI(gw *Gateway) domain.RateAPI {
	return &RateAPIImpl{gw: gw}
}

type liveRatesResponse struct {
	Success   bool             `json:"success"`
	Timestamp string           `json:"timestamp"`
	Rates     domain.LiveRates `json:"rates"`
}

// Live implements domain.RateAPI
func (r *RateAPIImpl) Live(ctx context.Context) (*domain.LiveRates, error) {
	var resp liveRatesResponse
	if err := r.gw.Get(ctx, "/api/liveRates", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("live rates: %w", domain.ErrBadPayload)
	}
	return &resp.Rates, nil
}

// Broadcast implements domain.RateAPI
func (r *RateAPIImpl) Broadcast(ctx context.Context, input domain.BroadcastRateInput) error {
	return r.gw.Post(ctx, "/api/wholesaler/broadcastRate", input, nil)
}

// MyRates implements domain.RateAPI
func (r *RateAPIImpl) MyRates(ctx context.Context, wholesalerID string) ([]domain.CurrentRate, error) {
	path := "/api/wholesaler/myRates?wholesalerId=" + url.QueryEscape(wholesalerID)
	var rows []wireCurrentRate
	if err := r.gw.Get(ctx, path, &rows); err != nil {
		return nil, err
	}
	rates := make([]domain.CurrentRate, len(rows))
	for i := range rows {
		rates[i] = rows[i].toDomain()
	}
	return rates, nil
}

// RetailerRates implements domain.RateAPI
func (r *RateAPIImpl) RetailerRates(ctx context.Context) ([]domain.CurrentRate, error) {
	var rows []wireCurrentRate
	if err := r.gw.Get(ctx, "/api/retailer/getGoldRates", &rows); err != nil {
		return nil, err
	}
	rates := make([]domain.CurrentRate, len(rows))
	for i := range rows {
		rates[i] = rows[i].toDomain()
	}
	return rates, nil
}

// Compile-time interface compliance verification
var _ domain.RateAPI = (*RateAPIImpl)(nil)
