package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
)

const (
	liveRatesCacheKey = "ratelink:liveRates"
	liveRatesCacheTTL = 30 * time.Second
)

// SessionReader exposes the active session to feature services
type SessionReader interface {
	Current() *domain.Session
}

// RateServiceImpl serves the metal rate surface. It keeps the latest
// realtime push in memory and, when a redis client is configured, caches
// the live snapshot there so kiosk fleets share one backend fetch.
type RateServiceImpl struct {
	api      domain.RateAPI
	sessions SessionReader
	policy   domain.PolicyService
	redis    *redis.Client
	logger   *zap.Logger

	mu         sync.Mutex
	lastUpdate *domain.RateUpdate
}

// NewRateService creates the rate service. The redis client is optional;
// nil disables the shared cache.
func NewRateService(api domain.RateAPI, sessions SessionReader, policy domain.PolicyService, redisClient *redis.Client, logger *zap.Logger) *RateServiceImpl {
	return &RateServiceImpl{
		api:      api,
		sessions: sessions,
		policy:   policy,
		redis:    redisClient,
		logger:   logger,
	}
}

// Bind subscribes the service to realtime rate pushes. The handler runs on
// the channel read pump and only takes the snapshot lock.
func (r *RateServiceImpl) Bind(channel domain.RealtimeChannel) {
	channel.On(domain.EventRateUpdated, func(payload []byte) {
		var update domain.RateUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			r.logger.Warn("dropping malformed rate update", zap.Error(err))
			return
		}
		r.mu.Lock()
		r.lastUpdate = &update
		r.mu.Unlock()
		r.logger.Debug("rate update applied",
			zap.Float64("rate", update.Rate),
			zap.String("purity", update.Purity))
	})
}

// LastUpdate returns the most recent realtime rate push, or nil if none
// arrived yet
func (r *RateServiceImpl) LastUpdate() *domain.RateUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUpdate
}

// Live fetches the live rate snapshot, going through the shared redis cache
// when one is configured. Cache failures fall back to the backend.
func (r *RateServiceImpl) Live(ctx context.Context) (*domain.LiveRates, error) {
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, liveRatesCacheKey).Result(); err == nil {
			var rates domain.LiveRates
			if err := json.Unmarshal([]byte(cached), &rates); err == nil {
				return &rates, nil
			}
			r.logger.Warn("discarding corrupt cached rates")
		}
	}

	rates, err := r.api.Live(ctx)
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(rates); err == nil {
			if err := r.redis.Set(ctx, liveRatesCacheKey, data, liveRatesCacheTTL).Err(); err != nil {
				r.logger.Warn("failed to cache live rates", zap.Error(err))
			}
		}
	}
	return rates, nil
}

// Broadcast publishes a wholesaler rate. Only wholesalers may call it.
func (r *RateServiceImpl) Broadcast(ctx context.Context, rate float64, purity string) error {
	session := r.sessions.Current()
	if !session.Valid() {
		return domain.ErrUnauthorized
	}
	if err := r.require(session.User.Role, ResourceRates, ActionWrite); err != nil {
		return err
	}

	return r.api.Broadcast(ctx, domain.BroadcastRateInput{
		Rate:         rate,
		Purity:       purity,
		WholesalerID: session.User.ID,
	})
}

// MyRates lists the calling wholesaler's published rates
func (r *RateServiceImpl) MyRates(ctx context.Context) ([]domain.CurrentRate, error) {
	session := r.sessions.Current()
	if !session.Valid() {
		return nil, domain.ErrUnauthorized
	}
	if err := r.require(session.User.Role, ResourceRates, ActionWrite); err != nil {
		return nil, err
	}
	return r.api.MyRates(ctx, session.User.ID)
}

// RetailerRates lists the rates visible to the calling retailer
func (r *RateServiceImpl) RetailerRates(ctx context.Context) ([]domain.CurrentRate, error) {
	session := r.sessions.Current()
	if !session.Valid() {
		return nil, domain.ErrUnauthorized
	}
	if err := r.require(session.User.Role, ResourceRates, ActionRead); err != nil {
		return nil, err
	}
	return r.api.RetailerRates(ctx)
}

func (r *RateServiceImpl) require(role domain.Role, resource, action string) error {
	ok, err := r.policy.Allow(role, resource, action)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotPermitted
	}
	return nil
}
