package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
	"github.com/you/ratelink/internal/mocks"
)

type stubSessions struct {
	session *domain.Session
}

func (s *stubSessions) Current() *domain.Session { return s.session }

func wholesalerSession() *domain.Session {
	return &domain.Session{
		User:  &domain.User{ID: "17", Role: domain.RoleWholesaler, WholesalerID: "17"},
		Token: "bearer-token-17",
	}
}

func retailerSession() *domain.Session {
	return &domain.Session{
		User:  &domain.User{ID: "31", Role: domain.RoleRetailer, WholesalerID: "17"},
		Token: "bearer-token-31",
	}
}

func realPolicy(t *testing.T) domain.PolicyService {
	t.Helper()
	// Hand-rolled enforcement mirroring the seeded rules keeps these tests
	// independent of the casbin model file
	enforcer := mocks.NewMockCasbinEnforcer()
	enforcer.EnforceFunc = func(rvals ...interface{}) (bool, error) {
		role, _ := rvals[0].(string)
		resource, _ := rvals[1].(string)
		action, _ := rvals[2].(string)
		switch domain.Role(role) {
		case domain.RoleWholesaler:
			return resource == ResourceRates || (resource == ResourceRetailers && action == ActionRead), nil
		case domain.RoleRetailer:
			return resource == ResourceRates && action == ActionRead, nil
		case domain.RoleAdmin:
			return resource == ResourceUsers || (resource == ResourceRates && action == ActionRead), nil
		}
		return false, nil
	}
	return NewPolicyServiceWithEnforcer(enforcer)
}

func TestRateServiceImpl_LiveFetchesFromBackend(t *testing.T) {
	api := mocks.NewMockRateAPI()
	api.LiveFunc = func(ctx context.Context) (*domain.LiveRates, error) {
		return &domain.LiveRates{Gold24K: 78500, Silver: 980}, nil
	}
	svc := NewRateService(api, &stubSessions{}, realPolicy(t), nil, zap.NewNop())

	rates, err := svc.Live(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 78500.0, rates.Gold24K)
	assert.Equal(t, 980.0, rates.Silver)
}

func TestRateServiceImpl_LiveUsesRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	calls := 0
	api := mocks.NewMockRateAPI()
	api.LiveFunc = func(ctx context.Context) (*domain.LiveRates, error) {
		calls++
		return &domain.LiveRates{Gold24K: 78500}, nil
	}
	svc := NewRateService(api, &stubSessions{}, realPolicy(t), client, zap.NewNop())

	for i := 0; i < 3; i++ {
		rates, err := svc.Live(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 78500.0, rates.Gold24K)
	}
	assert.Equal(t, 1, calls, "repeated reads inside the TTL must hit the cache")

	mr.FastForward(time.Minute)
	_, err = svc.Live(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired cache must refetch")
}

func TestRateServiceImpl_LiveSurvivesCorruptCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	require.NoError(t, mr.Set("ratelink:liveRates", "{not json"))
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	api := mocks.NewMockRateAPI()
	api.LiveFunc = func(ctx context.Context) (*domain.LiveRates, error) {
		return &domain.LiveRates{Gold24K: 78500}, nil
	}
	svc := NewRateService(api, &stubSessions{}, realPolicy(t), client, zap.NewNop())

	rates, err := svc.Live(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 78500.0, rates.Gold24K)
}

func TestRateServiceImpl_BroadcastRequiresWholesaler(t *testing.T) {
	var broadcast *domain.BroadcastRateInput
	api := mocks.NewMockRateAPI()
	api.BroadcastFunc = func(ctx context.Context, input domain.BroadcastRateInput) error {
		broadcast = &input
		return nil
	}

	tests := []struct {
		name    string
		session *domain.Session
		wantErr error
	}{
		{name: "wholesaler may broadcast", session: wholesalerSession()},
		{name: "retailer may not", session: retailerSession(), wantErr: domain.ErrNotPermitted},
		{name: "unauthenticated may not", session: nil, wantErr: domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRateService(api, &stubSessions{session: tt.session}, realPolicy(t), nil, zap.NewNop())
			err := svc.Broadcast(context.Background(), 78500, "24K")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, broadcast)
			assert.Equal(t, 78500.0, broadcast.Rate)
			assert.Equal(t, "24K", broadcast.Purity)
			assert.Equal(t, "17", broadcast.WholesalerID)
		})
	}
}

func TestRateServiceImpl_MyRatesUsesSessionIdentity(t *testing.T) {
	api := mocks.NewMockRateAPI()
	api.MyRatesFunc = func(ctx context.Context, wholesalerID string) ([]domain.CurrentRate, error) {
		assert.Equal(t, "17", wholesalerID)
		return []domain.CurrentRate{{Rate: 78500, Purity: "24K", WholesalerID: wholesalerID}}, nil
	}
	svc := NewRateService(api, &stubSessions{session: wholesalerSession()}, realPolicy(t), nil, zap.NewNop())

	rates, err := svc.MyRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "24K", rates[0].Purity)
}

func TestRateServiceImpl_RetailerRates(t *testing.T) {
	api := mocks.NewMockRateAPI()
	api.RetailerRatesFunc = func(ctx context.Context) ([]domain.CurrentRate, error) {
		return []domain.CurrentRate{{Rate: 78500, Purity: "22K"}}, nil
	}

	svc := NewRateService(api, &stubSessions{session: retailerSession()}, realPolicy(t), nil, zap.NewNop())
	rates, err := svc.RetailerRates(context.Background())
	require.NoError(t, err)
	assert.Len(t, rates, 1)

	svc = NewRateService(api, &stubSessions{}, realPolicy(t), nil, zap.NewNop())
	_, err = svc.RetailerRates(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRateServiceImpl_BindAppliesRateUpdates(t *testing.T) {
	channel := mocks.NewMockRealtimeChannel()
	svc := NewRateService(mocks.NewMockRateAPI(), &stubSessions{}, realPolicy(t), nil, zap.NewNop())
	svc.Bind(channel)

	require.Nil(t, svc.LastUpdate())

	payload, err := json.Marshal(domain.RateUpdate{Rate: 79000, Purity: "24K", WholesalerID: "17"})
	require.NoError(t, err)
	require.True(t, channel.Emit(domain.EventRateUpdated, payload))

	update := svc.LastUpdate()
	require.NotNil(t, update)
	assert.Equal(t, 79000.0, update.Rate)
	assert.Equal(t, "24K", update.Purity)
}

func TestRateServiceImpl_BindIgnoresMalformedUpdates(t *testing.T) {
	channel := mocks.NewMockRealtimeChannel()
	svc := NewRateService(mocks.NewMockRateAPI(), &stubSessions{}, realPolicy(t), nil, zap.NewNop())
	svc.Bind(channel)

	require.True(t, channel.Emit(domain.EventRateUpdated, []byte("{broken")))
	assert.Nil(t, svc.LastUpdate())
}
