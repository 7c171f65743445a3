package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
)

// memStore is a minimal in-memory plain store for gateway tests
type memStore struct {
	mu sync.Mutex
	kv map[string]string
}

func newMemStore() *memStore {
	return &memStore{kv: make(map[string]string)}
}

func (m *memStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *memStore) SaveSession(ctx context.Context, s *domain.Session) error { return nil }
func (m *memStore) LoadSession(ctx context.Context) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (m *memStore) ClearSession(ctx context.Context) error { return nil }

func newTestGateway(t *testing.T, handler http.Handler) (*Gateway, *memStore, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := newMemStore()
	gw, err := NewGateway(server.URL, 5*time.Second, store, zap.NewNop())
	require.NoError(t, err)
	return gw, store, server
}

func TestGateway_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	gw, store, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, store.Set(context.Background(), "token", "tok-123"))
	require.NoError(t, gw.Get(context.Background(), "/api/liveRates", nil))
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestGateway_NoTokenSendsUnauthenticated(t *testing.T) {
	var gotAuth string
	gw, _, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, gw.Get(context.Background(), "/api/liveRates", nil))
	assert.Empty(t, gotAuth)
}

func TestGateway_UnauthorizedFiresHandlerOnce(t *testing.T) {
	release := make(chan struct{})
	gw, _, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	}))

	var calls int32
	gw.OnUnauthorized(func() {
		atomic.AddInt32(&calls, 1)
	})

	// N concurrent requests all rejected with 401 inside the window
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = gw.Get(context.Background(), "/api/liveRates", nil)
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "logout handler must fire exactly once")
	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusUnauthorized), "original 401 must still propagate")
	}
}

func TestGateway_CooldownSuppressesRepeatTrigger(t *testing.T) {
	gw, _, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	gw.SetLogoutCooldown(time.Hour)

	var calls int32
	gw.OnUnauthorized(func() {
		atomic.AddInt32(&calls, 1)
	})

	for i := 0; i < 3; i++ {
		err := gw.Get(context.Background(), "/api/liveRates", nil)
		require.Error(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGateway_UnauthorizedDuringLogoutDoesNotDeadlock(t *testing.T) {
	gw, _, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	gw.SetLogoutCooldown(time.Hour)

	var calls int32
	gw.OnUnauthorized(func() {
		atomic.AddInt32(&calls, 1)
		// The clear sequence makes its own backend call; after a
		// server-side revocation that call is rejected too
		err := gw.Post(context.Background(), "/clear-device-token", map[string]string{"userId": "17"}, nil)
		assert.True(t, IsStatus(err, http.StatusUnauthorized))
	})

	done := make(chan error, 1)
	go func() {
		done <- gw.Get(context.Background(), "/api/liveRates", nil)
	}()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusUnauthorized))
	case <-time.After(2 * time.Second):
		t.Fatal("a 401 inside the logout handler blocked the original request")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGateway_NoHandlerRegistered(t *testing.T) {
	gw, _, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	// must not panic, error still propagates
	err := gw.Get(context.Background(), "/api/liveRates", nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestGateway_ErrorBodyMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantMessage  string
		wantConflict bool
	}{
		{
			name:         "conflict with message",
			status:       http.StatusConflict,
			body:         `{"conflict": true, "message": "another session is active"}`,
			wantMessage:  "another session is active",
			wantConflict: true,
		},
		{
			name:        "not found with error field",
			status:      http.StatusNotFound,
			body:        `{"error": "user not found"}`,
			wantMessage: "user not found",
		},
		{
			name:        "rate limited with msg field",
			status:      http.StatusTooManyRequests,
			body:        `{"msg": "slow down"}`,
			wantMessage: "slow down",
		},
		{
			name:   "garbage body",
			status: http.StatusBadGateway,
			body:   `<html>upstream error</html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			err := gw.Get(context.Background(), "/x", nil)
			require.Error(t, err)

			apiErr, ok := err.(*APIError)
			require.True(t, ok, "expected *APIError, got %T", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantConflict, apiErr.Conflict)
		})
	}
}

func TestGateway_DecodesResponse(t *testing.T) {
	gw, _, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value": "hello"}`))
	}))

	var out struct {
		Value string `json:"value"`
	}
	require.NoError(t, gw.Get(context.Background(), "/x", &out))
	assert.Equal(t, "hello", out.Value)
}
