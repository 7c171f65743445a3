package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
)

// defaultLogoutCooldown suppresses 401 logout triggers for a short window
// after a logout completed. The window is configurable; nothing depends on
// its exact length because the dispatching guard already drops triggers
// that arrive while the handler is running.
const defaultLogoutCooldown = 2 * time.Second

// APIError is a non-2xx backend response
type APIError struct {
	Status   int
	Message  string
	Conflict bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Gateway is the single outbound HTTP client. Every request carries the
// current bearer token read from the plain store; any 401 response fires
// the registered unauthorized handler exactly once per logout and then
// propagates to the caller unchanged.
type Gateway struct {
	base   *url.URL
	client *http.Client
	store  domain.SessionStore
	logger *zap.Logger

	dispatching atomic.Bool
	cooldown    time.Duration

	mu             sync.Mutex
	onUnauthorized func()
	lastLogout     time.Time
}

// NewGateway creates the outbound HTTP gateway
func NewGateway(baseURL string, timeout time.Duration, store domain.SessionStore, logger *zap.Logger) (*Gateway, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	return &Gateway{
		base:     base,
		client:   &http.Client{Timeout: timeout},
		store:    store,
		logger:   logger,
		cooldown: defaultLogoutCooldown,
	}, nil
}

// OnUnauthorized registers the single logout handler invoked on 401
// responses. At most one handler is active; registering replaces it.
func (g *Gateway) OnUnauthorized(fn func()) {
	g.mu.Lock()
	g.onUnauthorized = fn
	g.mu.Unlock()
}

// SetLogoutCooldown overrides the post-logout suppression window
func (g *Gateway) SetLogoutCooldown(d time.Duration) {
	g.mu.Lock()
	g.cooldown = d
	g.mu.Unlock()
}

// Get performs a GET request and decodes the JSON response into out
func (g *Gateway) Get(ctx context.Context, path string, out interface{}) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body
func (g *Gateway) Post(ctx context.Context, path string, body, out interface{}) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

// Do performs a request against the backend. A token present in the plain
// store is attached as a bearer header; no token sends the request
// unauthenticated and lets the server decide.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.resolve(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := g.currentToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	apiErr := decodeAPIError(resp)
	if resp.StatusCode == http.StatusUnauthorized {
		g.fireUnauthorized()
	}
	return apiErr
}

func (g *Gateway) resolve(path string) string {
	return strings.TrimRight(g.base.String(), "/") + "/" + strings.TrimLeft(path, "/")
}

func (g *Gateway) currentToken(ctx context.Context) string {
	token, err := g.store.Get(ctx, "token")
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			g.logger.Warn("failed to read token from store", zap.Error(err))
		}
		return ""
	}
	return token
}

// fireUnauthorized funnels concurrent 401 responses into a single handler
// invocation. Triggers that arrive while the handler is already running are
// dropped rather than queued: the logout sequence makes its own backend
// calls, and once the server side has revoked the session those come back
// 401 on the very goroutine running the handler. The cooldown window absorbs
// stragglers that land just after a logout finished.
func (g *Gateway) fireUnauthorized() {
	g.mu.Lock()
	fn := g.onUnauthorized
	cooldown := g.cooldown
	sinceLast := time.Since(g.lastLogout)
	g.mu.Unlock()

	if fn == nil || sinceLast < cooldown {
		return
	}

	if !g.dispatching.CompareAndSwap(false, true) {
		return
	}
	defer g.dispatching.Store(false)

	// Re-check after winning the guard: a trigger that raced past the first
	// check while another finished the logout must not fire a second one.
	g.mu.Lock()
	since := time.Since(g.lastLogout)
	g.mu.Unlock()
	if since < cooldown {
		return
	}
	fn()
	g.mu.Lock()
	g.lastLogout = time.Now()
	g.mu.Unlock()
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message  string `json:"message"`
		Error    string `json:"error"`
		Msg      string `json:"msg"`
		Conflict bool   `json:"conflict"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return apiErr
	}
	apiErr.Conflict = payload.Conflict
	switch {
	case payload.Message != "":
		apiErr.Message = payload.Message
	case payload.Error != "":
		apiErr.Message = payload.Error
	default:
		apiErr.Message = payload.Msg
	}
	return apiErr
}
