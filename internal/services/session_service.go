package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/you/ratelink/domain"
)

// AuthState is a snapshot of the authentication state machine. Callers get
// copies; the live struct never leaves the service.
type AuthState struct {
	Authenticated   bool
	CheckingSession bool
	LoadingAPICall  bool
	OTPSent         bool
	PendingPhone    string
	Conflict        bool
	ConflictMessage string
	BiometricFailed bool
	HasLoggedOut    bool
	Session         *domain.Session
}

// SessionServiceImpl owns the authentication state machine. Every mutation
// happens under mu; the generation counter invalidates in-flight login
// results that a logout overtook. The realtime channel lifecycle is bound
// here and nowhere else: connect on login, disconnect on logout.
type SessionServiceImpl struct {
	store     domain.SessionStore
	secure    domain.SecureStore
	authAPI   domain.AuthAPI
	devices   domain.DeviceRegistrar
	channel   domain.RealtimeChannel
	biometric domain.BiometricAuthenticator
	inspector domain.TokenInspector
	logger    *zap.Logger

	mu       sync.Mutex
	state    AuthState
	gen      uint64
	restored bool

	flight     singleflight.Group
	loggingOut atomic.Bool

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(domain.AuthEvent)
}

// NewSessionService creates the session service
func NewSessionService(
	store domain.SessionStore,
	secure domain.SecureStore,
	authAPI domain.AuthAPI,
	devices domain.DeviceRegistrar,
	channel domain.RealtimeChannel,
	biometric domain.BiometricAuthenticator,
	inspector domain.TokenInspector,
	logger *zap.Logger,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		store:     store,
		secure:    secure,
		authAPI:   authAPI,
		devices:   devices,
		channel:   channel,
		biometric: biometric,
		inspector: inspector,
		logger:    logger,
		subs:      make(map[int]func(domain.AuthEvent)),
	}
}

// State returns a snapshot of the current authentication state
func (s *SessionServiceImpl) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the active session, or nil when unauthenticated
func (s *SessionServiceImpl) Current() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Session
}

// Subscribe registers an observer for authentication transitions. The
// returned function removes it. Observers are called synchronously after the
// state lock is released; they must not call back into the service from the
// same goroutine while a transition is still publishing.
func (s *SessionServiceImpl) Subscribe(fn func(domain.AuthEvent)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *SessionServiceImpl) publish(event domain.AuthEvent) {
	s.subMu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// RequestOTP asks the backend to send an OTP to the phone. A session
// conflict is reported in the result, not as an error, and leaves the
// pending phone untouched; the caller decides whether to re-request with
// force. Any other backend failure is returned as an error.
func (s *SessionServiceImpl) RequestOTP(ctx context.Context, phone string, force bool) (*domain.OTPResult, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	result, err := s.authAPI.RequestOTP(ctx, phone, force)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if result.Conflict {
		s.state.Conflict = true
		s.state.ConflictMessage = result.Message
		s.state.OTPSent = false
	} else {
		s.state.Conflict = false
		s.state.ConflictMessage = ""
		s.state.OTPSent = true
		s.state.PendingPhone = phone
	}
	s.mu.Unlock()

	return result, nil
}

// VerifyOTP exchanges the code for a session. The session is persisted to
// both stores before the authenticated flag flips. A logout that completes
// while the verification is in flight wins: the late success is discarded.
func (s *SessionServiceImpl) VerifyOTP(ctx context.Context, otp string) (*domain.Session, error) {
	s.mu.Lock()
	phone := s.state.PendingPhone
	startGen := s.gen
	s.mu.Unlock()

	if phone == "" {
		return nil, domain.ErrNoPendingPhone
	}

	s.setLoading(true)
	defer s.setLoading(false)

	session, err := s.authAPI.VerifyOTP(ctx, phone, otp)
	if err != nil {
		return nil, err
	}

	session, err = s.completeLogin(ctx, session, startGen)
	if err != nil {
		return nil, err
	}

	// A fresh code-based login supersedes any earlier biometric denial
	s.mu.Lock()
	s.state.BiometricFailed = false
	s.mu.Unlock()
	return session, nil
}

// LoginWithBiometric attempts re-entry via the encrypted credential store.
// Failure and cancellation collapse into a single false outcome; the
// authenticated flag is never touched on that path.
func (s *SessionServiceImpl) LoginWithBiometric(ctx context.Context) (bool, error) {
	enabled, err := s.secure.BiometricEnabled(ctx)
	if err != nil || !enabled {
		return false, domain.ErrBiometricDisabled
	}

	s.mu.Lock()
	startGen := s.gen
	s.mu.Unlock()

	s.setLoading(true)
	defer s.setLoading(false)

	ok, err := s.biometric.Prompt(ctx, "Unlock your session")
	if err != nil || !ok {
		s.mu.Lock()
		s.state.BiometricFailed = true
		s.mu.Unlock()
		return false, nil
	}

	session, err := s.secure.LoadCredentials(ctx)
	if err != nil {
		s.logger.Warn("biometric unlock found no usable credentials", zap.Error(err))
		s.mu.Lock()
		s.state.BiometricFailed = true
		s.mu.Unlock()
		return false, nil
	}

	if s.inspector.Expired(session.Token) {
		s.logger.Info("stored credentials expired, biometric unlock rejected")
		s.mu.Lock()
		s.state.BiometricFailed = true
		s.mu.Unlock()
		return false, nil
	}

	if _, err := s.completeLogin(ctx, session, startGen); err != nil {
		return false, err
	}
	s.mu.Lock()
	s.state.BiometricFailed = false
	s.mu.Unlock()
	return true, nil
}

func (s *SessionServiceImpl) setLoading(v bool) {
	s.mu.Lock()
	s.state.LoadingAPICall = v
	s.mu.Unlock()
}

// completeLogin persists the session, flips the state under the generation
// guard and brings the realtime channel up. Store write failures are logged
// and swallowed so the flag still flips.
func (s *SessionServiceImpl) completeLogin(ctx context.Context, session *domain.Session, startGen uint64) (*domain.Session, error) {
	if !session.Valid() {
		return nil, domain.ErrBadPayload
	}

	// Do not write stores a concurrent logout may have just cleared
	s.mu.Lock()
	stale := s.gen != startGen
	s.mu.Unlock()
	if stale {
		s.logger.Warn("discarding login result superseded by a concurrent transition")
		return nil, fmt.Errorf("login superseded: %w", domain.ErrUnauthorized)
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		s.logger.Error("failed to persist session", zap.Error(err))
	}
	if err := s.secure.SaveCredentials(ctx, session); err != nil {
		s.logger.Error("failed to persist secure credentials", zap.Error(err))
	}

	s.mu.Lock()
	if s.gen != startGen {
		s.mu.Unlock()
		// the persisted writes raced a logout; put the stores back
		if err := s.store.ClearSession(ctx); err != nil {
			s.logger.Error("failed to clear superseded session", zap.Error(err))
		}
		if err := s.secure.Clear(ctx); err != nil {
			s.logger.Error("failed to clear superseded credentials", zap.Error(err))
		}
		s.logger.Warn("discarding login result superseded by a concurrent transition")
		return nil, fmt.Errorf("login superseded: %w", domain.ErrUnauthorized)
	}
	s.gen++
	s.state.Authenticated = true
	s.state.Session = session
	s.state.OTPSent = false
	s.state.PendingPhone = ""
	s.state.Conflict = false
	s.state.ConflictMessage = ""
	// BiometricFailed is left alone: a login reached through the plain-store
	// restore fallback must keep the denial visible to the caller
	s.state.HasLoggedOut = false
	s.mu.Unlock()

	s.publish(domain.AuthEvent{Authenticated: true, Session: session})

	s.attachChannel(ctx, session.Token)

	if err := s.devices.Register(ctx, session.User.ID); err != nil {
		s.logger.Warn("device registration failed", zap.Error(err))
	}

	s.logger.Info("session established",
		zap.String("user_id", session.User.ID),
		zap.String("role", string(session.User.Role)))
	return session, nil
}

// Logout destroys the session. It is idempotent and safe to call from any
// trigger; concurrent callers share one clear sequence.
func (s *SessionServiceImpl) Logout(ctx context.Context) error {
	return s.logout(ctx, domain.LogoutUser)
}

// OnUnauthorized is the HTTP 401 trigger. Wired to the gateway's
// unauthorized handler by the container.
func (s *SessionServiceImpl) OnUnauthorized() {
	if err := s.logout(context.Background(), domain.LogoutUnauthorized); err != nil {
		s.logger.Error("unauthorized logout failed", zap.Error(err))
	}
}

func (s *SessionServiceImpl) logout(ctx context.Context, reason domain.LogoutReason) error {
	// A trigger fired from inside the running clear sequence, such as the
	// device clear coming back 401 after a server-side revocation, must not
	// wait on the flight it is already part of.
	if s.loggingOut.Load() {
		return nil
	}
	_, err, _ := s.flight.Do("logout", func() (interface{}, error) {
		s.loggingOut.Store(true)
		defer s.loggingOut.Store(false)
		s.runLogout(ctx, reason)
		return nil, nil
	})
	return err
}

// runLogout executes the clear sequence exactly once per flight. The state
// flip happens before the channel closes so observers of HasLoggedOut never
// see a still-open channel.
func (s *SessionServiceImpl) runLogout(ctx context.Context, reason domain.LogoutReason) {
	s.mu.Lock()
	if !s.state.Authenticated && s.state.HasLoggedOut {
		// Already torn down; a repeat call must not clear the stores again
		s.mu.Unlock()
		return
	}
	session := s.state.Session
	s.mu.Unlock()

	if session != nil && session.User != nil {
		if err := s.devices.Clear(ctx, session.User.ID); err != nil {
			s.logger.Warn("device token clear failed", zap.Error(err))
		}
	}

	if err := s.store.ClearSession(ctx); err != nil {
		s.logger.Error("failed to clear session store", zap.Error(err))
	}
	if err := s.secure.Clear(ctx); err != nil {
		s.logger.Error("failed to clear secure store", zap.Error(err))
	}

	s.mu.Lock()
	s.gen++
	s.state.Authenticated = false
	s.state.Session = nil
	s.state.OTPSent = false
	s.state.PendingPhone = ""
	s.state.HasLoggedOut = true
	s.mu.Unlock()

	s.publish(domain.AuthEvent{Authenticated: false, Reason: reason})

	s.detachChannel()

	s.logger.Info("session destroyed", zap.String("reason", string(reason)))
}

// Restore replays a persisted session at startup. One-shot: repeated calls
// are no-ops. The checking flag is cleared exactly once on every path.
func (s *SessionServiceImpl) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return nil
	}
	s.restored = true
	s.state.CheckingSession = true
	startGen := s.gen
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state.CheckingSession = false
		s.mu.Unlock()
	}()

	if enabled, err := s.secure.BiometricEnabled(ctx); err == nil && enabled {
		ok, err := s.LoginWithBiometric(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		// fall through to the plain store; a failed prompt must not eat a
		// valid plain session
	}

	session, err := s.store.LoadSession(ctx)
	if err != nil {
		if err == domain.ErrSessionNotFound || err == domain.ErrStoreCorrupt {
			s.logger.Info("no restorable session", zap.Error(err))
			return nil
		}
		return fmt.Errorf("restore: %w", err)
	}

	if s.inspector.Expired(session.Token) {
		s.logger.Info("stored session expired, discarding")
		if err := s.store.ClearSession(ctx); err != nil {
			s.logger.Warn("failed to clear expired session", zap.Error(err))
		}
		return nil
	}

	_, err = s.completeLogin(ctx, session, startGen)
	return err
}

// attachChannel binds the realtime connection to the authenticated session.
// The force_logout handler hops off the read pump before calling Logout so
// the disconnect inside the clear sequence cannot deadlock the pump.
func (s *SessionServiceImpl) attachChannel(ctx context.Context, token string) {
	s.channel.SetToken(token)
	s.channel.On(domain.EventForceLogout, func([]byte) {
		s.logger.Warn("force logout received")
		go func() {
			if err := s.logout(context.Background(), domain.LogoutForced); err != nil {
				s.logger.Error("forced logout failed", zap.Error(err))
			}
		}()
	})
	if err := s.channel.Connect(ctx); err != nil {
		s.logger.Error("realtime channel connect failed", zap.Error(err))
	}
}

func (s *SessionServiceImpl) detachChannel() {
	s.channel.Off(domain.EventForceLogout)
	if err := s.channel.Disconnect(); err != nil {
		s.logger.Warn("realtime channel disconnect failed", zap.Error(err))
	}
}
