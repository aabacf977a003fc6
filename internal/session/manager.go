// Package session owns the authentication state machine gating catalog access.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/skorenev/ticketflow/internal/errs"
	"github.com/skorenev/ticketflow/internal/model"
	"github.com/skorenev/ticketflow/internal/provider"
)

// State is the session machine state. There is no intermediate
// "authenticating" state: auth calls resolve directly into one of the two.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Manager is the single writer of the current-session value. Other components
// read it only via snapshot or subscription.
type Manager struct {
	provider       provider.IdentityProvider
	verifyRedirect string
	logger         *zap.Logger

	mu      sync.Mutex
	current *model.Session
	subs    map[int]func(*model.Session)
	nextSub int

	cancelProv func()
}

// NewManager constructs a Manager. verifyRedirect is the callback address
// handed to the provider on sign-up for email verification.
func NewManager(p provider.IdentityProvider, verifyRedirect string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		provider:       p,
		verifyRedirect: verifyRedirect,
		logger:         logger,
		subs:           make(map[int]func(*model.Session)),
	}
}

// Start registers the standing session-change subscription and kicks off the
// one-time restoration query. The two race; both funnel into apply, which is
// idempotent, so the final observed state is whichever resolves last. The
// returned channel closes once the restoration check has resolved.
func (m *Manager) Start(ctx context.Context) <-chan struct{} {
	m.cancelProv = m.provider.OnSessionChange(m.apply)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.restore(ctx)
	}()
	return done
}

// restore performs the one-time persisted-session check.
func (m *Manager) restore(ctx context.Context) {
	s, err := m.provider.RestoreSession(ctx)
	if err != nil {
		m.logger.Warn("session restore failed", zap.Error(err))
		return
	}
	m.apply(s)
}

// apply is the single transition function fed by the restore check, the live
// provider subscription, and auth mutations. Repeated application of the same
// session value is a no-op (no state write, no subscriber fan-out).
func (m *Manager) apply(s *model.Session) {
	m.mu.Lock()
	switch {
	case s == nil && m.current == nil:
		m.mu.Unlock()
		return
	case s != nil && m.current != nil && s.AccessToken == m.current.AccessToken:
		m.mu.Unlock()
		return
	}
	m.current = s
	fns := make([]func(*model.Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	if s == nil {
		m.logger.Info("session cleared")
	} else {
		m.logger.Info("session established", zap.String("user", s.User.Email))
	}
	for _, fn := range fns {
		fn(snapshot(s))
	}
}

// SignIn authenticates with the provider. On failure the machine stays
// Unauthenticated and the tagged failure is returned for inline display; no
// retry is attempted.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errs.Auth(errs.ErrInvalidCredentials, "email and password are required")
	}
	s, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		m.logger.Info("sign-in rejected", zap.String("email", email), zap.Error(err))
		return tagged(err)
	}
	m.apply(s)
	return nil
}

// SignUp requests account creation. Success does not imply an active session:
// the provider may require email verification first, so the machine only
// transitions when a subsequent session notification confirms it.
func (m *Manager) SignUp(ctx context.Context, email, password, fullName string) error {
	if email == "" || password == "" {
		return errs.Auth(errs.ErrSignupRejected, "email and password are required")
	}
	if err := m.provider.SignUp(ctx, email, password, fullName, m.verifyRedirect); err != nil {
		m.logger.Info("sign-up rejected", zap.String("email", email), zap.Error(err))
		return tagged(err)
	}
	return nil
}

// SignOut requests provider-side invalidation, then unconditionally
// transitions to Unauthenticated regardless of the network outcome. The
// returned error reports the provider failure for logging only.
func (m *Manager) SignOut(ctx context.Context) error {
	err := m.provider.SignOut(ctx)
	if err != nil {
		m.logger.Warn("provider sign-out failed, clearing local session anyway", zap.Error(err))
	}
	m.apply(nil)
	if err != nil {
		return tagged(err)
	}
	return nil
}

// Current returns a value snapshot of the active session, or nil.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.current)
}

// State reports the machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return Authenticated
	}
	return Unauthenticated
}

// Subscribe registers fn to be called with a session snapshot on every
// transition. The returned func cancels the subscription.
func (m *Manager) Subscribe(fn func(*model.Session)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close unsubscribes from provider notifications so no transition fires after
// teardown.
func (m *Manager) Close() {
	if m.cancelProv != nil {
		m.cancelProv()
		m.cancelProv = nil
	}
	m.mu.Lock()
	m.subs = make(map[int]func(*model.Session))
	m.mu.Unlock()
}

// tagged guarantees the error crossing the gate boundary carries a kind.
func tagged(err error) error {
	var ae *errs.AuthError
	if errors.As(err, &ae) {
		return err
	}
	return errs.Auth(errs.ErrProviderUnavailable, err.Error())
}

func snapshot(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
