package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skorenev/ticketflow/internal/errs"
	"github.com/skorenev/ticketflow/internal/model"
	"github.com/skorenev/ticketflow/internal/provider"
)

type fakeIdentity struct {
	mu sync.Mutex

	signInOut  *model.Session
	signInErr  error
	signUpErr  error
	signOutErr error
	restoreOut *model.Session
	restoreErr error

	// restoreGate, when set, blocks RestoreSession until closed.
	restoreGate chan struct{}

	signUpEmail    string
	signUpName     string
	signUpRedirect string
	signOutCalls   int

	fn func(*model.Session)
}

var _ provider.IdentityProvider = (*fakeIdentity)(nil)

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*model.Session, error) {
	return f.signInOut, f.signInErr
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _, fullName, redirectTo string) error {
	f.mu.Lock()
	f.signUpEmail, f.signUpName, f.signUpRedirect = email, fullName, redirectTo
	f.mu.Unlock()
	return f.signUpErr
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	f.mu.Unlock()
	return f.signOutErr
}

func (f *fakeIdentity) RestoreSession(context.Context) (*model.Session, error) {
	if f.restoreGate != nil {
		<-f.restoreGate
	}
	return f.restoreOut, f.restoreErr
}

func (f *fakeIdentity) OnSessionChange(fn func(*model.Session)) func() {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.fn = nil
		f.mu.Unlock()
	}
}

// push simulates a provider-side auth event.
func (f *fakeIdentity) push(s *model.Session) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func sessionWithToken(tok string) *model.Session {
	return &model.Session{
		AccessToken: tok,
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        model.User{Email: "user@example.com"},
	}
}

func TestManager_Start_RestoresPersistedSession(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{restoreOut: sessionWithToken("tok-1")}
	m := NewManager(p, "", nil)
	defer m.Close()

	<-m.Start(context.Background())

	if m.State() != Authenticated {
		t.Fatalf("want Authenticated after restore, got %s", m.State())
	}
	s := m.Current()
	if s == nil || s.User.Email != "user@example.com" {
		t.Fatalf("unexpected session: %+v", s)
	}

	// Current returns a snapshot: mutating it must not leak back.
	s.AccessToken = "mutated"
	if m.Current().AccessToken != "tok-1" {
		t.Fatalf("snapshot mutation leaked into manager state")
	}
}

func TestManager_Start_NoPersistedSession(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{}
	m := NewManager(p, "", nil)
	defer m.Close()

	<-m.Start(context.Background())

	if m.State() != Unauthenticated {
		t.Fatalf("want Unauthenticated, got %s", m.State())
	}
	if m.Current() != nil {
		t.Fatalf("want nil session")
	}
}

func TestManager_Apply_IdempotentAcrossProducers(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	s := sessionWithToken("tok-race")
	p := &fakeIdentity{restoreOut: s, restoreGate: gate}
	m := NewManager(p, "", nil)
	defer m.Close()

	var mu sync.Mutex
	var notifications int
	m.Subscribe(func(*model.Session) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	done := m.Start(context.Background())

	// Live notification lands first, then the restore check resolves with the
	// same session value. The repeated application must be a no-op.
	p.push(s)
	close(gate)
	<-done

	mu.Lock()
	defer mu.Unlock()
	if notifications != 1 {
		t.Fatalf("want exactly 1 notification, got %d", notifications)
	}
	if m.State() != Authenticated {
		t.Fatalf("want Authenticated, got %s", m.State())
	}
}

func TestManager_SignIn_Success(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{signInOut: sessionWithToken("tok-in")}
	m := NewManager(p, "", nil)

	if err := m.SignIn(context.Background(), "user@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if m.State() != Authenticated {
		t.Fatalf("want Authenticated after sign-in")
	}
}

func TestManager_SignIn_FailureStaysUnauthenticated(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{signInErr: errs.Auth(errs.ErrInvalidCredentials, "Invalid login credentials")}
	m := NewManager(p, "", nil)

	err := m.SignIn(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	var ae *errs.AuthError
	if !errors.As(err, &ae) || ae.Message != "Invalid login credentials" {
		t.Fatalf("provider message not preserved: %v", err)
	}
	if m.State() != Unauthenticated {
		t.Fatalf("failed sign-in must leave machine Unauthenticated")
	}
}

func TestManager_SignIn_UntaggedErrorBecomesProviderError(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{signInErr: errors.New("connection refused")}
	m := NewManager(p, "", nil)

	err := m.SignIn(context.Background(), "user@example.com", "pw")
	if !errors.Is(err, errs.ErrProviderUnavailable) {
		t.Fatalf("want ErrProviderUnavailable, got %v", err)
	}
}

func TestManager_SignIn_EmptyInputRejectedLocally(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{}
	m := NewManager(p, "", nil)

	if err := m.SignIn(context.Background(), "", ""); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials on empty input, got %v", err)
	}
}

func TestManager_SignUp_DoesNotAssumeSession(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{}
	m := NewManager(p, "https://app.example.com/dashboard", nil)

	if err := m.SignUp(context.Background(), "new@example.com", "pw", "New User"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	// A later session notification confirms activation; until then the
	// machine stays put.
	if m.State() != Unauthenticated {
		t.Fatalf("sign-up success must not transition to Authenticated")
	}
	if p.signUpRedirect != "https://app.example.com/dashboard" {
		t.Fatalf("verification redirect not forwarded: %q", p.signUpRedirect)
	}
	if p.signUpName != "New User" {
		t.Fatalf("full name not forwarded: %q", p.signUpName)
	}
}

func TestManager_SignUp_Rejected(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{signUpErr: errs.Auth(errs.ErrSignupRejected, "User already registered")}
	m := NewManager(p, "", nil)

	err := m.SignUp(context.Background(), "dup@example.com", "pw", "")
	if !errors.Is(err, errs.ErrSignupRejected) {
		t.Fatalf("want ErrSignupRejected, got %v", err)
	}
}

func TestManager_SignOut_LocalFirstOnProviderError(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{restoreOut: sessionWithToken("tok-out"), signOutErr: errors.New("network down")}
	m := NewManager(p, "", nil)
	defer m.Close()
	<-m.Start(context.Background())

	var got []*model.Session
	var mu sync.Mutex
	m.Subscribe(func(s *model.Session) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	err := m.SignOut(context.Background())
	if err == nil {
		t.Fatalf("want provider error surfaced")
	}
	if m.State() != Unauthenticated {
		t.Fatalf("sign-out must force Unauthenticated even when the provider call errors")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != nil {
		t.Fatalf("want one nil notification, got %v", got)
	}
	if p.signOutCalls != 1 {
		t.Fatalf("provider sign-out not attempted")
	}
}

func TestManager_Subscribe_CancelStopsDelivery(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{}
	m := NewManager(p, "", nil)
	defer m.Close()
	<-m.Start(context.Background())

	var mu sync.Mutex
	var n int
	cancel := m.Subscribe(func(*model.Session) {
		mu.Lock()
		n++
		mu.Unlock()
	})

	p.push(sessionWithToken("a"))
	cancel()
	p.push(sessionWithToken("b"))

	mu.Lock()
	defer mu.Unlock()
	if n != 1 {
		t.Fatalf("want 1 delivery before cancel, got %d", n)
	}
}

func TestManager_Close_UnsubscribesProvider(t *testing.T) {
	t.Parallel()
	p := &fakeIdentity{}
	m := NewManager(p, "", nil)
	<-m.Start(context.Background())

	m.Close()
	// The provider callback is gone: no transition can fire after teardown.
	p.push(sessionWithToken("late"))
	if m.State() != Unauthenticated {
		t.Fatalf("transition fired after Close")
	}
}
