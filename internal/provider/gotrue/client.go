// Package gotrue implements the identity-provider contract against a
// GoTrue-style auth API (Supabase and compatible). Session-change
// notifications are emitted locally on sign-in, sign-out, token refresh, and
// provider-side expiry, which is how these providers deliver auth events to
// a client.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/skorenev/ticketflow/internal/errs"
	"github.com/skorenev/ticketflow/internal/model"
)

// refreshMargin is how long before access-token expiry the refresh grant runs.
const refreshMargin = 30 * time.Second

// Client talks to a GoTrue auth endpoint and owns the persisted session.
type Client struct {
	baseURL string
	anonKey string
	httpc   *http.Client
	logger  *zap.Logger

	mu      sync.Mutex
	current *model.Session
	subs    map[int]func(*model.Session)
	nextSub int
	timer   *time.Timer
}

// New constructs a Client for the given project URL and anon API key.
func New(baseURL, anonKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
		subs:    make(map[int]func(*model.Session)),
	}
}

// ---- wire types ----

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	User         apiUser `json:"user"`
}

type apiUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

type apiError struct {
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e apiError) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	}
	return "request rejected"
}

// ---- IdentityProvider ----

// SignIn performs the password grant and establishes a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var out tokenResponse
	if err := c.post(ctx, "/auth/v1/token", url.Values{"grant_type": {"password"}}, "", body, &out); err != nil {
		return nil, mapAuthErr(err, errs.ErrInvalidCredentials)
	}
	s := c.sessionFromToken(out)
	c.establish(s)
	return snapshot(s), nil
}

// SignUp requests account creation with an email-verification callback.
// Success returns no session: the provider confirms via a later notification
// once the address is verified.
func (c *Client) SignUp(ctx context.Context, email, password, fullName, redirectTo string) error {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	if err := c.post(ctx, "/auth/v1/signup", q, "", body, nil); err != nil {
		return mapAuthErr(err, errs.ErrSignupRejected)
	}
	return nil
}

// SignOut revokes the session server-side and always clears local state.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	bearer := ""
	if c.current != nil {
		bearer = c.current.AccessToken
	}
	c.mu.Unlock()

	var err error
	if bearer != "" {
		err = c.post(ctx, "/auth/v1/logout", nil, bearer, struct{}{}, nil)
	}
	c.clear()
	if err != nil {
		return mapAuthErr(err, errs.ErrProviderUnavailable)
	}
	return nil
}

// RestoreSession loads the persisted session. An expired session with a
// refresh token is exchanged; otherwise it is dropped.
func (c *Client) RestoreSession(ctx context.Context) (*model.Session, error) {
	s, err := loadSession()
	if err != nil {
		return nil, nil // no persisted session
	}
	if s.Expired() {
		if s.RefreshToken == "" {
			removeSession()
			return nil, nil
		}
		s, err = c.refreshGrant(ctx, s.RefreshToken)
		if err != nil {
			removeSession()
			return nil, nil
		}
	}
	c.establishQuiet(s)
	return snapshot(s), nil
}

// OnSessionChange registers a session-change callback and returns its cancel.
func (c *Client) OnSessionChange(fn func(*model.Session)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close stops the refresh timer. The persisted session stays for the next run.
func (c *Client) Close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}

// ---- session lifecycle ----

func (c *Client) sessionFromToken(t tokenResponse) *model.Session {
	// Read expiry from the unverified JWT claims; validation is the
	// provider's job. Fall back to expires_in.
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(t.AccessToken, &claims, func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	exp := time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return &model.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    exp,
		User: model.User{
			ID:       uuid.FromStringOrNil(t.User.ID),
			Email:    t.User.Email,
			FullName: t.User.UserMetadata.FullName,
		},
	}
}

// establish persists the session, schedules refresh, and notifies listeners.
func (c *Client) establish(s *model.Session) {
	if err := saveSession(s); err != nil {
		c.logger.Warn("persist session failed", zap.Error(err))
	}
	c.mu.Lock()
	c.current = s
	c.scheduleRefreshLocked(s)
	fns := listeners(c.subs)
	c.mu.Unlock()
	notify(fns, s)
}

// establishQuiet is establish without notification, used by restore: the
// caller routes the returned session through its own transition function.
func (c *Client) establishQuiet(s *model.Session) {
	if err := saveSession(s); err != nil {
		c.logger.Warn("persist session failed", zap.Error(err))
	}
	c.mu.Lock()
	c.current = s
	c.scheduleRefreshLocked(s)
	c.mu.Unlock()
}

// clear drops local session state and notifies listeners with nil.
func (c *Client) clear() {
	removeSession()
	c.mu.Lock()
	c.current = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	fns := listeners(c.subs)
	c.mu.Unlock()
	notify(fns, nil)
}

func (c *Client) scheduleRefreshLocked(s *model.Session) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if s.RefreshToken == "" || s.ExpiresAt.IsZero() {
		return
	}
	d := time.Until(s.ExpiresAt) - refreshMargin
	if d < time.Second {
		d = time.Second
	}
	refresh := s.RefreshToken
	c.timer = time.AfterFunc(d, func() { c.autoRefresh(refresh) })
}

// autoRefresh exchanges the refresh token before expiry. Failure counts as
// provider-side expiry and ends the session.
func (c *Client) autoRefresh(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s, err := c.refreshGrant(ctx, refreshToken)
	if err != nil {
		c.logger.Warn("token refresh failed, session expired", zap.Error(err))
		c.clear()
		return
	}
	c.establish(s)
}

func (c *Client) refreshGrant(ctx context.Context, refreshToken string) (*model.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var out tokenResponse
	if err := c.post(ctx, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}}, "", body, &out); err != nil {
		return nil, err
	}
	return c.sessionFromToken(out), nil
}

// ---- http plumbing ----

// httpError carries the status and provider message for kind mapping.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("provider responded %d: %s", e.status, e.message)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, bearer string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ae apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(raw, &ae)
		return &httpError{status: resp.StatusCode, message: ae.text()}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// mapAuthErr converts transport/status failures into tagged auth errors.
// Client errors get the operation's rejection kind with the provider message;
// everything else is ProviderUnavailable.
func mapAuthErr(err error, rejectedKind error) error {
	if he, ok := err.(*httpError); ok {
		if he.status >= 400 && he.status < 500 {
			return errs.Auth(rejectedKind, he.message)
		}
		return errs.Auth(errs.ErrProviderUnavailable, he.message)
	}
	return errs.Auth(errs.ErrProviderUnavailable, err.Error())
}

func listeners(subs map[int]func(*model.Session)) []func(*model.Session) {
	fns := make([]func(*model.Session), 0, len(subs))
	for _, fn := range subs {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(*model.Session), s *model.Session) {
	for _, fn := range fns {
		fn(snapshot(s))
	}
}

func snapshot(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
