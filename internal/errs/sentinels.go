// Package errs contains sentinel errors and tagged failure types used across layers.
package errs

import (
	"errors"
	"fmt"
)

// Auth failure kinds. A failed auth call never changes session state.
var (
	// ErrInvalidCredentials indicates a rejected sign-in (wrong email/password).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSignupRejected indicates the provider refused account creation
	// (duplicate email, weak password, ...).
	ErrSignupRejected = errors.New("signup rejected")

	// ErrProviderUnavailable indicates the identity provider could not be reached
	// or answered with a server-side failure.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Catalog failure kinds. Either fetch failing surfaces as a single load failure.
var (
	// ErrEventsFetch indicates the event listing query failed.
	ErrEventsFetch = errors.New("events fetch failed")

	// ErrTicketsFetch indicates the ticket type listing query failed.
	ErrTicketsFetch = errors.New("ticket types fetch failed")
)

// ErrUnauthenticated indicates an operation that requires an active session.
var ErrUnauthenticated = errors.New("unauthenticated")

// AuthError is a tagged auth failure: a kind sentinel plus the human-readable
// provider message for inline display. It unwraps to its kind so callers can
// use errors.Is against the sentinels above.
type AuthError struct {
	Kind    error
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *AuthError) Unwrap() error { return e.Kind }

// Auth builds a tagged auth failure.
func Auth(kind error, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// LoadError is the aggregate catalog load failure: the failing sub-query kind
// plus the underlying provider error.
type LoadError struct {
	Kind error
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog load failed: %s: %v", e.Kind.Error(), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Kind }
