// Package provider defines collaborator contracts implemented by concrete backends.
package provider

import (
	"context"

	"github.com/skorenev/ticketflow/internal/model"
)

// IdentityProvider is the opaque auth collaborator. Implementations own
// credential handling and session persistence; this client only consumes
// session values.
type IdentityProvider interface {
	// SignIn authenticates with email/password and returns the new session.
	SignIn(ctx context.Context, email, password string) (*model.Session, error)

	// SignUp requests account creation with a callback address for email
	// verification. Success does not imply an active session.
	SignUp(ctx context.Context, email, password, fullName, redirectTo string) error

	// SignOut invalidates the current session on the provider side.
	SignOut(ctx context.Context) error

	// RestoreSession returns the persisted session, or nil when none is valid.
	RestoreSession(ctx context.Context) (*model.Session, error)

	// OnSessionChange registers a callback fired with the new session (or nil)
	// on every auth event. The returned func cancels the subscription.
	OnSessionChange(fn func(*model.Session)) (cancel func())
}
