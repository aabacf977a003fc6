// Package model defines domain entities shared by the session and catalog layers.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User is the account the identity provider bound to the current session.
// Immutable for the session's lifetime.
type User struct {
	ID       uuid.UUID // issued by the provider
	Email    string
	FullName string // optional display name
}

// Session is an authenticated context: opaque tokens plus the owning user.
// At most one session is active per client process.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry
	User         User
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Event is a catalog record. Read-only from this client's perspective;
// rows are created by an external management process.
type Event struct {
	ID          string
	Title       string
	EventDate   time.Time // calendar date
	StartTime   string
	EndTime     string
	Location    string
	Description string // optional
	ImageURL    string // optional; empty means a pool image is derived from ID
}

// TicketType is one priced tier of an event.
type TicketType struct {
	ID       string
	Name     string
	Price    float64 // non-negative
	Quantity int     // available quantity, non-negative
	EventID  string  // reference to Event.ID; dangling refs are skipped during aggregation
}

// CatalogEntry is the derived, per-fetch view of one event.
// Never persisted; rebuilt on every refresh.
type CatalogEntry struct {
	Event       Event
	LowestPrice *float64 // nil when no ticket type references the event
	Image       string   // explicit ImageURL or a deterministic pool image
}

// Feed is the composed view-model handed to the presentation layer.
type Feed struct {
	Featured *CatalogEntry  // first combined entry; nil when the feed is empty
	Popular  []CatalogEntry // remainder of the combined sequence
	Loading  bool
	Empty    bool // explicit empty-state signal for presentation
}
