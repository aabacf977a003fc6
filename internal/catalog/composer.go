// Package catalog aggregates events and ticket prices into the searchable feed.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/skorenev/ticketflow/internal/errs"
	"github.com/skorenev/ticketflow/internal/model"
	"github.com/skorenev/ticketflow/internal/provider"
)

// SessionSource is the slice of the session manager the composer depends on.
// Satisfied by *session.Manager.
type SessionSource interface {
	// Current returns a snapshot of the active session, or nil.
	Current() *model.Session
	// Subscribe registers fn for session transitions; returns a cancel func.
	Subscribe(fn func(*model.Session)) (cancel func())
}

// Notifier delivers a user-facing notification. Called exactly once per
// failed fetch attempt, never once per failed sub-query.
type Notifier func(message string, err error)

// Composer owns the catalog view-model: it fetches raw records while a
// session exists, aggregates prices, filters by query, and pads sparse
// results with the fixed placeholder set.
type Composer struct {
	store    provider.EventStore
	sessions SessionSource
	notify   Notifier
	logger   *zap.Logger

	// minFeedSize is the padding activation threshold: placeholders are
	// appended when the filtered real set is smaller. Zero disables padding.
	minFeedSize int

	mu       sync.Mutex
	inflight bool
	loading  bool
	events   []model.Event
	tickets  map[string][]model.TicketType
	query    string

	cancelSub func()
}

// NewComposer constructs a Composer. notify may be nil.
func NewComposer(store provider.EventStore, sessions SessionSource, minFeedSize int, notify Notifier, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = func(string, error) {}
	}
	return &Composer{
		store:       store,
		sessions:    sessions,
		notify:      notify,
		logger:      logger,
		minFeedSize: minFeedSize,
		tickets:     map[string][]model.TicketType{},
	}
}

// Start subscribes to session transitions: entering Authenticated opens the
// fetch gate and triggers a refresh, entering Unauthenticated discards the
// cached view-model so the next authentication re-fetches from empty state.
func (c *Composer) Start(ctx context.Context) {
	c.cancelSub = c.sessions.Subscribe(func(s *model.Session) {
		if s == nil {
			c.reset()
			return
		}
		go func() {
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("refresh after authentication failed", zap.Error(err))
			}
		}()
	})
}

// Close cancels the session subscription.
func (c *Composer) Close() {
	if c.cancelSub != nil {
		c.cancelSub()
		c.cancelSub = nil
	}
}

// Refresh runs the fetch-aggregate pipeline. It never queries the store while
// unauthenticated, and re-entrant calls while a fetch is in flight coalesce
// to the single outstanding request. A failed fetch keeps the previous
// view-model and fires one notification.
func (c *Composer) Refresh(ctx context.Context) error {
	if c.sessions.Current() == nil {
		return errs.ErrUnauthenticated
	}

	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		return nil
	}
	c.inflight = true
	c.loading = true
	c.mu.Unlock()

	events, tickets, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = false
	c.loading = false

	if err != nil {
		// Stale-but-present: prior successful state stays visible.
		c.logger.Error("catalog load failed", zap.Error(err))
		c.notify("Failed to load events", err)
		return err
	}
	if c.sessions.Current() == nil {
		// Session ended mid-flight; the results are discarded.
		return nil
	}
	c.events = events
	c.tickets = GroupByEvent(tickets)
	return nil
}

func (c *Composer) fetch(ctx context.Context) ([]model.Event, []model.TicketType, error) {
	events, err := c.store.ListEvents(ctx)
	if err != nil {
		return nil, nil, &errs.LoadError{Kind: errs.ErrEventsFetch, Err: err}
	}
	tickets, err := c.store.ListTicketTypes(ctx)
	if err != nil {
		return nil, nil, &errs.LoadError{Kind: errs.ErrTicketsFetch, Err: err}
	}
	return events, tickets, nil
}

// reset discards the cached view-model.
func (c *Composer) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.tickets = map[string][]model.TicketType{}
	c.query = ""
}

// SetQuery updates the search query. Filtering is pure and re-evaluated on
// every Feed call, so no refetch happens here.
func (c *Composer) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.mu.Unlock()
}

// Feed composes the current view-model: filtered real events first in fetched
// order, placeholders appended after filtering when the real set is sparse,
// featured = first combined entry. Placeholders bypass search on purpose:
// they exist to keep the feed populated, not to match queries.
func (c *Composer) Feed() model.Feed {
	c.mu.Lock()
	events := c.events
	tickets := c.tickets
	query := c.query
	loading := c.loading
	c.mu.Unlock()

	filtered := FilterEvents(events, query)
	combined := filtered
	if c.minFeedSize > 0 && len(filtered) < c.minFeedSize {
		combined = append(append([]model.Event(nil), filtered...), placeholderEvents...)
	}

	entries := make([]model.CatalogEntry, 0, len(combined))
	for _, ev := range combined {
		entry := model.CatalogEntry{Event: ev, Image: ResolveImage(ev)}
		if p, ok := LowestPrice(tickets, ev.ID); ok {
			price := p
			entry.LowestPrice = &price
		}
		entries = append(entries, entry)
	}

	feed := model.Feed{Loading: loading}
	if len(entries) == 0 {
		feed.Empty = true
		return feed
	}
	feed.Featured = &entries[0]
	feed.Popular = entries[1:]
	return feed
}

// GroupByEvent maps ticket types by event id. Events with no ticket types are
// simply absent as keys; LowestPrice treats absence and emptiness alike.
func GroupByEvent(tickets []model.TicketType) map[string][]model.TicketType {
	grouped := make(map[string][]model.TicketType, len(tickets))
	for _, t := range tickets {
		grouped[t.EventID] = append(grouped[t.EventID], t)
	}
	return grouped
}

// LowestPrice returns the minimum ticket price for an event id. ok is false
// when no ticket type references the id; the price is then "to be announced"
// and must never enter arithmetic as zero.
func LowestPrice(grouped map[string][]model.TicketType, eventID string) (float64, bool) {
	group := grouped[eventID]
	if len(group) == 0 {
		return 0, false
	}
	min := group[0].Price
	for _, t := range group[1:] {
		if t.Price < min {
			min = t.Price
		}
	}
	return min, true
}

// PriceLabel renders an entry's price: "$25.00" style, or the literal "TBA"
// when no ticket type backs the event.
func PriceLabel(e model.CatalogEntry) string {
	if e.LowestPrice == nil {
		return "TBA"
	}
	return fmt.Sprintf("$%.2f", *e.LowestPrice)
}

// FilterEvents retains events whose title or location contains the
// case-folded query as a substring. The empty query retains all events.
func FilterEvents(events []model.Event, query string) []model.Event {
	if query == "" {
		return append([]model.Event(nil), events...)
	}
	q := strings.ToLower(query)
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Title), q) ||
			strings.Contains(strings.ToLower(ev.Location), q) {
			out = append(out, ev)
		}
	}
	return out
}
