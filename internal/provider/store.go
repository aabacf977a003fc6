package provider

import (
	"context"

	"github.com/skorenev/ticketflow/internal/model"
)

// EventStore is the opaque queryable record store for catalog data.
type EventStore interface {
	// ListEvents returns all events ordered by event date ascending, with a
	// stable tie-break on insertion order for equal dates.
	ListEvents(ctx context.Context) ([]model.Event, error)

	// ListTicketTypes returns the full unfiltered ticket type set.
	ListTicketTypes(ctx context.Context) ([]model.TicketType, error)
}
