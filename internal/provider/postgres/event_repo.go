package postgres

import (
	"context"

	"github.com/skorenev/ticketflow/internal/model"
)

// EventRepo implements the event store contract using PostgreSQL. All access
// is read-only: catalog rows are written by an external management process.
type EventRepo struct{ db *DB }

// NewEventRepo constructs an event repository.
func NewEventRepo(db *DB) *EventRepo { return &EventRepo{db: db} }

// ListEvents returns all events ordered by event date ascending. created_at
// and id keep the order stable for equal dates.
func (r *EventRepo) ListEvents(ctx context.Context) ([]model.Event, error) {
	const q = `
SELECT id::text, title, event_date, start_time::text, end_time::text,
       location, COALESCE(description, ''), COALESCE(image_url, '')
FROM events
ORDER BY event_date ASC, created_at ASC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var ev model.Event
		if err = rows.Scan(&ev.ID, &ev.Title, &ev.EventDate, &ev.StartTime, &ev.EndTime,
			&ev.Location, &ev.Description, &ev.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListTicketTypes returns the full unfiltered ticket type set.
func (r *EventRepo) ListTicketTypes(ctx context.Context) ([]model.TicketType, error) {
	const q = `
SELECT id::text, name, price, available_quantity, event_id::text
FROM ticket_types`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TicketType
	for rows.Next() {
		var t model.TicketType
		if err = rows.Scan(&t.ID, &t.Name, &t.Price, &t.Quantity, &t.EventID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
