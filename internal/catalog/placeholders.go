package catalog

import (
	"strings"
	"time"

	"github.com/skorenev/ticketflow/internal/model"
)

// PlaceholderPrefix is the reserved id prefix distinguishing synthetic
// padding events from real ones. Placeholders have no backing ticket types.
const PlaceholderPrefix = "placeholder-"

// imagePool is the fixed ordered list of bundled artwork used for events
// without an explicit image. Order matters: the image hash indexes into it.
var imagePool = []string{
	"/assets/placeholders/event-01.jpg",
	"/assets/placeholders/event-02.jpg",
	"/assets/placeholders/event-03.jpg",
	"/assets/placeholders/event-04.jpg",
	"/assets/placeholders/event-05.jpg",
	"/assets/placeholders/event-06.jpg",
	"/assets/placeholders/event-07.jpg",
	"/assets/placeholders/event-08.jpg",
}

// placeholderEvents is the fixed set of synthetic records used to pad sparse
// feeds, in declaration order. Constant for the process lifetime.
var placeholderEvents = []model.Event{
	{
		ID:          PlaceholderPrefix + "summer-beats",
		Title:       "Summer Beats Festival",
		EventDate:   time.Date(2026, time.July, 18, 0, 0, 0, 0, time.UTC),
		StartTime:   "16:00",
		EndTime:     "23:00",
		Location:    "Harbour Park",
		Description: "An open-air festival lineup announcement is on the way.",
	},
	{
		ID:          PlaceholderPrefix + "city-comedy",
		Title:       "City Comedy Night",
		EventDate:   time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC),
		StartTime:   "20:00",
		EndTime:     "22:30",
		Location:    "Downtown Theatre",
		Description: "Stand-up showcase with a rotating local lineup.",
	},
	{
		ID:          PlaceholderPrefix + "food-fair",
		Title:       "Street Food Fair",
		EventDate:   time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
		StartTime:   "11:00",
		EndTime:     "18:00",
		Location:    "Riverside Market",
		Description: "Vendors and live music along the riverside.",
	},
	{
		ID:          PlaceholderPrefix + "indie-showcase",
		Title:       "Indie Artist Showcase",
		EventDate:   time.Date(2026, time.September, 5, 0, 0, 0, 0, time.UTC),
		StartTime:   "19:00",
		EndTime:     "23:00",
		Location:    "The Attic",
		Description: "Four up-and-coming acts, one stage.",
	},
}

// IsPlaceholder reports whether the event id belongs to the synthetic set.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// Placeholders returns a copy of the synthetic event set in declaration order.
func Placeholders() []model.Event {
	return append([]model.Event(nil), placeholderEvents...)
}
