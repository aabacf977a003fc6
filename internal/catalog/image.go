package catalog

import "github.com/skorenev/ticketflow/internal/model"

// imageIndex derives a stable pool index from an event id. The accumulator is
// an order-sensitive 31x hash wrapped to signed 32-bit range at each step;
// the result is normalized so negative hashes still land in the pool.
func imageIndex(id string) int {
	var h int32
	for _, r := range id {
		h = h*31 + int32(r)
	}
	n := int32(len(imagePool))
	return int((h%n + n) % n)
}

// PoolImage returns the pool entry for an event id. Pure: the same id always
// resolves to the same entry, within a run and across runs.
func PoolImage(id string) string {
	return imagePool[imageIndex(id)]
}

// ResolveImage returns the event's explicit image when set, otherwise a
// deterministic pool image derived from its id.
func ResolveImage(ev model.Event) string {
	if ev.ImageURL != "" {
		return ev.ImageURL
	}
	return PoolImage(ev.ID)
}
