package catalog

import (
	"testing"

	"github.com/skorenev/ticketflow/internal/model"
)

func TestImageIndex_KnownValue(t *testing.T) {
	t.Parallel()
	// h("e1") = 'e'*31 + '1' = 101*31 + 49 = 3180; 3180 mod 8 = 4.
	if got := imageIndex("e1"); got != 4 {
		t.Fatalf("imageIndex(e1): want 4, got %d", got)
	}
}

func TestPoolImage_PureAndStable(t *testing.T) {
	t.Parallel()
	ids := []string{
		"e1",
		"9b2f0c7e-4a1d-4f7a-8c55-1d2e3f405060",
		PlaceholderPrefix + "summer-beats",
		"",
	}
	for _, id := range ids {
		first := PoolImage(id)
		for i := 0; i < 5; i++ {
			if PoolImage(id) != first {
				t.Fatalf("PoolImage(%q) not stable across calls", id)
			}
		}
	}
}

func TestImageIndex_AlwaysInPoolRange(t *testing.T) {
	t.Parallel()
	// Long ids overflow the 32-bit accumulator into negative territory; the
	// index must still land inside the pool.
	ids := []string{
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
		"event-with-a-very-long-identifier-that-wraps-the-hash-0123456789",
		"ID-ÜNICODE-événement",
	}
	for _, id := range ids {
		idx := imageIndex(id)
		if idx < 0 || idx >= len(imagePool) {
			t.Fatalf("imageIndex(%q) = %d out of pool range", id, idx)
		}
	}
}

func TestResolveImage_ExplicitURLWins(t *testing.T) {
	t.Parallel()
	ev := model.Event{ID: "e1", ImageURL: "https://cdn.example.com/jazz.jpg"}
	if got := ResolveImage(ev); got != ev.ImageURL {
		t.Fatalf("explicit image_url must win, got %s", got)
	}
	ev.ImageURL = ""
	if got := ResolveImage(ev); got != imagePool[4] {
		t.Fatalf("fallback must come from the pool by hash, got %s", got)
	}
}
