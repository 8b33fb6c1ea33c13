package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thoughttotable/backend/internal/domain"
)

func sampleCandidates() []domain.MatchCandidate {
	return []domain.MatchCandidate{
		{ProductID: "p1", Title: "Whole Milk", MatchScore: 0.92},
		{ProductID: "p2", Title: "2% Milk", MatchScore: 0.61},
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		c := NewMemoryCache()

		if err := c.Set(ctx, "search:whole milk", sampleCandidates(), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}

		got, err := c.Get(ctx, "search:whole milk")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got) != 2 || got[0].ProductID != "p1" {
			t.Errorf("Get = %v, want sample candidates", got)
		}
	})

	t.Run("missing key is a cache miss", func(t *testing.T) {
		c := NewMemoryCache()

		_, err := c.Get(ctx, "search:nothing")
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("expired entry is a cache miss", func(t *testing.T) {
		c := NewMemoryCache()

		if err := c.Set(ctx, "search:eggs", sampleCandidates(), 10*time.Millisecond); err != nil {
			t.Fatalf("Set: %v", err)
		}
		time.Sleep(20 * time.Millisecond)

		if _, err := c.Get(ctx, "search:eggs"); !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("error = %v, want ErrCacheMiss after TTL", err)
		}
		if exists, _ := c.Exists(ctx, "search:eggs"); exists {
			t.Error("Exists = true for expired entry")
		}
	})

	t.Run("callers cannot mutate cached data", func(t *testing.T) {
		c := NewMemoryCache()

		original := sampleCandidates()
		if err := c.Set(ctx, "search:milk", original, time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
		original[0].Title = "mutated after set"

		first, err := c.Get(ctx, "search:milk")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		first[0].Title = "mutated after get"

		second, err := c.Get(ctx, "search:milk")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if second[0].Title != "Whole Milk" {
			t.Errorf("cached Title = %q, want %q", second[0].Title, "Whole Milk")
		}
	})

	t.Run("delete removes the key", func(t *testing.T) {
		c := NewMemoryCache()

		_ = c.Set(ctx, "search:milk", sampleCandidates(), time.Minute)
		if err := c.Delete(ctx, "search:milk"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := c.Get(ctx, "search:milk"); !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("error = %v, want ErrCacheMiss after delete", err)
		}
	})

	t.Run("size and clear", func(t *testing.T) {
		c := NewMemoryCache()

		_ = c.Set(ctx, "a", sampleCandidates(), time.Minute)
		_ = c.Set(ctx, "b", sampleCandidates(), time.Minute)
		if c.Size() != 2 {
			t.Errorf("Size = %d, want 2", c.Size())
		}

		c.Clear()
		if c.Size() != 0 {
			t.Errorf("Size after Clear = %d, want 0", c.Size())
		}
	})
}
