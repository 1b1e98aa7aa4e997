package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vitrineapp/vitrine/internal/errx"
)

/***************
 * Mocks
 ***************/

// mockRepository implements Repository for testing. Inserted events are
// appended, never replaced, mirroring the real table.
type mockRepository struct {
	insertFunc   func(ctx context.Context, event Event) error
	statsForFunc func(ctx context.Context, token string) (Stats, error)

	inserted []Event
}

func (m *mockRepository) Insert(ctx context.Context, event Event) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, event)
	}
	m.inserted = append(m.inserted, event)
	return nil
}

func (m *mockRepository) StatsFor(ctx context.Context, token string) (Stats, error) {
	if m.statsForFunc != nil {
		return m.statsForFunc(ctx, token)
	}
	return Stats{}, nil
}

func TestService_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("records a visit", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo, nil)

		err := svc.Record(ctx, Event{Token: "tok", Kind: KindVisit})
		if err != nil {
			t.Fatalf("Record() unexpected error: %v", err)
		}
		if len(repo.inserted) != 1 {
			t.Fatalf("inserted = %d events, want 1", len(repo.inserted))
		}
		if repo.inserted[0].OccurredAt.IsZero() {
			t.Error("event not timestamped")
		}
	})

	t.Run("records a click with slug", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo, nil)

		err := svc.Record(ctx, Event{Token: "tok", Kind: KindClick, TemplateSlug: "fashion/elegance"})
		if err != nil {
			t.Fatalf("Record() unexpected error: %v", err)
		}
		if repo.inserted[0].TemplateSlug != "fashion/elegance" {
			t.Errorf("slug = %q, want fashion/elegance", repo.inserted[0].TemplateSlug)
		}
	})

	t.Run("click without slug is Invalid", func(t *testing.T) {
		svc := NewService(&mockRepository{}, nil)

		err := svc.Record(ctx, Event{Token: "tok", Kind: KindClick})
		if errx.KindOf(err) != errx.Invalid {
			t.Errorf("KindOf() = %v, want Invalid", errx.KindOf(err))
		}
	})

	t.Run("stray slug on a visit is dropped, not rejected", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo, nil)

		err := svc.Record(ctx, Event{Token: "tok", Kind: KindVisit, TemplateSlug: "fashion/elegance"})
		if err != nil {
			t.Fatalf("Record() unexpected error: %v", err)
		}
		if repo.inserted[0].TemplateSlug != "" {
			t.Errorf("slug = %q, want empty on a visit", repo.inserted[0].TemplateSlug)
		}
	})

	t.Run("unknown kind is Invalid", func(t *testing.T) {
		svc := NewService(&mockRepository{}, nil)

		err := svc.Record(ctx, Event{Token: "tok", Kind: "hover"})
		if errx.KindOf(err) != errx.Invalid {
			t.Errorf("KindOf() = %v, want Invalid", errx.KindOf(err))
		}
	})

	t.Run("empty token is Invalid", func(t *testing.T) {
		svc := NewService(&mockRepository{}, nil)

		err := svc.Record(ctx, Event{Kind: KindVisit})
		if errx.KindOf(err) != errx.Invalid {
			t.Errorf("KindOf() = %v, want Invalid", errx.KindOf(err))
		}
	})

	t.Run("duplicates append, never overwrite", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo, nil)

		events := []Event{
			{Token: "tok", Kind: KindVisit},
			{Token: "tok", Kind: KindClick, TemplateSlug: "a"},
			{Token: "tok", Kind: KindClick, TemplateSlug: "b"},
		}
		for _, e := range events {
			if err := svc.Record(ctx, e); err != nil {
				t.Fatalf("Record() unexpected error: %v", err)
			}
		}
		if len(repo.inserted) != 3 {
			t.Errorf("inserted = %d events, want exactly 3", len(repo.inserted))
		}
	})

	t.Run("uses injected clock", func(t *testing.T) {
		repo := &mockRepository{}
		fixed := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
		svc := NewService(repo, &ServiceConfig{Now: func() time.Time { return fixed }})

		if err := svc.Record(ctx, Event{Token: "tok", Kind: KindVisit}); err != nil {
			t.Fatalf("Record() unexpected error: %v", err)
		}
		if !repo.inserted[0].OccurredAt.Equal(fixed) {
			t.Errorf("OccurredAt = %v, want %v", repo.inserted[0].OccurredAt, fixed)
		}
	})

	t.Run("propagates store failure for the handler to swallow", func(t *testing.T) {
		repo := &mockRepository{
			insertFunc: func(ctx context.Context, event Event) error {
				return errx.E("tracking.repo.Insert", errx.Unavailable, errors.New("down"))
			},
		}
		svc := NewService(repo, nil)

		err := svc.Record(ctx, Event{Token: "tok", Kind: KindVisit})
		if errx.KindOf(err) != errx.Unavailable {
			t.Errorf("KindOf() = %v, want Unavailable", errx.KindOf(err))
		}
	})
}

func TestService_StatsFor(t *testing.T) {
	ctx := context.Background()

	t.Run("returns aggregates", func(t *testing.T) {
		repo := &mockRepository{
			statsForFunc: func(ctx context.Context, token string) (Stats, error) {
				return Stats{Visits: 4, Clicks: 2, ClicksBySlug: map[string]int64{"a": 2}}, nil
			},
		}
		svc := NewService(repo, nil)

		stats, err := svc.StatsFor(ctx, "tok")
		if err != nil {
			t.Fatalf("StatsFor() unexpected error: %v", err)
		}
		if stats.Visits != 4 || stats.Clicks != 2 {
			t.Errorf("stats = %+v, want 4 visits, 2 clicks", stats)
		}
	})

	t.Run("empty token is Invalid", func(t *testing.T) {
		svc := NewService(&mockRepository{}, nil)

		if _, err := svc.StatsFor(ctx, ""); errx.KindOf(err) != errx.Invalid {
			t.Errorf("KindOf() = %v, want Invalid", errx.KindOf(err))
		}
	})
}
