package tracking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vitrineapp/vitrine/internal/errx"
)

type mockIngestService struct {
	recordFunc func(ctx context.Context, event Event) error
}

func (m *mockIngestService) Record(ctx context.Context, event Event) error {
	if m.recordFunc != nil {
		return m.recordFunc(ctx, event)
	}
	return nil
}

func (m *mockIngestService) StatsFor(ctx context.Context, token string) (Stats, error) {
	return Stats{}, nil
}

func ingestHandler(svc Service) *Handler {
	return NewHandler(HandlerConfig{
		Service: svc,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func postEvent(h *Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/api/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Ingest(w, r)
	return w
}

func TestHandler_Ingest(t *testing.T) {
	t.Run("visit event is accepted", func(t *testing.T) {
		var captured Event
		svc := &mockIngestService{
			recordFunc: func(ctx context.Context, event Event) error {
				captured = event
				return nil
			},
		}
		h := ingestHandler(svc)

		w := postEvent(h, `{"type": "visit", "token": "tok123"}`)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", w.Code)
		}
		if captured.Kind != KindVisit || captured.Token != "tok123" {
			t.Errorf("recorded %+v, want visit for tok123", captured)
		}
	})

	t.Run("click event carries the slug", func(t *testing.T) {
		var captured Event
		svc := &mockIngestService{
			recordFunc: func(ctx context.Context, event Event) error {
				captured = event
				return nil
			},
		}
		h := ingestHandler(svc)

		w := postEvent(h, `{"type": "click", "token": "tok123", "template_slug": "fashion/elegance"}`)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", w.Code)
		}
		if captured.TemplateSlug != "fashion/elegance" {
			t.Errorf("slug = %q, want fashion/elegance", captured.TemplateSlug)
		}
	})

	t.Run("persistence failure still yields 204", func(t *testing.T) {
		svc := &mockIngestService{
			recordFunc: func(ctx context.Context, event Event) error {
				return errx.E("tracking.repo.Insert", errx.Unavailable, errors.New("store down"))
			},
		}
		h := ingestHandler(svc)

		w := postEvent(h, `{"type": "visit", "token": "tok123"}`)
		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204 even when the write fails", w.Code)
		}
	})

	t.Run("click without slug is 400", func(t *testing.T) {
		svc := &mockIngestService{
			recordFunc: func(ctx context.Context, event Event) error {
				return errx.E("tracking.service.Record", errx.Invalid,
					errors.New("click events require a template slug"))
			},
		}
		h := ingestHandler(svc)

		w := postEvent(h, `{"type": "click", "token": "tok123"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("undecodable body is 400", func(t *testing.T) {
		h := ingestHandler(&mockIngestService{})

		w := postEvent(h, `{"type": `)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("token is not checked against the link store", func(t *testing.T) {
		// The sink takes the service at its word; there is no lookup to
		// fail. A token no link ever owned records fine.
		recorded := false
		svc := &mockIngestService{
			recordFunc: func(ctx context.Context, event Event) error {
				recorded = true
				return nil
			},
		}
		h := ingestHandler(svc)

		w := postEvent(h, `{"type": "visit", "token": "never-issued"}`)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", w.Code)
		}
		if !recorded {
			t.Error("event for unknown token was not recorded")
		}
	})
}
