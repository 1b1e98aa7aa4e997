package tracking

import (
	"log/slog"
	"net/http"

	"github.com/vitrineapp/vitrine/internal/errx"
	"github.com/vitrineapp/vitrine/internal/httpx"
)

// ingestPayload is the wire shape the tracker posts.
type ingestPayload struct {
	Type         string `json:"type"`
	Token        string `json:"token"`
	TemplateSlug string `json:"template_slug,omitempty"`
}

// Handler exposes the event ingest endpoint.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: cfg.Service, logger: logger}
}

// Ingest handles POST /api/events. Analytics is best-effort: a
// structurally valid event always yields 204, even when the write behind
// it fails — persistence trouble is logged server-side and never turned
// into a status the tracker might react to. Only undecodable bodies and
// structural mistakes (unknown type, click without slug) get a 400, and
// the tracker does not retry on those either.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	payload, err := httpx.DecodeJSON[ingestPayload](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode event", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	err = h.service.Record(ctx, Event{
		Token:        payload.Token,
		Kind:         Kind(payload.Type),
		TemplateSlug: payload.TemplateSlug,
	})
	if err != nil {
		if errx.KindOf(err) == errx.Invalid {
			logger.WarnContext(ctx, "malformed event rejected",
				"error", err.Error(),
				"type", payload.Type,
			)
			httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}

		// Swallowed on purpose; see above.
		logger.ErrorContext(ctx, "failed to record event",
			"error", err.Error(),
			"error_kind", errx.KindOf(err).String(),
			"type", payload.Type,
		)
	}

	httpx.WriteNoContent(w)
}
