package sharelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vitrineapp/vitrine/internal/catalog"
	"github.com/vitrineapp/vitrine/internal/errx"
	"github.com/vitrineapp/vitrine/internal/httpx"
	"github.com/vitrineapp/vitrine/internal/tracking"
)

// filtersPayload carries filter criteria on the wire. "branches" and
// "types" are the gallery's public vocabulary for category and kind.
type filtersPayload struct {
	Branches []string `json:"branches,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// createLinkPayload is the JSON body of POST /api/share-links. Exactly one
// of AllowedTemplates or Filters selects the mode; omitting both creates a
// match-all filter link.
type createLinkPayload struct {
	Name             string          `json:"name" validate:"required,max=120"`
	ExpiresAt        *string         `json:"expires_at"`
	AllowedTemplates []string        `json:"allowed_templates" validate:"omitempty,dive,required"`
	Filters          *filtersPayload `json:"filters"`
}

// updateLinkPayload is the JSON body of PATCH /api/share-links/{id}.
// ExpiresAt is raw so that absent, null and a timestamp stay
// distinguishable: absent leaves the expiry alone, null clears it.
type updateLinkPayload struct {
	Name             *string         `json:"name" validate:"omitempty,max=120"`
	ExpiresAt        json.RawMessage `json:"expires_at"`
	IsActive         *bool           `json:"is_active"`
	AllowedTemplates *[]string       `json:"allowed_templates"`
	Filters          *filtersPayload `json:"filters"`

	// Accepted and dropped: admin shells tend to PATCH back the whole
	// record they read, and the immutable fields must not fail the request.
	ID        json.RawMessage `json:"id"`
	Token     json.RawMessage `json:"token"`
	Mode      json.RawMessage `json:"mode"`
	ShareURL  json.RawMessage `json:"share_url"`
	CreatedAt json.RawMessage `json:"created_at"`
	UpdatedAt json.RawMessage `json:"updated_at"`
}

// linkResponse is the admin-facing JSON shape of a share link.
type linkResponse struct {
	ID               string          `json:"id"`
	Token            string          `json:"token"`
	Name             string          `json:"name"`
	Mode             string          `json:"mode"`
	Filters          *filtersPayload `json:"filters,omitempty"`
	AllowedTemplates []string        `json:"allowed_templates,omitempty"`
	IsActive         bool            `json:"is_active"`
	ExpiresAt        *string         `json:"expires_at,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
	ShareURL         string          `json:"share_url"`
}

// linkDetailResponse adds the recorded analytics to a link.
type linkDetailResponse struct {
	linkResponse
	Visits       int64            `json:"visits"`
	Clicks       int64            `json:"clicks"`
	ClicksBySlug map[string]int64 `json:"clicks_by_template,omitempty"`
}

// templateResponse is one authorized catalog item on the wire.
type templateResponse struct {
	Slug   string `json:"slug"`
	Branch string `json:"branch"`
	Type   string `json:"type"`
}

// resolveResponse is what the share page renderer and the tracker get.
type resolveResponse struct {
	Token     string             `json:"token"`
	Name      string             `json:"name"`
	Templates []templateResponse `json:"templates"`
}

// StatsProvider supplies per-token analytics for the admin detail view.
type StatsProvider interface {
	StatsFor(ctx context.Context, token string) (tracking.Stats, error)
}

// Handler provides the admin mutation endpoints and token resolution.
type Handler struct {
	service  Service
	stats    StatsProvider
	logger   *slog.Logger
	baseURL  string
	validate *validator.Validate
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Stats   StatsProvider // optional; detail responses omit analytics when nil
	Logger  *slog.Logger
	BaseURL string // public base for distribution URLs, e.g. "https://vitrine.dev"
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service:  cfg.Service,
		stats:    cfg.Stats,
		logger:   logger,
		baseURL:  cfg.BaseURL,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateLink handles POST /api/share-links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	payload, err := httpx.DecodeJSON[createLinkPayload](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if err := h.validate.Struct(payload); err != nil {
		logger.WarnContext(ctx, "request validation failed", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed",
			validationMessage(err), nil)
		return
	}

	if len(payload.AllowedTemplates) > 0 && payload.Filters != nil {
		logger.WarnContext(ctx, "request sets both modes")
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed",
			"send either allowed_templates or filters, not both", nil)
		return
	}

	expiresAt, err := parseExpiry(payload.ExpiresAt)
	if err != nil {
		logger.WarnContext(ctx, "invalid expiry", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	req := CreateLinkRequest{
		Name:         payload.Name,
		ExpiresAt:    expiresAt,
		AllowedSlugs: payload.AllowedTemplates,
	}
	if payload.Filters != nil {
		req.Criteria = catalog.Criteria{
			Categories: payload.Filters.Branches,
			Kinds:      payload.Filters.Types,
		}
	}

	link, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create share link")
		return
	}

	logger.InfoContext(ctx, "share link created",
		"link_id", link.ID.String(),
		"mode", string(link.Mode()),
	)

	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(link))
}

// UpdateLink handles PATCH /api/share-links/{id}.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logger.WarnContext(ctx, "invalid link id", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid link id", nil)
		return
	}

	payload, err := httpx.DecodeJSON[updateLinkPayload](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if err := h.validate.Struct(payload); err != nil {
		logger.WarnContext(ctx, "request validation failed", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed",
			validationMessage(err), nil)
		return
	}

	patch := UpdatePatch{
		Name:     payload.Name,
		IsActive: payload.IsActive,
	}

	if len(payload.ExpiresAt) > 0 {
		if string(payload.ExpiresAt) == "null" {
			patch.ClearExpiresAt = true
		} else {
			var raw string
			if err := json.Unmarshal(payload.ExpiresAt, &raw); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "validation_failed",
					"expires_at must be an ISO date or null", nil)
				return
			}
			expiresAt, err := parseExpiry(&raw)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
				return
			}
			patch.ExpiresAt = expiresAt
		}
	}

	if payload.AllowedTemplates != nil {
		patch.AllowedSlugs = payload.AllowedTemplates
	}
	if payload.Filters != nil {
		patch.Criteria = &catalog.Criteria{
			Categories: payload.Filters.Branches,
			Kinds:      payload.Filters.Types,
		}
	}

	link, err := h.service.Update(ctx, id, patch)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update share link")
		return
	}

	logger.InfoContext(ctx, "share link updated",
		"link_id", link.ID.String(),
		"mode", string(link.Mode()),
		"is_active", link.IsActive,
	)

	httpx.WriteJSON(w, http.StatusOK, h.toResponse(link))
}

// ListLinks handles GET /api/share-links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	links, err := h.service.List(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list share links")
		return
	}

	out := make([]linkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, h.toResponse(link))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"links": out})
}

// GetLink handles GET /api/share-links/{id}, including recorded analytics.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid link id", nil)
		return
	}

	link, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load share link")
		return
	}

	detail := linkDetailResponse{linkResponse: h.toResponse(link)}
	if h.stats != nil {
		stats, err := h.stats.StatsFor(ctx, link.Token)
		if err != nil {
			// Analytics are additive; a sink outage must not hide the link.
			logger.WarnContext(ctx, "failed to load link stats",
				"link_id", link.ID.String(),
				"error", err.Error(),
			)
		} else {
			detail.Visits = stats.Visits
			detail.Clicks = stats.Clicks
			detail.ClicksBySlug = stats.ClicksBySlug
		}
	}

	httpx.WriteJSON(w, http.StatusOK, detail)
}

// ResolveToken handles GET /s/{token}, turning a bearer token into the
// authorized catalog subset.
func (h *Handler) ResolveToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	token := r.PathValue("token")

	view, err := h.service.Resolve(ctx, token, time.Now())
	if err != nil {
		h.writeResolveError(ctx, w, err, token)
		return
	}

	templates := make([]templateResponse, 0, len(view.Items))
	for _, item := range view.Items {
		templates = append(templates, templateResponse{
			Slug:   item.Slug,
			Branch: item.Category,
			Type:   item.Kind,
		})
	}

	logger.InfoContext(ctx, "share link resolved",
		"template_count", len(templates),
	)

	httpx.WriteJSON(w, http.StatusOK, resolveResponse{
		Token:     view.Token,
		Name:      view.Name,
		Templates: templates,
	})
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func (h *Handler) toResponse(link ShareLink) linkResponse {
	resp := linkResponse{
		ID:        link.ID.String(),
		Token:     link.Token,
		Name:      link.Name,
		Mode:      string(link.Mode()),
		IsActive:  link.IsActive,
		CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: link.UpdatedAt.UTC().Format(time.RFC3339),
		ShareURL:  fmt.Sprintf("%s/s/%s", h.baseURL, link.Token),
	}

	if link.ExpiresAt != nil {
		s := link.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &s
	}

	if link.Mode() == ModeExplicit {
		resp.AllowedTemplates = link.AllowedSlugs
	} else {
		resp.Filters = &filtersPayload{
			Branches: link.Criteria.Categories,
			Types:    link.Criteria.Kinds,
		}
	}

	return resp
}

// writeServiceError maps service errors from the admin endpoints onto
// HTTP responses.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind.String(),
		"operation", errx.OpOf(err),
	}

	status := httpx.StatusOf(kind)
	code := httpx.CodeOf(kind)

	switch kind {
	case errx.Invalid:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, status, code, unwrapped(err), nil)

	case errx.NotFound:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, status, code, "share link not found", nil)

	default:
		h.logger.ErrorContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, status, code,
			"Unable to save the share link right now. Please try again.", nil)
	}
}

// writeResolveError maps the resolver's lifecycle verdicts onto distinct
// statuses so the share page can render distinct messaging.
func (h *Handler) writeResolveError(ctx context.Context, w http.ResponseWriter, err error, token string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind.String(),
		"token", token,
	}

	switch {
	case kind == errx.NotFound:
		h.logger.WarnContext(ctx, "unknown share token", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"this share link doesn't exist", nil)

	case errors.Is(err, ErrLinkDisabled):
		h.logger.WarnContext(ctx, "disabled share link", logAttrs...)
		httpx.WriteError(w, http.StatusForbidden, "link_disabled",
			"this share link has been deactivated", nil)

	case errors.Is(err, ErrLinkExpired):
		h.logger.InfoContext(ctx, "expired share link", logAttrs...)
		httpx.WriteError(w, http.StatusGone, "link_expired",
			"this share link has expired", nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error resolving share link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to open this share link right now", nil)
	}
}

// parseExpiry accepts RFC 3339 timestamps or bare dates; a bare date means
// end of that day, UTC.
func parseExpiry(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, *raw); err == nil {
		return &t, nil
	}
	if d, err := time.Parse("2006-01-02", *raw); err == nil {
		t := d.Add(24*time.Hour - time.Second)
		return &t, nil
	}
	return nil, fmt.Errorf("expires_at %q is not an ISO date", *raw)
}

// validationMessage flattens validator errors into one reason string.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", jsonFieldName(fe.Field()))
		case "max":
			return fmt.Sprintf("%s too long (max %s characters)", jsonFieldName(fe.Field()), fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", jsonFieldName(fe.Field()))
		}
	}
	return err.Error()
}

func jsonFieldName(structField string) string {
	switch structField {
	case "Name":
		return "name"
	case "ExpiresAt":
		return "expires_at"
	case "AllowedTemplates":
		return "allowed_templates"
	case "Filters":
		return "filters"
	default:
		return structField
	}
}

// unwrapped strips the op prefix for user-facing validation messages.
func unwrapped(err error) string {
	var e *errx.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
