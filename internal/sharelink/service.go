package sharelink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitrineapp/vitrine/internal/catalog"
	"github.com/vitrineapp/vitrine/internal/errx"
	"github.com/vitrineapp/vitrine/tokengen"
)

const (
	DefaultTokenLength     = 24
	MinTokenLength         = 16
	MaxTokenLength         = 64
	MaxNameLength          = 120
	DefaultTokenMaxRetries = 3
)

// CreateLinkRequest carries the fields for creating a share link. At most
// one of Criteria or AllowedSlugs may be populated; populating neither
// creates a filter link that matches the whole catalog.
type CreateLinkRequest struct {
	Name         string
	ExpiresAt    *time.Time
	Criteria     catalog.Criteria
	AllowedSlugs []string
}

// UpdatePatch carries a partial update. Nil fields are left unchanged.
// Setting AllowedSlugs switches the link to explicit mode and clears its
// criteria in the same write; setting Criteria does the reverse.
type UpdatePatch struct {
	Name           *string
	ExpiresAt      *time.Time
	ClearExpiresAt bool
	IsActive       *bool
	Criteria       *catalog.Criteria
	AllowedSlugs   *[]string
}

// Service is the single write path for share links and the resolver that
// turns tokens into authorized catalog views.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (ShareLink, error)
	Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (ShareLink, error)
	GetByID(ctx context.Context, id uuid.UUID) (ShareLink, error)
	List(ctx context.Context) ([]ShareLink, error)
	Resolve(ctx context.Context, token string, now time.Time) (AuthorizedView, error)
}

type service struct {
	repo            Repository
	catalog         *catalog.Catalog
	tokenGenerator  tokengen.Generator
	tokenLength     int
	tokenMaxRetries int
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	TokenGenerator  tokengen.Generator
	TokenLength     int
	TokenMaxRetries int // attempts when drawing a unique token (default: 3)
}

// NewService creates a new service instance over the given store and
// catalog.
func NewService(repo Repository, cat *catalog.Catalog, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	gen := config.TokenGenerator
	if gen == nil {
		gen = tokengen.NewBase62()
	}

	length := config.TokenLength
	if length < MinTokenLength || length > MaxTokenLength {
		length = DefaultTokenLength
	}

	retries := config.TokenMaxRetries
	if retries <= 0 {
		retries = DefaultTokenMaxRetries
	}

	return &service{
		repo:            repo,
		catalog:         cat,
		tokenGenerator:  gen,
		tokenLength:     length,
		tokenMaxRetries: retries,
	}
}

// Create validates the request and inserts the link with a freshly drawn
// token. The store's unique constraint is the authority on token
// collisions: a Conflict from the insert triggers a re-draw, never an
// overwrite.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (ShareLink, error) {
	const op = "sharelink.service.Create"

	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return ShareLink{}, errx.E(op, errx.Invalid, err)
	}

	explicit := len(req.AllowedSlugs) > 0
	if explicit && !req.Criteria.IsEmpty() {
		return ShareLink{}, errx.E(op, errx.Invalid,
			errors.New("a link is either filtered or explicit, not both"))
	}

	link := ShareLink{
		Name:      name,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	if explicit {
		slugs := dedupe(req.AllowedSlugs)
		// Blank entries trim away; what remains decides whether the
		// request still names anything.
		if len(slugs) == 0 {
			return ShareLink{}, errx.E(op, errx.Invalid,
				errors.New("explicit links need at least one template"))
		}
		link.AllowedSlugs = slugs
	} else {
		link.Criteria = req.Criteria
	}

	for range s.tokenMaxRetries {
		token, err := s.tokenGenerator.Generate(s.tokenLength)
		if err != nil {
			return ShareLink{}, errx.E(op, errx.Unavailable, err)
		}
		link.Token = token

		created, err := s.repo.Create(ctx, link)
		if err == nil {
			return created, nil
		}

		// Re-draw on token collision, fail on anything else.
		if errx.KindOf(err) != errx.Conflict {
			return ShareLink{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return ShareLink{}, errx.E(op, errx.Unavailable,
		errors.New("could not draw a unique token after retries"))
}

// Update applies the patch through the single write path. Mode fields are
// mutually exclusive within one patch; switching mode destroys the other
// mode's fields in the same write. Token, ID and CreatedAt cannot be
// patched — the patch type has no way to express it.
func (s *service) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (ShareLink, error) {
	const op = "sharelink.service.Update"

	if patch.Criteria != nil && patch.AllowedSlugs != nil {
		return ShareLink{}, errx.E(op, errx.Invalid,
			errors.New("a link is either filtered or explicit, not both"))
	}

	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ShareLink{}, errx.E(op, errx.KindOf(err), err)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateName(name); err != nil {
			return ShareLink{}, errx.E(op, errx.Invalid, err)
		}
		link.Name = name
	}

	if patch.ClearExpiresAt {
		link.ExpiresAt = nil
	} else if patch.ExpiresAt != nil {
		link.ExpiresAt = patch.ExpiresAt
	}

	if patch.IsActive != nil {
		link.IsActive = *patch.IsActive
	}

	switch {
	case patch.AllowedSlugs != nil:
		slugs := dedupe(*patch.AllowedSlugs)
		if len(slugs) == 0 {
			return ShareLink{}, errx.E(op, errx.Invalid,
				errors.New("explicit links need at least one template"))
		}
		link.AllowedSlugs = slugs
		link.Criteria = catalog.Criteria{}

	case patch.Criteria != nil:
		link.Criteria = *patch.Criteria
		link.AllowedSlugs = nil
	}

	updated, err := s.repo.Update(ctx, link)
	if err != nil {
		return ShareLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return updated, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (ShareLink, error) {
	const op = "sharelink.service.GetByID"

	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ShareLink{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (s *service) List(ctx context.Context) ([]ShareLink, error) {
	const op = "sharelink.service.List"

	links, err := s.repo.List(ctx)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

// Resolve is the lifecycle state machine: NotFound, Disabled, Expired or
// an authorized view. It never mutates the link; state only changes
// through Update or the passage of time.
func (s *service) Resolve(ctx context.Context, token string, now time.Time) (AuthorizedView, error) {
	const op = "sharelink.service.Resolve"

	if token == "" {
		return AuthorizedView{}, errx.E(op, errx.NotFound, errors.New("token cannot be empty"))
	}

	link, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return AuthorizedView{}, errx.E(op, errx.KindOf(err), err)
	}

	if !link.IsActive {
		return AuthorizedView{}, errx.E(op, errx.Forbidden, ErrLinkDisabled)
	}
	if link.ExpiredAt(now) {
		return AuthorizedView{}, errx.E(op, errx.Gone, ErrLinkExpired)
	}

	var items []catalog.Item
	if link.Mode() == ModeExplicit {
		// Slugs that have left the catalog drop out silently.
		items = s.catalog.Intersect(link.AllowedSlugs)
	} else {
		items = s.catalog.Filter(link.Criteria)
	}

	return AuthorizedView{Token: link.Token, Name: link.Name, Items: items}, nil
}

func validateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return errors.New("name too long (max 120 characters)")
	}
	return nil
}

func dedupe(slugs []string) []string {
	seen := make(map[string]bool, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
