package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitrineapp/vitrine/internal/errx"
)

// Service is the event sink's write path plus the aggregate read used by
// the admin detail view.
type Service interface {
	Record(ctx context.Context, event Event) error
	StatsFor(ctx context.Context, token string) (Stats, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	// Now overrides the clock used to stamp events. Defaults to time.Now.
	Now func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}
}

// Record validates the event structurally and appends it. The token is
// deliberately not checked against the link store. Clicks need a slug;
// visits never carry one, so a stray slug on a visit is dropped rather
// than rejected.
func (s *service) Record(ctx context.Context, event Event) error {
	const op = "tracking.service.Record"

	if event.Token == "" {
		return errx.E(op, errx.Invalid, errors.New("token cannot be empty"))
	}
	if !event.Kind.Valid() {
		return errx.E(op, errx.Invalid, fmt.Errorf("unknown event kind %q", event.Kind))
	}
	if event.Kind == KindClick && event.TemplateSlug == "" {
		return errx.E(op, errx.Invalid, errors.New("click events require a template slug"))
	}
	if event.Kind == KindVisit {
		event.TemplateSlug = ""
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func (s *service) StatsFor(ctx context.Context, token string) (Stats, error) {
	const op = "tracking.service.StatsFor"

	if token == "" {
		return Stats{}, errx.E(op, errx.Invalid, errors.New("token cannot be empty"))
	}

	stats, err := s.repo.StatsFor(ctx, token)
	if err != nil {
		return Stats{}, errx.E(op, errx.KindOf(err), err)
	}
	return stats, nil
}
