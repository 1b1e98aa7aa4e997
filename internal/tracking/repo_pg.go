package tracking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vitrineapp/vitrine/internal/errx"
)

// querier is the slice of pgxpool.Pool the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type repo struct {
	q querier
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(q querier) Repository {
	return &repo{q: q}
}

func (r *repo) Insert(ctx context.Context, event Event) error {
	const op = "tracking.repo.Insert"

	var slug *string
	if event.TemplateSlug != "" {
		slug = &event.TemplateSlug
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO tracking_events (token, kind, template_slug, occurred_at)
		VALUES ($1, $2, $3, $4)`,
		event.Token, string(event.Kind), slug, event.OccurredAt,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (r *repo) StatsFor(ctx context.Context, token string) (Stats, error) {
	const op = "tracking.repo.StatsFor"

	rows, err := r.q.Query(ctx, `
		SELECT kind, COALESCE(template_slug, ''), COUNT(*)
		FROM tracking_events
		WHERE token = $1
		GROUP BY kind, template_slug`,
		token,
	)
	if err != nil {
		return Stats{}, errx.E(op, errx.Unavailable, err)
	}
	defer rows.Close()

	stats := Stats{ClicksBySlug: make(map[string]int64)}
	for rows.Next() {
		var kind, slug string
		var count int64
		if err := rows.Scan(&kind, &slug, &count); err != nil {
			return Stats{}, errx.E(op, errx.Unavailable, err)
		}
		switch Kind(kind) {
		case KindVisit:
			stats.Visits += count
		case KindClick:
			stats.Clicks += count
			if slug != "" {
				stats.ClicksBySlug[slug] += count
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, errx.E(op, errx.Unavailable, err)
	}
	return stats, nil
}
