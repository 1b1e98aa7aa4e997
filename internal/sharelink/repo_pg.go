package sharelink

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vitrineapp/vitrine/internal/errx"
	"github.com/vitrineapp/vitrine/internal/idgen"
)

// querier is the slice of pgxpool.Pool the repository needs. Kept narrow
// so tests can stand in for the pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repo struct {
	q   querier
	ids idgen.Generator
}

// RepositoryConfig holds configuration for the repository.
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(q querier, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}
	// UUID v7 keeps primary-key inserts roughly sequential.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{q: q, ids: config.IDGenerator}
}

const linkColumns = `id, token, name, categories, kinds, allowed_slugs, is_active, expires_at, created_at, updated_at`

func scanLink(row pgx.Row) (ShareLink, error) {
	var l ShareLink
	err := row.Scan(
		&l.ID, &l.Token, &l.Name,
		&l.Criteria.Categories, &l.Criteria.Kinds, &l.AllowedSlugs,
		&l.IsActive, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)
	case isTokenUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)
	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *repo) Create(ctx context.Context, link ShareLink) (ShareLink, error) {
	const op = "sharelink.repo.Create"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return ShareLink{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO share_links (id, token, name, categories, kinds, allowed_slugs, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+linkColumns,
		link.ID, link.Token, link.Name,
		emptyNotNil(link.Criteria.Categories), emptyNotNil(link.Criteria.Kinds),
		emptyNotNil(link.AllowedSlugs), link.IsActive, link.ExpiresAt,
	)

	created, err := scanLink(row)
	if err != nil {
		return ShareLink{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (ShareLink, error) {
	const op = "sharelink.repo.GetByID"

	row := r.q.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM share_links WHERE id = $1`, id)

	link, err := scanLink(row)
	if err != nil {
		return ShareLink{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) GetByToken(ctx context.Context, token string) (ShareLink, error) {
	const op = "sharelink.repo.GetByToken"

	row := r.q.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM share_links WHERE token = $1`, token)

	link, err := scanLink(row)
	if err != nil {
		return ShareLink{}, mapRepoError(op, err)
	}
	return link, nil
}

// Update persists the mutable fields. Token, ID and CreatedAt are never
// written, which backs up the service's immutability guarantee at the SQL
// level.
func (r *repo) Update(ctx context.Context, link ShareLink) (ShareLink, error) {
	const op = "sharelink.repo.Update"

	row := r.q.QueryRow(ctx, `
		UPDATE share_links
		SET name = $2, categories = $3, kinds = $4, allowed_slugs = $5,
		    is_active = $6, expires_at = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+linkColumns,
		link.ID, link.Name,
		emptyNotNil(link.Criteria.Categories), emptyNotNil(link.Criteria.Kinds),
		emptyNotNil(link.AllowedSlugs), link.IsActive, link.ExpiresAt,
		time.Now().UTC(),
	)

	updated, err := scanLink(row)
	if err != nil {
		return ShareLink{}, mapRepoError(op, err)
	}
	return updated, nil
}

func (r *repo) List(ctx context.Context) ([]ShareLink, error) {
	const op = "sharelink.repo.List"

	rows, err := r.q.Query(ctx,
		`SELECT `+linkColumns+` FROM share_links ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	var links []ShareLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, mapRepoError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapRepoError(op, err)
	}
	return links, nil
}
