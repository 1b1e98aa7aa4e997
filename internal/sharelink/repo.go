package sharelink

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists ShareLink records. Create must fail with a Conflict
// error when the token is already taken; it never overwrites. Links are
// never deleted through this interface — revocation is IsActive=false.
type Repository interface {
	Create(ctx context.Context, link ShareLink) (ShareLink, error)
	GetByID(ctx context.Context, id uuid.UUID) (ShareLink, error)
	GetByToken(ctx context.Context, token string) (ShareLink, error)
	Update(ctx context.Context, link ShareLink) (ShareLink, error)
	List(ctx context.Context) ([]ShareLink, error)
}
