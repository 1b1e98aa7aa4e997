package tracking

import "context"

// Repository persists tracking events. Insert is append-only; nothing in
// this interface mutates or deletes.
type Repository interface {
	Insert(ctx context.Context, event Event) error
	StatsFor(ctx context.Context, token string) (Stats, error)
}
