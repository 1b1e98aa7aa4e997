package tracking

import "time"

// Kind discriminates tracking events.
type Kind string

const (
	KindVisit Kind = "visit"
	KindClick Kind = "click"
)

// Valid reports whether k is a kind this sink accepts.
func (k Kind) Valid() bool {
	return k == KindVisit || k == KindClick
}

// Event is one visit or click recorded against a share token. Events are
// append-only and deliberately unvalidated against the link store: a
// revoked or expired token still accumulates events from stale pages, and
// the sink must not leak link validity to its callers.
type Event struct {
	Token        string
	Kind         Kind
	TemplateSlug string // required for clicks, always empty for visits
	OccurredAt   time.Time
}

// Stats aggregates the events recorded against one token.
type Stats struct {
	Visits       int64
	Clicks       int64
	ClicksBySlug map[string]int64
}
