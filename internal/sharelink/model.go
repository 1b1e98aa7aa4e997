package sharelink

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vitrineapp/vitrine/internal/catalog"
)

// Mode tells how a link's authorized set is computed. It is derived from
// the populated fields, never stored: a link with allowed slugs is
// explicit, anything else filters over the catalog.
type Mode string

const (
	ModeFilter   Mode = "filter"
	ModeExplicit Mode = "explicit"
)

// Lifecycle sentinels. The resolver wraps these so the boundary can render
// distinct messaging for disabled and expired links.
var (
	ErrLinkDisabled = errors.New("share link is disabled")
	ErrLinkExpired  = errors.New("share link has expired")
)

// ShareLink is an admin-defined, token-addressable view over the template
// catalog. Token, ID and CreatedAt are immutable after creation. Exactly
// one of Criteria or AllowedSlugs is meaningful at a time; the service
// clears the opposing field on every write.
type ShareLink struct {
	ID           uuid.UUID
	Token        string
	Name         string
	Criteria     catalog.Criteria
	AllowedSlugs []string
	IsActive     bool
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Mode derives the link's mode from its populated fields. A non-empty
// allow-list is authoritative, so a row that somehow carried both fields
// behaves as explicit.
func (l ShareLink) Mode() Mode {
	if len(l.AllowedSlugs) > 0 {
		return ModeExplicit
	}
	return ModeFilter
}

// ExpiredAt reports whether the link is past its expiry at the given
// instant. Links without an expiry never expire.
func (l ShareLink) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// AuthorizedView is the result of resolving a token: the subset of the
// catalog the visitor may see, plus the token the tracker reports against.
type AuthorizedView struct {
	Token string
	Name  string
	Items []catalog.Item
}
