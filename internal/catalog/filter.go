package catalog

import "slices"

// Criteria selects catalog items by category and kind. An empty axis
// matches everything on that axis, so the zero Criteria matches the whole
// catalog.
type Criteria struct {
	Categories []string `json:"categories"`
	Kinds      []string `json:"kinds"`
}

// IsEmpty reports whether the criteria restrict nothing.
func (cr Criteria) IsEmpty() bool {
	return len(cr.Categories) == 0 && len(cr.Kinds) == 0
}

// Match reports whether item satisfies the criteria. Both axes must
// match; an empty axis always does.
func (cr Criteria) Match(item Item) bool {
	if len(cr.Categories) > 0 && !slices.Contains(cr.Categories, item.Category) {
		return false
	}
	if len(cr.Kinds) > 0 && !slices.Contains(cr.Kinds, item.Kind) {
		return false
	}
	return true
}

// Filter returns the catalog items matching the criteria, in catalog
// order. The result is a fresh slice; an empty result is valid.
func (c *Catalog) Filter(cr Criteria) []Item {
	matched := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		if cr.Match(item) {
			matched = append(matched, item)
		}
	}
	return matched
}

// Intersect returns the catalog items whose slugs appear in slugs, in
// catalog order. Slugs absent from the catalog are silently dropped, so a
// link that names a since-removed template still resolves.
func (c *Catalog) Intersect(slugs []string) []Item {
	matched := make([]Item, 0, len(slugs))
	for _, item := range c.items {
		if slices.Contains(slugs, item.Slug) {
			matched = append(matched, item)
		}
	}
	return matched
}
