// Package catalog holds the static template catalog and the filter engine
// that computes which items a share link authorizes. The catalog is
// immutable once loaded; share links reference items by slug only.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	_ "embed"
)

// Item is one addressable template in the gallery. Identity is the slug;
// Category is the industry branch (fashion, hospitality, ...) and Kind the
// template type (landing, portfolio, ...). Exactly one of each per item.
type Item struct {
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Kind     string `json:"kind"`
}

// Catalog is an ordered, immutable collection of items with unique slugs.
type Catalog struct {
	items  []Item
	bySlug map[string]Item
}

//go:embed seed.json
var seedJSON []byte

// Load builds a catalog from a JSON manifest: a top-level array of items.
// Duplicate slugs and blank fields are load errors.
func Load(data []byte) (*Catalog, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse catalog manifest: %w", err)
	}

	bySlug := make(map[string]Item, len(items))
	for i, item := range items {
		if item.Slug == "" || item.Category == "" || item.Kind == "" {
			return nil, fmt.Errorf("catalog item %d: slug, category and kind are all required", i)
		}
		if _, dup := bySlug[item.Slug]; dup {
			return nil, fmt.Errorf("catalog item %d: duplicate slug %q", i, item.Slug)
		}
		bySlug[item.Slug] = item
	}

	return &Catalog{items: items, bySlug: bySlug}, nil
}

// LoadFile loads a catalog manifest from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog manifest: %w", err)
	}
	return Load(data)
}

// LoadEmbedded loads the seed manifest compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return Load(seedJSON)
}

// Items returns the catalog in manifest order. Callers must not mutate
// the returned slice.
func (c *Catalog) Items() []Item {
	return c.items
}

// Lookup returns the item with the given slug.
func (c *Catalog) Lookup(slug string) (Item, bool) {
	item, ok := c.bySlug[slug]
	return item, ok
}

// Len reports the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}
