// Package catalog derives the visible marketplace listing from the full
// product list: free-text search, category and location selections and a
// price ceiling.
package catalog

import (
	"math"
	"strings"

	"agriconnect/internal/models"
)

// DefaultPriceCeiling is the lowest upper bound offered by the price control.
const DefaultPriceCeiling = 100.0

// Filter holds the user-entered filter inputs. Zero values disable a predicate.
type Filter struct {
	Search     string
	Categories []string
	Locations  []string
	// MaxPrice is the single-sided price ceiling. nil means unbounded.
	MaxPrice *float64
}

// IsEmpty reports whether the filter would keep every product.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Categories) == 0 && len(f.Locations) == 0 && f.MaxPrice == nil
}

// Apply returns the products matching every active predicate, in source order.
// Within the category and location predicates a product needs to match any
// one of the selections.
func Apply(products []models.Product, f Filter) []models.Product {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	categories := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			categories = append(categories, c)
		}
	}
	locations := make(map[string]struct{}, len(f.Locations))
	for _, l := range f.Locations {
		locations[l] = struct{}{}
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if term != "" && !matchesSearch(p, term) {
			continue
		}
		if len(categories) > 0 && !matchesCategory(p, categories) {
			continue
		}
		if len(locations) > 0 {
			if _, ok := locations[p.Location]; !ok || p.Location == "" {
				continue
			}
		}
		if p.Price < 0 {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p models.Product, term string) bool {
	return strings.Contains(strings.ToLower(p.CropName), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

func matchesCategory(p models.Product, categories []string) bool {
	name := strings.ToLower(p.CropName)
	for _, c := range categories {
		if strings.Contains(name, c) {
			return true
		}
	}
	return false
}

// Facets are the choices a marketplace filter panel offers.
type Facets struct {
	Categories   []string `json:"categories"`
	Locations    []string `json:"locations"`
	PriceCeiling float64  `json:"priceCeiling"`
}

// BuildFacets derives the filter choices from the full product list.
func BuildFacets(products []models.Product) Facets {
	return Facets{
		Categories:   CategoryTokens(products),
		Locations:    Locations(products),
		PriceCeiling: PriceCeiling(products),
	}
}

// CategoryTokens returns the distinct first words of each cropName, in
// first-seen order. "Organic Tomatoes" contributes "Organic".
func CategoryTokens(products []models.Product) []string {
	seen := make(map[string]struct{})
	tokens := make([]string, 0)
	for _, p := range products {
		fields := strings.Fields(p.CropName)
		if len(fields) == 0 {
			continue
		}
		if _, ok := seen[fields[0]]; ok {
			continue
		}
		seen[fields[0]] = struct{}{}
		tokens = append(tokens, fields[0])
	}
	return tokens
}

// Locations returns the distinct non-empty product locations in first-seen order.
func Locations(products []models.Product) []string {
	seen := make(map[string]struct{})
	locs := make([]string, 0)
	for _, p := range products {
		if p.Location == "" {
			continue
		}
		if _, ok := seen[p.Location]; ok {
			continue
		}
		seen[p.Location] = struct{}{}
		locs = append(locs, p.Location)
	}
	return locs
}

// PriceCeiling is the initial maximum of the price control: the highest
// listed price, never below DefaultPriceCeiling.
func PriceCeiling(products []models.Product) float64 {
	ceiling := DefaultPriceCeiling
	for _, p := range products {
		ceiling = math.Max(ceiling, p.Price)
	}
	return ceiling
}
