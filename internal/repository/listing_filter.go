package repository

import (
    "strings"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

// ItemsPerPage is the fixed page size of listing collections.
const ItemsPerPage = 10

// ListingFilter defines filters & pagination for searching listings.
// Zero values mean "no filter".
type ListingFilter struct {
    IsPublished   *bool  // exact match
    Title         string // partial, case-insensitive
    Description   string // partial, case-insensitive
    PriceLt       *int
    PriceLte      *int
    PriceGt       *int
    PriceGte      *int
    OwnerID       uint64 // exact match
    OwnerUsername string // partial, case-insensitive
    Page          int    // 1-based
}

// Limit returns the page size.
func (f ListingFilter) Limit() int { return ItemsPerPage }

// Offset returns the number of rows skipped before the page.
func (f ListingFilter) Offset() int {
    if f.Page < 1 {
        return 0
    }
    return (f.Page - 1) * ItemsPerPage
}

// Matches applies the filter to one listing in memory.  ownerUsername is the
// username of l's owner, empty when unowned.
func (f ListingFilter) Matches(l *model.Listing, ownerUsername string) bool {
    if f.IsPublished != nil && l.IsPublished != *f.IsPublished {
        return false
    }
    if f.Title != "" && !containsFold(l.Title, f.Title) {
        return false
    }
    if f.Description != "" && !containsFold(l.Description, f.Description) {
        return false
    }
    if f.PriceLt != nil && !(l.Price < *f.PriceLt) {
        return false
    }
    if f.PriceLte != nil && !(l.Price <= *f.PriceLte) {
        return false
    }
    if f.PriceGt != nil && !(l.Price > *f.PriceGt) {
        return false
    }
    if f.PriceGte != nil && !(l.Price >= *f.PriceGte) {
        return false
    }
    if f.OwnerID != 0 && l.OwnerID != f.OwnerID {
        return false
    }
    if f.OwnerUsername != "" && !containsFold(ownerUsername, f.OwnerUsername) {
        return false
    }
    return true
}

func containsFold(s, sub string) bool {
    return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// likePattern escapes LIKE wildcards in s and wraps it for substring search.
func likePattern(s string) string {
    r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
    return "%" + strings.ToLower(r.Replace(s)) + "%"
}
