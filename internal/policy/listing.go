package policy

import (
    "time"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

// Listing is the policy of the cheese listing resource.
//
// The stored description never leaves: collection and item output carry the
// derived shortDescription, while input accepts the raw text under the name
// "description" as the separate textDescription field, normalized by NL2BR
// on the way in.  isPublished and createdAt are neither readable nor
// writable here.
var Listing = Table{
    Resource: "cheeses",
    Identity: "id",
    Fields: []Field{
        {Name: "id", Views: ViewRead},
        {Name: "title", Views: ViewRead | ViewWrite},
        {Name: "description"},
        {Name: "shortDescription", Views: ViewRead, Derived: true},
        {Name: "textDescription", External: "description", Property: "description", Views: ViewWrite, Transform: model.NL2BR},
        {Name: "price", Views: ViewRead | ViewWrite},
        {Name: "createdAt"},
        {Name: "createdAtAgo", Views: ViewRead, Derived: true},
        {Name: "isPublished"},
        {Name: "owner", Views: ViewRead | ViewWrite},
    },
}

// ListingInput is the typed form of an accepted listing payload.  Nil
// members were not submitted.
type ListingInput struct {
    Title       *string `json:"title"`
    Description *string `json:"description"`
    Price       *int    `json:"price"`
    Owner       *string `json:"owner"`
}

// ListingValues returns every value the listing table may emit, keyed by
// field name.  Derived values are computed against now.
func ListingValues(l *model.Listing, now time.Time) map[string]any {
    v := map[string]any{
        "id":               l.ID,
        "title":            l.Title,
        "description":      l.Description,
        "shortDescription": l.ShortDescription(),
        "price":            l.Price,
        "createdAt":        l.CreatedAt,
        "createdAtAgo":     l.CreatedAtAgo(now),
        "isPublished":      l.IsPublished,
    }
    if l.OwnerID != 0 {
        v["owner"] = AccountIRI(l.OwnerID)
    } else {
        v["owner"] = nil
    }
    return v
}

// NormalizeListing renders l for op.
func NormalizeListing(l *model.Listing, op Operation, now time.Time, props []string) Document {
    return Listing.Normalize(OutputView(op), ListingValues(l, now), props)
}
