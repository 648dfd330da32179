package policy

import (
    "errors"
    "fmt"
    "strconv"
    "strings"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

// Account is the policy of the user resource.  The password is write-only
// and the roles never cross this surface.
var Account = Table{
    Resource: "users",
    Identity: "id",
    Fields: []Field{
        {Name: "id", Views: ViewRead},
        {Name: "email", Views: ViewRead | ViewWrite},
        {Name: "username", Views: ViewRead | ViewWrite},
        {Name: "password", Views: ViewWrite},
        {Name: "roles"},
        {Name: "listings"},
    },
}

// AccountInput is the typed form of an accepted account payload.
type AccountInput struct {
    Email    *string `json:"email"`
    Username *string `json:"username"`
    Password *string `json:"password"`
}

// AccountValues returns every value the account table may emit.
func AccountValues(a *model.Account) map[string]any {
    listings := make([]string, len(a.ListingIDs))
    for i, id := range a.ListingIDs {
        listings[i] = ListingIRI(id)
    }
    return map[string]any{
        "id":       a.ID,
        "email":    a.Email,
        "username": a.Username,
        "roles":    a.Roles(),
        "listings": listings,
    }
}

// NormalizeAccount renders a for op.
func NormalizeAccount(a *model.Account, op Operation, props []string) Document {
    return Account.Normalize(OutputView(op), AccountValues(a), props)
}

const (
    accountIRIPrefix = "/api/users/"
    listingIRIPrefix = "/api/cheeses/"
)

// ErrInvalidIRI is returned for references that name no resource.
var ErrInvalidIRI = errors.New("invalid resource reference")

// AccountIRI returns the reference of account id.
func AccountIRI(id uint64) string { return accountIRIPrefix + strconv.FormatUint(id, 10) }

// ListingIRI returns the reference of listing id.
func ListingIRI(id uint64) string { return listingIRIPrefix + strconv.FormatUint(id, 10) }

// ParseAccountIRI accepts "/api/users/{id}" or a bare id.
func ParseAccountIRI(ref string) (uint64, error) {
    s := strings.TrimSpace(ref)
    s = strings.TrimPrefix(s, accountIRIPrefix)
    id, err := strconv.ParseUint(s, 10, 64)
    if err != nil || id == 0 {
        return 0, fmt.Errorf("%w: %q", ErrInvalidIRI, ref)
    }
    return id, nil
}
