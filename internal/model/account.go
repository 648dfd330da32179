package model

// RoleUser is the baseline role every account holds, stored or not.
const RoleUser = "ROLE_USER"

// Account represents an account record as stored in the `accounts` table.
// An account owns zero or more listings; the set is the inverse side of
// Listing.OwnerID and is only changed through AddListing and RemoveListing.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  Username     – unique display name.
//  PasswordHash – bcrypt hashed password, never serialized.
//  RoleNames    – roles as stored; RoleUser is implied and normally absent.
//  ListingIDs   – ids of the listings this account owns.
type Account struct {
    ID           uint64   // accounts.id
    Email        string   // accounts.email
    Username     string   // accounts.username
    PasswordHash string   // accounts.password_hash
    RoleNames    []string // accounts.roles (JSON array)
    ListingIDs   []uint64 // cheese_listings.id where owner_id = accounts.id
}

// NewAccount returns an account with an empty listing set.
func NewAccount() *Account {
    return &Account{ListingIDs: []uint64{}}
}

// Roles returns the stored roles plus RoleUser, without duplicates.
func (a *Account) Roles() []string {
    return NormalizeRoles(a.RoleNames)
}

// NormalizeRoles de-duplicates roles, keeping first occurrences in order, and
// appends RoleUser when missing.  NormalizeRoles(NormalizeRoles(r)) equals
// NormalizeRoles(r).
func NormalizeRoles(roles []string) []string {
    seen := make(map[string]bool, len(roles)+1)
    out := make([]string, 0, len(roles)+1)
    for _, r := range roles {
        if r == "" || seen[r] {
            continue
        }
        seen[r] = true
        out = append(out, r)
    }
    if !seen[RoleUser] {
        out = append(out, RoleUser)
    }
    return out
}

// HasRole reports whether the normalized role set contains role.
func (a *Account) HasRole(role string) bool {
    for _, r := range a.Roles() {
        if r == role {
            return true
        }
    }
    return false
}

// Credential is what the authentication side needs to know about an
// account: who it is, the hash to check a password against and its roles.
type Credential struct {
    AccountID  uint64
    Identifier string
    Hash       string
    Roles      []string
}

// Credential returns the account's credential with normalized roles.
func (a *Account) Credential() Credential {
    return Credential{
        AccountID:  a.ID,
        Identifier: a.Email,
        Hash:       a.PasswordHash,
        Roles:      a.Roles(),
    }
}
