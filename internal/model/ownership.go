package model

// The ownership link is kept on both sides by id: Listing.OwnerID on the
// owning side and Account.ListingIDs on the inverse side.  Both functions
// below change the two sides together.  A listing without an id (not yet
// stored) cannot be tracked in the set and is left alone.

// AddListing puts l into a's listing set and points l at a.  It does nothing
// when l is already in the set and reports whether anything changed.
func AddListing(a *Account, l *Listing) bool {
    if a == nil || l == nil || l.ID == 0 || a.OwnsListing(l.ID) {
        return false
    }
    a.ListingIDs = append(a.ListingIDs, l.ID)
    l.OwnerID = a.ID
    return true
}

// RemoveListing takes l out of a's listing set.  l's owner is cleared only
// while it still points at a, so a reassignment done elsewhere is kept.  It
// does nothing when l is not in the set and reports whether anything changed.
func RemoveListing(a *Account, l *Listing) bool {
    if a == nil || l == nil {
        return false
    }
    idx := -1
    for i, id := range a.ListingIDs {
        if id == l.ID {
            idx = i
            break
        }
    }
    if idx < 0 {
        return false
    }
    a.ListingIDs = append(a.ListingIDs[:idx], a.ListingIDs[idx+1:]...)
    if l.OwnerID == a.ID {
        l.OwnerID = 0
    }
    return true
}

// OwnsListing reports whether id is in a's listing set.
func (a *Account) OwnsListing(id uint64) bool {
    for _, v := range a.ListingIDs {
        if v == id {
            return true
        }
    }
    return false
}
