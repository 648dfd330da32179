package model

import (
    "strings"
    "time"

    "github.com/dustin/go-humanize"
)

// Listing represents a cheese listing as stored in the `cheese_listings`
// table.  A listing is created with a title and a creation timestamp; the
// price, description, publication flag and owner are filled in afterwards
// before the first insert.
//
// Fields:
//  ID          – primary key identifier, zero until persisted.
//  OwnerID     – accounts.id of the owning account, zero when unowned.
//  Title       – listing title (2–50 characters).
//  Description – line-break-normalized description (see NL2BR).
//  Price       – positive integer price.
//  CreatedAt   – set once by NewListing, never changed afterwards.
//  IsPublished – publication flag, false by default.
type Listing struct {
    ID          uint64    // cheese_listings.id
    OwnerID     uint64    // cheese_listings.owner_id
    Title       string    // cheese_listings.title
    Description string    // cheese_listings.description
    Price       int       // cheese_listings.price
    CreatedAt   time.Time // cheese_listings.created_at
    IsPublished bool      // cheese_listings.is_published
}

// ShortDescriptionLimit is the number of characters kept by ShortDescription.
const ShortDescriptionLimit = 40

// Ellipsis is appended to truncated short descriptions.
const Ellipsis = "..."

// LineBreakTag is the markup inserted by NL2BR.
const LineBreakTag = "<br />"

// NewListing returns an unpublished listing with the given title and
// creation time.  A blank title is allowed here; validation rejects it
// before the listing is stored.
func NewListing(title string, now time.Time) *Listing {
    return &Listing{Title: title, CreatedAt: now}
}

// ShortDescription returns the description truncated for collection output.
func (l *Listing) ShortDescription() string {
    return ShortenDescription(l.Description)
}

// CreatedAtAgo renders CreatedAt relative to now, e.g. "3 hours ago".  It is
// recomputed on every call and never stored.
func (l *Listing) CreatedAtAgo(now time.Time) string {
    return humanize.RelTime(l.CreatedAt, now, "ago", "from now")
}

// ShortenDescription keeps descriptions under ShortDescriptionLimit
// characters as they are.  Longer ones are cut to the limit and suffixed with
// Ellipsis.  The text is the stored (already line-break-normalized) value;
// when the cut would land inside a LineBreakTag the cut moves back to the
// start of that tag, so the result never carries half a tag.
func ShortenDescription(d string) string {
    cut, ok := runeOffset(d, ShortDescriptionLimit)
    if !ok {
        return d
    }
    for start := 0; start < cut; {
        i := strings.Index(d[start:], LineBreakTag)
        if i < 0 {
            break
        }
        i += start
        if i >= cut {
            break
        }
        end := i + len(LineBreakTag)
        if end > cut {
            cut = i
            break
        }
        start = end
    }
    return d[:cut] + Ellipsis
}

// runeOffset returns the byte offset of the n-th rune of s.  ok is false when
// s holds fewer than n runes.
func runeOffset(s string, n int) (int, bool) {
    count := 0
    for i := range s {
        if count == n {
            return i, true
        }
        count++
    }
    return len(s), count >= n
}

// NL2BR inserts LineBreakTag before every line break sequence ("\r\n",
// "\n\r", "\n" or "\r").  The line breaks themselves are kept.
func NL2BR(s string) string {
    if !strings.ContainsAny(s, "\r\n") {
        return s
    }
    var b strings.Builder
    b.Grow(len(s) + 16)
    for i := 0; i < len(s); i++ {
        ch := s[i]
        if ch != '\r' && ch != '\n' {
            b.WriteByte(ch)
            continue
        }
        b.WriteString(LineBreakTag)
        b.WriteByte(ch)
        // a mixed pair counts as one break
        if i+1 < len(s) && (s[i+1] == '\r' || s[i+1] == '\n') && s[i+1] != ch {
            b.WriteByte(s[i+1])
            i++
        }
    }
    return b.String()
}
