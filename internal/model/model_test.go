package model

import (
    "reflect"
    "strings"
    "testing"
    "time"
    "unicode/utf8"
)

func TestShortenDescriptionKeepsShortText(t *testing.T) {
    cases := []string{"", "x", "Mild and creamy", strings.Repeat("a", 39), "Ünïcödé chëësé"}
    for _, d := range cases {
        if got := ShortenDescription(d); got != d {
            t.Errorf("ShortenDescription(%q) = %q, want unchanged", d, got)
        }
    }
}

func TestShortenDescriptionTruncatesLongText(t *testing.T) {
    for _, n := range []int{40, 41, 80, 500} {
        d := strings.Repeat("b", n)
        got := ShortenDescription(d)
        if len(got) != 43 {
            t.Fatalf("len(ShortenDescription(%d chars)) = %d, want 43", n, len(got))
        }
        if !strings.HasPrefix(got, d[:40]) || !strings.HasSuffix(got, Ellipsis) {
            t.Fatalf("ShortenDescription(%d chars) = %q", n, got)
        }
    }
}

func TestShortenDescriptionCountsRunes(t *testing.T) {
    d := strings.Repeat("é", 45)
    got := ShortenDescription(d)
    if utf8.RuneCountInString(got) != 43 {
        t.Fatalf("rune count = %d, want 43", utf8.RuneCountInString(got))
    }
    if !utf8.ValidString(got) {
        t.Fatalf("result is not valid UTF-8: %q", got)
    }
}

func TestShortenDescriptionDoesNotSplitLineBreakTag(t *testing.T) {
    // the tag starts at offset 37 and would be cut after "<br"
    d := strings.Repeat("c", 37) + LineBreakTag + "\n" + strings.Repeat("d", 20)
    got := ShortenDescription(d)
    want := strings.Repeat("c", 37) + Ellipsis
    if got != want {
        t.Fatalf("got %q, want %q", got, want)
    }

    // a tag that ends exactly at the limit is kept whole
    d = strings.Repeat("e", 34) + LineBreakTag + strings.Repeat("f", 10)
    got = ShortenDescription(d)
    want = strings.Repeat("e", 34) + LineBreakTag + Ellipsis
    if got != want {
        t.Fatalf("got %q, want %q", got, want)
    }
}

func TestNL2BR(t *testing.T) {
    cases := map[string]string{
        "plain":          "plain",
        "line1\nline2":   "line1<br />\nline2",
        "a\r\nb":         "a<br />\r\nb",
        "a\n\rb":         "a<br />\n\rb",
        "a\rb":           "a<br />\rb",
        "a\n\nb":         "a<br />\n<br />\nb",
        "trailing\n":     "trailing<br />\n",
    }
    for in, want := range cases {
        if got := NL2BR(in); got != want {
            t.Errorf("NL2BR(%q) = %q, want %q", in, got, want)
        }
    }
}

func TestShortDescriptionOfNormalizedText(t *testing.T) {
    l := NewListing("Brie", time.Now())
    l.Description = NL2BR("line1\nline2")
    if got := l.ShortDescription(); got != "line1<br />\nline2" {
        t.Fatalf("ShortDescription = %q", got)
    }
}

func TestCreatedAtAgo(t *testing.T) {
    created := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
    l := NewListing("Gouda", created)
    cases := []struct {
        now  time.Time
        want string
    }{
        {created.Add(3 * time.Hour), "3 hours ago"},
        {created.Add(2 * 24 * time.Hour), "2 days ago"},
        {created.Add(5 * time.Minute), "5 minutes ago"},
    }
    for _, tc := range cases {
        if got := l.CreatedAtAgo(tc.now); got != tc.want {
            t.Errorf("CreatedAtAgo(+%s) = %q, want %q", tc.now.Sub(created), got, tc.want)
        }
    }
    if l.CreatedAt != created {
        t.Fatalf("CreatedAt changed to %v", l.CreatedAt)
    }
}

func TestNewListingDefaults(t *testing.T) {
    now := time.Now()
    l := NewListing("", now)
    if l.IsPublished || l.ID != 0 || l.OwnerID != 0 || !l.CreatedAt.Equal(now) {
        t.Fatalf("unexpected defaults: %+v", l)
    }
}

func TestNormalizeRoles(t *testing.T) {
    cases := []struct {
        in   []string
        want []string
    }{
        {nil, []string{RoleUser}},
        {[]string{"ROLE_ADMIN"}, []string{"ROLE_ADMIN", RoleUser}},
        {[]string{"ROLE_ADMIN", "ROLE_ADMIN", "ROLE_EDITOR"}, []string{"ROLE_ADMIN", "ROLE_EDITOR", RoleUser}},
        {[]string{RoleUser, "ROLE_ADMIN"}, []string{RoleUser, "ROLE_ADMIN"}},
    }
    for _, tc := range cases {
        got := NormalizeRoles(tc.in)
        if !reflect.DeepEqual(got, tc.want) {
            t.Errorf("NormalizeRoles(%v) = %v, want %v", tc.in, got, tc.want)
        }
        if again := NormalizeRoles(got); !reflect.DeepEqual(again, got) {
            t.Errorf("NormalizeRoles not idempotent: %v then %v", got, again)
        }
    }
}

func TestAccountRolesDoesNotTouchStoredSet(t *testing.T) {
    a := NewAccount()
    a.RoleNames = []string{"ROLE_ADMIN"}
    _ = a.Roles()
    if !reflect.DeepEqual(a.RoleNames, []string{"ROLE_ADMIN"}) {
        t.Fatalf("stored roles changed: %v", a.RoleNames)
    }
    if !a.HasRole(RoleUser) || !a.HasRole("ROLE_ADMIN") || a.HasRole("ROLE_ROOT") {
        t.Fatalf("HasRole mismatch for %v", a.Roles())
    }
    cred := a.Credential()
    if !reflect.DeepEqual(cred.Roles, []string{"ROLE_ADMIN", RoleUser}) {
        t.Fatalf("credential roles = %v", cred.Roles)
    }
}

func TestAddRemoveListingRoundTrip(t *testing.T) {
    a := NewAccount()
    a.ID = 7
    l := &Listing{ID: 3}

    if !AddListing(a, l) {
        t.Fatal("AddListing reported no change")
    }
    if l.OwnerID != 7 || !a.OwnsListing(3) {
        t.Fatalf("after add: owner=%d set=%v", l.OwnerID, a.ListingIDs)
    }
    if AddListing(a, l) {
        t.Fatal("second AddListing reported a change")
    }
    if len(a.ListingIDs) != 1 {
        t.Fatalf("listing set = %v, want exactly one entry", a.ListingIDs)
    }

    if !RemoveListing(a, l) {
        t.Fatal("RemoveListing reported no change")
    }
    if l.OwnerID != 0 || a.OwnsListing(3) {
        t.Fatalf("after remove: owner=%d set=%v", l.OwnerID, a.ListingIDs)
    }
    if RemoveListing(a, l) {
        t.Fatal("RemoveListing of absent listing reported a change")
    }
}

func TestRemoveListingKeepsReassignedOwner(t *testing.T) {
    oldOwner := &Account{ID: 1}
    newOwner := &Account{ID: 2}
    l := &Listing{ID: 10}

    AddListing(oldOwner, l)
    AddListing(newOwner, l)
    if l.OwnerID != 2 {
        t.Fatalf("owner = %d, want 2", l.OwnerID)
    }
    RemoveListing(oldOwner, l)
    if l.OwnerID != 2 {
        t.Fatalf("stale removal clobbered owner: %d", l.OwnerID)
    }
    if oldOwner.OwnsListing(10) || !newOwner.OwnsListing(10) {
        t.Fatalf("sets: old=%v new=%v", oldOwner.ListingIDs, newOwner.ListingIDs)
    }
}

func TestAddListingIgnoresUnsavedListing(t *testing.T) {
    a := &Account{ID: 1}
    l := NewListing("Feta", time.Now())
    if AddListing(a, l) || l.OwnerID != 0 || len(a.ListingIDs) != 0 {
        t.Fatalf("unsaved listing was linked: %+v %+v", a, l)
    }
}
