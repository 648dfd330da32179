package repository

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

func TestLikePatternEscapes(t *testing.T) {
    cases := map[string]string{
        "Brie":  "%brie%",
        "50%":   `%50\%%`,
        "a_b":   `%a\_b%`,
        `c:\d`:  `%c:\\d%`,
    }
    for in, want := range cases {
        if got := likePattern(in); got != want {
            t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
        }
    }
}

func TestFilterMatches(t *testing.T) {
    yes, lo, hi := true, 10, 20
    l := &model.Listing{ID: 1, OwnerID: 2, Title: "Blue Stilton", Description: "Strong", Price: 15, IsPublished: true}
    match := []ListingFilter{
        {},
        {IsPublished: &yes},
        {Title: "stil"},
        {Description: "STRONG"},
        {PriceGte: &lo, PriceLte: &hi},
        {OwnerID: 2, OwnerUsername: "ann"},
    }
    for i, f := range match {
        if !f.Matches(l, "Joanna") {
            t.Errorf("filter %d should match", i)
        }
    }
    miss := []ListingFilter{
        {PriceLt: &lo},
        {PriceGt: &hi},
        {OwnerID: 3},
        {OwnerUsername: "bob"},
        {Title: "brie"},
    }
    for i, f := range miss {
        if f.Matches(l, "Joanna") {
            t.Errorf("filter %d should not match", i)
        }
    }
}

func TestFilterOffset(t *testing.T) {
    for page, want := range map[int]int{0: 0, 1: 0, 2: 10, 5: 40} {
        if got := (ListingFilter{Page: page}).Offset(); got != want {
            t.Errorf("page %d offset = %d, want %d", page, got, want)
        }
    }
}

func TestMemoryStoreOwnershipHydration(t *testing.T) {
    ctx := context.Background()
    s := NewMemoryStore()
    a := model.NewAccount()
    a.Email, a.Username = "Ann@Example.com", "ann"
    if err := s.Accounts().Create(ctx, a); err != nil {
        t.Fatal(err)
    }
    for _, title := range []string{"Brie", "Feta"} {
        l := model.NewListing(title, time.Now())
        l.OwnerID = a.ID
        if err := s.Listings().Create(ctx, l); err != nil {
            t.Fatal(err)
        }
    }
    got, err := s.Accounts().GetByID(ctx, a.ID)
    if err != nil {
        t.Fatal(err)
    }
    if len(got.ListingIDs) != 2 || got.ListingIDs[0] != 1 || got.ListingIDs[1] != 2 {
        t.Fatalf("listing ids = %v", got.ListingIDs)
    }
    if got.Email != "ann@example.com" {
        t.Fatalf("email = %q", got.Email)
    }

    dup := model.NewAccount()
    dup.Email, dup.Username = "ann@example.com", "other"
    if err := s.Accounts().Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
        t.Fatalf("duplicate: %v", err)
    }
    if _, err := s.Accounts().GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("missing email: %v", err)
    }
}

func TestMemoryListingsAreCopies(t *testing.T) {
    ctx := context.Background()
    s := NewMemoryStore()
    l := model.NewListing("Brie", time.Unix(0, 0))
    _ = s.Listings().Create(ctx, l)
    l.Title = "changed"
    got, _ := s.Listings().GetByID(ctx, l.ID)
    if got.Title != "Brie" {
        t.Fatalf("store aliased caller: %q", got.Title)
    }

    got.CreatedAt = time.Now()
    if err := s.Listings().Update(ctx, got); err != nil {
        t.Fatal(err)
    }
    again, _ := s.Listings().GetByID(ctx, l.ID)
    if !again.CreatedAt.Equal(time.Unix(0, 0)) {
        t.Fatal("createdAt changed by update")
    }

    var nf *NotFoundError
    if _, err := s.Listings().GetByID(ctx, 99); !errors.As(err, &nf) || !errors.Is(err, ErrNotFound) {
        t.Fatalf("err = %v", err)
    }
}
