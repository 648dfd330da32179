package service

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "testing"
    "time"

    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/policy"
    "github.com/iliyamo/cheese-catalog/internal/queue"
    "github.com/iliyamo/cheese-catalog/internal/repository"
    "github.com/iliyamo/cheese-catalog/internal/validation"
)

type recordingPublisher struct {
    events []queue.ListingChangedEvent
    err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ListingChangedEvent) error {
    p.events = append(p.events, ev)
    return p.err
}

type fixture struct {
    store    *repository.MemoryStore
    listings *ListingService
    accounts *AccountService
    events   *recordingPublisher
    now      time.Time
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    store := repository.NewMemoryStore()
    v := validation.New(store.Accounts())
    events := &recordingPublisher{}
    f := &fixture{
        store:    store,
        events:   events,
        now:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
        accounts: NewAccountService(store.Accounts(), v, 4, zerolog.Nop()),
    }
    f.listings = NewListingService(store.Listings(), store.Accounts(), v, events, zerolog.Nop())
    f.listings.Now = func() time.Time { return f.now }
    return f
}

func payload(t *testing.T, v map[string]any) map[string]json.RawMessage {
    t.Helper()
    b, err := json.Marshal(v)
    if err != nil {
        t.Fatal(err)
    }
    raw, err := policy.Decode(b)
    if err != nil {
        t.Fatal(err)
    }
    return raw
}

func (f *fixture) register(t *testing.T, email, username string) uint64 {
    t.Helper()
    doc, err := f.accounts.Register(context.Background(), payload(t, map[string]any{
        "email": email, "username": username, "password": "secret",
    }))
    if err != nil {
        t.Fatalf("register %s: %v", email, err)
    }
    id, _ := doc.Get("id")
    return id.(uint64)
}

func (f *fixture) create(t *testing.T, owner uint64, title string, price int) uint64 {
    t.Helper()
    doc, err := f.listings.Create(context.Background(), owner, payload(t, map[string]any{
        "title": title, "description": "A cheese.", "price": price, "owner": policy.AccountIRI(owner),
    }))
    if err != nil {
        t.Fatalf("create %s: %v", title, err)
    }
    id, _ := doc.Get("id")
    return id.(uint64)
}

func asViolations(t *testing.T, err error) validation.Violations {
    t.Helper()
    var v validation.Violations
    if !errors.As(err, &v) {
        t.Fatalf("expected violations, got %v", err)
    }
    return v
}

func TestCreateListingRendersItemView(t *testing.T) {
    f := newFixture(t)
    owner := f.register(t, "owner@example.com", "owner")

    doc, err := f.listings.Create(context.Background(), owner, payload(t, map[string]any{
        "title":       "Brie",
        "description": "Soft\nand creamy",
        "price":       1500,
        "owner":       policy.AccountIRI(owner),
        "isPublished": true,
        "createdAt":   "2000-01-01",
    }))
    if err != nil {
        t.Fatal(err)
    }
    want := []string{"id", "title", "shortDescription", "price", "createdAtAgo", "owner"}
    if got := doc.Names(); len(got) != len(want) {
        t.Fatalf("names = %v, want %v", got, want)
    }
    if v, _ := doc.Get("shortDescription"); v != "Soft<br />\nand creamy" {
        t.Fatalf("shortDescription = %q", v)
    }
    if v, _ := doc.Get("createdAtAgo"); v != "now" {
        t.Fatalf("createdAtAgo = %q", v)
    }
    if v, _ := doc.Get("owner"); v != policy.AccountIRI(owner) {
        t.Fatalf("owner = %v", v)
    }

    id, _ := doc.Get("id")
    stored, err := f.store.Listings().GetByID(context.Background(), id.(uint64))
    if err != nil {
        t.Fatal(err)
    }
    if stored.IsPublished {
        t.Fatal("isPublished must not be writable")
    }
    if !stored.CreatedAt.Equal(f.now) {
        t.Fatalf("createdAt = %v", stored.CreatedAt)
    }

    acc, _ := f.store.Accounts().GetByID(context.Background(), owner)
    if !acc.OwnsListing(stored.ID) {
        t.Fatalf("listing %d not in owner set %v", stored.ID, acc.ListingIDs)
    }
    if len(f.events.events) != 1 || f.events.events[0].Action != queue.ActionCreated {
        t.Fatalf("events = %+v", f.events.events)
    }
}

func TestCreateListingCollectsViolations(t *testing.T) {
    f := newFixture(t)
    _, err := f.listings.Create(context.Background(), 0, payload(t, map[string]any{"title": "A", "price": -1}))
    v := asViolations(t, err)
    for _, want := range []struct {
        field string
        kind  validation.Kind
    }{
        {"title", validation.LengthExceeded},
        {"description", validation.NotBlank},
        {"price", validation.NotPositive},
        {"owner", validation.NotBlank},
    } {
        if !v.Has(want.field, want.kind) {
            t.Errorf("missing %s/%s in %v", want.field, want.kind, v)
        }
    }
    if _, total, _ := f.store.Listings().Search(context.Background(), repository.ListingFilter{}); total != 0 {
        t.Fatalf("stored %d listings after violation", total)
    }
    if len(f.events.events) != 0 {
        t.Fatal("event published for rejected write")
    }
}

func TestCreateListingOwnerReferences(t *testing.T) {
    f := newFixture(t)
    _, err := f.listings.Create(context.Background(), 0, payload(t, map[string]any{
        "title": "Brie", "description": "soft", "price": 1, "owner": "/api/users/99",
    }))
    if !errors.Is(err, repository.ErrNotFound) {
        t.Fatalf("missing owner: err = %v", err)
    }

    _, err = f.listings.Create(context.Background(), 0, payload(t, map[string]any{
        "title": "Brie", "description": "soft", "price": 1, "owner": "/api/cheeses/abc",
    }))
    v := asViolations(t, err)
    if !v.Has("owner", validation.InvalidReference) || len(v.OnField("owner")) != 1 {
        t.Fatalf("violations = %v", v)
    }
}

func TestUpdateIsPartialAndAllOrNothing(t *testing.T) {
    f := newFixture(t)
    owner := f.register(t, "owner@example.com", "owner")
    id := f.create(t, owner, "Brie", 1500)

    doc, err := f.listings.Update(context.Background(), owner, id, payload(t, map[string]any{"price": 1800}))
    if err != nil {
        t.Fatal(err)
    }
    if v, _ := doc.Get("price"); v != 1800 {
        t.Fatalf("price = %v", v)
    }
    if v, _ := doc.Get("title"); v != "Brie" {
        t.Fatalf("title = %v", v)
    }

    _, err = f.listings.Update(context.Background(), owner, id, payload(t, map[string]any{"title": "Camembert", "price": 0}))
    asViolations(t, err)
    stored, _ := f.store.Listings().GetByID(context.Background(), id)
    if stored.Title != "Brie" || stored.Price != 1800 {
        t.Fatalf("partial write persisted: %+v", stored)
    }
}

func TestUpdateReassignsOwner(t *testing.T) {
    f := newFixture(t)
    alice := f.register(t, "alice@example.com", "alice")
    bob := f.register(t, "bob@example.com", "bob")
    id := f.create(t, alice, "Gouda", 900)

    if _, err := f.listings.Update(context.Background(), alice, id, payload(t, map[string]any{"owner": policy.AccountIRI(bob)})); err != nil {
        t.Fatal(err)
    }
    a, _ := f.store.Accounts().GetByID(context.Background(), alice)
    b, _ := f.store.Accounts().GetByID(context.Background(), bob)
    if a.OwnsListing(id) || !b.OwnsListing(id) {
        t.Fatalf("alice=%v bob=%v", a.ListingIDs, b.ListingIDs)
    }
    l, _ := f.store.Listings().GetByID(context.Background(), id)
    if l.OwnerID != bob {
        t.Fatalf("owner = %d", l.OwnerID)
    }
}

func TestUpdateMissingListing(t *testing.T) {
    f := newFixture(t)
    _, err := f.listings.Update(context.Background(), 1, 42, payload(t, map[string]any{"price": 1}))
    var nf *repository.NotFoundError
    if !errors.As(err, &nf) || nf.ID != 42 {
        t.Fatalf("err = %v", err)
    }
}

func TestSetPublishedOwnerOnly(t *testing.T) {
    f := newFixture(t)
    alice := f.register(t, "alice@example.com", "alice")
    bob := f.register(t, "bob@example.com", "bob")
    id := f.create(t, alice, "Feta", 700)

    if _, err := f.listings.SetPublished(context.Background(), bob, id, true); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("err = %v", err)
    }
    if _, err := f.listings.SetPublished(context.Background(), alice, id, true); err != nil {
        t.Fatal(err)
    }
    l, _ := f.store.Listings().GetByID(context.Background(), id)
    if !l.IsPublished {
        t.Fatal("not published")
    }
    last := f.events.events[len(f.events.events)-1]
    if last.Action != queue.ActionPublished || last.ActorID != alice {
        t.Fatalf("event = %+v", last)
    }
}

func TestListFiltersAndPages(t *testing.T) {
    f := newFixture(t)
    alice := f.register(t, "alice@example.com", "alice")
    bob := f.register(t, "bob@example.com", "bobby")
    for i := 0; i < 12; i++ {
        f.create(t, alice, "Cheddar", 100+i)
    }
    f.create(t, bob, "Blue Stilton", 5000)

    p, err := f.listings.List(context.Background(), repository.ListingFilter{Page: 2}, nil)
    if err != nil {
        t.Fatal(err)
    }
    if p.TotalItems != 13 || len(p.Items) != 3 || p.ItemsPerPage != 10 || p.Page != 2 {
        t.Fatalf("page = %+v", p)
    }
    if names := p.Items[0].Names(); len(names) != 6 {
        t.Fatalf("read view names = %v", names)
    }

    gt := 1000
    p, _ = f.listings.List(context.Background(), repository.ListingFilter{PriceGt: &gt}, nil)
    if p.TotalItems != 1 {
        t.Fatalf("price filter total = %d", p.TotalItems)
    }
    p, _ = f.listings.List(context.Background(), repository.ListingFilter{OwnerUsername: "BOB"}, []string{"title"})
    if p.TotalItems != 1 {
        t.Fatalf("owner.username filter total = %d", p.TotalItems)
    }
    if names := p.Items[0].Names(); len(names) != 2 || names[0] != "id" || names[1] != "title" {
        t.Fatalf("properties = %v", names)
    }
}

func TestRegisterAndAuthenticate(t *testing.T) {
    f := newFixture(t)
    doc, err := f.accounts.Register(context.Background(), payload(t, map[string]any{
        "email": " Cheese@Example.com ", "username": "cheesehead", "password": "secret", "roles": []string{"ROLE_ADMIN"},
    }))
    if err != nil {
        t.Fatal(err)
    }
    if _, ok := doc.Get("password"); ok {
        t.Fatal("password rendered")
    }
    if v, _ := doc.Get("email"); v != "cheese@example.com" {
        t.Fatalf("email = %v", v)
    }

    cred, err := f.accounts.Authenticate(context.Background(), "cheese@example.com", "secret")
    if err != nil {
        t.Fatal(err)
    }
    if len(cred.Roles) != 1 || cred.Roles[0] != "ROLE_USER" {
        t.Fatalf("roles = %v", cred.Roles)
    }
    if _, err := f.accounts.Authenticate(context.Background(), "cheese@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
        t.Fatalf("wrong password: %v", err)
    }
    if _, err := f.accounts.Authenticate(context.Background(), "nobody@example.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
        t.Fatalf("unknown email: %v", err)
    }

    _, err = f.accounts.Register(context.Background(), payload(t, map[string]any{
        "email": "cheese@example.com", "username": "cheesehead", "password": "x",
    }))
    v := asViolations(t, err)
    if !v.Has("email", validation.DuplicateValue) || !v.Has("username", validation.DuplicateValue) {
        t.Fatalf("violations = %v", v)
    }
}

func TestRegisterMultibytePasswordTooLong(t *testing.T) {
    f := newFixture(t)
    _, err := f.accounts.Register(context.Background(), payload(t, map[string]any{
        "email": "a@b.co", "username": "ann", "password": strings.Repeat("é", 40),
    }))
    if v := asViolations(t, err); !v.Has("password", validation.LengthExceeded) {
        t.Fatalf("violations = %v", v)
    }
}

func TestAccountUpdateSelfOnly(t *testing.T) {
    f := newFixture(t)
    alice := f.register(t, "alice@example.com", "alice")
    bob := f.register(t, "bob@example.com", "bob")

    if _, err := f.accounts.Update(context.Background(), bob, alice, payload(t, map[string]any{"username": "x"})); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("err = %v", err)
    }
    doc, err := f.accounts.Update(context.Background(), alice, alice, payload(t, map[string]any{"username": "alicia", "password": "new"}))
    if err != nil {
        t.Fatal(err)
    }
    if v, _ := doc.Get("username"); v != "alicia" {
        t.Fatalf("username = %v", v)
    }
    if _, err := f.accounts.Authenticate(context.Background(), "alice@example.com", "new"); err != nil {
        t.Fatalf("new password rejected: %v", err)
    }
    _, err = f.accounts.Update(context.Background(), alice, alice, payload(t, map[string]any{"username": "bob"}))
    if !asViolations(t, err).Has("username", validation.DuplicateValue) {
        t.Fatal("duplicate username accepted")
    }
}
