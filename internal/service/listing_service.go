package service

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/model"
    "github.com/iliyamo/cheese-catalog/internal/policy"
    "github.com/iliyamo/cheese-catalog/internal/queue"
    "github.com/iliyamo/cheese-catalog/internal/repository"
    "github.com/iliyamo/cheese-catalog/internal/validation"
)

// ListingService implements the listing operations.
type ListingService struct {
    Listings  ListingStore
    Accounts  AccountStore
    Validator *validation.Validator
    Events    EventPublisher // nil disables events
    Log       zerolog.Logger
    Now       func() time.Time
}

// NewListingService wires a ListingService with the wall clock.
func NewListingService(listings ListingStore, accounts AccountStore, v *validation.Validator, events EventPublisher, log zerolog.Logger) *ListingService {
    return &ListingService{
        Listings:  listings,
        Accounts:  accounts,
        Validator: v,
        Events:    events,
        Log:       log.With().Str("service", "listing").Logger(),
        Now:       time.Now,
    }
}

func (s *ListingService) now() time.Time {
    if s.Now == nil {
        return time.Now()
    }
    return s.Now()
}

// Create builds a listing from a write-view payload and stores it.  The
// result is the item-read rendering of the stored listing.
func (s *ListingService) Create(ctx context.Context, actorID uint64, raw map[string]json.RawMessage) (policy.Document, error) {
    var in policy.ListingInput
    dropped, err := policy.Listing.Bind(raw, &in)
    if err != nil {
        return nil, err
    }
    logDropped(s.Log, policy.Listing.Resource, dropped)

    l := model.NewListing(deref(in.Title), s.now())
    l.Description = deref(in.Description)
    if in.Price != nil {
        l.Price = *in.Price
    }

    owner, badRef, err := s.resolveOwner(ctx, in.Owner)
    if err != nil {
        return nil, err
    }
    if owner != nil {
        l.OwnerID = owner.ID
    }
    if err := s.check(l, owner, in.Price != nil, badRef); err != nil {
        return nil, err
    }

    if err := s.Listings.Create(ctx, l); err != nil {
        return nil, err
    }
    model.AddListing(owner, l)
    s.publish(ctx, queue.ActionCreated, actorID, l)
    return policy.NormalizeListing(l, policy.OpCreate, s.now(), nil), nil
}

// Update applies a write-view payload to listing id.  Only submitted
// members change.  The changes are made on a copy, so nothing is stored
// when any constraint fails.
func (s *ListingService) Update(ctx context.Context, actorID, id uint64, raw map[string]json.RawMessage) (policy.Document, error) {
    current, err := s.Listings.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    var in policy.ListingInput
    dropped, err := policy.Listing.Bind(raw, &in)
    if err != nil {
        return nil, err
    }
    logDropped(s.Log, policy.Listing.Resource, dropped)

    next := *current
    if in.Title != nil || isNull(raw, "title") {
        next.Title = deref(in.Title)
    }
    if in.Description != nil || isNull(raw, "description") {
        next.Description = deref(in.Description)
    }
    priceSet := true
    if in.Price != nil {
        next.Price = *in.Price
    } else if isNull(raw, "price") {
        next.Price, priceSet = 0, false
    }

    var owner *model.Account
    badRef := false
    switch {
    case isNull(raw, "owner"):
        if current.OwnerID != 0 {
            if prev, err := s.Accounts.GetByID(ctx, current.OwnerID); err == nil {
                model.RemoveListing(prev, &next)
            }
        }
        next.OwnerID = 0
    case in.Owner != nil:
        owner, badRef, err = s.resolveOwner(ctx, in.Owner)
        if err != nil {
            return nil, err
        }
        if owner != nil && owner.ID != current.OwnerID {
            if err := s.reassign(ctx, &next, owner, current.OwnerID); err != nil {
                return nil, err
            }
        }
    case next.OwnerID != 0:
        owner, err = s.Accounts.GetByID(ctx, next.OwnerID)
        if err != nil && !errors.Is(err, repository.ErrNotFound) {
            return nil, err
        }
    }

    if err := s.check(&next, owner, priceSet, badRef); err != nil {
        return nil, err
    }
    if err := s.Listings.Update(ctx, &next); err != nil {
        return nil, err
    }
    s.publish(ctx, queue.ActionUpdated, actorID, &next)
    return policy.NormalizeListing(&next, policy.OpUpdate, s.now(), nil), nil
}

// reassign moves l from its previous owner to owner on both sides of the
// link.  The previous owner may be gone.
func (s *ListingService) reassign(ctx context.Context, l *model.Listing, owner *model.Account, prevID uint64) error {
    model.AddListing(owner, l)
    if prevID == 0 {
        return nil
    }
    prev, err := s.Accounts.GetByID(ctx, prevID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return nil
        }
        return err
    }
    model.RemoveListing(prev, l)
    return nil
}

// Get renders listing id for the item-read view.
func (s *ListingService) Get(ctx context.Context, id uint64, props []string) (policy.Document, error) {
    l, err := s.Listings.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    return policy.NormalizeListing(l, policy.OpGetItem, s.now(), props), nil
}

// List renders one page of listings matching f for the read view.
func (s *ListingService) List(ctx context.Context, f repository.ListingFilter, props []string) (Page, error) {
    items, total, err := s.Listings.Search(ctx, f)
    if err != nil {
        return Page{}, err
    }
    now := s.now()
    out := make([]policy.Document, 0, len(items))
    for _, l := range items {
        out = append(out, policy.NormalizeListing(l, policy.OpList, now, props))
    }
    page := f.Page
    if page < 1 {
        page = 1
    }
    return Page{Items: out, TotalItems: total, Page: page, ItemsPerPage: f.Limit()}, nil
}

// SetPublished changes the publication flag of listing id.  Only the owner
// may do so; anyone else gets repository.ErrForbidden.
func (s *ListingService) SetPublished(ctx context.Context, actorID, id uint64, published bool) (policy.Document, error) {
    l, err := s.Listings.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if l.OwnerID == 0 || l.OwnerID != actorID {
        return nil, repository.ErrForbidden
    }
    if l.IsPublished != published {
        l.IsPublished = published
        if err := s.Listings.Update(ctx, l); err != nil {
            return nil, err
        }
        action := queue.ActionUnpublished
        if published {
            action = queue.ActionPublished
        }
        s.publish(ctx, action, actorID, l)
    }
    return policy.NormalizeListing(l, policy.OpUpdate, s.now(), nil), nil
}

// resolveOwner loads the account a submitted owner reference names.  A
// reference that does not parse is reported through badRef; a well-formed
// reference to a missing account is a NotFoundError.
func (s *ListingService) resolveOwner(ctx context.Context, ref *string) (owner *model.Account, badRef bool, err error) {
    if ref == nil {
        return nil, false, nil
    }
    id, perr := policy.ParseAccountIRI(*ref)
    if perr != nil {
        return nil, true, nil
    }
    owner, err = s.Accounts.GetByID(ctx, id)
    if err != nil {
        return nil, false, err
    }
    return owner, false, nil
}

// check validates l and folds a malformed owner reference into the same
// violation list.
func (s *ListingService) check(l *model.Listing, owner *model.Account, priceSet, badRef bool) error {
    err := s.Validator.Listing(l, owner, priceSet)
    if !badRef {
        return err
    }
    var out validation.Violations
    if err != nil && !errors.As(err, &out) {
        return err
    }
    kept := out[:0:0]
    for _, v := range out {
        if v.Field != "owner" {
            kept = append(kept, v)
        }
    }
    kept.Add("owner", validation.InvalidReference)
    return kept
}

func (s *ListingService) publish(ctx context.Context, action string, actorID uint64, l *model.Listing) {
    if s.Events == nil {
        return
    }
    ev := queue.ListingChangedEvent{
        EventID:     newEventID(),
        Action:      action,
        ListingID:   l.ID,
        OwnerID:     l.OwnerID,
        ActorID:     actorID,
        Title:       l.Title,
        Price:       l.Price,
        IsPublished: l.IsPublished,
        OccurredAt:  stamp(s.now()),
    }
    if err := s.Events.Publish(ctx, ev); err != nil {
        s.Log.Warn().Err(err).Uint64("listing_id", l.ID).Str("action", action).Msg("event not published")
    }
}

func deref(p *string) string {
    if p == nil {
        return ""
    }
    return *p
}
