// Package service orchestrates the write and read paths of both resources.
// A write accepts the submitted members through the policy table, applies
// them to the entity, validates the result and only then stores it.  A read
// loads the entity and renders it through the policy table for the view of
// the operation.
package service

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/model"
    "github.com/iliyamo/cheese-catalog/internal/policy"
    "github.com/iliyamo/cheese-catalog/internal/queue"
    "github.com/iliyamo/cheese-catalog/internal/repository"
    "github.com/iliyamo/cheese-catalog/internal/validation"
)

// ListingStore is implemented by repository.ListingRepo and
// repository.MemoryListings.
type ListingStore interface {
    Create(ctx context.Context, l *model.Listing) error
    Update(ctx context.Context, l *model.Listing) error
    GetByID(ctx context.Context, id uint64) (*model.Listing, error)
    Search(ctx context.Context, f repository.ListingFilter) ([]*model.Listing, int64, error)
}

// AccountStore is implemented by repository.AccountRepo and
// repository.MemoryAccounts.
type AccountStore interface {
    validation.AccountLookup
    Create(ctx context.Context, a *model.Account) error
    Update(ctx context.Context, a *model.Account) error
    GetByID(ctx context.Context, id uint64) (*model.Account, error)
    GetByEmail(ctx context.Context, email string) (*model.Account, error)
    List(ctx context.Context, page, perPage int) ([]*model.Account, int64, error)
}

// EventPublisher is implemented by queue.Publisher.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.ListingChangedEvent) error
}

// Page is one page of a rendered collection.
type Page struct {
    Items        []policy.Document `json:"items"`
    TotalItems   int64             `json:"totalItems"`
    Page         int               `json:"page"`
    ItemsPerPage int               `json:"itemsPerPage"`
}

// isNull reports whether name was submitted as an explicit JSON null.
func isNull(raw map[string]json.RawMessage, name string) bool {
    v, ok := raw[name]
    return ok && string(v) == "null"
}

func logDropped(log zerolog.Logger, resource string, dropped []string) {
    if len(dropped) > 0 {
        log.Debug().Str("resource", resource).Strs("fields", dropped).Msg("ignored non-writable fields")
    }
}

func newEventID() string { return uuid.NewString() }

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
