// Package queue defines message payloads exchanged over the message broker
// together with the publisher and consumer that move them.
package queue

// Listing change actions.
const (
    ActionCreated     = "created"
    ActionUpdated     = "updated"
    ActionPublished   = "published"
    ActionUnpublished = "unpublished"
)

// ListingChangedEvent is published after a listing write has been stored.
// It carries the write-side facts only; consumers that need the rendered
// resource fetch it from the API.
type ListingChangedEvent struct {
    EventID     string `json:"event_id"`
    Action      string `json:"action"`
    ListingID   uint64 `json:"listing_id"`
    OwnerID     uint64 `json:"owner_id"`
    ActorID     uint64 `json:"actor_id,omitempty"`
    Title       string `json:"title"`
    Price       int    `json:"price"`
    IsPublished bool   `json:"is_published"`
    OccurredAt  string `json:"occurred_at"`
}
