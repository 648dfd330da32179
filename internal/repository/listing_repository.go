// This file defines the cheese listing repository backed by MySQL.  A
// listing always belongs to one account through owner_id; the inverse side
// (an account's listing set) is read by AccountRepo.
package repository

import (
    "context"      // context allows passing deadlines and cancellation signals to DB operations
    "database/sql" // sql provides generic database operations and drivers
    "errors"
    "strings"

    "github.com/iliyamo/cheese-catalog/internal/model"
)

// ListingRepo encapsulates all database queries related to listings.
type ListingRepo struct {
    db *sql.DB // db is the underlying database connection pool
}

// NewListingRepo constructs a ListingRepo with the provided DB handle.
func NewListingRepo(db *sql.DB) *ListingRepo {
    return &ListingRepo{db: db}
}

const listingColumns = "l.id, l.owner_id, l.title, l.description, l.price, l.created_at, l.is_published"

func scanListing(row interface{ Scan(...any) error }) (*model.Listing, error) {
    var (
        l     model.Listing
        owner sql.NullInt64
    )
    if err := row.Scan(&l.ID, &owner, &l.Title, &l.Description, &l.Price, &l.CreatedAt, &l.IsPublished); err != nil {
        return nil, err
    }
    if owner.Valid {
        l.OwnerID = uint64(owner.Int64)
    }
    return &l, nil
}

func nullableOwner(id uint64) any {
    if id == 0 {
        return nil
    }
    return id
}

// Create inserts a new listing.  On success the listing's ID field is
// populated with the auto-generated value.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
    const q = `INSERT INTO cheese_listings (owner_id, title, description, price, created_at, is_published)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, nullableOwner(l.OwnerID), l.Title, l.Description, l.Price, l.CreatedAt.UTC(), l.IsPublished)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    l.ID = uint64(id)
    return nil
}

// Update writes every mutable column of l.  created_at is never touched.
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing) error {
    const q = `UPDATE cheese_listings
               SET owner_id = ?, title = ?, description = ?, price = ?, is_published = ?
               WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, nullableOwner(l.OwnerID), l.Title, l.Description, l.Price, l.IsPublished, l.ID)
    if err != nil {
        return err
    }
    // the DSN sets clientFoundRows, so an unchanged row still counts
    if n, _ := res.RowsAffected(); n == 0 {
        return &NotFoundError{Resource: "cheeses", ID: l.ID}
    }
    return nil
}

// GetByID fetches a listing by its ID.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*model.Listing, error) {
    q := "SELECT " + listingColumns + " FROM cheese_listings l WHERE l.id = ?"
    l, err := scanListing(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, &NotFoundError{Resource: "cheeses", ID: id}
        }
        return nil, err
    }
    return l, nil
}

// Search returns one page of listings matching f, ordered by id, and the
// total number of matches.
func (r *ListingRepo) Search(ctx context.Context, f ListingFilter) ([]*model.Listing, int64, error) {
    where := []string{}
    args := []any{}

    if f.IsPublished != nil {
        where = append(where, "l.is_published = ?")
        args = append(args, *f.IsPublished)
    }
    if f.Title != "" {
        where = append(where, "LOWER(l.title) LIKE ?")
        args = append(args, likePattern(f.Title))
    }
    if f.Description != "" {
        where = append(where, "LOWER(l.description) LIKE ?")
        args = append(args, likePattern(f.Description))
    }
    for _, p := range []struct {
        op  string
        val *int
    }{{"<", f.PriceLt}, {"<=", f.PriceLte}, {">", f.PriceGt}, {">=", f.PriceGte}} {
        if p.val != nil {
            where = append(where, "l.price "+p.op+" ?")
            args = append(args, *p.val)
        }
    }
    if f.OwnerID != 0 {
        where = append(where, "l.owner_id = ?")
        args = append(args, f.OwnerID)
    }
    if f.OwnerUsername != "" {
        where = append(where, "LOWER(a.username) LIKE ?")
        args = append(args, likePattern(f.OwnerUsername))
    }

    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }
    from := ` FROM cheese_listings l
              LEFT JOIN accounts a ON a.id = l.owner_id
              WHERE ` + cond

    var total int64
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    dataSQL := "SELECT " + listingColumns + from + " ORDER BY l.id ASC LIMIT ? OFFSET ?"
    argsData := append(append([]any{}, args...), f.Limit(), f.Offset())
    rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]*model.Listing, 0, f.Limit())
    for rows.Next() {
        l, err := scanListing(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, l)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}
