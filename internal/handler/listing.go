package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/middleware"
    "github.com/iliyamo/cheese-catalog/internal/policy"
    "github.com/iliyamo/cheese-catalog/internal/repository"
    "github.com/iliyamo/cheese-catalog/internal/service"
)

// ListingHandler serves /api/cheeses.
type ListingHandler struct {
    Listings *service.ListingService
    Log      zerolog.Logger
}

// NewListingHandler constructs a ListingHandler and panics on a nil service.
func NewListingHandler(listings *service.ListingService, log zerolog.Logger) *ListingHandler {
    if listings == nil {
        panic("nil service passed to NewListingHandler")
    }
    return &ListingHandler{Listings: listings, Log: log}
}

// List returns one page of listings in the read view.
//
// Filters: isPublished, title, description, price[lt|lte|gt|gte|between],
// owner, owner.username and page.  Values that do not parse are ignored.
func (h *ListingHandler) List(c echo.Context) error {
    page, err := h.Listings.List(c.Request().Context(), listingFilter(c), properties(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return respondPage(c, page)
}

// Get returns one listing in the item-read view.
func (h *ListingHandler) Get(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
    }
    doc, err := h.Listings.Get(c.Request().Context(), id, properties(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return respondDoc(c, http.StatusOK, doc)
}

// Create stores a new listing from the write view.
func (h *ListingHandler) Create(c echo.Context) error {
    raw, err := readPayload(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    actor, _ := middleware.AccountID(c)
    doc, err := h.Listings.Create(c.Request().Context(), actor, raw)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if id, ok := doc.Get("id"); ok {
        if n, ok := id.(uint64); ok {
            c.Response().Header().Set(echo.HeaderLocation, policy.ListingIRI(n))
        }
    }
    return respondDoc(c, http.StatusCreated, doc)
}

// Update applies the write view to an existing listing.  PUT and PATCH both
// change only the submitted members.
func (h *ListingHandler) Update(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
    }
    raw, err := readPayload(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    actor, _ := middleware.AccountID(c)
    doc, err := h.Listings.Update(c.Request().Context(), actor, id, raw)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return respondDoc(c, http.StatusOK, doc)
}

// Publish marks a listing as published.  Owner only.
func (h *ListingHandler) Publish(c echo.Context) error { return h.setPublished(c, true) }

// Unpublish withdraws a listing.  Owner only.
func (h *ListingHandler) Unpublish(c echo.Context) error { return h.setPublished(c, false) }

func (h *ListingHandler) setPublished(c echo.Context, published bool) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
    }
    actor, ok := middleware.AccountID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    doc, err := h.Listings.SetPublished(c.Request().Context(), actor, id, published)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return respondDoc(c, http.StatusOK, doc)
}

// listingFilter reads the collection filters from the query string.
func listingFilter(c echo.Context) repository.ListingFilter {
    f := repository.ListingFilter{
        Title:         strings.TrimSpace(c.QueryParam("title")),
        Description:   strings.TrimSpace(c.QueryParam("description")),
        OwnerUsername: strings.TrimSpace(c.QueryParam("owner.username")),
    }
    if b, err := strconv.ParseBool(c.QueryParam("isPublished")); err == nil {
        f.IsPublished = &b
    }
    f.PriceLt = queryInt(c, "price[lt]")
    f.PriceLte = queryInt(c, "price[lte]")
    f.PriceGt = queryInt(c, "price[gt]")
    f.PriceGte = queryInt(c, "price[gte]")
    if lo, hi, ok := strings.Cut(c.QueryParam("price[between]"), ".."); ok {
        a, errA := strconv.Atoi(strings.TrimSpace(lo))
        b, errB := strconv.Atoi(strings.TrimSpace(hi))
        if errA == nil && errB == nil {
            if a > b {
                a, b = b, a
            }
            f.PriceGte, f.PriceLte = &a, &b
        }
    }
    if ref := c.QueryParam("owner"); ref != "" {
        if id, err := policy.ParseAccountIRI(ref); err == nil {
            f.OwnerID = id
        }
    }
    f.Page, _ = strconv.Atoi(c.QueryParam("page"))
    if f.Page < 1 {
        f.Page = 1
    }
    return f
}

func queryInt(c echo.Context, name string) *int {
    n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
    if err != nil {
        return nil
    }
    return &n
}
