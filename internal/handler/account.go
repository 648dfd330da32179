package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/middleware"
    "github.com/iliyamo/cheese-catalog/internal/policy"
    "github.com/iliyamo/cheese-catalog/internal/service"
)

// AccountHandler serves /api/users.
type AccountHandler struct {
    Accounts *service.AccountService
    Log      zerolog.Logger
}

// NewAccountHandler constructs an AccountHandler and panics on a nil service.
func NewAccountHandler(accounts *service.AccountService, log zerolog.Logger) *AccountHandler {
    if accounts == nil {
        panic("nil service passed to NewAccountHandler")
    }
    return &AccountHandler{Accounts: accounts, Log: log}
}

// List returns one page of accounts.
func (h *AccountHandler) List(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    p, err := h.Accounts.List(c.Request().Context(), page, properties(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return respondPage(c, p)
}

// Get returns one account.
func (h *AccountHandler) Get(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
    }
    doc, err := h.Accounts.Get(c.Request().Context(), id, properties(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return respondDoc(c, http.StatusOK, doc)
}

// Register creates an account.
func (h *AccountHandler) Register(c echo.Context) error {
    raw, err := readPayload(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    doc, err := h.Accounts.Register(c.Request().Context(), raw)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if id, ok := doc.Get("id"); ok {
        if n, ok := id.(uint64); ok {
            c.Response().Header().Set(echo.HeaderLocation, policy.AccountIRI(n))
        }
    }
    return respondDoc(c, http.StatusCreated, doc)
}

// Update changes the authenticated account.  Other accounts are forbidden.
func (h *AccountHandler) Update(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
    }
    actor, ok := middleware.AccountID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    raw, err := readPayload(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    doc, err := h.Accounts.Update(c.Request().Context(), actor, id, raw)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return respondDoc(c, http.StatusOK, doc)
}
