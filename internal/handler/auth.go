package handler

import (
    "context"  // provides context with cancellation for store calls
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/config"  // app configuration
    "github.com/iliyamo/cheese-catalog/internal/policy"  // resource references
    "github.com/iliyamo/cheese-catalog/internal/service" // credential checks
    "github.com/iliyamo/cheese-catalog/internal/utils"   // token issuing
)

// AuthHandler bundles dependencies for the login endpoint.
type AuthHandler struct {
    Cfg      config.Config
    Accounts *service.AccountService
    Log      zerolog.Logger
}

func NewAuthHandler(cfg config.Config, accounts *service.AccountService, log zerolog.Logger) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Accounts: accounts, Log: log}
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type loginResp struct {
    User   string    `json:"user"`  // IRI of the authenticated account
    Roles  []string  `json:"roles"` // normalized roles carried by the token
    Access tokenPart `json:"access"`
}

// Login verifies an email and password pair and returns an access token.
// The login endpoint is the only place roles leave the server.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    cred, err := h.Accounts.Authenticate(ctx, req.Email, req.Password)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, cred.AccountID, cred.Roles, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, loginResp{
        User:   policy.AccountIRI(cred.AccountID),
        Roles:  cred.Roles,
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}
