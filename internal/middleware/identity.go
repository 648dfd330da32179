package middleware

// identity.go exposes the authenticated account stored by JWTAuth.  Both
// helpers tolerate unauthenticated requests so they can be used on public
// routes too.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// AccountID returns the id of the authenticated account and false when the
// request carries none.
func AccountID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxAccountID).(uint64)
    return id, ok && id != 0
}

// Roles returns the roles of the authenticated account, nil when anonymous.
func Roles(c echo.Context) []string {
    roles, _ := c.Get(ctxRoles).([]string)
    return roles
}

// userID renders the authenticated account for keys and logs, "guest" when
// no account is authenticated.
func userID(c echo.Context) string {
    if id, ok := AccountID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
