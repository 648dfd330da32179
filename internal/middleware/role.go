package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated account holds at least one of the given roles.  The roles
// are the normalized set carried by the access token, so ROLE_USER is held
// by every authenticated account.  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            for _, r := range Roles(c) {
                if allowed[r] {
                    return next(c)
                }
            }
            return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
        }
    }
}
