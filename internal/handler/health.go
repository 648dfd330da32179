package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http" // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health returns a health-check endpoint for load balancers and monitoring.
// With no checks it answers plain "ok".  Otherwise every check runs with a
// two second budget and any failure turns the answer into 503 with the
// failing names.
func Health(checks map[string]Check) echo.HandlerFunc {
    return func(c echo.Context) error {
        if len(checks) == 0 {
            return c.String(http.StatusOK, "ok")
        }
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        failed := map[string]string{}
        for name, check := range checks {
            if err := check(ctx); err != nil {
                failed[name] = err.Error()
            }
        }
        if len(failed) > 0 {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "failed": failed})
        }
        return c.String(http.StatusOK, "ok")
    }
}
