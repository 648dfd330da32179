package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/cheese-catalog/internal/handler"    // handlers for each resource
    "github.com/iliyamo/cheese-catalog/internal/middleware" // JWT authentication and role enforcement
    "github.com/iliyamo/cheese-catalog/internal/model"
)

// Deps carries everything the routes need.  Cache and RateLimit may be nil.
type Deps struct {
    Listings  *handler.ListingHandler
    Accounts  *handler.AccountHandler
    Auth      *handler.AuthHandler
    Health    echo.HandlerFunc
    JWTSecret string
    Cache     echo.MiddlewareFunc
    RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers the health check outside the API group so load
// balancers are neither cached nor rate limited.
func RegisterRoutes(e *echo.Echo, d Deps) {
    health := d.Health
    if health == nil {
        health = handler.Health(nil)
    }
    e.GET("/healthz", health)
    RegisterAPI(e, d)
}

// RegisterAPI registers the /api group.  Reads are public; writes require a
// bearer token, and publication changes additionally require ROLE_USER.
func RegisterAPI(e *echo.Echo, d Deps) {
    g := e.Group("/api")
    if d.RateLimit != nil {
        g.Use(d.RateLimit)
    }
    if d.Cache != nil {
        g.Use(d.Cache)
    }
    auth := middleware.JWTAuth(d.JWTSecret)

    g.POST("/login", d.Auth.Login)

    g.GET("/cheeses", d.Listings.List)
    g.POST("/cheeses", d.Listings.Create, auth)
    g.GET("/cheeses/:id", d.Listings.Get)
    g.PUT("/cheeses/:id", d.Listings.Update, auth)
    g.PATCH("/cheeses/:id", d.Listings.Update, auth)
    g.PUT("/cheeses/:id/publish", d.Listings.Publish, auth, middleware.RequireRole(model.RoleUser))
    g.PUT("/cheeses/:id/unpublish", d.Listings.Unpublish, auth, middleware.RequireRole(model.RoleUser))

    g.GET("/users", d.Accounts.List)
    g.POST("/users", d.Accounts.Register)
    g.GET("/users/:id", d.Accounts.Get)
    g.PUT("/users/:id", d.Accounts.Update, auth)
}
