package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/config"
    "github.com/iliyamo/cheese-catalog/internal/utils"
)

func ok(c echo.Context) error {
    id, _ := AccountID(c)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "user": userID(c)})
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthAndRoles(t *testing.T) {
    e := echo.New()
    e.GET("/me", ok, JWTAuth("k"))
    e.GET("/admin", ok, JWTAuth("k"), RequireRole("ROLE_ADMIN"))

    user, _ := utils.NewAccessToken("k", 7, []string{"ROLE_USER"}, 5)
    admin, _ := utils.NewAccessToken("k", 8, []string{"ROLE_ADMIN", "ROLE_USER"}, 5)
    forged, _ := utils.NewAccessToken("other", 8, []string{"ROLE_ADMIN"}, 5)

    cases := []struct {
        path  string
        token string
        code  int
    }{
        {"/me", "", http.StatusUnauthorized},
        {"/me", forged.Token, http.StatusUnauthorized},
        {"/me", user.Token, http.StatusOK},
        {"/admin", user.Token, http.StatusForbidden},
        {"/admin", admin.Token, http.StatusOK},
    }
    for _, tc := range cases {
        if rec := serve(e, http.MethodGet, tc.path, tc.token); rec.Code != tc.code {
            t.Errorf("%s: code = %d, want %d", tc.path, rec.Code, tc.code)
        }
    }
}

func TestMemoryRateLimiter(t *testing.T) {
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    e := echo.New()
    e.GET("/x", ok, NewRateLimiter(cfg, nil, zerolog.Nop()))

    for i := 0; i < 2; i++ {
        if rec := serve(e, http.MethodGet, "/x", ""); rec.Code != http.StatusOK {
            t.Fatalf("request %d: code = %d", i, rec.Code)
        }
    }
    rec := serve(e, http.MethodGet, "/x", "")
    if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "3600" {
        t.Fatalf("code = %d retry = %q", rec.Code, rec.Header().Get("Retry-After"))
    }
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
    e := echo.New()
    e.GET("/x", ok,
        NewRateLimiter(config.RateLimitConfig{Enabled: false}, nil, zerolog.Nop()),
        NewRedisCache(config.CacheConfig{Enabled: true}, nil, zerolog.Nop()))
    if rec := serve(e, http.MethodGet, "/x", ""); rec.Code != http.StatusOK {
        t.Fatalf("code = %d", rec.Code)
    }
}

func TestCachePayloadEncoding(t *testing.T) {
    hdr := http.Header{"Content-Type": {"text/csv"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte("a,b\n"))
    if err != nil {
        t.Fatal(err)
    }
    status, got, body, ok := decodePayload(bs)
    if !ok || status != http.StatusOK || got.Get("Content-Type") != "text/csv" || string(body) != "a,b\n" {
        t.Fatalf("status=%d hdr=%v body=%q ok=%v", status, got, body, ok)
    }
    if _, _, _, ok := decodePayload(bs[:5]); ok {
        t.Fatal("short payload decoded")
    }
}

func TestRequestIDIsSet(t *testing.T) {
    e := echo.New()
    e.Use(RequestID(), RequestLogger(zerolog.Nop()))
    e.GET("/x", ok)
    rec := serve(e, http.MethodGet, "/x", "")
    if len(rec.Header().Get(echo.HeaderXRequestID)) != 36 {
        t.Fatalf("request id = %q", rec.Header().Get(echo.HeaderXRequestID))
    }
}
