package handler // handler defines http handlers

import (
    "encoding/csv"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/cheese-catalog/internal/policy"
    "github.com/iliyamo/cheese-catalog/internal/repository"
    "github.com/iliyamo/cheese-catalog/internal/service"
    "github.com/iliyamo/cheese-catalog/internal/validation"
)

const mimeCSV = "text/csv"

// maxPayloadBytes caps request bodies read by readPayload.
const maxPayloadBytes = 1 << 20

// wantsCSV reports whether the client asked for CSV, through ?format=csv or
// an Accept header naming text/csv.
func wantsCSV(c echo.Context) bool {
    if f := strings.ToLower(c.QueryParam("format")); f != "" {
        return f == "csv"
    }
    return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), mimeCSV)
}

// respondDoc writes one rendered resource.
func respondDoc(c echo.Context, status int, doc policy.Document) error {
    if wantsCSV(c) {
        return writeCSV(c, status, []policy.Document{doc})
    }
    return c.JSON(status, doc)
}

// respondPage writes one rendered collection page.  CSV carries the rows
// only; the paging totals travel in headers.
func respondPage(c echo.Context, p service.Page) error {
    if wantsCSV(c) {
        h := c.Response().Header()
        h.Set("X-Total-Items", strconv.FormatInt(p.TotalItems, 10))
        h.Set("X-Page", strconv.Itoa(p.Page))
        h.Set("X-Items-Per-Page", strconv.Itoa(p.ItemsPerPage))
        return writeCSV(c, http.StatusOK, p.Items)
    }
    return c.JSON(http.StatusOK, p)
}

// writeCSV emits a header row with the field names of the first document
// and one row per document.  Every document of one response comes from the
// same view, so they share their names.
func writeCSV(c echo.Context, status int, docs []policy.Document) error {
    c.Response().Header().Set(echo.HeaderContentType, mimeCSV+"; charset=utf-8")
    c.Response().WriteHeader(status)
    w := csv.NewWriter(c.Response())
    if len(docs) > 0 {
        names := docs[0].Names()
        if err := w.Write(names); err != nil {
            return err
        }
        for _, d := range docs {
            row := make([]string, len(names))
            for i, n := range names {
                v, _ := d.Get(n)
                row[i] = csvCell(v)
            }
            if err := w.Write(row); err != nil {
                return err
            }
        }
    }
    w.Flush()
    return w.Error()
}

func csvCell(v any) string {
    switch t := v.(type) {
    case nil:
        return ""
    case string:
        return t
    case []string:
        return strings.Join(t, ",")
    }
    return fmt.Sprint(v)
}

// readPayload reads the request body as a JSON object.
func readPayload(c echo.Context) (map[string]json.RawMessage, error) {
    body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
    if err != nil {
        return nil, err
    }
    return policy.Decode(body)
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}

// properties reads the property filter from properties[]=a&properties[]=b
// or properties=a,b.
func properties(c echo.Context) []string {
    q := c.QueryParams()
    var out []string
    for _, key := range []string{"properties[]", "properties"} {
        for _, v := range q[key] {
            for _, p := range strings.Split(v, ",") {
                if p = strings.TrimSpace(p); p != "" {
                    out = append(out, p)
                }
            }
        }
    }
    return out
}

// writeError maps service and repository errors onto HTTP responses.
func writeError(c echo.Context, log zerolog.Logger, err error) error {
    var violations validation.Violations
    var bindErr *policy.BindError
    switch {
    case errors.As(err, &violations):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "violations": violations})
    case errors.As(err, &bindErr), errors.Is(err, policy.ErrNotAnObject):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_payload", "message": err.Error()})
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrInvalidCredentials):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    case errors.Is(err, repository.ErrDuplicate):
        return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate"})
    }
    log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
}
