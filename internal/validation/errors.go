// Package validation checks listings and accounts before they are written.
// Every violated constraint of a payload is collected into one Violations
// error; nothing short-circuits on the first failure.
package validation

import (
    "fmt"
    "strings"
)

// Kind names the constraint a value violated.
type Kind string

const (
    NotBlank         Kind = "NotBlank"
    LengthExceeded   Kind = "LengthExceeded"
    NotPositive      Kind = "NotPositive"
    DuplicateValue   Kind = "DuplicateValue"
    InvalidReference Kind = "InvalidReference"
    InvalidFormat    Kind = "InvalidFormat"
)

// ValidationError is one violated constraint on one field.
type ValidationError struct {
    Field   string `json:"field"`
    Kind    Kind   `json:"kind"`
    Message string `json:"message"`
}

func (e ValidationError) Error() string {
    return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Kind)
}

// Violations is the full list of constraint failures of one payload.
type Violations []ValidationError

func (v Violations) Error() string {
    parts := make([]string, len(v))
    for i, e := range v {
        parts[i] = e.Error()
    }
    return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation using the default message of kind.
func (v *Violations) Add(field string, kind Kind) {
    *v = append(*v, ValidationError{Field: field, Kind: kind, Message: message(kind)})
}

// Has reports whether field violated kind.
func (v Violations) Has(field string, kind Kind) bool {
    for _, e := range v {
        if e.Field == field && e.Kind == kind {
            return true
        }
    }
    return false
}

// OnField returns the violations of field.
func (v Violations) OnField(field string) Violations {
    var out Violations
    for _, e := range v {
        if e.Field == field {
            out = append(out, e)
        }
    }
    return out
}

// Err returns v as an error, or nil when empty.
func (v Violations) Err() error {
    if len(v) == 0 {
        return nil
    }
    return v
}

func message(kind Kind) string {
    switch kind {
    case NotBlank:
        return "This value should not be blank."
    case LengthExceeded:
        return "This value has an invalid length."
    case NotPositive:
        return "This value should be positive."
    case DuplicateValue:
        return "This value is already used."
    case InvalidReference:
        return "This value is not a valid reference."
    }
    return "This value is not valid."
}

// tagMessage words a struct tag failure.  The tag decides the text; kind is
// the fallback.
func tagMessage(kind Kind, tag, param string) string {
    switch tag {
    case "min":
        return fmt.Sprintf("This value is too short. It should have %s characters or more.", param)
    case "max":
        return fmt.Sprintf("This value is too long. It should have %s characters or less.", param)
    case "maxbytes":
        return fmt.Sprintf("This value is too long. It should have %s bytes or less.", param)
    case "email":
        return "This value is not a valid email address."
    }
    return message(kind)
}
