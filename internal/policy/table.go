// Package policy holds the serialization tables: for each resource, which
// fields are emitted on output and accepted on input, under which view, and
// under which external name.  Handlers never marshal entities directly; they
// ask a Table for the Document of a view.
package policy

import (
    "encoding/json"
    "errors"
)

// View is a named subset of fields.  Views combine as a bit set inside a
// Field so one field can belong to several views.
type View uint8

const (
    ViewRead     View = 1 << iota // default output
    ViewItemRead                  // single-item output, superset of ViewRead
    ViewWrite                     // input
)

// Operation is an API operation on a resource.
type Operation string

const (
    OpList    Operation = "list"
    OpCreate  Operation = "create"
    OpGetItem Operation = "get-item"
    OpUpdate  Operation = "update"
)

// OutputView returns the view used to render the result of op.  Collection
// lists use ViewRead; everything addressing a single item uses ViewItemRead.
func OutputView(op Operation) View {
    if op == OpList {
        return ViewRead
    }
    return ViewItemRead
}

// InputView returns the view used to accept a payload for op and false when
// op takes no payload.
func InputView(op Operation) (View, bool) {
    switch op {
    case OpCreate, OpUpdate:
        return ViewWrite, true
    }
    return 0, false
}

// Field is one row of a policy table.
type Field struct {
    Name      string              // identity of the field at the boundary
    External  string              // name on the wire, Name when empty
    Property  string              // entity property written on input, Name when empty
    Views     View                // views the field belongs to
    Derived   bool                // computed at read time, never stored
    Transform func(string) string // applied to string input during acceptance
}

// ExternalName returns the wire name of f.
func (f Field) ExternalName() string {
    if f.External != "" {
        return f.External
    }
    return f.Name
}

// PropertyName returns the entity property f writes to.
func (f Field) PropertyName() string {
    if f.Property != "" {
        return f.Property
    }
    return f.Name
}

// In reports whether f belongs to v.  Every ViewRead field also belongs to
// ViewItemRead.
func (f Field) In(v View) bool {
    if v == ViewItemRead {
        return f.Views&(ViewRead|ViewItemRead) != 0
    }
    return f.Views&v != 0
}

// Table is the policy of one resource.  Output follows the order of Fields.
type Table struct {
    Resource string
    Identity string // field always kept by property filters
    Fields   []Field
}

// Readable returns the fields emitted under v, in table order.
func (t Table) Readable(v View) []Field {
    out := make([]Field, 0, len(t.Fields))
    for _, f := range t.Fields {
        if v != ViewWrite && f.In(v) {
            out = append(out, f)
        }
    }
    return out
}

// Writable returns the fields accepted on input, in table order.
func (t Table) Writable() []Field {
    out := make([]Field, 0, len(t.Fields))
    for _, f := range t.Fields {
        if f.In(ViewWrite) && !f.Derived {
            out = append(out, f)
        }
    }
    return out
}

// Normalize builds the output Document for view v.  values is keyed by field
// Name; fields of the view that have no value are skipped, values of fields
// outside the view are ignored.  props, when non-empty, further restricts the
// output to those external names; the identity field is always kept and
// unknown names are ignored.
func (t Table) Normalize(v View, values map[string]any, props []string) Document {
    var keep map[string]bool
    if len(props) > 0 {
        keep = make(map[string]bool, len(props))
        for _, p := range props {
            keep[p] = true
        }
    }
    doc := make(Document, 0, len(t.Fields))
    for _, f := range t.Readable(v) {
        name := f.ExternalName()
        if keep != nil && !keep[name] && f.Name != t.Identity {
            continue
        }
        val, ok := values[f.Name]
        if !ok {
            continue
        }
        doc = append(doc, Entry{Name: name, Value: val})
    }
    return doc
}

// ErrNotAnObject is returned by Decode when the payload is not a JSON object.
var ErrNotAnObject = errors.New("payload must be a JSON object")

// Decode splits a JSON object payload into its members.
func Decode(body []byte) (map[string]json.RawMessage, error) {
    var raw map[string]json.RawMessage
    if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
        return nil, ErrNotAnObject
    }
    return raw, nil
}

// Accept keeps the members of raw that map to a writable field, keyed by the
// field's property name, with transforms applied.  Members that are not
// writable are returned in dropped and are otherwise ignored: writing to a
// read-only or unknown field is not an error.
func (t Table) Accept(raw map[string]json.RawMessage) (accepted map[string]json.RawMessage, dropped []string) {
    byExternal := make(map[string]Field)
    for _, f := range t.Writable() {
        byExternal[f.ExternalName()] = f
    }
    accepted = make(map[string]json.RawMessage, len(raw))
    for name, val := range raw {
        f, ok := byExternal[name]
        if !ok {
            dropped = append(dropped, name)
            continue
        }
        if f.Transform != nil {
            var s string
            // non-string input is passed through and rejected by the typed decode
            if err := json.Unmarshal(val, &s); err == nil {
                if b, err := json.Marshal(f.Transform(s)); err == nil {
                    val = b
                }
            }
        }
        accepted[f.PropertyName()] = val
    }
    return accepted, dropped
}

// Bind accepts raw through the table and decodes the result into dst, which
// should use json tags matching property names.
func (t Table) Bind(raw map[string]json.RawMessage, dst any) (dropped []string, err error) {
    accepted, dropped := t.Accept(raw)
    b, err := json.Marshal(accepted)
    if err != nil {
        return dropped, err
    }
    if err := json.Unmarshal(b, dst); err != nil {
        return dropped, &BindError{Err: err}
    }
    return dropped, nil
}

// BindError reports an accepted member of the wrong JSON type.
type BindError struct{ Err error }

func (e *BindError) Error() string { return "invalid payload: " + e.Err.Error() }
func (e *BindError) Unwrap() error { return e.Err }
