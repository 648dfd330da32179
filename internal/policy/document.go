package policy

import (
    "bytes"
    "encoding/json"
)

// Entry is one emitted field.
type Entry struct {
    Name  string
    Value any
}

// Document is an ordered set of emitted fields.  It carries no encoding of
// its own beyond MarshalJSON so any encoder can walk it.
type Document []Entry

// Get returns the value emitted under name.
func (d Document) Get(name string) (any, bool) {
    for _, e := range d {
        if e.Name == name {
            return e.Value, true
        }
    }
    return nil, false
}

// Names returns the emitted field names in order.
func (d Document) Names() []string {
    out := make([]string, len(d))
    for i, e := range d {
        out[i] = e.Name
    }
    return out
}

// MarshalJSON encodes the document as a JSON object keeping field order.
func (d Document) MarshalJSON() ([]byte, error) {
    var buf bytes.Buffer
    buf.WriteByte('{')
    for i, e := range d {
        if i > 0 {
            buf.WriteByte(',')
        }
        k, err := json.Marshal(e.Name)
        if err != nil {
            return nil, err
        }
        v, err := json.Marshal(e.Value)
        if err != nil {
            return nil, err
        }
        buf.Write(k)
        buf.WriteByte(':')
        buf.Write(v)
    }
    buf.WriteByte('}')
    return buf.Bytes(), nil
}
