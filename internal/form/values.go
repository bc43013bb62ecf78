// Package form turns request bodies into submission values and coerces them
// into the scalar shapes a prospect record stores.
//
// Multipart and urlencoded bodies yield []string per key; JSON bodies yield
// whatever the decoder produced. Either way a field may arrive as a list where
// a scalar is expected, and String always reduces it to one string.
package form

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
)

// Values is one submission keyed by field name.
type Values map[string]any

// Field is a submitted value tagged with whether the key was present at all.
type Field struct {
	Value   string
	Present bool
}

// IsSet reports whether the field carries a non-empty value.
func (f Field) IsSet() bool {
	return f.Present && f.Value != ""
}

// Or returns the submitted value when it is non-empty, otherwise fallback.
func (f Field) Or(fallback string) string {
	if f.IsSet() {
		return f.Value
	}
	return fallback
}

// FromJSON decodes a JSON object body. An empty body yields empty Values.
func FromJSON(r io.Reader) (Values, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var values Values
	if err := dec.Decode(&values); err != nil {
		if errors.Is(err, io.EOF) {
			return Values{}, nil
		}
		return nil, err
	}
	if values == nil {
		values = Values{}
	}
	return values, nil
}

// FromMultipart keeps every value list as submitted.
func FromMultipart(mf *multipart.Form) Values {
	values := Values{}
	if mf == nil {
		return values
	}
	for key, list := range mf.Value {
		values[key] = list
	}
	return values
}

func FromURLValues(uv url.Values) Values {
	values := Values{}
	for key, list := range uv {
		values[key] = []string(list)
	}
	return values
}

// Raw returns the value as submitted. A JSON null counts as absent.
func (v Values) Raw(key string) (any, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}

// Field returns the normalized value of key with its presence.
func (v Values) Field(key string) Field {
	raw, ok := v.Raw(key)
	if !ok {
		return Field{}
	}
	return Field{Value: String(raw), Present: true}
}

// String is shorthand for the normalized value of key.
func (v Values) String(key string) string {
	return v.Field(key).Value
}
