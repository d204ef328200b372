// Package schema defines the inferred JSON Schema fragment type and its
// draft 2020-12 document rendering.
package schema

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
)

// DraftURI is the identifier of the JSON Schema draft this tool emits.
const DraftURI = "https://json-schema.org/draft/2020-12/schema"

// TypeSet holds the JSON Schema "type" keyword, which can be a single
// string or an array of strings. The set is kept sorted and duplicate-free.
type TypeSet []string

// UnmarshalJSON handles both string and array forms of type
func (ts *TypeSet) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ts = TypeSet{s}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*ts = TypeSet(arr)
		return nil
	}

	return fmt.Errorf("type must be string or array of strings")
}

// MarshalJSON emits a bare string for a single type and an array otherwise.
func (ts TypeSet) MarshalJSON() ([]byte, error) {
	if len(ts) == 1 {
		return json.Marshal(ts[0])
	}
	return json.Marshal([]string(ts))
}

// Has reports whether the set contains the given type tag.
func (ts TypeSet) Has(name string) bool {
	for _, t := range ts {
		if t == name {
			return true
		}
	}
	return false
}

// Union returns the sorted, deduplicated union of two type sets.
func (ts TypeSet) Union(other TypeSet) TypeSet {
	if len(ts) == 0 && len(other) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ts)+len(other))
	for _, t := range ts {
		seen[t] = struct{}{}
	}
	for _, t := range other {
		seen[t] = struct{}{}
	}
	out := make(TypeSet, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AdditionalProperties handles the additionalProperties keyword, which can
// be a boolean or a nested schema.
type AdditionalProperties struct {
	Allowed bool    // If true, any additional properties allowed; if false, none allowed
	Schema  *Schema // If set, additional properties must match this schema
}

// Bool returns an AdditionalProperties carrying a plain boolean.
func Bool(allowed bool) *AdditionalProperties {
	return &AdditionalProperties{Allowed: allowed}
}

// IsFalse reports whether this is the explicit boolean false form.
func (ap *AdditionalProperties) IsFalse() bool {
	return ap != nil && ap.Schema == nil && !ap.Allowed
}

// UnmarshalJSON handles both boolean and schema forms
func (ap *AdditionalProperties) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		ap.Allowed = b
		ap.Schema = nil
		return nil
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err == nil {
		ap.Allowed = true
		ap.Schema = &s
		return nil
	}

	return fmt.Errorf("additionalProperties must be boolean or schema")
}

// MarshalJSON emits the schema form when present, the boolean otherwise.
func (ap AdditionalProperties) MarshalJSON() ([]byte, error) {
	if ap.Schema != nil {
		return json.Marshal(ap.Schema)
	}
	return json.Marshal(ap.Allowed)
}

// Schema is one inferred schema fragment: the shape of every value observed
// at one tree position. The root fragment doubles as the schema document
// once the $schema keyword is attached by Document.
//
// Nil and empty collections are distinct on purpose: a nil Properties map
// means "no object observed" and is omitted from output, while an empty
// non-nil map renders as "properties": {} (the shape of an empty object).
// Required follows the same convention.
type Schema struct {
	SchemaURI   string `json:"$schema,omitempty"`
	ID          string `json:"$id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type TypeSet `json:"type,omitempty"`

	Enum []interface{} `json:"enum,omitempty"`

	// Object keywords
	Properties           map[string]*Schema    `json:"properties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *AdditionalProperties `json:"additionalProperties,omitempty"`

	// Array keywords
	Items *Schema `json:"items,omitempty"`

	// Bounds
	Minimum   *json.Number `json:"minimum,omitempty"`
	Maximum   *json.Number `json:"maximum,omitempty"`
	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`
	MinItems  *int         `json:"minItems,omitempty"`
	MaxItems  *int         `json:"maxItems,omitempty"`

	AnyOf []*Schema `json:"anyOf,omitempty"`
}

// IsEmpty reports whether the fragment carries no constraints at all ({}),
// i.e. it validates every value.
func (s *Schema) IsEmpty() bool {
	return s == nil || (len(s.Type) == 0 && len(s.Enum) == 0 &&
		s.Properties == nil && s.Required == nil && s.AdditionalProperties == nil &&
		s.Items == nil && s.AnyOf == nil &&
		s.Minimum == nil && s.Maximum == nil &&
		s.MinLength == nil && s.MaxLength == nil &&
		s.MinItems == nil && s.MaxItems == nil &&
		s.SchemaURI == "" && s.ID == "" && s.Title == "" && s.Description == "")
}

// MarshalJSON writes keywords in a fixed order so output is byte-stable.
// The struct tags above only drive unmarshaling; omitempty alone cannot
// express the nil-vs-empty distinction for properties and required.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	emit := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %q: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(key))
		buf.WriteByte(':')
		buf.Write(data)
		return nil
	}

	if s.SchemaURI != "" {
		if err := emit("$schema", s.SchemaURI); err != nil {
			return nil, err
		}
	}
	if s.ID != "" {
		if err := emit("$id", s.ID); err != nil {
			return nil, err
		}
	}
	if s.Title != "" {
		if err := emit("title", s.Title); err != nil {
			return nil, err
		}
	}
	if s.Description != "" {
		if err := emit("description", s.Description); err != nil {
			return nil, err
		}
	}
	if len(s.Type) > 0 {
		if err := emit("type", s.Type); err != nil {
			return nil, err
		}
	}
	if len(s.Enum) > 0 {
		if err := emit("enum", s.Enum); err != nil {
			return nil, err
		}
	}
	if s.Properties != nil {
		if err := emit("properties", s.Properties); err != nil {
			return nil, err
		}
	}
	if s.Required != nil {
		if err := emit("required", s.Required); err != nil {
			return nil, err
		}
	}
	if s.AdditionalProperties != nil {
		if err := emit("additionalProperties", s.AdditionalProperties); err != nil {
			return nil, err
		}
	}
	if s.Items != nil {
		if err := emit("items", s.Items); err != nil {
			return nil, err
		}
	}
	if s.Minimum != nil {
		if err := emit("minimum", s.Minimum); err != nil {
			return nil, err
		}
	}
	if s.Maximum != nil {
		if err := emit("maximum", s.Maximum); err != nil {
			return nil, err
		}
	}
	if s.MinLength != nil {
		if err := emit("minLength", s.MinLength); err != nil {
			return nil, err
		}
	}
	if s.MaxLength != nil {
		if err := emit("maxLength", s.MaxLength); err != nil {
			return nil, err
		}
	}
	if s.MinItems != nil {
		if err := emit("minItems", s.MinItems); err != nil {
			return nil, err
		}
	}
	if s.MaxItems != nil {
		if err := emit("maxItems", s.MaxItems); err != nil {
			return nil, err
		}
	}
	if len(s.AnyOf) > 0 {
		if err := emit("anyOf", s.AnyOf); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CanonicalKey returns a deterministic serialization of the fragment,
// suitable for deduplication.
func (s *Schema) CanonicalKey() string {
	data, err := json.Marshal(s)
	if err != nil {
		// Fragments are built from decoded JSON values only, so marshaling
		// cannot fail in practice.
		return fmt.Sprintf("!err:%v", err)
	}
	return string(data)
}

// Meta carries root-level metadata for a rendered schema document.
type Meta struct {
	ID          string
	Title       string
	Description string
}

// Document renders a fragment into a full schema document carrying the
// draft 2020-12 identifier and optional root metadata. The fragment itself
// is not modified.
func Document(fragment *Schema, meta Meta) *Schema {
	doc := *fragment
	doc.SchemaURI = DraftURI
	if meta.ID != "" {
		doc.ID = meta.ID
	}
	if meta.Title != "" {
		doc.Title = meta.Title
	}
	if meta.Description != "" {
		doc.Description = meta.Description
	}
	return &doc
}
