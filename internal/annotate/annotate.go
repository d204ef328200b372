// Package annotate decorates an inferred schema tree with metadata
// addressed by dot-paths: titles, descriptions, and bounds/enum values
// computed from the observed data. It never changes the inferred shape
// (type, properties, required, items).
package annotate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/iancoleman/strcase"

	"github.com/jsonshape/jsonshape/internal/inferrer"
	"github.com/jsonshape/jsonshape/internal/models"
	"github.com/jsonshape/jsonshape/internal/schema"
)

// Directive requests decoration of the fragment at a dot-path, e.g.
// "price" or "order.items.sku". Array positions are traversed
// transparently: a path segment always names an object property.
type Directive struct {
	Path        string
	Title       string
	Description string

	// Bounds computes minimum/maximum (numbers) or minLength/maxLength
	// (strings) from every value observed at the path.
	Bounds bool
	// Enum collects the distinct scalar values observed at the path.
	Enum bool
}

// Warning reports a directive that could not be applied. Unknown paths are
// deliberately non-fatal: inference is best-effort over the given sample.
type Warning struct {
	Path   string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("annotation for %q skipped: %s", w.Path, w.Reason)
}

// Apply decorates the schema tree in place. Data should hold every sample
// document the schema was inferred from, so bounds and enums cover all
// observations.
func Apply(root *schema.Schema, data []models.JSONValue, directives []Directive) []Warning {
	var warnings []Warning
	for _, d := range directives {
		segments := splitPath(d.Path)
		if len(segments) == 0 {
			warnings = append(warnings, Warning{Path: d.Path, Reason: "empty path"})
			continue
		}

		frag := findFragment(root, segments)
		if frag == nil {
			warnings = append(warnings, Warning{Path: d.Path, Reason: "no such field in the inferred schema"})
			continue
		}

		if d.Title != "" {
			frag.Title = d.Title
		}
		if d.Description != "" {
			frag.Description = d.Description
		}

		if d.Bounds || d.Enum {
			var observed []models.JSONValue
			for _, doc := range data {
				observed = append(observed, collectValues(doc, segments)...)
			}
			if len(observed) == 0 {
				warnings = append(warnings, Warning{Path: d.Path, Reason: "no observed values in the sample data"})
				continue
			}
			if d.Bounds {
				applyBounds(frag, observed)
			}
			if d.Enum {
				applyEnum(frag, observed)
			}
		}
	}
	return warnings
}

// AutoTitles fills in a human-readable title for every property fragment
// that does not already have one, derived from the property key
// ("in_stock" becomes "In Stock"). The root fragment is left alone; its
// title belongs to the document metadata.
func AutoTitles(root *schema.Schema) {
	if root == nil {
		return
	}
	for key, frag := range root.Properties {
		if frag.Title == "" {
			frag.Title = TitleForKey(key)
		}
		AutoTitles(frag)
	}
	AutoTitles(root.Items)
	for _, branch := range root.AnyOf {
		AutoTitles(branch)
	}
}

// TitleForKey humanizes a JSON key into a title.
func TitleForKey(key string) string {
	delimited := strcase.ToDelimited(key, ' ')
	words := strings.Fields(delimited)
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		words[i] = strings.ToUpper(string(r)) + word[size:]
	}
	return strings.Join(words, " ")
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, ".") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return nil
		}
		segments = append(segments, seg)
	}
	return segments
}

// findFragment walks the schema tree along property names, descending
// through items fragments without consuming a segment.
func findFragment(frag *schema.Schema, segments []string) *schema.Schema {
	if frag == nil {
		return nil
	}
	if len(segments) == 0 {
		return frag
	}
	if child, ok := frag.Properties[segments[0]]; ok {
		return findFragment(child, segments[1:])
	}
	if frag.Items != nil {
		return findFragment(frag.Items, segments)
	}
	return nil
}

// collectValues walks the data tree along the same rules findFragment uses
// for the schema tree, fanning out over array elements.
func collectValues(value models.JSONValue, segments []string) []models.JSONValue {
	if len(segments) == 0 {
		return []models.JSONValue{value}
	}
	switch v := value.(type) {
	case models.JSONObject:
		child, ok := v[segments[0]]
		if !ok {
			return nil
		}
		return collectValues(child, segments[1:])
	case models.JSONArray:
		var out []models.JSONValue
		for _, element := range v {
			out = append(out, collectValues(element, segments)...)
		}
		return out
	default:
		return nil
	}
}

// applyBounds mirrors what the inferrer's bounds options compute: value
// bounds for numbers, length bounds for strings, item count bounds for
// arrays. Array elements additionally feed the items fragment.
func applyBounds(frag *schema.Schema, observed []models.JSONValue) {
	var elements []models.JSONValue
	for _, value := range observed {
		switch v := value.(type) {
		case json.Number:
			frag.Minimum = minNumber(frag.Minimum, v)
			frag.Maximum = maxNumber(frag.Maximum, v)
		case string:
			length := utf8.RuneCountInString(v)
			if frag.MinLength == nil || length < *frag.MinLength {
				minLen := length
				frag.MinLength = &minLen
			}
			if frag.MaxLength == nil || length > *frag.MaxLength {
				maxLen := length
				frag.MaxLength = &maxLen
			}
		case models.JSONArray:
			count := len(v)
			if frag.MinItems == nil || count < *frag.MinItems {
				minCount := count
				frag.MinItems = &minCount
			}
			if frag.MaxItems == nil || count > *frag.MaxItems {
				maxCount := count
				frag.MaxItems = &maxCount
			}
			elements = append(elements, v...)
		}
	}
	if len(elements) > 0 && frag.Items != nil {
		applyBounds(frag.Items, elements)
	}
}

// applyEnum collects distinct scalars. Array values contribute their
// elements to the items fragment, the way element enums are inferred.
func applyEnum(frag *schema.Schema, observed []models.JSONValue) {
	var scalars []models.JSONValue
	var elements []models.JSONValue
	for _, value := range observed {
		switch v := value.(type) {
		case models.JSONObject:
			// Enums are collected for scalars only.
		case models.JSONArray:
			elements = append(elements, v...)
		default:
			scalars = append(scalars, value)
		}
	}
	if len(elements) > 0 && frag.Items != nil {
		applyEnum(frag.Items, elements)
	}
	if len(scalars) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(scalars)+len(frag.Enum))
	merged := make([]interface{}, 0, len(scalars)+len(frag.Enum))
	add := func(value interface{}) {
		data, err := json.Marshal(value)
		if err != nil {
			return
		}
		if _, ok := seen[string(data)]; ok {
			return
		}
		seen[string(data)] = struct{}{}
		merged = append(merged, value)
	}
	for _, value := range frag.Enum {
		add(value)
	}
	for _, value := range scalars {
		add(value)
	}
	frag.Enum = merged
}

func minNumber(current *json.Number, candidate json.Number) *json.Number {
	if current == nil {
		return &candidate
	}
	if inferrer.LessThan(candidate, *current) {
		return &candidate
	}
	return current
}

func maxNumber(current *json.Number, candidate json.Number) *json.Number {
	if current == nil {
		return &candidate
	}
	if inferrer.LessThan(*current, candidate) {
		return &candidate
	}
	return current
}
