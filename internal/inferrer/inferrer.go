// Package inferrer derives JSON Schema fragments from observed JSON values
// and merges fragments describing the same logical position.
package inferrer

import (
	"sort"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/jsonshape/jsonshape/internal/models"
	"github.com/jsonshape/jsonshape/internal/schema"
)

// TypeOf maps a decoded JSON value to its schema type tag. Numbers are
// "integer" when they parse exactly as int64, "number" otherwise.
func TypeOf(value models.JSONValue) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return "integer"
		}
		return "number"
	case string:
		return "string"
	case models.JSONArray:
		return "array"
	case models.JSONObject:
		return "object"
	default:
		// Unreachable for values produced by the parser.
		return "string"
	}
}

// Options controls inference behavior beyond the bare shape.
type Options struct {
	// AdditionalProperties sets the additionalProperties keyword emitted on
	// every inferred object fragment. Closed (false) by default.
	AdditionalProperties bool

	// BoundsFields and EnumFields restrict bounds/enum inference to the
	// named object keys. AllBounds/AllEnum apply them everywhere.
	BoundsFields map[string]struct{}
	EnumFields   map[string]struct{}
	AllBounds    bool
	AllEnum      bool
}

// FieldSet builds the set form Options expects from a list of field names.
func FieldSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// Inferrer converts JSON values into schema fragments.
type Inferrer struct {
	opts Options
}

// New creates an Inferrer with default options: closed objects, no
// bounds or enum inference.
func New() *Inferrer {
	return &Inferrer{}
}

// NewWithOptions creates an Inferrer with custom options.
func NewWithOptions(opts Options) *Inferrer {
	return &Inferrer{opts: opts}
}

// Infer produces the schema fragment describing exactly one observed value.
// It is total: any value produced by the parser is inferable.
func (in *Inferrer) Infer(value models.JSONValue) *schema.Schema {
	// The root position has no field name, so field-scoped bounds/enum
	// inference only applies below it.
	return in.inferNode(value, "")
}

func (in *Inferrer) boundsFor(fieldName string) bool {
	if in.opts.AllBounds {
		return true
	}
	_, ok := in.opts.BoundsFields[fieldName]
	return ok && fieldName != ""
}

func (in *Inferrer) enumFor(fieldName string) bool {
	if in.opts.AllEnum {
		return true
	}
	_, ok := in.opts.EnumFields[fieldName]
	return ok && fieldName != ""
}

func (in *Inferrer) inferNode(value models.JSONValue, fieldName string) *schema.Schema {
	t := TypeOf(value)

	switch t {
	case "object":
		obj := value.(models.JSONObject)
		props := make(map[string]*schema.Schema, len(obj))
		required := make([]string, 0, len(obj))
		for key, val := range obj {
			props[key] = in.inferNode(val, key)
			required = append(required, key)
		}
		sort.Strings(required)
		return &schema.Schema{
			Type:                 schema.TypeSet{"object"},
			Properties:           props,
			Required:             required,
			AdditionalProperties: schema.Bool(in.opts.AdditionalProperties),
		}

	case "array":
		arr := value.(models.JSONArray)
		frag := &schema.Schema{Type: schema.TypeSet{"array"}}
		if len(arr) == 0 {
			// Element type unknown: emit an unconstrained items fragment.
			frag.Items = &schema.Schema{}
			if in.boundsFor(fieldName) {
				frag.MinItems = intPtr(0)
				frag.MaxItems = intPtr(0)
			}
			return frag
		}
		// Elements share the array's field name so field-scoped options
		// follow them down.
		items := in.inferNode(arr[0], fieldName)
		for _, element := range arr[1:] {
			items = Merge(items, in.inferNode(element, fieldName))
		}
		frag.Items = items
		if in.boundsFor(fieldName) {
			frag.MinItems = intPtr(len(arr))
			frag.MaxItems = intPtr(len(arr))
		}
		return frag
	}

	// Scalars
	frag := &schema.Schema{Type: schema.TypeSet{t}}
	if in.boundsFor(fieldName) {
		switch t {
		case "integer", "number":
			num := value.(json.Number)
			frag.Minimum = numberPtr(num)
			frag.Maximum = numberPtr(num)
		case "string":
			length := utf8.RuneCountInString(value.(string))
			frag.MinLength = intPtr(length)
			frag.MaxLength = intPtr(length)
		}
	}
	if in.enumFor(fieldName) {
		frag.Enum = []interface{}{value}
	}
	return frag
}

// Merge combines two fragments observed for the same logical position into
// one fragment that validates everything either side would validate, and
// requires only what both sides require. Merge is total, commutative and
// associative, so a sequence of observations can be folded in any order.
func Merge(a, b *schema.Schema) *schema.Schema {
	if a == nil {
		a = &schema.Schema{}
	}
	if b == nil {
		b = &schema.Schema{}
	}

	// A side that already carries anyOf stays a union of alternatives:
	// flatten both sides into one deduplicated branch list.
	if len(a.AnyOf) > 0 || len(b.AnyOf) > 0 {
		return mergeAnyOf(a, b)
	}

	out := &schema.Schema{}
	out.Type = mergeTypes(a.Type, b.Type)

	// Object details
	if a.Properties != nil || b.Properties != nil || a.Type.Has("object") || b.Type.Has("object") {
		merged := make(map[string]*schema.Schema, len(a.Properties)+len(b.Properties))
		for key, frag := range a.Properties {
			if other, ok := b.Properties[key]; ok {
				merged[key] = Merge(frag, other)
			} else {
				// Present on one side only: the other side allows absence,
				// the shape itself is unchanged.
				merged[key] = frag
			}
		}
		for key, frag := range b.Properties {
			if _, ok := a.Properties[key]; !ok {
				merged[key] = frag
			}
		}
		out.Properties = merged

		if req := mergeRequired(a.Required, b.Required); len(req) > 0 {
			out.Required = req
		}

		// Closed only if both sides were explicitly closed.
		if a.AdditionalProperties.IsFalse() && b.AdditionalProperties.IsFalse() {
			out.AdditionalProperties = schema.Bool(false)
		}
	}

	// Array details. A missing items fragment is unconstrained and must not
	// narrow the other side.
	if a.Items != nil || b.Items != nil || a.Type.Has("array") || b.Type.Has("array") {
		switch {
		case a.Items != nil && b.Items != nil:
			out.Items = Merge(a.Items, b.Items)
		case a.Items != nil:
			out.Items = a.Items
		case b.Items != nil:
			out.Items = b.Items
		}
	}

	mergeBounds(out, a, b)
	out.Enum = mergeEnums(a.Enum, b.Enum)

	return out
}

// mergeTypes unions the two type sets, then widens integer into number:
// once any non-integer numeric value has been observed at a position,
// integer is subsumed rather than kept alongside.
func mergeTypes(a, b schema.TypeSet) schema.TypeSet {
	union := a.Union(b)
	if union.Has("integer") && union.Has("number") {
		widened := make(schema.TypeSet, 0, len(union)-1)
		for _, t := range union {
			if t != "integer" {
				widened = append(widened, t)
			}
		}
		return widened
	}
	return union
}

// mergeRequired intersects the required sets: a key stays required only if
// every merged observation carried it.
func mergeRequired(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inA := make(map[string]struct{}, len(a))
	for _, key := range a {
		inA[key] = struct{}{}
	}
	var inter []string
	for _, key := range b {
		if _, ok := inA[key]; ok {
			inter = append(inter, key)
		}
	}
	sort.Strings(inter)
	return inter
}

func mergeAnyOf(a, b *schema.Schema) *schema.Schema {
	branches := make([]*schema.Schema, 0, len(a.AnyOf)+len(b.AnyOf)+2)
	if len(a.AnyOf) > 0 {
		branches = append(branches, a.AnyOf...)
	} else {
		branches = append(branches, a)
	}
	if len(b.AnyOf) > 0 {
		branches = append(branches, b.AnyOf...)
	} else {
		branches = append(branches, b)
	}

	seen := make(map[string]struct{}, len(branches))
	deduped := make([]*schema.Schema, 0, len(branches))
	for _, branch := range branches {
		key := branch.CanonicalKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, branch)
	}
	return &schema.Schema{AnyOf: deduped}
}

// mergeBounds keeps merged constraints conservative: minimums take the
// smaller value, maximums the larger, one-sided constraints carry over.
func mergeBounds(out, a, b *schema.Schema) {
	out.Minimum = mergeNumber(a.Minimum, b.Minimum, false)
	out.Maximum = mergeNumber(a.Maximum, b.Maximum, true)
	out.MinLength = mergeInt(a.MinLength, b.MinLength, false)
	out.MaxLength = mergeInt(a.MaxLength, b.MaxLength, true)
	out.MinItems = mergeInt(a.MinItems, b.MinItems, false)
	out.MaxItems = mergeInt(a.MaxItems, b.MaxItems, true)
}

func mergeNumber(a, b *json.Number, wantMax bool) *json.Number {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if (wantMax && LessThan(*a, *b)) || (!wantMax && LessThan(*b, *a)) {
		return b
	}
	return a
}

// LessThan reports whether a is numerically smaller than b. Malformed
// numbers cannot reach this point through the parser; they compare equal.
func LessThan(a, b json.Number) bool {
	af, errA := a.Float64()
	bf, errB := b.Float64()
	if errA != nil || errB != nil {
		return false
	}
	return af < bf
}

func mergeInt(a, b *int, wantMax bool) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if (wantMax && *b > *a) || (!wantMax && *b < *a) {
		return b
	}
	return a
}

// mergeEnums unions enum values, preserving first-seen order.
func mergeEnums(a, b []interface{}) []interface{} {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]interface{}, 0, len(a)+len(b))
	for _, values := range [][]interface{}{a, b} {
		for _, value := range values {
			key := canonicalValue(value)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, value)
		}
	}
	return merged
}

func canonicalValue(value interface{}) string {
	data, err := json.Marshal(value)
	if err != nil {
		return "!err"
	}
	return string(data)
}

func intPtr(v int) *int { return &v }

func numberPtr(n json.Number) *json.Number { return &n }
