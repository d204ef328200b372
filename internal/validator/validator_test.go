package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonshape/jsonshape/internal/models"
	"github.com/jsonshape/jsonshape/internal/parser"
)

func mustParse(t *testing.T, input string) models.JSONValue {
	t.Helper()
	ir, err := parser.ParseString(input)
	require.NoError(t, err)
	return ir.Root
}

func TestCheckSchema_WellFormed(t *testing.T) {
	schemas := []string{
		`true`,
		`false`,
		`{}`,
		`{"type":"object","properties":{"name":{"type":"string","minLength":1}},"required":["name"],"additionalProperties":false}`,
		`{"type":["integer","string"]}`,
		`{"anyOf":[{"type":"string"},{"type":"null"}]}`,
		`{"type":"array","items":{"type":"number"},"minItems":0,"maxItems":10}`,
		`{"type":"number","minimum":0,"maximum":100}`,
		`{"enum":["a","b"]}`,
		`{"additionalProperties":{"type":"string"}}`,
	}

	for _, raw := range schemas {
		t.Run(raw, func(t *testing.T) {
			assert.Empty(t, CheckSchema(mustParse(t, raw)))
		})
	}
}

func TestCheckSchema_Findings(t *testing.T) {
	tests := []struct {
		name     string
		schema   string
		expected string
	}{
		{"non-object root", `"nope"`, `$: schema must be an object or boolean`},
		{"bad type kind", `{"type": 42}`, `$.type: must be a string or array of strings`},
		{"empty type array", `{"type": []}`, `$.type: array must not be empty`},
		{"unknown type", `{"type": "float"}`, `$.type[0]: unsupported type "float"`},
		{"duplicate type", `{"type": ["string","string"]}`, `$.type[1]: duplicate type "string"`},
		{"anyOf not array", `{"anyOf": {}}`, `$.anyOf: must be an array`},
		{"anyOf empty", `{"anyOf": []}`, `$.anyOf: must not be empty`},
		{"anyOf nested", `{"anyOf": [{"type":"bogus"}]}`, `$.anyOf[0].type[0]: unsupported type "bogus"`},
		{"enum not array", `{"enum": "a"}`, `$.enum: must be an array`},
		{"enum empty", `{"enum": []}`, `$.enum: must not be empty`},
		{"properties not object", `{"properties": []}`, `$.properties: must be an object`},
		{"nested property", `{"properties": {"a": {"type": 1}}}`, `$.properties.a.type: must be a string or array of strings`},
		{"quoted property path", `{"properties": {"odd key": "nope"}}`, `$.properties["odd key"]: schema must be an object or boolean`},
		{"required not array", `{"required": "name"}`, `$.required: must be an array`},
		{"required non-string", `{"required": [1]}`, `$.required[0]: must be a string`},
		{"required duplicate", `{"required": ["a","a"]}`, `$.required[1]: duplicate field "a"`},
		{"additionalProperties kind", `{"additionalProperties": 1}`, `$.additionalProperties: must be a boolean or object`},
		{"items kind", `{"items": "no"}`, `$.items: must be a boolean or object`},
		{"minimum kind", `{"minimum": "0"}`, `$.minimum: must be a number`},
		{"minLength kind", `{"minLength": 1.5}`, `$.minLength: must be an integer`},
		{"minLength negative", `{"minLength": -1}`, `$.minLength: must be >= 0`},
		{"inverted bounds", `{"minimum": 5, "maximum": 1}`, `$: minimum cannot be greater than maximum`},
		{"inverted lengths", `{"minLength": 3, "maxLength": 1}`, `$: minLength cannot be greater than maxLength`},
		{"inverted items", `{"minItems": 2, "maxItems": 1}`, `$: minItems cannot be greater than maxItems`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := CheckSchema(mustParse(t, tt.schema))
			assert.Contains(t, findings, tt.expected)
		})
	}
}

func TestCheckSchema_ReportsEveryProblem(t *testing.T) {
	findings := CheckSchema(mustParse(t, `{"type": "float", "required": "x", "minItems": -1}`))
	assert.Len(t, findings, 3)
}

func TestValidate_Passing(t *testing.T) {
	schema := mustParse(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"price": {"type": "number", "minimum": 0},
			"tags": {"type": "array", "items": {"type": "string"}, "minItems": 1}
		},
		"required": ["name", "price"],
		"additionalProperties": false
	}`)

	value := mustParse(t, `{"name": "Widget", "price": 12.5, "tags": ["sale"]}`)
	assert.Empty(t, Validate(value, schema))
}

func TestValidate_BooleanSchemas(t *testing.T) {
	value := mustParse(t, `{"anything": 1}`)

	assert.Empty(t, Validate(value, true))
	assert.Equal(t, []string{`$: disallowed by schema (false)`}, Validate(value, false))
}

func TestValidate_TypeMismatch(t *testing.T) {
	schema := mustParse(t, `{"type": "string"}`)

	findings := Validate(mustParse(t, `42`), schema)
	assert.Equal(t, []string{`$: expected type string, got integer`}, findings)
}

func TestValidate_IntegerVersusNumber(t *testing.T) {
	intSchema := mustParse(t, `{"type": "integer"}`)
	numSchema := mustParse(t, `{"type": "number"}`)

	// 1.0 is a number but not an integer: the lexical form decides.
	assert.NotEmpty(t, Validate(mustParse(t, `1.0`), intSchema))
	assert.Empty(t, Validate(mustParse(t, `1.0`), numSchema))
	assert.Empty(t, Validate(mustParse(t, `1`), intSchema))
	assert.Empty(t, Validate(mustParse(t, `1`), numSchema))
}

func TestValidate_MissingRequired(t *testing.T) {
	schema := mustParse(t, `{"type": "object", "required": ["a", "b"]}`)

	findings := Validate(mustParse(t, `{"a": 1}`), schema)
	assert.Equal(t, []string{`$: missing required property "b"`}, findings)
}

func TestValidate_AdditionalPropertiesFalse(t *testing.T) {
	schema := mustParse(t, `{
		"type": "object",
		"properties": {"a": {"type": "integer"}},
		"additionalProperties": false
	}`)

	findings := Validate(mustParse(t, `{"a": 1, "z": 2, "y": 3}`), schema)
	// Extras are reported in sorted order.
	assert.Equal(t, []string{
		`$: additional property "y" is not allowed`,
		`$: additional property "z" is not allowed`,
	}, findings)
}

func TestValidate_AdditionalPropertiesSchema(t *testing.T) {
	schema := mustParse(t, `{
		"type": "object",
		"properties": {"a": {"type": "integer"}},
		"additionalProperties": {"type": "string"}
	}`)

	assert.Empty(t, Validate(mustParse(t, `{"a": 1, "extra": "ok"}`), schema))

	findings := Validate(mustParse(t, `{"a": 1, "extra": 2}`), schema)
	assert.Equal(t, []string{`$.extra: expected type string, got integer`}, findings)
}

func TestValidate_NestedPaths(t *testing.T) {
	schema := mustParse(t, `{
		"type": "object",
		"properties": {
			"order": {
				"type": "object",
				"properties": {
					"items": {"type": "array", "items": {"type": "object", "required": ["sku"]}}
				}
			}
		}
	}`)

	value := mustParse(t, `{"order": {"items": [{"sku": "x"}, {"qty": 2}]}}`)

	findings := Validate(value, schema)
	assert.Equal(t, []string{`$.order.items[1]: missing required property "sku"`}, findings)
}

func TestValidate_ArrayConstraints(t *testing.T) {
	schema := mustParse(t, `{"type": "array", "items": {"type": "integer"}, "minItems": 2, "maxItems": 3}`)

	assert.Equal(t,
		[]string{`$: expected at least 2 items, got 1`},
		Validate(mustParse(t, `[1]`), schema))
	assert.Equal(t,
		[]string{`$: expected at most 3 items, got 4`},
		Validate(mustParse(t, `[1,2,3,4]`), schema))
	assert.Equal(t,
		[]string{`$[1]: expected type integer, got string`},
		Validate(mustParse(t, `[1, "x"]`), schema))
}

func TestValidate_ItemsFalse(t *testing.T) {
	schema := mustParse(t, `{"type": "array", "items": false}`)

	assert.Empty(t, Validate(mustParse(t, `[]`), schema))
	assert.Equal(t,
		[]string{`$: items are not allowed by schema`},
		Validate(mustParse(t, `[1]`), schema))
}

func TestValidate_StringLength(t *testing.T) {
	schema := mustParse(t, `{"type": "string", "minLength": 2, "maxLength": 4}`)

	assert.Empty(t, Validate(mustParse(t, `"abc"`), schema))
	assert.Equal(t,
		[]string{`$: expected length >= 2, got 1`},
		Validate(mustParse(t, `"a"`), schema))
	assert.Equal(t,
		[]string{`$: expected length <= 4, got 5`},
		Validate(mustParse(t, `"abcde"`), schema))
	// Rune count, not byte count.
	assert.Empty(t, Validate(mustParse(t, `"héllo"`), schema))
}

func TestValidate_NumericBounds(t *testing.T) {
	schema := mustParse(t, `{"type": "number", "minimum": 0, "maximum": 10}`)

	assert.Empty(t, Validate(mustParse(t, `5`), schema))
	assert.Empty(t, Validate(mustParse(t, `0`), schema))
	assert.Empty(t, Validate(mustParse(t, `10`), schema))
	assert.Equal(t,
		[]string{`$: expected value >= 0, got -1`},
		Validate(mustParse(t, `-1`), schema))
	assert.Equal(t,
		[]string{`$: expected value <= 10, got 10.5`},
		Validate(mustParse(t, `10.5`), schema))
}

func TestValidate_Enum(t *testing.T) {
	schema := mustParse(t, `{"enum": ["red", "green", 1]}`)

	assert.Empty(t, Validate(mustParse(t, `"red"`), schema))
	// Numeric equality ignores lexical form.
	assert.Empty(t, Validate(mustParse(t, `1.0`), schema))

	findings := Validate(mustParse(t, `"blue"`), schema)
	assert.Equal(t, []string{`$: value "blue" is not in enum ["red","green",1]`}, findings)
}

func TestValidate_AnyOf(t *testing.T) {
	schema := mustParse(t, `{"anyOf": [{"type": "string"}, {"type": "null"}]}`)

	assert.Empty(t, Validate(mustParse(t, `"x"`), schema))
	assert.Empty(t, Validate(mustParse(t, `null`), schema))

	findings := Validate(mustParse(t, `42`), schema)
	require.Len(t, findings, 1)
	assert.Equal(t,
		`$: does not match any allowed schema ($: expected type string, got integer; $: expected type null, got integer)`,
		findings[0])
}

func TestValidate_TypeUnion(t *testing.T) {
	schema := mustParse(t, `{"type": ["string", "null"]}`)

	assert.Empty(t, Validate(mustParse(t, `"x"`), schema))
	assert.Empty(t, Validate(mustParse(t, `null`), schema))
	assert.Equal(t,
		[]string{`$: expected type string, null, got boolean`},
		Validate(mustParse(t, `true`), schema))
}
