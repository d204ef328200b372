// Package validator checks JSON Schema definitions for well-formedness and
// validates JSON instances against them. It works on generic decoded
// values so malformed schema files produce findings instead of decode
// failures. Findings are strings rooted at "$".
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/jsonshape/jsonshape/internal/inferrer"
	"github.com/jsonshape/jsonshape/internal/models"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validJSONTypes = map[string]struct{}{
	"null": {}, "boolean": {}, "integer": {}, "number": {},
	"string": {}, "array": {}, "object": {},
}

// CheckSchema verifies that a decoded schema definition is well-formed for
// the keyword subset this tool understands. It returns one finding per
// problem; an empty result means the schema is usable.
func CheckSchema(schemaValue models.JSONValue) []string {
	return checkSchema(schemaValue, "$")
}

func checkSchema(schemaValue models.JSONValue, path string) []string {
	if _, ok := schemaValue.(bool); ok {
		return nil
	}
	obj, ok := schemaValue.(models.JSONObject)
	if !ok {
		return []string{fmt.Sprintf("%s: schema must be an object or boolean", path)}
	}

	var findings []string

	if typeValue, present := obj["type"]; present {
		findings = append(findings, checkTypeKeyword(typeValue, path)...)
	}

	if anyOf, present := obj["anyOf"]; present {
		branches, ok := anyOf.(models.JSONArray)
		switch {
		case !ok:
			findings = append(findings, fmt.Sprintf("%s.anyOf: must be an array", path))
		case len(branches) == 0:
			findings = append(findings, fmt.Sprintf("%s.anyOf: must not be empty", path))
		default:
			for idx, branch := range branches {
				findings = append(findings, checkSchema(branch, fmt.Sprintf("%s.anyOf[%d]", path, idx))...)
			}
		}
	}

	if enumValue, present := obj["enum"]; present {
		values, ok := enumValue.(models.JSONArray)
		switch {
		case !ok:
			findings = append(findings, fmt.Sprintf("%s.enum: must be an array", path))
		case len(values) == 0:
			findings = append(findings, fmt.Sprintf("%s.enum: must not be empty", path))
		}
	}

	if props, present := obj["properties"]; present {
		propsObj, ok := props.(models.JSONObject)
		if !ok {
			findings = append(findings, fmt.Sprintf("%s.properties: must be an object", path))
		} else {
			for _, key := range sortedKeys(propsObj) {
				keyPath := pathForKey(path+".properties", key)
				findings = append(findings, checkSchema(propsObj[key], keyPath)...)
			}
		}
	}

	if required, present := obj["required"]; present {
		fields, ok := required.(models.JSONArray)
		if !ok {
			findings = append(findings, fmt.Sprintf("%s.required: must be an array", path))
		} else {
			seen := make(map[string]struct{})
			for idx, field := range fields {
				name, ok := field.(string)
				if !ok {
					findings = append(findings, fmt.Sprintf("%s.required[%d]: must be a string", path, idx))
					continue
				}
				if _, dup := seen[name]; dup {
					findings = append(findings, fmt.Sprintf("%s.required[%d]: duplicate field %q", path, idx, name))
				}
				seen[name] = struct{}{}
			}
		}
	}

	if ap, present := obj["additionalProperties"]; present {
		switch v := ap.(type) {
		case bool:
		case models.JSONObject:
			findings = append(findings, checkSchema(v, path+".additionalProperties")...)
		default:
			findings = append(findings, fmt.Sprintf("%s.additionalProperties: must be a boolean or object", path))
		}
	}

	if items, present := obj["items"]; present {
		switch v := items.(type) {
		case bool:
		case models.JSONObject:
			findings = append(findings, checkSchema(v, path+".items")...)
		default:
			findings = append(findings, fmt.Sprintf("%s.items: must be a boolean or object", path))
		}
	}

	for _, key := range []string{"minimum", "maximum"} {
		if v, present := obj[key]; present {
			if _, ok := v.(json.Number); !ok {
				findings = append(findings, fmt.Sprintf("%s.%s: must be a number", path, key))
			}
		}
	}

	for _, key := range []string{"minLength", "maxLength", "minItems", "maxItems"} {
		if v, present := obj[key]; present {
			n, ok := asInt(v)
			if !ok {
				findings = append(findings, fmt.Sprintf("%s.%s: must be an integer", path, key))
			} else if n < 0 {
				findings = append(findings, fmt.Sprintf("%s.%s: must be >= 0", path, key))
			}
		}
	}

	if lo, hi, ok := numberPair(obj, "minimum", "maximum"); ok && lo > hi {
		findings = append(findings, fmt.Sprintf("%s: minimum cannot be greater than maximum", path))
	}
	if lo, hi, ok := intPair(obj, "minLength", "maxLength"); ok && lo > hi {
		findings = append(findings, fmt.Sprintf("%s: minLength cannot be greater than maxLength", path))
	}
	if lo, hi, ok := intPair(obj, "minItems", "maxItems"); ok && lo > hi {
		findings = append(findings, fmt.Sprintf("%s: minItems cannot be greater than maxItems", path))
	}

	return findings
}

func checkTypeKeyword(typeValue models.JSONValue, path string) []string {
	var typeNames models.JSONArray
	switch v := typeValue.(type) {
	case string:
		typeNames = models.JSONArray{v}
	case models.JSONArray:
		if len(v) == 0 {
			return []string{fmt.Sprintf("%s.type: array must not be empty", path)}
		}
		typeNames = v
	default:
		return []string{fmt.Sprintf("%s.type: must be a string or array of strings", path)}
	}

	var findings []string
	seen := make(map[string]struct{})
	for idx, raw := range typeNames {
		name, ok := raw.(string)
		if !ok {
			findings = append(findings, fmt.Sprintf("%s.type[%d]: must be a string", path, idx))
			continue
		}
		if _, valid := validJSONTypes[name]; !valid {
			findings = append(findings, fmt.Sprintf("%s.type[%d]: unsupported type %q", path, idx, name))
		}
		if _, dup := seen[name]; dup {
			findings = append(findings, fmt.Sprintf("%s.type[%d]: duplicate type %q", path, idx, name))
		}
		seen[name] = struct{}{}
	}
	return findings
}

// Validate checks a decoded instance against a decoded schema definition
// and returns one finding per mismatch. Run CheckSchema first; Validate
// assumes keyword values have sane types.
func Validate(value models.JSONValue, schemaValue models.JSONValue) []string {
	return validate(value, schemaValue, "$")
}

func validate(value models.JSONValue, schemaValue models.JSONValue, path string) []string {
	if allowed, ok := schemaValue.(bool); ok {
		if allowed {
			return nil
		}
		return []string{fmt.Sprintf("%s: disallowed by schema (false)", path)}
	}
	obj, ok := schemaValue.(models.JSONObject)
	if !ok {
		return []string{fmt.Sprintf("%s: invalid schema encountered during validation", path)}
	}

	var findings []string

	if anyOf, ok := obj["anyOf"].(models.JSONArray); ok && len(anyOf) > 0 {
		matched := false
		var firsts []string
		for _, branch := range anyOf {
			branchFindings := validate(value, branch, path)
			if len(branchFindings) == 0 {
				matched = true
				break
			}
			firsts = append(firsts, branchFindings[0])
		}
		if !matched {
			summary := strings.Join(firsts, "; ")
			if summary == "" {
				summary = "no anyOf branch matched"
			}
			return append(findings, fmt.Sprintf("%s: does not match any allowed schema (%s)", path, summary))
		}
	}

	if typeValue, present := obj["type"]; present {
		expected := typeList(typeValue)
		if len(expected) > 0 && !anyTypeMatches(value, expected) {
			return append(findings, fmt.Sprintf(
				"%s: expected type %s, got %s",
				path, strings.Join(expected, ", "), inferrer.TypeOf(value)))
		}
	}

	if enumValues, ok := obj["enum"].(models.JSONArray); ok {
		if !enumContains(enumValues, value) {
			findings = append(findings, fmt.Sprintf(
				"%s: value %s is not in enum %s", path, renderValue(value), renderValue(enumValues)))
		}
	}

	if instance, ok := value.(models.JSONObject); ok {
		if required, ok := obj["required"].(models.JSONArray); ok {
			for _, field := range required {
				name, ok := field.(string)
				if !ok {
					continue
				}
				if _, present := instance[name]; !present {
					findings = append(findings, fmt.Sprintf("%s: missing required property %q", path, name))
				}
			}
		}

		props, _ := obj["properties"].(models.JSONObject)
		for _, name := range sortedKeys(instance) {
			if propSchema, ok := props[name]; ok {
				findings = append(findings, validate(instance[name], propSchema, pathForKey(path, name))...)
			}
		}

		ap, apPresent := obj["additionalProperties"]
		var extras []string
		for name := range instance {
			if _, known := props[name]; !known {
				extras = append(extras, name)
			}
		}
		sort.Strings(extras)
		if apPresent {
			switch apValue := ap.(type) {
			case bool:
				if !apValue {
					for _, name := range extras {
						findings = append(findings, fmt.Sprintf("%s: additional property %q is not allowed", path, name))
					}
				}
			case models.JSONObject:
				for _, name := range extras {
					findings = append(findings, validate(instance[name], apValue, pathForKey(path, name))...)
				}
			}
		}
	}

	if instance, ok := value.(models.JSONArray); ok {
		if n, ok := asInt(obj["minItems"]); ok && len(instance) < n {
			findings = append(findings, fmt.Sprintf("%s: expected at least %d items, got %d", path, n, len(instance)))
		}
		if n, ok := asInt(obj["maxItems"]); ok && len(instance) > n {
			findings = append(findings, fmt.Sprintf("%s: expected at most %d items, got %d", path, n, len(instance)))
		}

		switch items := obj["items"].(type) {
		case bool:
			if !items && len(instance) > 0 {
				findings = append(findings, fmt.Sprintf("%s: items are not allowed by schema", path))
			}
		case models.JSONObject:
			for idx, item := range instance {
				findings = append(findings, validate(item, items, fmt.Sprintf("%s[%d]", path, idx))...)
			}
		}
	}

	if instance, ok := value.(string); ok {
		length := utf8.RuneCountInString(instance)
		if n, ok := asInt(obj["minLength"]); ok && length < n {
			findings = append(findings, fmt.Sprintf("%s: expected length >= %d, got %d", path, n, length))
		}
		if n, ok := asInt(obj["maxLength"]); ok && length > n {
			findings = append(findings, fmt.Sprintf("%s: expected length <= %d, got %d", path, n, length))
		}
	}

	if num, ok := value.(json.Number); ok {
		if bound, ok := obj["minimum"].(json.Number); ok && inferrer.LessThan(num, bound) {
			findings = append(findings, fmt.Sprintf("%s: expected value >= %s, got %s", path, bound, num))
		}
		if bound, ok := obj["maximum"].(json.Number); ok && inferrer.LessThan(bound, num) {
			findings = append(findings, fmt.Sprintf("%s: expected value <= %s, got %s", path, bound, num))
		}
	}

	return findings
}

func typeList(typeValue models.JSONValue) []string {
	switch v := typeValue.(type) {
	case string:
		return []string{v}
	case models.JSONArray:
		var names []string
		for _, raw := range v {
			if name, ok := raw.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

func anyTypeMatches(value models.JSONValue, expected []string) bool {
	for _, name := range expected {
		if typeMatches(value, name) {
			return true
		}
	}
	return false
}

func typeMatches(value models.JSONValue, expected string) bool {
	switch expected {
	case "null":
		return value == nil
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		num, ok := value.(json.Number)
		if !ok {
			return false
		}
		_, err := num.Int64()
		return err == nil
	case "number":
		_, ok := value.(json.Number)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "array":
		_, ok := value.(models.JSONArray)
		return ok
	case "object":
		_, ok := value.(models.JSONObject)
		return ok
	default:
		return false
	}
}

func enumContains(enumValues models.JSONArray, value models.JSONValue) bool {
	for _, candidate := range enumValues {
		if valuesEqual(candidate, value) {
			return true
		}
	}
	return false
}

// valuesEqual compares decoded JSON values, treating numerically equal
// numbers as equal regardless of lexical form (1 vs 1.0).
func valuesEqual(a, b models.JSONValue) bool {
	if numA, ok := a.(json.Number); ok {
		numB, ok := b.(json.Number)
		if !ok {
			return false
		}
		return !inferrer.LessThan(numA, numB) && !inferrer.LessThan(numB, numA)
	}
	switch va := a.(type) {
	case models.JSONObject:
		vb, ok := b.(models.JSONObject)
		if !ok || len(va) != len(vb) {
			return false
		}
		for key, childA := range va {
			childB, present := vb[key]
			if !present || !valuesEqual(childA, childB) {
				return false
			}
		}
		return true
	case models.JSONArray:
		vb, ok := b.(models.JSONArray)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !valuesEqual(va[i], vb[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func pathForKey(path, key string) string {
	if identifierRe.MatchString(key) {
		return path + "." + key
	}
	return path + "[" + strconv.Quote(key) + "]"
}

func asInt(value models.JSONValue) (int, bool) {
	num, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func numberPair(obj models.JSONObject, loKey, hiKey string) (float64, float64, bool) {
	lo, okLo := obj[loKey].(json.Number)
	hi, okHi := obj[hiKey].(json.Number)
	if !okLo || !okHi {
		return 0, 0, false
	}
	loF, errLo := lo.Float64()
	hiF, errHi := hi.Float64()
	if errLo != nil || errHi != nil {
		return 0, 0, false
	}
	return loF, hiF, true
}

func intPair(obj models.JSONObject, loKey, hiKey string) (int, int, bool) {
	lo, okLo := asInt(obj[loKey])
	hi, okHi := asInt(obj[hiKey])
	if !okLo || !okHi {
		return 0, 0, false
	}
	return lo, hi, true
}

func renderValue(value models.JSONValue) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

func sortedKeys(obj models.JSONObject) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
