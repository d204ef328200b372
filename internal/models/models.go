package models

// JSONValue is a generic type to represent any JSON value.
// This can be a string, number, boolean, null, object, or array.
type JSONValue interface{}

// JSONObject represents a JSON object, which is a map of strings to JSONValues.
type JSONObject map[string]JSONValue

// JSONArray represents a JSON array, which is a slice of JSONValues.
type JSONArray []JSONValue

// IntermediateRepresentation holds one parsed sample document in a form
// the inferrer can walk directly.
type IntermediateRepresentation struct {
	Root        JSONValue
	RootIsArray bool   // True if the root of the JSON is an array vs an object
	Source      string // File path or "stdin", used in diagnostics
}
