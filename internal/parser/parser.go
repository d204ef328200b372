package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	stderrors "errors"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/kaptinlin/jsonrepair"

	"github.com/jsonshape/jsonshape/internal/errors"
	"github.com/jsonshape/jsonshape/internal/models"
)

// Options controls how raw input is decoded into an IntermediateRepresentation.
type Options struct {
	// Repair attempts to fix malformed JSON (trailing commas, single quotes,
	// unquoted keys) before decoding.
	Repair bool
	// YAML decodes the input as YAML instead of JSON. ParseFile sets this
	// automatically for .yaml/.yml paths.
	YAML bool
}

// Parse converts JSON data from an io.Reader into an IntermediateRepresentation
func Parse(reader io.Reader) (models.IntermediateRepresentation, error) {
	return ParseWithOptions(reader, Options{})
}

// ParseWithOptions converts data from an io.Reader into an
// IntermediateRepresentation using the given decode options.
func ParseWithOptions(reader io.Reader, opts Options) (models.IntermediateRepresentation, error) {
	if opts.YAML || opts.Repair {
		data, err := io.ReadAll(reader)
		if err != nil {
			return models.IntermediateRepresentation{}, errors.NewInputError("failed to read input", err)
		}
		if opts.YAML {
			return parseYAML(data)
		}
		repaired, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return models.IntermediateRepresentation{}, errors.NewParsingError("failed to repair JSON input", err)
		}
		reader = strings.NewReader(repaired)
	}

	decoder := json.NewDecoder(reader)
	decoder.UseNumber() // Ensure numbers are read as json.Number

	var rootValue models.JSONValue
	if err := decoder.Decode(&rootValue); err != nil {
		if stderrors.Is(err, io.EOF) {
			// Decode returns io.EOF when the stream is empty or contains only
			// whitespace before the first value.
			return models.IntermediateRepresentation{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		if stderrors.As(err, &syntaxError) {
			return models.IntermediateRepresentation{}, errors.NewParsingError(
				fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
				errors.ErrInvalidJSON,
			)
		}
		if stderrors.As(err, &unmarshalTypeError) {
			return models.IntermediateRepresentation{}, errors.NewParsingError(
				fmt.Sprintf("JSON type error at offset %d for type %s", unmarshalTypeError.Offset, unmarshalTypeError.Type),
				errors.ErrInvalidJSON,
			)
		}
		return models.IntermediateRepresentation{}, errors.NewParsingError("failed to decode JSON", err)
	}

	// Reject trailing data after the first JSON value. Trailing whitespace is
	// allowed; a second value is not.
	if decoder.More() {
		var trailingValue interface{}
		if err := decoder.Decode(&trailingValue); err != nil {
			if !stderrors.Is(err, io.EOF) {
				return models.IntermediateRepresentation{}, errors.NewParsingError("invalid trailing data after first JSON value", err)
			}
		} else {
			return models.IntermediateRepresentation{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
		}
	}

	return newRepresentation(normalizeJSONValue(rootValue)), nil
}

// parseYAML decodes a YAML document into the same value model the JSON
// decoder produces, so the inferrer never sees a difference.
func parseYAML(data []byte) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(string(data)) == "" {
		return models.IntermediateRepresentation{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}
	var rootValue interface{}
	if err := yaml.Unmarshal(data, &rootValue); err != nil {
		return models.IntermediateRepresentation{}, errors.NewParsingError("failed to decode YAML", err)
	}
	return newRepresentation(normalizeJSONValue(rootValue)), nil
}

func newRepresentation(rootValue models.JSONValue) models.IntermediateRepresentation {
	ir := models.IntermediateRepresentation{Root: rootValue}
	if _, ok := rootValue.(models.JSONArray); ok {
		ir.RootIsArray = true
	}
	return ir
}

// normalizeJSONValue converts raw decoded values into our model types.
// YAML decoding yields native ints and floats; those are rewritten as
// json.Number so number classification works the same for both formats.
func normalizeJSONValue(val models.JSONValue) models.JSONValue {
	switch v := val.(type) {
	case map[string]interface{}:
		obj := make(models.JSONObject, len(v))
		for key, value := range v {
			obj[key] = normalizeJSONValue(value)
		}
		return obj
	case []interface{}:
		arr := make(models.JSONArray, len(v))
		for i, value := range v {
			arr[i] = normalizeJSONValue(value)
		}
		return arr
	case int:
		return json.Number(strconv.FormatInt(int64(v), 10))
	case int64:
		return json.Number(strconv.FormatInt(v, 10))
	case uint64:
		return json.Number(strconv.FormatUint(v, 10))
	case float64:
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		return v // Primitives (string, json.Number, bool, nil) are returned as is
	}
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.IntermediateRepresentation, error) {
	return ParseStringWithOptions(jsonString, Options{})
}

// ParseStringWithOptions parses a string using the given decode options.
func ParseStringWithOptions(jsonString string, opts Options) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	reader := strings.NewReader(jsonString)
	return ParseWithOptions(reader, opts)
}

// ParseFile parses JSON (or YAML, by extension) from a file path
func ParseFile(filePath string) (models.IntermediateRepresentation, error) {
	return ParseFileWithOptions(filePath, Options{})
}

// ParseFileWithOptions parses a file using the given decode options. Files
// ending in .yaml or .yml are decoded as YAML regardless of opts.YAML.
func ParseFileWithOptions(filePath string, opts Options) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.IntermediateRepresentation{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	// Check for empty file before parsing
	stat, err := file.Stat()
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		opts.YAML = true
	}

	ir, err := ParseWithOptions(file, opts)
	if err != nil {
		return ir, err
	}
	ir.Source = filePath
	return ir, nil
}
