package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/jsonshape/jsonshape/internal/annotate"
	"github.com/jsonshape/jsonshape/internal/config"
	"github.com/jsonshape/jsonshape/internal/errors"
	"github.com/jsonshape/jsonshape/internal/inferrer"
	"github.com/jsonshape/jsonshape/internal/models"
	"github.com/jsonshape/jsonshape/internal/parser"
	"github.com/jsonshape/jsonshape/internal/schema"
	"github.com/jsonshape/jsonshape/internal/validator"
)

// CLI defines the command-line interface
var CLI struct {
	Input  []string `help:"Path to an input JSON or YAML file. May be repeated; the schemas inferred from all samples are merged. If not specified, reads from stdin." short:"i" type:"path"`
	Output string   `help:"Path to output schema file. If not specified, writes to stdout." short:"o" type:"path"`
	Minify bool     `help:"Print compact/minified JSON output."`

	AdditionalProperties bool     `help:"Allow unknown object properties in inferred schemas (default: closed objects)."`
	InferBounds          []string `help:"Infer min/max constraints only for the listed field names." placeholder:"FIELD"`
	InferEnum            []string `help:"Infer enum constraints only for the listed field names." placeholder:"FIELD"`
	InferAllBounds       bool     `help:"Infer min/max constraints for all applicable fields."`
	InferAllEnum         bool     `help:"Infer enum constraints for all applicable fields."`

	Validate string `help:"Validate input JSON (-i or stdin) against a schema file instead of inferring." type:"path" placeholder:"SCHEMA_FILE"`

	Title       string            `help:"Root title for the schema document."`
	Description string            `help:"Root description for the schema document."`
	ID          string            `name:"id" help:"Root $id for the schema document."`
	TitleAt     map[string]string `help:"Attach a title to the fragment at a dot-path." placeholder:"PATH=TEXT"`
	Describe    map[string]string `help:"Attach a description to the fragment at a dot-path." placeholder:"PATH=TEXT"`
	AutoTitles  bool              `help:"Derive a title for every property from its key name."`

	Repair      bool   `help:"Attempt to repair malformed JSON input before decoding."`
	Config      string `help:"Path to a jsonshape config file. Found automatically when named .jsonshape.yml." type:"path" env:"JSONSHAPE_CONFIG"`
	Debug       bool   `help:"Enable debug logging." short:"d" env:"JSONSHAPE_DEBUG"`
	Version     bool   `help:"Show version information." short:"v"`
	Interactive bool   `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// Context holds the runtime context
type Context struct {
	Debug  bool
	Config *config.Config
}

// Version information
const (
	Version = "0.1.0"
)

// defaultInputFile is read when no -i is given and stdin is a terminal.
const defaultInputFile = "file.json"

func main() {
	// Pick up flag defaults from a .env file when present
	_ = godotenv.Load()

	kongParser := kong.Must(&CLI,
		kong.Name("jsonshape"),
		kong.Description("A tool to infer a JSON Schema (draft 2020-12) from sample JSON documents"),
		kong.UsageOnError(),
	)

	_, err := kongParser.Parse(os.Args[1:])
	if err != nil {
		// Usage is already shown by kong.UsageOnError()
		os.Exit(1)
	}

	if CLI.Version {
		fmt.Printf("jsonshape version %s\n", Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		os.Exit(1)
	}

	err = run(&Context{Debug: CLI.Debug, Config: cfg})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonshape --help\n")
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config, or searches for a
// .jsonshape.yml in the working directory and its parents.
func loadConfig() (*config.Config, error) {
	path := CLI.Config
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return config.NewConfig(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, errors.NewInputError(fmt.Sprintf("failed to load config '%s'", path), err)
	}
	return cfg, nil
}

// run executes the main program logic
func run(ctx *Context) error {
	if CLI.Validate != "" {
		return runValidate(ctx)
	}
	return runInfer(ctx)
}

// runInfer is the inference pipeline: parse every sample, infer a fragment
// per sample, fold the fragments through Merge, decorate, render, write.
func runInfer(ctx *Context) error {
	docs, err := parseInputs()
	if err != nil {
		return err
	}
	debugf(ctx, "parsed %d input document(s)", len(docs))

	inferrerInst := inferrer.NewWithOptions(inferenceOptions(ctx.Config))
	fragment := inferrerInst.Infer(docs[0].Root)
	for _, doc := range docs[1:] {
		fragment = inferrer.Merge(fragment, inferrerInst.Infer(doc.Root))
	}

	data := make([]models.JSONValue, 0, len(docs))
	for _, doc := range docs {
		data = append(data, doc.Root)
	}
	for _, warning := range annotate.Apply(fragment, data, directives(ctx.Config)) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	if CLI.AutoTitles || ctx.Config.AutoTitles {
		annotate.AutoTitles(fragment)
	}

	document := schema.Document(fragment, documentMeta(ctx.Config))

	var rendered []byte
	if CLI.Minify {
		rendered, err = json.Marshal(document)
	} else {
		rendered, err = json.MarshalIndent(document, "", "  ")
	}
	if err != nil {
		return errors.NewOutputError("failed to serialize schema", err)
	}

	return writeOutput(rendered)
}

// runValidate checks the sample inputs against an existing schema file.
func runValidate(ctx *Context) error {
	if err := rejectWithValidate(); err != nil {
		return err
	}

	schemaIR, err := parser.ParseFile(CLI.Validate)
	if err != nil {
		return err
	}

	if findings := validator.CheckSchema(schemaIR.Root); len(findings) > 0 {
		fmt.Fprintf(os.Stderr, "Invalid schema in %s:\n", CLI.Validate)
		for _, finding := range findings {
			fmt.Fprintf(os.Stderr, "- %s\n", finding)
		}
		return errors.NewSchemaError(
			fmt.Sprintf("schema file '%s' is not well-formed", CLI.Validate),
			errors.ErrSchemaInvalid,
		)
	}

	docs, err := parseInputs()
	if err != nil {
		return err
	}

	failed := false
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = "stdin"
		}
		findings := validator.Validate(doc.Root, schemaIR.Root)
		if len(findings) == 0 {
			color.New(color.FgGreen).Printf("Validation passed: %s matches schema %s.\n", source, CLI.Validate)
			continue
		}
		failed = true
		color.New(color.FgRed).Fprintf(os.Stderr, "Validation failed: %s does not match schema %s.\n", source, CLI.Validate)
		for _, finding := range findings {
			fmt.Fprintf(os.Stderr, "- %s\n", finding)
		}
	}
	if failed {
		return errors.NewValidationError("input data does not match the schema", errors.ErrValidationFail)
	}
	debugf(ctx, "validated %d document(s)", len(docs))
	return nil
}

// rejectWithValidate mirrors the flag exclusivity of the inference options:
// --validate performs no inference, so shaping flags are contradictions.
func rejectWithValidate() error {
	conflicts := []struct {
		set  bool
		flag string
	}{
		{CLI.Output != "", "--output"},
		{CLI.Minify, "--minify"},
		{CLI.AdditionalProperties, "--additional-properties"},
		{len(CLI.InferBounds) > 0, "--infer-bounds"},
		{len(CLI.InferEnum) > 0, "--infer-enum"},
		{CLI.InferAllBounds, "--infer-all-bounds"},
		{CLI.InferAllEnum, "--infer-all-enum"},
		{len(CLI.TitleAt) > 0, "--title-at"},
		{len(CLI.Describe) > 0, "--describe"},
		{CLI.AutoTitles, "--auto-titles"},
	}
	for _, conflict := range conflicts {
		if conflict.set {
			return errors.NewInputError(
				fmt.Sprintf("%s cannot be used with --validate", conflict.flag), nil)
		}
	}
	return nil
}

// inferenceOptions merges config file defaults with CLI flags. Boolean
// flags are additive: either source can switch a behavior on.
func inferenceOptions(cfg *config.Config) inferrer.Options {
	return inferrer.Options{
		AdditionalProperties: CLI.AdditionalProperties || cfg.AdditionalProperties,
		BoundsFields:         inferrer.FieldSet(append(append([]string{}, cfg.InferBounds...), CLI.InferBounds...)),
		EnumFields:           inferrer.FieldSet(append(append([]string{}, cfg.InferEnum...), CLI.InferEnum...)),
		AllBounds:            CLI.InferAllBounds || cfg.InferAllBounds,
		AllEnum:              CLI.InferAllEnum || cfg.InferAllEnum,
	}
}

// directives collects decoration requests from the config file and CLI.
func directives(cfg *config.Config) []annotate.Directive {
	var out []annotate.Directive
	for _, annotation := range cfg.Annotations {
		out = append(out, annotate.Directive{
			Path:        annotation.Path,
			Title:       annotation.Title,
			Description: annotation.Description,
			Bounds:      annotation.Bounds,
			Enum:        annotation.Enum,
		})
	}
	for path, title := range CLI.TitleAt {
		out = append(out, annotate.Directive{Path: path, Title: title})
	}
	for path, description := range CLI.Describe {
		out = append(out, annotate.Directive{Path: path, Description: description})
	}
	return out
}

func documentMeta(cfg *config.Config) schema.Meta {
	meta := schema.Meta{
		ID:          cfg.Meta.ID,
		Title:       cfg.Meta.Title,
		Description: cfg.Meta.Description,
	}
	// CLI metadata wins over the config file
	if CLI.ID != "" {
		meta.ID = CLI.ID
	}
	if CLI.Title != "" {
		meta.Title = CLI.Title
	}
	if CLI.Description != "" {
		meta.Description = CLI.Description
	}
	return meta
}

// parseInputs reads every sample document: the -i files when given,
// otherwise piped stdin, interactive input, or the default file.json.
func parseInputs() ([]models.IntermediateRepresentation, error) {
	opts := parser.Options{Repair: CLI.Repair}

	if len(CLI.Input) > 0 {
		docs := make([]models.IntermediateRepresentation, 0, len(CLI.Input))
		for _, path := range CLI.Input {
			doc, err := parser.ParseFileWithOptions(path, opts)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		if CLI.Interactive {
			doc, err := readInteractiveInput(opts)
			if err != nil {
				return nil, err
			}
			return []models.IntermediateRepresentation{doc}, nil
		}
		// Terminal with no explicit input: fall back to file.json
		if _, err := os.Stat(defaultInputFile); err != nil {
			return nil, errors.NewInputError(
				fmt.Sprintf("input file not found: %s", defaultInputFile),
				errors.ErrNoInput,
			)
		}
		doc, err := parser.ParseFileWithOptions(defaultInputFile, opts)
		if err != nil {
			return nil, err
		}
		return []models.IntermediateRepresentation{doc}, nil
	}

	// Read from stdin (piped input)
	jsonData, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	if len(jsonData) == 0 {
		return nil, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}

	doc, err := parser.ParseStringWithOptions(string(jsonData), opts)
	if err != nil {
		return nil, err
	}
	doc.Source = "stdin"
	return []models.IntermediateRepresentation{doc}, nil
}

// writeOutput writes the rendered schema to file or stdout
func writeOutput(rendered []byte) error {
	if CLI.Output != "" {
		err := os.WriteFile(CLI.Output, append(rendered, '\n'), 0644)
		if err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", CLI.Output), err)
		}
		fmt.Fprintf(os.Stderr, "Schema written to %s\n", CLI.Output)
		return nil
	}

	_, err := fmt.Println(string(rendered))
	if err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// readInteractiveInput provides an interactive mode for users to paste JSON
// and signal completion with Ctrl+D (EOF)
func readInteractiveInput(opts parser.Options) (models.IntermediateRepresentation, error) {
	fmt.Fprintln(os.Stderr, "jsonshape Interactive Mode")
	fmt.Fprintln(os.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(os.Stdin)
	var jsonBuilder strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			jsonBuilder.WriteString(line)
			break
		}
		if err != nil {
			return models.IntermediateRepresentation{}, errors.NewInputError("error reading input", err)
		}
		jsonBuilder.WriteString(line)
	}

	jsonData := jsonBuilder.String()
	if len(jsonData) == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(os.Stderr, "\nProcessing JSON...")
	doc, err := parser.ParseStringWithOptions(jsonData, opts)
	if err != nil {
		return models.IntermediateRepresentation{}, err
	}
	doc.Source = "stdin"
	return doc, nil
}

func debugf(ctx *Context, format string, args ...interface{}) {
	if ctx != nil && ctx.Debug {
		fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
	}
}
