// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"convey-cli/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed pipeline_schema.cue
var pipelineSchema string

// DefaultFileNames are the pipeline file names probed by Discover,
// in priority order.
var DefaultFileNames = []string{"convey.yml", "convey.yaml", ".convey.yml", "convey.toml"}

// Discover locates a pipeline file in dir, trying DefaultFileNames in order.
func Discover(dir string) (string, error) {
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", issue.NewErrorContext().
		WithOperation("discover pipeline file").
		WithResource(dir).
		WithSuggestion("Create a convey.yml in the current directory").
		WithSuggestion("Or pass the pipeline file path explicitly: convey run ./pipeline.yml").
		Wrap(fmt.Errorf("no pipeline file found (tried %s)", strings.Join(DefaultFileNames, ", "))).
		BuildError()
}

// Load reads and parses a pipeline file from the given path.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load pipeline file").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Check that the file exists and is readable").
			Wrap(err).
			BuildError()
	}
	return Parse(data, path)
}

// Parse parses pipeline content from bytes. The flow mirrors the 3-step
// schema validation used for all declarative inputs: decode the document
// into a raw value, unify it with the embedded CUE schema, then decode into
// the typed model and run semantic validation.
func Parse(data []byte, path string) (*Pipeline, error) {
	raw, err := decodeRaw(data, path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse pipeline file").
			WithResource(path).
			WithSuggestion("Check the file for syntax errors").
			WithSuggestion("Run 'convey docs' for the pipeline format reference").
			Wrap(err).
			BuildError()
	}

	if err := validateSchema(raw, path); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate pipeline file").
			WithResource(path).
			WithSuggestion("Check key names against the recognized top-level keys").
			WithSuggestion("Run 'convey docs' for the pipeline format reference").
			Wrap(err).
			BuildError()
	}

	p, err := decodePipeline(raw)
	if err != nil {
		return nil, issue.WrapWithContext(err, "decode pipeline file", path)
	}
	p.FilePath = path

	if errs := p.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

// decodeRaw unmarshals the file into an untyped document based on extension.
func decodeRaw(data []byte, path string) (map[string]any, error) {
	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// validateSchema unifies the raw document with the embedded #Pipeline schema.
func validateSchema(raw map[string]any, filename string) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(pipelineSchema)
	if schema.Err() != nil {
		return fmt.Errorf("internal error: failed to compile pipeline schema: %w", schema.Err())
	}

	root := schema.LookupPath(cue.ParsePath("#Pipeline"))
	if root.Err() != nil {
		return fmt.Errorf("internal error: schema definition #Pipeline not found: %w", root.Err())
	}

	doc := ctx.Encode(raw)
	if doc.Err() != nil {
		return fmt.Errorf("failed to encode document: %w", doc.Err())
	}

	if err := root.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}
