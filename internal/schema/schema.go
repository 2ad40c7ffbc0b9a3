// Package schema holds the structural contract for the final intake record:
// a project plus one or more talent postings. The contract is a JSON-Schema
// document supplied as configuration; two variants exist in the wild, one
// requiring a singular "talent" object and one requiring a "talents" array.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed project_schema.json
var defaultDocument []byte

// Variant identifies which shape of the record the active document requires.
type Variant string

const (
	// VariantTalent requires a single top-level "talent" object.
	VariantTalent Variant = "talent"
	// VariantTalents requires a "talents" array with at least one entry.
	VariantTalents Variant = "talents"
)

// Definition is a parsed schema document plus its compiled validator.
type Definition struct {
	raw       []byte
	variant   Variant
	validator *gojsonschema.Schema
}

// Default returns the embedded schema document (the talents-array variant).
func Default() (*Definition, error) {
	return Parse(defaultDocument)
}

// Load reads a schema document from the given file path.
func Load(path string) (*Definition, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema document: %w", err)
	}
	return Parse(doc)
}

// Parse compiles a schema document and detects its variant from the
// top-level required list.
func Parse(doc []byte) (*Definition, error) {
	var head struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(doc, &head); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}

	variant := VariantTalents
	for _, field := range head.Required {
		if field == "talent" {
			variant = VariantTalent
			break
		}
	}

	validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema document: %w", err)
	}

	return &Definition{raw: doc, variant: variant, validator: validator}, nil
}

// Variant reports which record shape the document requires.
func (d *Definition) Variant() Variant {
	return d.variant
}

// JSON returns the raw schema document for embedding into repair prompts.
func (d *Definition) JSON() []byte {
	return d.raw
}

// Check validates a normalized record against the document and returns
// human-readable issues. An empty slice means the record conforms. Issues
// are advisory: the hard failure modes are the normalizer's alone.
func (d *Definition) Check(record map[string]any) []string {
	result, err := d.validator.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return []string{err.Error()}
	}

	var issues []string
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return issues
}
