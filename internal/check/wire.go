package check

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/kaptinlin/jsonschema"
)

//go:embed wire_schema.json
var wireSchema []byte

// WireValidator checks raw wire documents against the document schema before
// they are decoded, catching shape problems (missing _id, unknown type,
// mistyped sizes) that the typed decoder would coerce or mask.
type WireValidator struct {
	schema *jsonschema.Schema
}

// NewWireValidator compiles the embedded schema.
func NewWireValidator() (*WireValidator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(wireSchema)
	if err != nil {
		return nil, fmt.Errorf("compile wire schema: %w", err)
	}
	return &WireValidator{schema: schema}, nil
}

// Validate reports each schema violation in raw as an Error finding tagged
// with the document id.
func (v *WireValidator) Validate(id string, raw []byte) []Finding {
	result := v.schema.ValidateJSON(raw)
	if result.IsValid() {
		return nil
	}
	var out []Finding
	for field, evalErr := range result.Errors {
		out = append(out, finding(Error, id, "wire document invalid at %s: %v", field, evalErr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Message < out[j].Message })
	return out
}
