package pipeline

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemaOnce   sync.Once
	resultSchema *jsonschema.Schema
	recordSchema *jsonschema.Schema
	schemaErr    error
)

func compileSchemas() {
	compile := func(name string) (*jsonschema.Schema, error) {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		return compiler.Compile(name)
	}
	resultSchema, schemaErr = compile("result.schema.json")
	if schemaErr != nil {
		return
	}
	recordSchema, schemaErr = compile("record.schema.json")
}

func validateAgainst(get func() *jsonschema.Schema, v any) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return fmt.Errorf("failed to compile schema: %w", schemaErr)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode JSON for validation: %w", err)
	}
	if err := get().Validate(doc); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}

// ValidateResult checks a pipeline result against the results schema.
func ValidateResult(res *Result) error {
	return validateAgainst(func() *jsonschema.Schema { return resultSchema }, res)
}

// ValidateRecord checks an extracted record against the record schema.
func ValidateRecord(rec any) error {
	return validateAgainst(func() *jsonschema.Schema { return recordSchema }, rec)
}
