package receipts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// createReceiptSchema describes the POST /api/receipts body. Prices may be sent
// as numbers or as decimal strings.
func createReceiptSchema() map[string]any {
	price := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "number", "minimum": 0},
			map[string]any{"type": "string", "pattern": `^\d+(\.\d{1,2})?$`},
		},
	}
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item":  map[string]any{"type": "string", "minLength": 1},
			"unit":  map[string]any{"type": "string"},
			"price": price,
			"total": map[string]any{},
		},
		"required": []string{"item", "price"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer":  map[string]any{"type": "string", "minLength": 1},
			"footerMsg": map[string]any{"type": []string{"string", "null"}},
			"items":     map[string]any{"type": "array", "minItems": 1, "items": item},
		},
		"required": []string{"customer", "items"},
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(createReceiptSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("receipt.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("receipt.json")
	})
	return compiledSchema, schemaErr
}

// validateBody checks raw JSON against the create-receipt schema.
func validateBody(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal body: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("body does not match schema: %w", err)
	}
	return nil
}
