package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"housinghistory/server/internal/models"
)

const importBatchSchemaURL = "https://housinghistory/schemas/import-batch/v1.json"

//go:embed schemas/import-batch.v1.json
var importBatchSchema []byte

var compiledImportBatch = mustCompile(importBatchSchemaURL, importBatchSchema)

func mustCompile(url string, source []byte) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true

	if err := compiler.AddResource(url, bytes.NewReader(source)); err != nil {
		panic(fmt.Sprintf("failed to load schema %s: %v", url, err))
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("failed to compile schema %s: %v", url, err))
	}
	return schema
}

// ValidateImportBatch checks a raw import payload against the import batch
// schema.
func ValidateImportBatch(body []byte) error {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("import batch is not valid JSON: %w", err)
	}
	if err := compiledImportBatch.Validate(v); err != nil {
		return fmt.Errorf("import batch schema validation failed: %w", err)
	}
	return nil
}

// DecodeImportBatch validates body and decodes it.
func DecodeImportBatch(body []byte) (*models.ImportBatch, error) {
	if err := ValidateImportBatch(body); err != nil {
		return nil, err
	}
	var batch models.ImportBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode import batch: %w", err)
	}
	if batch.Size() == 0 {
		return nil, fmt.Errorf("import batch is empty")
	}
	return &batch, nil
}
