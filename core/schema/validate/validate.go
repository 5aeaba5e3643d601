// Package validate checks persisted artifacts against the embedded JSON
// Schemas before they are written and after they are read back, so a
// corrupted or hand-edited file in the historical store is caught at the
// boundary instead of surfacing as a confusing analysis result.
package validate

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/run_record.schema.json
var runRecordSchema []byte

//go:embed schemas/regression_report.schema.json
var regressionReportSchema []byte

var (
	compileOnce  sync.Once
	compileErr   error
	runSchema    *jsonschema.Schema
	reportSchema *jsonschema.Schema
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	runSchema, compileErr = compiler.Compile(runRecordSchema)
	if compileErr != nil {
		compileErr = fmt.Errorf("compile run record schema: %w", compileErr)
		return
	}
	reportSchema, compileErr = compiler.Compile(regressionReportSchema)
	if compileErr != nil {
		compileErr = fmt.Errorf("compile regression report schema: %w", compileErr)
	}
}

// RunRecord validates the JSON encoding of a persisted run record.
func RunRecord(data []byte) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}
	return validateJSON(runSchema, data)
}

// RegressionReport validates the JSON encoding of a comparison report.
func RegressionReport(data []byte) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}
	return validateJSON(reportSchema, data)
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
