package preflight

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
	"github.com/spf13/afero"
)

//go:embed report.schema.json
var reportSchemaJSON []byte

var reportSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(reportSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}
	return schema, nil
})

// ParseReport validates the document against the report schema and decodes it.
func ParseReport(data []byte) (Report, error) {
	if !json.Valid(data) {
		return Report{}, errors.New("test report is not valid JSON")
	}
	schema, err := reportSchema()
	if err != nil {
		return Report{}, err
	}
	if result := schema.ValidateJSON(data); !result.IsValid() {
		return Report{}, fmt.Errorf("test report does not match the expected structure: %v", result.Errors)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("failed to unmarshal test report: %w", err)
	}
	return report, nil
}

// ReadReport reads and parses the report stored at path.
func ReadReport(fs afero.Fs, path string) (Report, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read test results %s: %w", path, err)
	}
	report, err := ParseReport(data)
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse test results %s: %w", path, err)
	}
	return report, nil
}

// MarshalReport renders the report as JSON indented by two spaces.
func MarshalReport(report Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// WriteReport writes the report to path, replacing any existing file.
func WriteReport(fs afero.Fs, path string, report Report) error {
	data, err := MarshalReport(report)
	if err != nil {
		return fmt.Errorf("failed to marshal test report: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write test report to %s: %w", path, err)
	}
	return nil
}
