package preflight

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/openshift/operator-cert-tools/pkg/testhelper"
)

func TestParseReport(t *testing.T) {
	var testCases = []struct {
		name        string
		raw         string
		expected    Report
		expectedErr bool
	}{
		{
			name: "minimal report",
			raw:  `{"results": {"failed": [{"name": "X"}]}, "passed": false}`,
			expected: Report{Results: Results{
				Failed: []TestCase{{Name: "X"}},
			}},
		},
		{
			name:     "absent lists stay absent",
			raw:      `{"results": {}, "passed": true}`,
			expected: Report{Passed: true},
		},
		{
			name:     "empty lists stay empty",
			raw:      `{"results": {"failed": [], "passed": []}}`,
			expected: Report{Results: Results{Failed: []TestCase{}, Passed: []TestCase{}}},
		},
		{
			name:     "null lists are treated as absent",
			raw:      `{"results": {"failed": null}}`,
			expected: Report{},
		},
		{
			name: "unknown keys are kept",
			raw:  `{"image": "example", "results": {"errors": [], "failed": [{"name": "X", "help": "h"}]}}`,
			expected: Report{
				Results: Results{
					Failed: []TestCase{{Name: "X", Extra: map[string]json.RawMessage{"help": json.RawMessage(`"h"`)}}},
					Extra:  map[string]json.RawMessage{"errors": json.RawMessage(`[]`)},
				},
				Extra: map[string]json.RawMessage{"image": json.RawMessage(`"example"`)},
			},
		},
		{
			name:        "not JSON",
			raw:         `{"results":`,
			expectedErr: true,
		},
		{
			name:        "missing results",
			raw:         `{"passed": false}`,
			expectedErr: true,
		},
		{
			name:        "results is not an object",
			raw:         `{"results": []}`,
			expectedErr: true,
		},
		{
			name:        "failed is not a list",
			raw:         `{"results": {"failed": {"name": "X"}}}`,
			expectedErr: true,
		},
		{
			name:        "test case without a name",
			raw:         `{"results": {"failed": [{"help": "h"}]}}`,
			expectedErr: true,
		},
		{
			name:        "test case name is not a string",
			raw:         `{"results": {"passed": [{"name": 1}]}}`,
			expectedErr: true,
		},
		{
			name:        "document is not an object",
			raw:         `[]`,
			expectedErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := ParseReport([]byte(tc.raw))
			if err != nil && !tc.expectedErr {
				t.Fatalf("expected no error but got one: %v", err)
			}
			if err == nil && tc.expectedErr {
				t.Fatal("expected an error but got none")
			}
			if diff := cmp.Diff(tc.expected, actual); diff != "" {
				t.Errorf("unexpected report: %s", diff)
			}
		})
	}
}

func TestUnmarshalReportWithoutResults(t *testing.T) {
	for _, raw := range []string{`{}`, `{"results": null}`} {
		var report Report
		if err := json.Unmarshal([]byte(raw), &report); !errors.Is(err, ErrNoResults) {
			t.Errorf("%s: expected %v, got %v", raw, ErrNoResults, err)
		}
	}
}

func TestMarshalReport(t *testing.T) {
	var testCases = []struct {
		name     string
		report   Report
		expected string
	}{
		{
			name:   "kept failure",
			report: Report{Results: Results{Failed: []TestCase{{Name: "X"}}}},
			expected: `{
  "passed": false,
  "results": {
    "failed": [
      {
        "name": "X"
      }
    ]
  }
}`,
		},
		{
			name:   "empty failed list is written",
			report: Report{Passed: true, Results: Results{Failed: []TestCase{}}},
			expected: `{
  "passed": true,
  "results": {
    "failed": []
  }
}`,
		},
		{
			name: "payload fields are written back",
			report: Report{
				Passed: true,
				Results: Results{
					Failed: []TestCase{},
					Passed: []TestCase{{Name: "Y", Extra: map[string]json.RawMessage{"elapsed_time": json.RawMessage(`5`)}}},
				},
				Extra: map[string]json.RawMessage{"image": json.RawMessage(`"example"`)},
			},
			expected: `{
  "image": "example",
  "passed": true,
  "results": {
    "failed": [],
    "passed": [
      {
        "elapsed_time": 5,
        "name": "Y"
      }
    ]
  }
}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := MarshalReport(tc.report)
			if err != nil {
				t.Fatalf("failed to marshal report: %v", err)
			}
			if diff := cmp.Diff(tc.expected, string(actual)); diff != "" {
				t.Errorf("unexpected output: %s", diff)
			}
		})
	}
}

func TestEvaluatePreflightReport(t *testing.T) {
	fs := afero.NewOsFs()
	report, err := ReadReport(fs, "testdata/preflight-results.json")
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	testhelper.CompareWithFixture(t, DefaultEvaluator().Evaluate(report, nil))
}

func TestReadWriteReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/in/results.json", []byte(`{"results": {"failed": [{"name": "foo"}, {"name": "DeployableByOLM"}]}, "passed": false}`), 0644); err != nil {
		t.Fatalf("failed to seed input: %v", err)
	}
	report, err := ReadReport(fs, "/in/results.json")
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if err := WriteReport(fs, "/out/results.json", DefaultEvaluator().Evaluate(report, nil)); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	written, err := ReadReport(fs, "/out/results.json")
	if err != nil {
		t.Fatalf("failed to read written report: %v", err)
	}
	testhelper.Diff(t, "written report", written, Report{Results: Results{Failed: []TestCase{{Name: "DeployableByOLM"}}}})

	if _, err := ReadReport(fs, "/in/missing.json"); err == nil {
		t.Error("expected an error reading a missing file, got none")
	}
	if err := WriteReport(afero.NewReadOnlyFs(fs), "/out/other.json", written); err == nil {
		t.Error("expected an error writing to a read-only filesystem, got none")
	}
}
