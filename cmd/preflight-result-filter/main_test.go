package main

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/openshift/operator-cert-tools/pkg/preflight"
	"github.com/openshift/operator-cert-tools/pkg/testhelper"
)

func TestGatherOptions(t *testing.T) {
	os.Args = []string{"cmd", "--test-results=in.json", "--output-file=out/out.json", "--skip-tests=foo,bar", "--skip-tests", " baz ", "--verbose"}

	actual := gatherOptions()

	testhelper.Diff(t, "test results", actual.testResults, "in.json")
	testhelper.Diff(t, "output file", actual.outputFile, "out/out.json")
	testhelper.Diff(t, "skipped tests", sets.List(actual.skipped()), []string{"bar", "baz", "foo"})
	testhelper.Diff(t, "level", actual.level(), logrus.DebugLevel)
}

func TestValidate(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	if err := afero.WriteFile(fileSystem, "/input/results.json", []byte(`{}`), 0644); err != nil {
		t.Fatalf("failed to seed input: %v", err)
	}
	if err := fileSystem.MkdirAll("/output", 0755); err != nil {
		t.Fatalf("failed to create output dir: %v", err)
	}

	var testCases = []struct {
		name        string
		options     options
		expectedErr error
	}{
		{
			name:    "valid",
			options: options{testResults: "/input/results.json", outputFile: "/output/results.json", logLevel: "info"},
		},
		{
			name:        "nothing set",
			options:     options{logLevel: "info"},
			expectedErr: errors.New("[required parameter test-results was not provided, required parameter output-file was not provided]"),
		},
		{
			name:        "missing input and output directory",
			options:     options{testResults: "/input/missing.json", outputFile: "/missing/results.json", logLevel: "info"},
			expectedErr: errors.New("[validating test results path /input/missing.json failed, does not exist, validating output file path /missing/results.json failed, directory does not exist]"),
		},
		{
			name:        "bad log level",
			options:     options{testResults: "/input/results.json", outputFile: "/output/results.json", logLevel: "loud"},
			expectedErr: errors.New(`invalid --log-level: not a valid logrus Level: "loud"`),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.options.validate(fileSystem)
			if diff := cmp.Diff(tc.expectedErr, err, testhelper.EquateErrorMessage); diff != "" {
				t.Errorf("unexpected error: %s", diff)
			}
		})
	}
}

func TestRun(t *testing.T) {
	var testCases = []struct {
		name           string
		input          string
		skip           []string
		expectedOutput string
		expectedPassed bool
		expectedErr    bool
	}{
		{
			name:  "unrelated failure passes",
			input: `{"results": {"failed": [{"name": "foo"}]}, "passed": false}`,
			expectedOutput: `{
  "passed": true,
  "results": {
    "failed": []
  }
}`,
			expectedPassed: true,
		},
		{
			name:  "community failure is kept",
			input: `{"results": {"failed": [{"name": "DeployableByOLM"}, {"name": "foo"}]}, "passed": false}`,
			expectedOutput: `{
  "passed": false,
  "results": {
    "failed": [
      {
        "name": "DeployableByOLM"
      }
    ]
  }
}`,
		},
		{
			name:  "skipped failure is kept",
			input: `{"results": {"failed": [{"name": "foo"}, {"name": "bar"}], "passed": [{"name": "baz"}]}, "passed": false}`,
			skip:  []string{"bar"},
			expectedOutput: `{
  "passed": false,
  "results": {
    "failed": [
      {
        "name": "bar"
      }
    ],
    "passed": [
      {
        "name": "baz"
      }
    ]
  }
}`,
		},
		{
			name:        "results missing",
			input:       `{"passed": false}`,
			expectedErr: true,
		},
		{
			name:        "not JSON",
			input:       `passed`,
			expectedErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fileSystem := afero.NewMemMapFs()
			if err := afero.WriteFile(fileSystem, "/input/results.json", []byte(tc.input), 0644); err != nil {
				t.Fatalf("failed to seed input: %v", err)
			}
			o := options{testResults: "/input/results.json", outputFile: "/output/results.json"}
			for _, skip := range tc.skip {
				if err := o.skipTests.Set(skip); err != nil {
					t.Fatalf("failed to set skipped test: %v", err)
				}
			}

			report, err := run(o, fileSystem, preflight.DefaultEvaluator(), logrus.WithField("test", tc.name))
			if err != nil && !tc.expectedErr {
				t.Fatalf("expected no error but got one: %v", err)
			}
			if err == nil && tc.expectedErr {
				t.Fatal("expected an error but got none")
			}
			if tc.expectedErr {
				if exists, _ := afero.Exists(fileSystem, o.outputFile); exists {
					t.Error("expected no output file to be written")
				}
				return
			}
			testhelper.Diff(t, "passed", report.Passed, tc.expectedPassed)
			output, err := afero.ReadFile(fileSystem, o.outputFile)
			if err != nil {
				t.Fatalf("failed to read output: %v", err)
			}
			testhelper.Diff(t, "output", string(output), tc.expectedOutput)
		})
	}
}
