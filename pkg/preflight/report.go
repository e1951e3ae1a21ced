package preflight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	passedKey  = "passed"
	failedKey  = "failed"
	resultsKey = "results"
	nameKey    = "name"
)

// ErrNoResults is returned when a report document has no results object.
var ErrNoResults = errors.New("test report has no results")

// Report is a preflight test report. Keys that are not modelled explicitly are kept
// verbatim in Extra and written back when the report is marshalled.
type Report struct {
	Passed  bool
	Results Results
	Extra   map[string]json.RawMessage
}

// Results holds the per-outcome test case lists of a report. A nil list means the key
// was absent from the document and will not be written back.
type Results struct {
	Failed []TestCase
	Passed []TestCase
	Extra  map[string]json.RawMessage
}

// TestCase is a single check outcome, identified by its name. Every other field is an
// opaque payload that is passed through untouched.
type TestCase struct {
	Name  string
	Extra map[string]json.RawMessage
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rawResults, ok := raw[resultsKey]
	if !ok || isNull(rawResults) {
		return ErrNoResults
	}
	var results Results
	if err := json.Unmarshal(rawResults, &results); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", resultsKey, err)
	}
	var passed bool
	if rawPassed, ok := raw[passedKey]; ok && !isNull(rawPassed) {
		if err := json.Unmarshal(rawPassed, &passed); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", passedKey, err)
		}
	}
	delete(raw, resultsKey)
	delete(raw, passedKey)

	*r = Report{Passed: passed, Results: results, Extra: nonEmpty(raw)}
	return nil
}

func (r Report) MarshalJSON() ([]byte, error) {
	out := withExtra(r.Extra)
	var err error
	if out[passedKey], err = json.Marshal(r.Passed); err != nil {
		return nil, err
	}
	if out[resultsKey], err = json.Marshal(r.Results); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (r *Results) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	failed, err := unmarshalTestCases(raw, failedKey)
	if err != nil {
		return err
	}
	passed, err := unmarshalTestCases(raw, passedKey)
	if err != nil {
		return err
	}
	delete(raw, failedKey)
	delete(raw, passedKey)

	*r = Results{Failed: failed, Passed: passed, Extra: nonEmpty(raw)}
	return nil
}

func (r Results) MarshalJSON() ([]byte, error) {
	out := withExtra(r.Extra)
	if r.Failed != nil {
		data, err := json.Marshal(r.Failed)
		if err != nil {
			return nil, err
		}
		out[failedKey] = data
	}
	if r.Passed != nil {
		data, err := json.Marshal(r.Passed)
		if err != nil {
			return nil, err
		}
		out[passedKey] = data
	}
	return json.Marshal(out)
}

func (t *TestCase) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var name string
	if rawName, ok := raw[nameKey]; ok && !isNull(rawName) {
		if err := json.Unmarshal(rawName, &name); err != nil {
			return fmt.Errorf("failed to unmarshal test case %s: %w", nameKey, err)
		}
	}
	delete(raw, nameKey)

	*t = TestCase{Name: name, Extra: nonEmpty(raw)}
	return nil
}

func (t TestCase) MarshalJSON() ([]byte, error) {
	out := withExtra(t.Extra)
	data, err := json.Marshal(t.Name)
	if err != nil {
		return nil, err
	}
	out[nameKey] = data
	return json.Marshal(out)
}

// unmarshalTestCases decodes the list stored under key. Absent and null lists are
// returned as nil, present lists always as a non-nil slice.
func unmarshalTestCases(raw map[string]json.RawMessage, key string) ([]TestCase, error) {
	data, ok := raw[key]
	if !ok || isNull(data) {
		return nil, nil
	}
	testCases := []TestCase{}
	if err := json.Unmarshal(data, &testCases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s test cases: %w", key, err)
	}
	return testCases, nil
}

func withExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(extra)+2)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func nonEmpty(m map[string]json.RawMessage) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	return m
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
