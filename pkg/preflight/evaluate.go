// Package preflight filters preflight test reports down to the checks that decide
// whether a community operator bundle passes certification.
package preflight

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// CommunityAllowedTests returns the preflight checks that are kept in the failed list
// of a community report. Any other failing check is dropped and does not fail the run.
func CommunityAllowedTests() []string {
	return []string{
		"ScorecardBasicSpecCheck",
		"ScorecardOlmSuiteCheck",
		"DeployableByOLM",
		"ValidateOperatorBundle",
	}
}

// Evaluator filters reports against a fixed set of exempt test names.
type Evaluator struct {
	exempt sets.Set[string]
}

func NewEvaluator(exempt ...string) *Evaluator {
	return &Evaluator{exempt: sets.New[string](exempt...)}
}

// DefaultEvaluator returns an Evaluator for CommunityAllowedTests.
func DefaultEvaluator() *Evaluator {
	return NewEvaluator(CommunityAllowedTests()...)
}

// Exempt returns a copy of the built-in exempt test names.
func (e *Evaluator) Exempt() sets.Set[string] {
	return e.exempt.Clone()
}

// Evaluate keeps only the failed test cases whose name is exempt, either built in or
// listed in skip, and marks the report as passed when no failed test case remains.
// Passed test cases and unknown keys are carried over as-is. The input report is not
// modified; test case payloads are shared with the returned report.
func (e *Evaluator) Evaluate(report Report, skip sets.Set[string]) Report {
	exempt := e.exempt.Union(skip)

	failed := make([]TestCase, 0, len(report.Results.Failed))
	for _, testCase := range report.Results.Failed {
		if exempt.Has(testCase.Name) {
			failed = append(failed, testCase)
		}
	}

	return Report{
		Passed: len(failed) == 0,
		Results: Results{
			Failed: failed,
			Passed: slices.Clone(report.Results.Passed),
			Extra:  report.Results.Extra,
		},
		Extra: report.Extra,
	}
}

// Summary describes how many failed test cases were kept and dropped by an evaluation.
type Summary struct {
	Kept    []string
	Dropped []string
}

// Summarize compares the failed lists of a report before and after Evaluate.
func Summarize(before, after Report) Summary {
	kept := sets.New[string]()
	for _, testCase := range after.Results.Failed {
		kept.Insert(testCase.Name)
	}
	var summary Summary
	for _, testCase := range before.Results.Failed {
		if kept.Has(testCase.Name) {
			summary.Kept = append(summary.Kept, testCase.Name)
		} else {
			summary.Dropped = append(summary.Dropped, testCase.Name)
		}
	}
	return summary
}
