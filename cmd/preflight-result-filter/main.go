// preflight-result-filter reduces a preflight test report to the checks that gate
// community operator certification and recomputes the overall outcome.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/prow/pkg/flagutil"
	"sigs.k8s.io/prow/pkg/logrusutil"

	"github.com/openshift/operator-cert-tools/pkg/preflight"
)

const (
	testResultsOption = "test-results"
	outputFileOption  = "output-file"
)

type options struct {
	testResults string
	outputFile  string
	skipTests   flagutil.Strings

	logLevel string
	verbose  bool
}

func gatherOptions() options {
	o := options{}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	fs.StringVar(&o.testResults, testResultsOption, "", "Path to the preflight test results JSON")
	fs.StringVar(&o.outputFile, outputFileOption, "", "Path to write the filtered test results JSON to")
	fs.Var(&o.skipTests, "skip-tests", "Name of a test to treat like the built-in community tests for this run. Accepts a comma-separated list and can be passed multiple times.")
	fs.StringVar(&o.logLevel, "log-level", "info", "Level at which to log output.")
	fs.BoolVar(&o.verbose, "verbose", false, "Verbose output, same as --log-level=debug")

	if err := fs.Parse(os.Args[1:]); err != nil {
		logrus.WithError(err).Fatal("could not parse input")
	}
	return o
}

func (o *options) validate(fileSystem afero.Fs) error {
	var errs []error
	afs := afero.Afero{Fs: fileSystem}
	if o.testResults == "" {
		errs = append(errs, fmt.Errorf("required parameter %s was not provided", testResultsOption))
	} else if exists, _ := afs.Exists(o.testResults); !exists {
		errs = append(errs, fmt.Errorf("validating test results path %s failed, does not exist", o.testResults))
	}
	if o.outputFile == "" {
		errs = append(errs, fmt.Errorf("required parameter %s was not provided", outputFileOption))
	} else if exists, _ := afs.DirExists(filepath.Dir(o.outputFile)); !exists {
		errs = append(errs, fmt.Errorf("validating output file path %s failed, directory does not exist", o.outputFile))
	}
	if _, err := logrus.ParseLevel(o.logLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid --log-level: %w", err))
	}
	return utilerrors.NewAggregate(errs)
}

func (o *options) level() logrus.Level {
	if o.verbose {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// skipped returns every test name given to --skip-tests, splitting comma-separated values.
func (o *options) skipped() sets.Set[string] {
	skip := sets.New[string]()
	for _, value := range o.skipTests.Strings() {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				skip.Insert(name)
			}
		}
	}
	return skip
}

func run(o options, fileSystem afero.Fs, evaluator *preflight.Evaluator, logger *logrus.Entry) (preflight.Report, error) {
	logger = logger.WithField("test-results", o.testResults)
	report, err := preflight.ReadReport(fileSystem, o.testResults)
	if err != nil {
		return preflight.Report{}, err
	}
	skip := o.skipped()
	if skip.Len() > 0 {
		logger.WithField("skip-tests", sets.List(skip)).Debug("Tests allowed to fail for this run")
	}

	evaluated := evaluator.Evaluate(report, skip)
	summary := preflight.Summarize(report, evaluated)
	if len(summary.Dropped) > 0 {
		logger.WithField("tests", summary.Dropped).Info("Ignoring failed tests that do not gate certification")
	}
	if len(summary.Kept) > 0 {
		logger.WithField("tests", summary.Kept).Warn("Failed tests that gate certification remain in the report")
	}

	if err := preflight.WriteReport(fileSystem, o.outputFile, evaluated); err != nil {
		return preflight.Report{}, err
	}
	logger.WithFields(logrus.Fields{"output-file": o.outputFile, "passed": evaluated.Passed}).Info("Wrote filtered test results")
	return evaluated, nil
}

func main() {
	logrusutil.ComponentInit()
	logger := logrus.WithField("component", "preflight-result-filter")

	o := gatherOptions()
	fileSystem := afero.NewOsFs()
	if err := o.validate(fileSystem); err != nil {
		logger.WithError(err).Fatal("incorrect options")
	}
	logrus.SetLevel(o.level())

	if _, err := run(o, fileSystem, preflight.DefaultEvaluator(), logger); err != nil {
		logger.WithError(err).Fatal("failed to filter test results")
	}
}
