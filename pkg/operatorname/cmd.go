package operatorname

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/prow/pkg/interrupts"

	"github.com/openshift/operator-cert-tools/pkg/pyxis"
)

type reserveFlags struct {
	Association  string
	OperatorName string
	Source       string
	PyxisURL     string

	DryRun   bool
	LogLevel string
	Verbose  bool
}

func newReserveFlags() *reserveFlags {
	return &reserveFlags{
		PyxisURL: pyxis.DefaultURL,
		LogLevel: "info",
	}
}

func (f *reserveFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Association, "association", f.Association, "Association of the operator package (the certification project ISV pid).")
	fs.StringVar(&f.OperatorName, "operator-name", f.OperatorName, "Unique name of the operator package.")
	fs.StringVar(&f.Source, "source", f.Source, "Source of the operator package.")
	fs.StringVar(&f.PyxisURL, "pyxis-url", f.PyxisURL, "Base URL for Pyxis container metadata API.")
	fs.BoolVar(&f.DryRun, "dry-run", f.DryRun, "Run the checks, but don't reserve the name.")
	fs.StringVar(&f.LogLevel, "log-level", f.LogLevel, "Level at which to log output.")
	fs.BoolVar(&f.Verbose, "verbose", f.Verbose, "Verbose output, same as --log-level=debug.")
}

// NewReserveOperatorNameCommand returns the command reserving a package name in Pyxis.
func NewReserveOperatorNameCommand() *cobra.Command {
	f := newReserveFlags()

	cmd := &cobra.Command{
		Use:          "reserve-operator-name",
		Long:         `Reserve the given operator package name for an association`,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := interrupts.Context()

			if err := f.Validate(); err != nil {
				logrus.WithError(err).Fatal("Flags are invalid")
			}
			logrus.SetLevel(f.level())

			o, err := f.ToOptions()
			if err != nil {
				logrus.WithError(err).Fatal("Failed to build runtime options")
			}

			if err := o.Run(ctx); err != nil {
				logrus.WithError(err).Fatal("Command failed")
			}

			return nil
		},

		Args: NoArgs,
	}

	f.BindFlags(cmd.Flags())

	return cmd
}

// Validate checks to see if the user-input is likely to produce functional runtime options
func (f *reserveFlags) Validate() error {
	var errs []error
	if f.Association == "" {
		errs = append(errs, errors.New("--association is required"))
	}
	if f.OperatorName == "" {
		errs = append(errs, errors.New("--operator-name is required"))
	}
	if f.Source == "" {
		errs = append(errs, errors.New("--source is required"))
	}
	if f.PyxisURL == "" {
		errs = append(errs, errors.New("--pyxis-url is required"))
	}
	if _, err := logrus.ParseLevel(f.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid --log-level: %w", err))
	}
	return utilerrors.NewAggregate(errs)
}

func (f *reserveFlags) level() logrus.Level {
	if f.Verbose {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(f.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// ToOptions goes from the user input to the runtime values need to run the command.
func (f *reserveFlags) ToOptions() (*ReserveOptions, error) {
	client, err := pyxis.NewClient(f.PyxisURL, pyxis.OptsFromEnv()...)
	if err != nil {
		return nil, err
	}
	return &ReserveOptions{
		reserver: NewReserver(client, f.DryRun),
		request: Request{
			Association:  f.Association,
			OperatorName: f.OperatorName,
			Source:       f.Source,
		},
		logger: logrus.WithField("component", "reserve-operator-name"),
	}, nil
}

type ReserveOptions struct {
	reserver *Reserver
	request  Request
	logger   *logrus.Entry
}

func (o *ReserveOptions) Run(ctx context.Context) error {
	outcome, err := o.reserver.Reserve(ctx, o.request, o.logger)
	if err != nil {
		return err
	}
	o.logger.WithField("outcome", outcome).Debug("Reservation finished")
	return nil
}

func NoArgs(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		if len(arg) > 0 {
			return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
		}
	}
	return nil
}
