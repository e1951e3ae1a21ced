// Package operatorname reserves operator package names for certification projects.
//
// A package name belongs to at most one association and an association owns at most one
// package name. Reserving therefore checks both directions before creating a record:
//  1. the association must not already own a different package name,
//  2. the package name must not be owned by a different association,
//  3. only then is the name registered.
package operatorname

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/openshift/operator-cert-tools/pkg/pyxis"
)

var (
	// ErrAssociationMismatch means the association already reserved another package name.
	ErrAssociationMismatch = errors.New("association already has a different operator name reserved")
	// ErrNameTaken means the package name is reserved by another association.
	ErrNameTaken = errors.New("operator name is already taken by another association")
)

type Outcome string

const (
	// OutcomeReserved means a new reservation was created.
	OutcomeReserved Outcome = "reserved"
	// OutcomeAlreadyReserved means the association already owns the name; nothing was created.
	OutcomeAlreadyReserved Outcome = "already-reserved"
	// OutcomeDryRun means the name is available but no reservation was created.
	OutcomeDryRun Outcome = "dry-run"
)

type Request struct {
	Association  string
	OperatorName string
	Source       string
}

// PackageClient is the part of the Pyxis API the reservation flow uses.
type PackageClient interface {
	OperatorPackages(ctx context.Context, filter string) ([]pyxis.OperatorPackage, error)
	CreateOperatorPackage(ctx context.Context, pkg pyxis.OperatorPackage) (*pyxis.OperatorPackage, error)
}

// Reserver runs the reservation flow against Pyxis.
type Reserver struct {
	client PackageClient
	dryRun bool
}

func NewReserver(client PackageClient, dryRun bool) *Reserver {
	return &Reserver{client: client, dryRun: dryRun}
}

func (r *Reserver) Reserve(ctx context.Context, request Request, logger *logrus.Entry) (Outcome, error) {
	logger = logger.WithFields(logrus.Fields{"association": request.Association, "operator-name": request.OperatorName})

	if err := r.checkAssociation(ctx, request, logger); err != nil {
		return "", err
	}
	reserved, err := r.checkName(ctx, request, logger)
	if err != nil {
		return "", err
	}
	if reserved {
		return OutcomeAlreadyReserved, nil
	}

	if r.dryRun {
		logger.Info("Dry run: not reserving the operator name")
		return OutcomeDryRun, nil
	}
	if _, err := r.client.CreateOperatorPackage(ctx, pyxis.OperatorPackage{
		Association: request.Association,
		PackageName: request.OperatorName,
		Source:      request.Source,
	}); err != nil {
		return "", fmt.Errorf("failed to reserve operator name %s: %w", request.OperatorName, err)
	}
	logger.Info("Operator name successfully reserved")
	return OutcomeReserved, nil
}

// checkAssociation fails when the association already reserved a different name.
func (r *Reserver) checkAssociation(ctx context.Context, request Request, logger *logrus.Entry) error {
	packages, err := r.client.OperatorPackages(ctx, pyxis.Filter(pyxis.Equals("association", request.Association), pyxis.NotDeleted))
	if err != nil {
		return fmt.Errorf("failed to look up packages for association %s: %w", request.Association, err)
	}
	if len(packages) == 0 {
		logger.Info("No operator name is registered for the association")
		return nil
	}
	// there is at most one package per association
	if name := packages[0].PackageName; name != request.OperatorName {
		return fmt.Errorf("requested operator name %s does not match operator name %s reserved for association %s: %w", request.OperatorName, name, request.Association, ErrAssociationMismatch)
	}
	logger.Info("Requested operator name matches the one already reserved for the association")
	return nil
}

// checkName reports whether the association already owns the name and fails when
// another association does.
func (r *Reserver) checkName(ctx context.Context, request Request, logger *logrus.Entry) (bool, error) {
	packages, err := r.client.OperatorPackages(ctx, pyxis.Filter(pyxis.Equals("package_name", request.OperatorName), pyxis.NotDeleted))
	if err != nil {
		return false, fmt.Errorf("failed to look up operator name %s: %w", request.OperatorName, err)
	}
	if len(packages) == 0 {
		logger.Info("Operator name is available")
		return false, nil
	}
	// package names are unique
	if owner := packages[0].Association; owner != request.Association {
		return false, fmt.Errorf("operator name %s is reserved by association %s: %w", request.OperatorName, owner, ErrNameTaken)
	}
	logger.Info("Operator name is already reserved by this association")
	return true, nil
}
