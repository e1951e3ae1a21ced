//go:build tools

package hack

// Add tools that hack scripts depend on here, to ensure they are tracked in go.mod.
import (
	_ "github.com/openshift-eng/openshift-goimports"
)
