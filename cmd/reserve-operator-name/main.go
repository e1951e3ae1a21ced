// reserve-operator-name reserves an operator package name in Pyxis for a certification
// project, failing when the name or the project is already bound elsewhere.
package main

import (
	goflag "flag"
	"os"

	"github.com/spf13/pflag"
	"sigs.k8s.io/prow/pkg/logrusutil"

	"github.com/openshift/operator-cert-tools/pkg/operatorname"
)

func main() {
	logrusutil.ComponentInit()
	cmd := operatorname.NewReserveOperatorNameCommand()
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
