package pyxis

// OperatorPackage is a reserved operator package name.
type OperatorPackage struct {
	ID string `json:"_id,omitempty"`
	// PackageName is unique across all associations
	PackageName string `json:"package_name"`
	// Association links the package to a certification project (ISV pid)
	Association string `json:"association"`
	Source      string `json:"source,omitempty"`
}

type operatorPackageList struct {
	Data []OperatorPackage `json:"data"`
}
