package models

// ComponentDescriptor describes an installed ABAP software component.
type ComponentDescriptor struct {
	Component           string `json:"component"`
	Version             string `json:"version"`
	SupportPackageLevel string `json:"supportPackages"`
	PatchLevel          string `json:"patchLevel"`
	Vendor              string `json:"vendor"`
	Type                string `json:"type"`
	Description         string `json:"description"`
}

// NotAvailable is reported for component attributes sapcontrol does not deliver.
const NotAvailable = "N/A"
