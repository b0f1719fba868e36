package domain

// ModuleStatus is the per-module licensing view returned for an organization.
type ModuleStatus struct {
	ModuleID   int    `json:"module_id"`
	Name       string `json:"name"`
	IsLicensed bool   `json:"is_licensed"`
}
