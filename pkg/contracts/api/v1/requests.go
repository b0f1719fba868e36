// Package api contains API contract definitions for the BCM access control
// service. Version v1 represents the current stable API version.
package api

// Module access request API

// ModuleRequestCreate represents a request for access to a module. Either
// module_id or module_name identifies the module; module_id wins when both
// are present.
type ModuleRequestCreate struct {
	ModuleID      int    `json:"module_id" validate:"omitempty,min=1"`
	ModuleName    string `json:"module_name" validate:"omitempty,max=120"`
	RequestReason string `json:"request_reason" validate:"required,min=3,max=2000"`
}

// ModuleRequestDecide represents an approver decision on a pending request.
type ModuleRequestDecide struct {
	Decision        string `json:"decision" validate:"required,oneof=approved rejected"`
	ExpectedVersion *int   `json:"expected_version" validate:"required,min=0"`
}

// CacheInvalidate represents an administrative cache invalidation request.
type CacheInvalidate struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	Reason         string `json:"reason,omitempty" validate:"max=500"`
}
