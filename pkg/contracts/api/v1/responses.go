package api

import (
	"time"

	"bcmaccess/pkg/contracts/domain"
)

// OrganizationModulesResponse lists every catalog module with its licensing
// state for one organization.
type OrganizationModulesResponse struct {
	OrganizationID string                `json:"organization_id"`
	Modules        []domain.ModuleStatus `json:"modules"`
	TraceID        string                `json:"trace_id,omitempty"`
}

// ApprovalRecord is one approver role's recorded decision.
type ApprovalRecord struct {
	Decision   string    `json:"decision"`
	ApproverID string    `json:"approver_id"`
	DecidedAt  time.Time `json:"decided_at"`
}

// ModuleRequestResponse is the API view of a module access request.
type ModuleRequestResponse struct {
	ID             string                    `json:"id"`
	OrganizationID string                    `json:"organization_id"`
	RequesterID    string                    `json:"requester_id"`
	ModuleID       int                       `json:"module_id"`
	ModuleName     string                    `json:"module_name,omitempty"`
	Reason         string                    `json:"reason"`
	Status         string                    `json:"status"`
	Approvals      map[string]ApprovalRecord `json:"approvals,omitempty"`
	Version        int                       `json:"version"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// ModuleRequestListResponse wraps a list of requests.
type ModuleRequestListResponse struct {
	Requests []ModuleRequestResponse `json:"requests"`
	Count    int                     `json:"count"`
}

// CacheInvalidateResponse acknowledges an administrative cache invalidation.
type CacheInvalidateResponse struct {
	OrganizationID string    `json:"organization_id"`
	Invalidated    bool      `json:"invalidated"`
	Timestamp      time.Time `json:"timestamp"`
}
