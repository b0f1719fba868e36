package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"bcmaccess/internal/license"
	"bcmaccess/internal/rbac"
	"bcmaccess/internal/workflow"
)

// grantRow is the persisted form of a license grant. module_name is kept even
// on ID-bearing rows for audit; legacy imported rows have module_id 0 and a
// name only.
type grantRow struct {
	OrganizationID string    `gorm:"column:organization_id;primaryKey"`
	ModuleID       int       `gorm:"column:module_id;primaryKey"`
	ModuleName     string    `gorm:"column:module_name;primaryKey"`
	GrantedAt      time.Time `gorm:"column:granted_at"`
}

func (grantRow) TableName() string { return "organization_license_grants" }

func grantRowFromGrant(g license.Grant) grantRow {
	return grantRow{
		OrganizationID: g.OrganizationID,
		ModuleID:       g.ModuleID,
		ModuleName:     g.ModuleName,
		GrantedAt:      g.GrantedAt,
	}
}

func (r grantRow) toGrant() license.Grant {
	return license.Grant{
		OrganizationID: r.OrganizationID,
		ModuleID:       r.ModuleID,
		ModuleName:     r.ModuleName,
		GrantedAt:      r.GrantedAt,
	}
}

// requestRow is the persisted form of a module access request. Approvals are
// serialized as JSONB keyed by approver role.
type requestRow struct {
	ID             string    `gorm:"column:id;primaryKey"`
	OrganizationID string    `gorm:"column:organization_id;index:idx_request_org_requester"`
	RequesterID    string    `gorm:"column:requester_id;index:idx_request_org_requester"`
	ModuleID       int       `gorm:"column:module_id"`
	ModuleName     string    `gorm:"column:module_name"`
	Reason         string    `gorm:"column:reason"`
	Status         string    `gorm:"column:status;index"`
	Approvals      []byte    `gorm:"column:approvals;type:jsonb"`
	Version        int       `gorm:"column:version"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (requestRow) TableName() string { return "module_access_requests" }

func requestRowFromRequest(req *workflow.Request) (requestRow, error) {
	approvals, err := json.Marshal(req.Approvals)
	if err != nil {
		return requestRow{}, fmt.Errorf("marshal approvals: %w", err)
	}
	return requestRow{
		ID:             req.ID,
		OrganizationID: req.OrganizationID,
		RequesterID:    req.RequesterID,
		ModuleID:       req.ModuleID,
		ModuleName:     req.ModuleName,
		Reason:         req.Reason,
		Status:         string(req.Status),
		Approvals:      approvals,
		Version:        req.Version,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}, nil
}

func (r requestRow) toRequest() (*workflow.Request, error) {
	approvals := make(map[rbac.Role]workflow.Approval)
	if len(r.Approvals) > 0 {
		if err := json.Unmarshal(r.Approvals, &approvals); err != nil {
			return nil, fmt.Errorf("unmarshal approvals for request %s: %w", r.ID, err)
		}
	}
	return &workflow.Request{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		RequesterID:    r.RequesterID,
		ModuleID:       r.ModuleID,
		ModuleName:     r.ModuleName,
		Reason:         r.Reason,
		Status:         workflow.Status(r.Status),
		Approvals:      approvals,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}
