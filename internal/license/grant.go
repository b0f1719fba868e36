package license

import (
	"context"
	"time"
)

// Grant is a persisted fact that an organization may use a module.
//
// Legacy records imported from the old platform sometimes carry only a module
// name and no ID; ModuleID is zero for those. Matching treats ID as primary
// and falls back to the name only on ID-less records, so name drift can never
// override an explicit ID.
type Grant struct {
	OrganizationID string    `json:"organization_id"`
	ModuleID       int       `json:"module_id"`
	ModuleName     string    `json:"module_name,omitempty"`
	GrantedAt      time.Time `json:"granted_at"`
}

// GrantStore is the durable persistence port for license grants. Writes come
// only from the approval workflow reaching its terminal approved state.
type GrantStore interface {
	// Grant records a grant. It is idempotent: granting an already granted
	// (organization, module) pair is a no-op.
	Grant(ctx context.Context, g Grant) error

	// GrantsForOrganization returns all grants held by the organization.
	GrantsForOrganization(ctx context.Context, orgID string) ([]Grant, error)

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error
}
