// Package domain contains the core domain contract types for the BCM access
// control service. These types serve as the single source of truth shared
// between the transport layer and the application services.
package domain

// Identity is the resolved caller triple supplied by the external identity
// collaborator. The core never reads ambient token state; every call carries
// an explicit Identity.
type Identity struct {
	UserID         string `json:"user_id" validate:"required"`
	OrganizationID string `json:"organization_id" validate:"required"`
	Role           string `json:"role" validate:"required"`
}

// IsZero reports whether any part of the triple is missing.
func (id Identity) IsZero() bool {
	return id.UserID == "" || id.OrganizationID == "" || id.Role == ""
}
