// Package workflow implements the module access request approval state
// machine: dual sign-off by two independent approver roles, rejection
// short-circuit, optimistic concurrency, and atomic grant provisioning on
// terminal approval.
package workflow

import (
	"time"

	"bcmaccess/internal/rbac"
)

// Status is the tagged state of a module access request.
type Status string

const (
	// StatusPending is the initial state: no approver has decided.
	StatusPending Status = "pending"
	// StatusAwaitingSponsor means the client head approved and the project
	// sponsor's decision is outstanding.
	StatusAwaitingSponsor Status = "pending_awaiting_sponsor"
	// StatusAwaitingClientHead means the project sponsor approved and the
	// client head's decision is outstanding.
	StatusAwaitingClientHead Status = "pending_awaiting_client_head"
	// StatusApproved is terminal: both approver roles approved.
	StatusApproved Status = "approved"
	// StatusRejected is terminal: either approver rejected.
	StatusRejected Status = "rejected"
)

// Terminal reports whether the status accepts no further decisions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is one of the five workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAwaitingSponsor, StatusAwaitingClientHead, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// approveTransitions is the explicit transition table for approve decisions:
// current status and approving role determine the next status. Absent entries
// are invalid transitions. Rejections are not in the table; any non-terminal
// state moves to StatusRejected on a rejection from either approver role.
var approveTransitions = map[Status]map[rbac.Role]Status{
	StatusPending: {
		rbac.RoleClientHead:     StatusAwaitingSponsor,
		rbac.RoleProjectSponsor: StatusAwaitingClientHead,
	},
	StatusAwaitingSponsor: {
		rbac.RoleProjectSponsor: StatusApproved,
	},
	StatusAwaitingClientHead: {
		rbac.RoleClientHead: StatusApproved,
	},
}

// Decision is an approver's verdict on a request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is a recognized decision.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Approval is one approver role's recorded decision. At most one exists per
// role per request.
type Approval struct {
	Decision   Decision  `json:"decision"`
	ApproverID string    `json:"approver_id"`
	DecidedAt  time.Time `json:"decided_at"`
}

// Request is a module access request. It is never deleted; terminal requests
// are retained for audit.
type Request struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organization_id"`
	RequesterID    string                 `json:"requester_id"`
	ModuleID       int                    `json:"module_id"`
	ModuleName     string                 `json:"module_name"`
	Reason         string                 `json:"reason"`
	Status         Status                 `json:"status"`
	Approvals      map[rbac.Role]Approval `json:"approvals"`
	Version        int                    `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Clone returns a deep copy, so callers can mutate without aliasing stored
// state.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Approvals = make(map[rbac.Role]Approval, len(r.Approvals))
	for role, a := range r.Approvals {
		out.Approvals[role] = a
	}
	return &out
}
