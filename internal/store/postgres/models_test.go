package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcmaccess/internal/license"
	"bcmaccess/internal/rbac"
	"bcmaccess/internal/workflow"
)

func TestRequestRowRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	req := &workflow.Request{
		ID:             "req-1",
		OrganizationID: "org-1",
		RequesterID:    "u-1",
		ModuleID:       3,
		ModuleName:     "Risk Analysis",
		Reason:         "need access",
		Status:         workflow.StatusAwaitingSponsor,
		Approvals: map[rbac.Role]workflow.Approval{
			rbac.RoleClientHead: {
				Decision:   workflow.DecisionApproved,
				ApproverID: "head-1",
				DecidedAt:  now,
			},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	row, err := requestRowFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "pending_awaiting_sponsor", row.Status)
	assert.NotEmpty(t, row.Approvals)

	back, err := row.toRequest()
	require.NoError(t, err)
	assert.Equal(t, req.ID, back.ID)
	assert.Equal(t, req.Status, back.Status)
	assert.Equal(t, req.Version, back.Version)
	require.Contains(t, back.Approvals, rbac.RoleClientHead)
	assert.Equal(t, workflow.DecisionApproved, back.Approvals[rbac.RoleClientHead].Decision)
	assert.Equal(t, "head-1", back.Approvals[rbac.RoleClientHead].ApproverID)
}

func TestRequestRowEmptyApprovals(t *testing.T) {
	row := requestRow{ID: "req-1", Status: "pending"}
	req, err := row.toRequest()
	require.NoError(t, err)
	assert.NotNil(t, req.Approvals)
	assert.Empty(t, req.Approvals)
}

func TestRequestRowCorruptApprovals(t *testing.T) {
	row := requestRow{ID: "req-1", Status: "pending", Approvals: []byte("{oops")}
	_, err := row.toRequest()
	assert.Error(t, err)
}

func TestGrantRowRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	g := license.Grant{OrganizationID: "org-1", ModuleID: 3, ModuleName: "Risk Analysis", GrantedAt: now}
	assert.Equal(t, g, grantRowFromGrant(g).toGrant())
}
