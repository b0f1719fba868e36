package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcmaccess/internal/catalog"
	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/license"
	"bcmaccess/internal/store/memory"
	"bcmaccess/internal/workflow"
	api "bcmaccess/pkg/contracts/api/v1"
	"bcmaccess/pkg/contracts/domain"
)

func newAccessService(t *testing.T, demoOrgs ...string) (*AccessService, *memory.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	cat := catalog.New()

	cache := license.NewMemoryCache(time.Minute, 100)
	t.Cleanup(func() { cache.Close() })

	licenses := license.NewStore(store, cache, time.Second, nil, logger)
	resolver := license.NewResolver(cat, licenses, demoOrgs, logger)
	engine := workflow.NewEngine(store, logger)

	return NewAccessService(cat, resolver, licenses, engine, nil, logger), store
}

func identity(userID, orgID, role string) domain.Identity {
	return domain.Identity{UserID: userID, OrganizationID: orgID, Role: role}
}

func intPtr(v int) *int { return &v }

func TestListModulesCoversWholeCatalog(t *testing.T) {
	svc, store := newAccessService(t)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, license.Grant{
		OrganizationID: "org-1",
		ModuleID:       3,
		ModuleName:     "Risk Analysis",
		GrantedAt:      time.Now().UTC(),
	}))

	resp, err := svc.ListModules(ctx, identity("u-1", "org-1", "user"), "org-1")
	require.NoError(t, err)

	assert.Equal(t, "org-1", resp.OrganizationID)
	assert.Len(t, resp.Modules, len(catalog.New().Modules()))

	byID := make(map[int]domain.ModuleStatus)
	for _, m := range resp.Modules {
		byID[m.ModuleID] = m
	}
	assert.True(t, byID[3].IsLicensed)
	assert.False(t, byID[1].IsLicensed)
}

func TestListModulesOtherOrganizationForbidden(t *testing.T) {
	svc, _ := newAccessService(t)

	_, err := svc.ListModules(context.Background(), identity("u-1", "org-1", "user"), "org-2")
	require.Error(t, err)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}

func TestListModulesDemoOrganization(t *testing.T) {
	svc, _ := newAccessService(t, "org-demo")

	resp, err := svc.ListModules(context.Background(), identity("u-1", "org-demo", "user"), "org-demo")
	require.NoError(t, err)

	for _, m := range resp.Modules {
		assert.True(t, m.IsLicensed, "module %d", m.ModuleID)
	}
}

func TestCheckModuleByAlias(t *testing.T) {
	svc, store := newAccessService(t)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, license.Grant{
		OrganizationID: "org-1",
		ModuleID:       3,
		ModuleName:     "Risk Analysis",
		GrantedAt:      time.Now().UTC(),
	}))

	status, err := svc.CheckModule(ctx, identity("u-1", "org-1", "user"), catalog.Ref{Name: "Risk Assessment"})
	require.NoError(t, err)
	assert.Equal(t, 3, status.ModuleID)
	assert.True(t, status.IsLicensed)
}

func TestCheckModuleUnknownReference(t *testing.T) {
	svc, _ := newAccessService(t)

	_, err := svc.CheckModule(context.Background(), identity("u-1", "org-1", "user"), catalog.Ref{Name: "Astrology"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnknownModule(err))
}

func TestSubmitRequest(t *testing.T) {
	svc, _ := newAccessService(t)

	resp, err := svc.SubmitRequest(context.Background(), identity("u-1", "org-1", "bcm_coordinator"), &api.ModuleRequestCreate{
		ModuleID:      3,
		RequestReason: "quarterly risk review",
	})
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 3, resp.ModuleID)
	assert.Equal(t, "u-1", resp.RequesterID)
	assert.Equal(t, 0, resp.Version)
}

func TestSubmitRequestByNameOnly(t *testing.T) {
	svc, _ := newAccessService(t)

	resp, err := svc.SubmitRequest(context.Background(), identity("u-1", "org-1", "user"), &api.ModuleRequestCreate{
		ModuleName:    "risk assessment",
		RequestReason: "need the module",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ModuleID)
	assert.Equal(t, "Risk Analysis", resp.ModuleName)
}

func TestSubmitRequestUnknownModule(t *testing.T) {
	svc, _ := newAccessService(t)

	_, err := svc.SubmitRequest(context.Background(), identity("u-1", "org-1", "user"), &api.ModuleRequestCreate{
		ModuleName:    "Astrology",
		RequestReason: "need the module",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnknownModule(err))
}

func TestFullApprovalFlowGrantsLicense(t *testing.T) {
	svc, _ := newAccessService(t)
	ctx := context.Background()

	requester := identity("u-1", "org-1", "bcm_coordinator")
	head := identity("head-1", "org-1", "client_head")
	sponsor := identity("sponsor-1", "org-1", "project_sponsor")

	submitted, err := svc.SubmitRequest(ctx, requester, &api.ModuleRequestCreate{
		ModuleID:      3,
		RequestReason: "quarterly risk review",
	})
	require.NoError(t, err)

	afterHead, err := svc.Decide(ctx, head, submitted.ID, &api.ModuleRequestDecide{
		Decision:        "approved",
		ExpectedVersion: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "pending_awaiting_sponsor", afterHead.Status)

	final, err := svc.Decide(ctx, sponsor, submitted.ID, &api.ModuleRequestDecide{
		Decision:        "approved",
		ExpectedVersion: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "approved", final.Status)

	// The grant is visible on the next licensing check.
	status, err := svc.CheckModule(ctx, requester, catalog.Ref{ID: 3})
	require.NoError(t, err)
	assert.True(t, status.IsLicensed)
}

func TestDecideRequiresApproverRole(t *testing.T) {
	svc, _ := newAccessService(t)
	ctx := context.Background()

	submitted, err := svc.SubmitRequest(ctx, identity("u-1", "org-1", "user"), &api.ModuleRequestCreate{
		ModuleID:      1,
		RequestReason: "need the module",
	})
	require.NoError(t, err)

	// org_admin can manage the organization but holds no approval authority.
	_, err = svc.Decide(ctx, identity("admin-1", "org-1", "org_admin"), submitted.ID, &api.ModuleRequestDecide{
		Decision:        "approved",
		ExpectedVersion: intPtr(0),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRoleNotPermitted(err))
}

func TestDecideOtherOrganizationNotFound(t *testing.T) {
	svc, _ := newAccessService(t)
	ctx := context.Background()

	submitted, err := svc.SubmitRequest(ctx, identity("u-1", "org-1", "user"), &api.ModuleRequestCreate{
		ModuleID:      1,
		RequestReason: "need the module",
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, identity("head-2", "org-2", "client_head"), submitted.ID, &api.ModuleRequestDecide{
		Decision:        "approved",
		ExpectedVersion: intPtr(0),
	})
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}

func TestMyRequestsScopedToRequester(t *testing.T) {
	svc, _ := newAccessService(t)
	ctx := context.Background()

	_, err := svc.SubmitRequest(ctx, identity("u-1", "org-1", "user"), &api.ModuleRequestCreate{
		ModuleID:      1,
		RequestReason: "need the module",
	})
	require.NoError(t, err)
	_, err = svc.SubmitRequest(ctx, identity("u-2", "org-1", "user"), &api.ModuleRequestCreate{
		ModuleID:      2,
		RequestReason: "need the module",
	})
	require.NoError(t, err)

	mine, err := svc.MyRequests(ctx, identity("u-1", "org-1", "user"))
	require.NoError(t, err)
	require.Equal(t, 1, mine.Count)
	assert.Equal(t, "u-1", mine.Requests[0].RequesterID)
}

func TestPendingApprovalsRequiresApprover(t *testing.T) {
	svc, _ := newAccessService(t)

	_, err := svc.PendingApprovals(context.Background(), identity("u-1", "org-1", "user"))
	require.Error(t, err)
	assert.True(t, apperrors.IsRoleNotPermitted(err))
}

func TestGetRequestVisibility(t *testing.T) {
	svc, _ := newAccessService(t)
	ctx := context.Background()

	submitted, err := svc.SubmitRequest(ctx, identity("u-1", "org-1", "user"), &api.ModuleRequestCreate{
		ModuleID:      1,
		RequestReason: "need the module",
	})
	require.NoError(t, err)

	// Requester sees it.
	_, err = svc.GetRequest(ctx, identity("u-1", "org-1", "user"), submitted.ID)
	assert.NoError(t, err)

	// Approvers see it.
	_, err = svc.GetRequest(ctx, identity("head-1", "org-1", "client_head"), submitted.ID)
	assert.NoError(t, err)

	// Unrelated users in the same organization do not.
	_, err = svc.GetRequest(ctx, identity("u-3", "org-1", "user"), submitted.ID)
	require.Error(t, err)
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)

	// Other organizations get not-found, not forbidden.
	_, err = svc.GetRequest(ctx, identity("u-1", "org-2", "user"), submitted.ID)
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}

func TestInvalidateCachePermissions(t *testing.T) {
	svc, _ := newAccessService(t)
	ctx := context.Background()

	err := svc.InvalidateCache(ctx, identity("admin-1", "org-1", "org_admin"), &api.CacheInvalidate{
		OrganizationID: "org-1",
		Reason:         "grants changed out of band",
	})
	assert.NoError(t, err)

	err = svc.InvalidateCache(ctx, identity("u-1", "org-1", "user"), &api.CacheInvalidate{
		OrganizationID: "org-1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRoleNotPermitted(err))
}
