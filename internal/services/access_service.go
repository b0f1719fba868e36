package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"bcmaccess/internal/catalog"
	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/infrastructure"
	"bcmaccess/internal/license"
	"bcmaccess/internal/rbac"
	"bcmaccess/internal/workflow"
	api "bcmaccess/pkg/contracts/api/v1"
	"bcmaccess/pkg/contracts/domain"
)

// moduleResolveConcurrency bounds the fan-out when resolving the licensing
// state of every catalog module for one organization.
const moduleResolveConcurrency = 4

// AccessService composes the catalog, license resolver and approval workflow
// into the operations the HTTP layer exposes.
type AccessService struct {
	catalog  *catalog.Catalog
	resolver *license.Resolver
	licenses *license.Store
	engine   *workflow.Engine
	metrics  *infrastructure.AccessMetrics
	logger   *slog.Logger
}

// NewAccessService creates the access control service
func NewAccessService(
	cat *catalog.Catalog,
	resolver *license.Resolver,
	licenses *license.Store,
	engine *workflow.Engine,
	metrics *infrastructure.AccessMetrics,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		catalog:  cat,
		resolver: resolver,
		licenses: licenses,
		engine:   engine,
		metrics:  metrics,
		logger:   logger.With(slog.String("service", "access")),
	}
}

// ListModules returns every catalog module with its licensing state for the
// caller's organization. Callers may only inspect their own organization.
func (s *AccessService) ListModules(ctx context.Context, id domain.Identity, orgID string) (*api.OrganizationModulesResponse, error) {
	if err := s.requirePermission(id, rbac.PermUseModules); err != nil {
		return nil, err
	}
	if orgID != id.OrganizationID {
		return nil, apperrors.ForbiddenError("cannot view modules of another organization")
	}

	modules := s.catalog.Modules()
	statuses := make([]domain.ModuleStatus, len(modules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(moduleResolveConcurrency)

	for i, mod := range modules {
		g.Go(func() error {
			licensed, err := s.resolver.IsLicensed(gctx, orgID, catalog.Ref{ID: mod.ID})
			if err != nil {
				return err
			}
			s.metrics.RecordLicenseCheck(gctx, licensed)
			statuses[i] = domain.ModuleStatus{
				ModuleID:   mod.ID,
				Name:       mod.CanonicalName,
				IsLicensed: licensed,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &api.OrganizationModulesResponse{
		OrganizationID: orgID,
		Modules:        statuses,
		TraceID:        infrastructure.GetTraceID(ctx),
	}, nil
}

// CheckModule resolves the licensing state of a single module reference for
// the caller's organization.
func (s *AccessService) CheckModule(ctx context.Context, id domain.Identity, ref catalog.Ref) (*domain.ModuleStatus, error) {
	if err := s.requirePermission(id, rbac.PermUseModules); err != nil {
		return nil, err
	}

	module, err := s.catalog.Resolve(ref)
	if err != nil {
		return nil, err
	}

	licensed, err := s.resolver.IsLicensed(ctx, id.OrganizationID, ref)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLicenseCheck(ctx, licensed)

	return &domain.ModuleStatus{
		ModuleID:   module.ID,
		Name:       module.CanonicalName,
		IsLicensed: licensed,
	}, nil
}

// SubmitRequest opens a module access request on behalf of the caller.
func (s *AccessService) SubmitRequest(ctx context.Context, id domain.Identity, payload *api.ModuleRequestCreate) (*api.ModuleRequestResponse, error) {
	if err := s.requirePermission(id, rbac.PermSubmitRequest); err != nil {
		return nil, err
	}

	module, err := s.catalog.Resolve(catalog.Ref{ID: payload.ModuleID, Name: payload.ModuleName})
	if err != nil {
		return nil, err
	}

	req, err := s.engine.Submit(ctx, id.OrganizationID, id.UserID, module, payload.RequestReason)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RequestsSubmitted.Add(ctx, 1)
	}

	return toRequestResponse(req), nil
}

// MyRequests returns the caller's own requests, newest first.
func (s *AccessService) MyRequests(ctx context.Context, id domain.Identity) (*api.ModuleRequestListResponse, error) {
	if err := s.requirePermission(id, rbac.PermViewOwnRequests); err != nil {
		return nil, err
	}

	reqs, err := s.engine.RequestsBy(ctx, id.OrganizationID, id.UserID)
	if err != nil {
		return nil, err
	}

	return toRequestListResponse(reqs), nil
}

// PendingApprovals returns the organization's open requests still awaiting
// a decision from the caller's approver role.
func (s *AccessService) PendingApprovals(ctx context.Context, id domain.Identity) (*api.ModuleRequestListResponse, error) {
	if err := s.requirePermission(id, rbac.PermApproveRequests); err != nil {
		return nil, err
	}

	reqs, err := s.engine.PendingFor(ctx, id.OrganizationID, rbac.Role(id.Role))
	if err != nil {
		return nil, err
	}

	return toRequestListResponse(reqs), nil
}

// GetRequest returns a single request. The requester, approver roles, and
// roles with organization-wide visibility may read it; everyone is confined
// to their own organization.
func (s *AccessService) GetRequest(ctx context.Context, id domain.Identity, requestID string) (*api.ModuleRequestResponse, error) {
	req, err := s.engine.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.OrganizationID != id.OrganizationID {
		// Existence of other organizations' requests is not disclosed.
		return nil, apperrors.ErrRequestNotFound
	}

	role := rbac.Role(id.Role)
	allowed := req.RequesterID == id.UserID ||
		rbac.IsApprover(role) ||
		rbac.Permits(role, rbac.PermViewAllRequests)
	if !allowed {
		return nil, apperrors.ForbiddenError("not authorized to view this request")
	}

	return toRequestResponse(req), nil
}

// Decide records the caller's decision on a request and, when the decision
// completes the dual sign-off, invalidates the organization's grant cache so
// the new license is visible immediately.
func (s *AccessService) Decide(ctx context.Context, id domain.Identity, requestID string, payload *api.ModuleRequestDecide) (*api.ModuleRequestResponse, error) {
	role := rbac.Role(id.Role)

	current, err := s.engine.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current.OrganizationID != id.OrganizationID {
		return nil, apperrors.ErrRequestNotFound
	}

	req, err := s.engine.Decide(ctx, requestID, role, id.UserID, workflow.Decision(payload.Decision), *payload.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDecision(ctx, payload.Decision, string(req.Status))

	if req.Status == workflow.StatusApproved {
		if err := s.licenses.Invalidate(ctx, req.OrganizationID); err != nil {
			s.logger.WarnContext(ctx, "grant cache invalidation after approval failed",
				slog.String("organization_id", req.OrganizationID),
				slog.String("error", err.Error()))
		}
	}

	return toRequestResponse(req), nil
}

// InvalidateCache drops the cached grants of one organization.
func (s *AccessService) InvalidateCache(ctx context.Context, id domain.Identity, payload *api.CacheInvalidate) error {
	if err := s.requirePermission(id, rbac.PermInvalidateCache); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "administrative grant cache invalidation",
		slog.String("organization_id", payload.OrganizationID),
		slog.String("requested_by", id.UserID),
		slog.String("reason", payload.Reason))

	return s.licenses.Invalidate(ctx, payload.OrganizationID)
}

func (s *AccessService) requirePermission(id domain.Identity, perm rbac.Permission) error {
	role := rbac.Role(id.Role)
	if !rbac.Permits(role, perm) {
		return &apperrors.RoleNotPermittedError{
			Role:       id.Role,
			Permission: string(perm),
		}
	}
	return nil
}

func toRequestResponse(req *workflow.Request) *api.ModuleRequestResponse {
	resp := &api.ModuleRequestResponse{
		ID:             req.ID,
		OrganizationID: req.OrganizationID,
		RequesterID:    req.RequesterID,
		ModuleID:       req.ModuleID,
		ModuleName:     req.ModuleName,
		Reason:         req.Reason,
		Status:         string(req.Status),
		Version:        req.Version,
		CreatedAt:      req.CreatedAt,
	}

	if len(req.Approvals) > 0 {
		resp.Approvals = make(map[string]api.ApprovalRecord, len(req.Approvals))
		for role, approval := range req.Approvals {
			resp.Approvals[string(role)] = api.ApprovalRecord{
				Decision:   string(approval.Decision),
				ApproverID: approval.ApproverID,
				DecidedAt:  approval.DecidedAt,
			}
		}
	}

	return resp
}

func toRequestListResponse(reqs []*workflow.Request) *api.ModuleRequestListResponse {
	out := make([]api.ModuleRequestResponse, len(reqs))
	for i, req := range reqs {
		out[i] = *toRequestResponse(req)
	}
	return &api.ModuleRequestListResponse{
		Requests: out,
		Count:    len(out),
	}
}
