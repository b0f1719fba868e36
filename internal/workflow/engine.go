package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bcmaccess/internal/catalog"
	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/license"
	"bcmaccess/internal/rbac"
)

// RequestStore is the persistence port the engine drives. Implementations
// own atomicity: UpdateRequest compares-and-swaps on the stored version and,
// when a grant is supplied, writes it in the same transaction.
type RequestStore interface {
	// CreateRequest persists a new request. It fails with
	// DuplicateRequestError when a non-terminal request for the same
	// (organization, requester, module) triple exists.
	CreateRequest(ctx context.Context, req *Request) error

	// GetRequest returns the request or apperrors.ErrRequestNotFound.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// UpdateRequest persists req where the stored version equals
	// expectedVersion, failing with VersionConflictError otherwise. A
	// non-nil grant is written atomically with the request update.
	UpdateRequest(ctx context.Context, req *Request, expectedVersion int, grant *license.Grant) error

	// ListByRequester returns the requester's requests, newest first.
	ListByRequester(ctx context.Context, orgID, requesterID string) ([]*Request, error)

	// ListByStatuses returns the organization's requests in any of the given
	// states, newest first.
	ListByStatuses(ctx context.Context, orgID string, statuses []Status) ([]*Request, error)
}

// Engine governs a module access request from submission to terminal
// approval or rejection.
type Engine struct {
	store  RequestStore
	logger *slog.Logger
}

// NewEngine creates a workflow engine
func NewEngine(store RequestStore, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.With(slog.String("component", "approval_workflow")),
	}
}

// Submit creates a new request in StatusPending with version 0.
func (e *Engine) Submit(ctx context.Context, orgID, requesterID string, module catalog.Module, reason string) (*Request, error) {
	now := time.Now().UTC()
	req := &Request{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		RequesterID:    requesterID,
		ModuleID:       module.ID,
		ModuleName:     module.CanonicalName,
		Reason:         reason,
		Status:         StatusPending,
		Approvals:      make(map[rbac.Role]Approval),
		Version:        0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "module access request submitted",
		slog.String("request_id", req.ID),
		slog.String("organization_id", orgID),
		slog.String("requester_id", requesterID),
		slog.Int("module_id", module.ID),
		slog.String("module", module.CanonicalName))

	return req, nil
}

// Decide records an approver role's decision and advances the state machine.
//
// The checks run in a fixed order: approver role, terminal state, version,
// idempotent replay. A repeated identical decision from a role that already
// decided returns the current state unchanged; a conflicting one is an
// invalid transition. Reaching StatusApproved writes the license grant in
// the same store transaction as the status change.
func (e *Engine) Decide(ctx context.Context, requestID string, role rbac.Role, approverID string, decision Decision, expectedVersion int) (*Request, error) {
	if !rbac.IsApprover(role) {
		return nil, &apperrors.RoleNotPermittedError{
			Role:       string(role),
			Permission: string(rbac.PermApproveRequests),
		}
	}
	if !decision.Valid() {
		return nil, apperrors.ErrInvalidParameter
	}

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status.Terminal() {
		return nil, &apperrors.InvalidTransitionError{
			RequestID: req.ID,
			Status:    string(req.Status),
			Reason:    "request is terminal",
		}
	}

	if req.Version != expectedVersion {
		return nil, &apperrors.VersionConflictError{
			RequestID: req.ID,
			Expected:  expectedVersion,
			Actual:    req.Version,
		}
	}

	if prior, decided := req.Approvals[role]; decided {
		if prior.Decision == decision {
			// Idempotent replay: same role, same decision, no state change.
			return req, nil
		}
		return nil, &apperrors.InvalidTransitionError{
			RequestID: req.ID,
			Status:    string(req.Status),
			Reason:    "role already recorded a different decision",
		}
	}

	next := StatusRejected
	if decision == DecisionApproved {
		var ok bool
		next, ok = approveTransitions[req.Status][role]
		if !ok {
			return nil, &apperrors.InvalidTransitionError{
				RequestID: req.ID,
				Status:    string(req.Status),
				Reason:    "no transition for role " + string(role),
			}
		}
	}

	now := time.Now().UTC()
	updated := req.Clone()
	updated.Approvals[role] = Approval{
		Decision:   decision,
		ApproverID: approverID,
		DecidedAt:  now,
	}
	updated.Status = next
	updated.Version = req.Version + 1
	updated.UpdatedAt = now

	var grant *license.Grant
	if next == StatusApproved {
		grant = &license.Grant{
			OrganizationID: updated.OrganizationID,
			ModuleID:       updated.ModuleID,
			ModuleName:     updated.ModuleName,
			GrantedAt:      now,
		}
	}

	if err := e.store.UpdateRequest(ctx, updated, expectedVersion, grant); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "module access request decision recorded",
		slog.String("request_id", updated.ID),
		slog.String("role", string(role)),
		slog.String("approver_id", approverID),
		slog.String("decision", string(decision)),
		slog.String("status", string(updated.Status)),
		slog.Int("version", updated.Version))

	return updated, nil
}

// RequestsBy returns the requester's own requests.
func (e *Engine) RequestsBy(ctx context.Context, orgID, requesterID string) ([]*Request, error) {
	return e.store.ListByRequester(ctx, orgID, requesterID)
}

// PendingFor returns the organization's requests still awaiting a decision
// from the given approver role.
func (e *Engine) PendingFor(ctx context.Context, orgID string, role rbac.Role) ([]*Request, error) {
	if !rbac.IsApprover(role) {
		return nil, &apperrors.RoleNotPermittedError{
			Role:       string(role),
			Permission: string(rbac.PermApproveRequests),
		}
	}

	open, err := e.store.ListByStatuses(ctx, orgID, []Status{
		StatusPending, StatusAwaitingSponsor, StatusAwaitingClientHead,
	})
	if err != nil {
		return nil, err
	}

	awaiting := make([]*Request, 0, len(open))
	for _, req := range open {
		if _, decided := req.Approvals[role]; !decided {
			awaiting = append(awaiting, req)
		}
	}
	return awaiting, nil
}

// Get returns a single request for audit views.
func (e *Engine) Get(ctx context.Context, requestID string) (*Request, error) {
	return e.store.GetRequest(ctx, requestID)
}
