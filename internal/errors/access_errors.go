package errors

import (
	"errors"
	"fmt"
)

// Access-control error taxonomy. Every failure mode of the license resolver
// and the approval workflow has its own discriminable type; nothing is
// collapsed into a bare boolean or a generic error.

// UnknownModuleError reports a module reference that does not resolve against
// the catalog. Callers of IsLicensed treat it as fail-closed "not licensed";
// callers creating requests surface it.
type UnknownModuleError struct {
	Reference string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("unknown module reference %q", e.Reference)
}

// DuplicateRequestError reports a submission while a non-terminal request for
// the same (organization, requester, module) triple already exists.
type DuplicateRequestError struct {
	OrganizationID string
	RequesterID    string
	ModuleID       int
	ExistingID     string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("module access request already pending for org=%s requester=%s module=%d (request %s)",
		e.OrganizationID, e.RequesterID, e.ModuleID, e.ExistingID)
}

// InvalidTransitionError reports a decision against a terminal request or a
// transition the workflow table does not allow.
type InvalidTransitionError struct {
	RequestID string
	Status    string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition on request %s (status %s): %s", e.RequestID, e.Status, e.Reason)
	}
	return fmt.Sprintf("invalid transition on request %s (status %s)", e.RequestID, e.Status)
}

// VersionConflictError reports an optimistic-concurrency failure: the stored
// request version advanced past the version the caller observed. The caller
// must re-read and may retry.
type VersionConflictError struct {
	RequestID string
	Expected  int
	Actual    int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on request %s: expected %d, stored %d", e.RequestID, e.Expected, e.Actual)
}

// RoleNotPermittedError reports a caller role that lacks the permission an
// operation requires, or a decision from a role that is not a designated
// approver role.
type RoleNotPermittedError struct {
	Role       string
	Permission string
}

func (e *RoleNotPermittedError) Error() string {
	return fmt.Sprintf("role %q is not permitted to %s", e.Role, e.Permission)
}

// StoreUnavailableError reports a persistence or cache backend failure. It is
// always propagated, never masked as "unlicensed": masking would silently
// deny access during an outage.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// Discrimination helpers

// IsUnknownModule reports whether err is an UnknownModuleError.
func IsUnknownModule(err error) bool {
	var target *UnknownModuleError
	return errors.As(err, &target)
}

// IsDuplicateRequest reports whether err is a DuplicateRequestError.
func IsDuplicateRequest(err error) bool {
	var target *DuplicateRequestError
	return errors.As(err, &target)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsVersionConflict reports whether err is a VersionConflictError.
func IsVersionConflict(err error) bool {
	var target *VersionConflictError
	return errors.As(err, &target)
}

// IsStoreUnavailable reports whether err is a StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}

// IsRoleNotPermitted reports whether err is a RoleNotPermittedError.
func IsRoleNotPermitted(err error) bool {
	var target *RoleNotPermittedError
	return errors.As(err, &target)
}
