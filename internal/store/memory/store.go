// Package memory provides an in-memory store adapter implementing the grant
// and request persistence ports. It backs tests and single-node development
// deployments; production uses the postgres adapter.
package memory

import (
	"context"
	"sort"
	"sync"

	"bcmaccess/internal/catalog"
	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/license"
	"bcmaccess/internal/workflow"
)

// Store holds grants and requests under one mutex, which makes the
// decide-and-grant update genuinely atomic.
type Store struct {
	mu       sync.RWMutex
	grants   map[string][]license.Grant
	requests map[string]*workflow.Request
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		grants:   make(map[string][]license.Grant),
		requests: make(map[string]*workflow.Request),
	}
}

// Grant records a grant. Granting an already granted (organization, module)
// pair is a no-op.
func (s *Store) Grant(_ context.Context, g license.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyGrant(g)
	return nil
}

// applyGrant inserts g unless an equivalent grant exists. Caller holds the
// lock.
func (s *Store) applyGrant(g license.Grant) {
	for _, existing := range s.grants[g.OrganizationID] {
		if g.ModuleID != 0 && existing.ModuleID == g.ModuleID {
			return
		}
		if g.ModuleID == 0 && existing.ModuleID == 0 &&
			catalog.Normalize(existing.ModuleName) == catalog.Normalize(g.ModuleName) {
			return
		}
	}
	s.grants[g.OrganizationID] = append(s.grants[g.OrganizationID], g)
}

// GrantsForOrganization returns all grants held by the organization.
func (s *Store) GrantsForOrganization(_ context.Context, orgID string) ([]license.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]license.Grant(nil), s.grants[orgID]...), nil
}

// Ping always succeeds for the in-memory backend.
func (s *Store) Ping(context.Context) error {
	return nil
}

// CreateRequest persists a new request, rejecting a duplicate while a
// non-terminal request for the same triple exists.
func (s *Store) CreateRequest(_ context.Context, req *workflow.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.OrganizationID == req.OrganizationID &&
			existing.RequesterID == req.RequesterID &&
			existing.ModuleID == req.ModuleID &&
			!existing.Status.Terminal() {
			return &apperrors.DuplicateRequestError{
				OrganizationID: req.OrganizationID,
				RequesterID:    req.RequesterID,
				ModuleID:       req.ModuleID,
				ExistingID:     existing.ID,
			}
		}
	}

	s.requests[req.ID] = req.Clone()
	return nil
}

// GetRequest returns the request or apperrors.ErrRequestNotFound.
func (s *Store) GetRequest(_ context.Context, id string) (*workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	return req.Clone(), nil
}

// UpdateRequest compares-and-swaps on the stored version and applies the
// grant, when given, under the same lock.
func (s *Store) UpdateRequest(_ context.Context, req *workflow.Request, expectedVersion int, grant *license.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[req.ID]
	if !ok {
		return apperrors.ErrRequestNotFound
	}
	if current.Version != expectedVersion {
		return &apperrors.VersionConflictError{
			RequestID: req.ID,
			Expected:  expectedVersion,
			Actual:    current.Version,
		}
	}

	s.requests[req.ID] = req.Clone()
	if grant != nil {
		s.applyGrant(*grant)
	}
	return nil
}

// ListByRequester returns the requester's requests, newest first.
func (s *Store) ListByRequester(_ context.Context, orgID, requesterID string) ([]*workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*workflow.Request
	for _, req := range s.requests {
		if req.OrganizationID == orgID && req.RequesterID == requesterID {
			out = append(out, req.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByStatuses returns the organization's requests in any of the given
// states, newest first.
func (s *Store) ListByStatuses(_ context.Context, orgID string, statuses []workflow.Status) ([]*workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[workflow.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var out []*workflow.Request
	for _, req := range s.requests {
		if req.OrganizationID == orgID && wanted[req.Status] {
			out = append(out, req.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(reqs []*workflow.Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}
