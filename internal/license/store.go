package license

import (
	"context"
	"log/slog"
	"time"

	apperrors "bcmaccess/internal/errors"
)

// CacheMetrics records grant cache lookup outcomes.
type CacheMetrics interface {
	RecordCacheLookup(ctx context.Context, hit bool)
}

// Store is the LicenseGrantStore boundary: a durable GrantStore fronted by a
// GrantCache. Reads are served from cache within the TTL; Invalidate is the
// only mechanism that shortens staleness. Durable failures surface as
// StoreUnavailableError and are never folded into "unlicensed".
type Store struct {
	durable GrantStore
	cache   GrantCache
	timeout time.Duration
	metrics CacheMetrics
	logger  *slog.Logger
}

// NewStore creates a grant store. timeout bounds every durable call so no
// caller can block indefinitely on a slow backend. metrics may be nil.
func NewStore(durable GrantStore, cache GrantCache, timeout time.Duration, metrics CacheMetrics, logger *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{
		durable: durable,
		cache:   cache,
		timeout: timeout,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "grant_store")),
	}
}

// Grant records a grant durably and drops the organization's cache entry so
// the next read observes it. Idempotency is the durable store's contract.
func (s *Store) Grant(ctx context.Context, g Grant) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.durable.Grant(ctx, g); err != nil {
		return &apperrors.StoreUnavailableError{Op: "grant.write", Err: err}
	}

	if err := s.cache.Delete(ctx, g.OrganizationID); err != nil {
		// The durable write landed; a failed invalidation only extends
		// staleness to at most the TTL window.
		s.logger.WarnContext(ctx, "cache invalidation after grant failed",
			slog.String("organization_id", g.OrganizationID),
			slog.String("error", err.Error()))
	}
	return nil
}

// GrantsFor returns the organization's grants, from cache when fresh.
func (s *Store) GrantsFor(ctx context.Context, orgID string) ([]Grant, error) {
	grants, hit, err := s.cache.Get(ctx, orgID)
	if err != nil {
		// Degrade to a durable read rather than failing the check.
		s.logger.WarnContext(ctx, "grant cache read failed",
			slog.String("organization_id", orgID),
			slog.String("error", err.Error()))
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(ctx, hit)
	}
	if hit {
		return grants, nil
	}

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	grants, err = s.durable.GrantsForOrganization(dctx, orgID)
	if err != nil {
		return nil, &apperrors.StoreUnavailableError{Op: "grants.read", Err: err}
	}

	if err := s.cache.Set(ctx, orgID, grants); err != nil {
		s.logger.WarnContext(ctx, "grant cache write failed",
			slog.String("organization_id", orgID),
			slog.String("error", err.Error()))
	}
	return grants, nil
}

// IsGranted reports an exact (organization, module id) grant.
func (s *Store) IsGranted(ctx context.Context, orgID string, moduleID int) (bool, error) {
	grants, err := s.GrantsFor(ctx, orgID)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.ModuleID == moduleID {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the organization's cache entry, forcing a fresh durable
// read on the next query. It deletes no durable data.
func (s *Store) Invalidate(ctx context.Context, orgID string) error {
	if err := s.cache.Delete(ctx, orgID); err != nil {
		return &apperrors.StoreUnavailableError{Op: "cache.invalidate", Err: err}
	}
	s.logger.InfoContext(ctx, "grant cache invalidated",
		slog.String("organization_id", orgID))
	return nil
}

// CacheStats exposes cache effectiveness for health reporting.
func (s *Store) CacheStats() CacheStats {
	return s.cache.Stats()
}

// Ping reports durable backend reachability.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.durable.Ping(ctx)
}
