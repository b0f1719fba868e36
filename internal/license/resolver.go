package license

import (
	"context"
	"log/slog"

	"bcmaccess/internal/catalog"
	apperrors "bcmaccess/internal/errors"
)

// GrantSource is the read side of the grant store consumed by the resolver.
type GrantSource interface {
	GrantsFor(ctx context.Context, orgID string) ([]Grant, error)
}

// Resolver answers "may this organization use this module". It is the single
// choke point for that question: demo overrides, module aliasing, composite
// expansion and grant matching all happen here and nowhere else.
type Resolver struct {
	catalog  *catalog.Catalog
	grants   GrantSource
	demoOrgs map[string]struct{}
	logger   *slog.Logger
}

// NewResolver creates a resolver. demoOrgs is the explicit, auditable
// override list: organizations on it are licensed for every module. It is
// evaluated before any catalog or store lookup and each use is logged.
func NewResolver(cat *catalog.Catalog, grants GrantSource, demoOrgs []string, logger *slog.Logger) *Resolver {
	overrides := make(map[string]struct{}, len(demoOrgs))
	for _, org := range demoOrgs {
		overrides[org] = struct{}{}
	}
	return &Resolver{
		catalog:  cat,
		grants:   grants,
		demoOrgs: overrides,
		logger:   logger.With(slog.String("component", "license_resolver")),
	}
}

// IsLicensed reports whether the organization is licensed for the referenced
// module.
//
// An unresolvable module reference is fail-closed: logged and reported as not
// licensed, never as a hard failure. A store failure is the opposite: it
// propagates as StoreUnavailableError, because masking it would silently deny
// access.
func (r *Resolver) IsLicensed(ctx context.Context, orgID string, ref catalog.Ref) (bool, error) {
	if _, ok := r.demoOrgs[orgID]; ok {
		r.logger.InfoContext(ctx, "demo override applied",
			slog.String("organization_id", orgID),
			slog.String("module_ref", ref.String()))
		return true, nil
	}

	module, err := r.catalog.Resolve(ref)
	if err != nil {
		if apperrors.IsUnknownModule(err) {
			r.logger.WarnContext(ctx, "unknown module reference treated as unlicensed",
				slog.String("organization_id", orgID),
				slog.String("module_ref", ref.String()))
			return false, nil
		}
		return false, err
	}

	grants, err := r.grants.GrantsFor(ctx, orgID)
	if err != nil {
		return false, err
	}

	if module.IsComposite() {
		// Licensed iff any constituent is. Members are plain modules, so
		// this recurses at most one level.
		for _, member := range module.Members {
			sub, err := r.catalog.ResolveName(member)
			if err != nil {
				// The catalog constructor rejects dangling members; reaching
				// this means the table invariant broke at runtime.
				return false, err
			}
			if r.matches(grants, sub) {
				return true, nil
			}
		}
		return false, nil
	}

	return r.matches(grants, module), nil
}

// matches applies the grant matching precedence: records carrying a module ID
// match by ID only; records that predate IDs match by normalized name through
// the catalog's alias table. A record holding both an ID and a drifted name
// therefore always follows its ID.
func (r *Resolver) matches(grants []Grant, module catalog.Module) bool {
	for _, g := range grants {
		if g.ModuleID != 0 {
			if g.ModuleID == module.ID {
				return true
			}
			continue
		}
		if g.ModuleName == "" {
			continue
		}
		if resolved, err := r.catalog.ResolveName(g.ModuleName); err == nil && resolved.ID == module.ID {
			return true
		}
	}
	return false
}
