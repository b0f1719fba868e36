package license

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcmaccess/internal/catalog"
	apperrors "bcmaccess/internal/errors"
)

// fixedGrants is a GrantSource serving a fixed map, for resolver tests that
// don't need the caching store.
type fixedGrants struct {
	grants map[string][]Grant
	err    error
}

func (f *fixedGrants) GrantsFor(_ context.Context, orgID string) ([]Grant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[orgID], nil
}

func newResolver(grants map[string][]Grant, demoOrgs ...string) *Resolver {
	return NewResolver(catalog.New(), &fixedGrants{grants: grants}, demoOrgs, testLogger())
}

func TestIsLicensedByID(t *testing.T) {
	r := newResolver(map[string][]Grant{
		"org-1": {{OrganizationID: "org-1", ModuleID: 3}},
	})
	ctx := context.Background()

	licensed, err := r.IsLicensed(ctx, "org-1", catalog.Ref{ID: 3})
	require.NoError(t, err)
	assert.True(t, licensed)

	licensed, err = r.IsLicensed(ctx, "org-1", catalog.Ref{ID: 4})
	require.NoError(t, err)
	assert.False(t, licensed)

	licensed, err = r.IsLicensed(ctx, "org-2", catalog.Ref{ID: 3})
	require.NoError(t, err)
	assert.False(t, licensed)
}

func TestIsLicensedByNameAndAlias(t *testing.T) {
	r := newResolver(map[string][]Grant{
		"org-1": {{OrganizationID: "org-1", ModuleID: 3}},
	})
	ctx := context.Background()

	for _, ref := range []string{"Risk Analysis", "risk analysis", "  Risk   Assessment "} {
		licensed, err := r.IsLicensed(ctx, "org-1", catalog.Ref{Name: ref})
		require.NoError(t, err)
		assert.True(t, licensed, "ref %q", ref)
	}
}

func TestIsLicensedUnknownModuleFailsClosed(t *testing.T) {
	r := newResolver(map[string][]Grant{
		"org-1": {{OrganizationID: "org-1", ModuleID: 3}},
	})

	licensed, err := r.IsLicensed(context.Background(), "org-1", catalog.Ref{Name: "Time Travel"})
	require.NoError(t, err, "unknown module is not a hard failure for IsLicensed")
	assert.False(t, licensed)
}

func TestIsLicensedStoreFailurePropagates(t *testing.T) {
	src := &fixedGrants{err: &apperrors.StoreUnavailableError{Op: "grants.read", Err: errors.New("down")}}
	r := NewResolver(catalog.New(), src, nil, testLogger())

	licensed, err := r.IsLicensed(context.Background(), "org-1", catalog.Ref{ID: 3})
	require.Error(t, err)
	assert.True(t, apperrors.IsStoreUnavailable(err))
	assert.False(t, licensed)
}

func TestIsLicensedLegacyNameRecords(t *testing.T) {
	r := newResolver(map[string][]Grant{
		// Legacy record: no ID, name only, with drifted spacing/case.
		"org-legacy": {{OrganizationID: "org-legacy", ModuleName: "  risk   ANALYSIS "}},
		// Legacy record under an alias.
		"org-alias": {{OrganizationID: "org-alias", ModuleName: "Risk Assessment"}},
	})
	ctx := context.Background()

	licensed, err := r.IsLicensed(ctx, "org-legacy", catalog.Ref{ID: 3})
	require.NoError(t, err)
	assert.True(t, licensed)

	licensed, err = r.IsLicensed(ctx, "org-alias", catalog.Ref{ID: 3})
	require.NoError(t, err)
	assert.True(t, licensed)
}

func TestIsLicensedIDPrecedenceOverDriftedName(t *testing.T) {
	// Record carries both: ID says Risk Analysis (3), name drifted to say
	// Process Mapping. The ID wins; the name is ignored.
	r := newResolver(map[string][]Grant{
		"org-1": {{OrganizationID: "org-1", ModuleID: 3, ModuleName: "Process Mapping"}},
	})
	ctx := context.Background()

	licensed, err := r.IsLicensed(ctx, "org-1", catalog.Ref{ID: 3})
	require.NoError(t, err)
	assert.True(t, licensed)

	licensed, err = r.IsLicensed(ctx, "org-1", catalog.Ref{Name: "Process Mapping"})
	require.NoError(t, err)
	assert.False(t, licensed, "drifted name on an ID-bearing record must not match")
}

func TestIsLicensedComposite(t *testing.T) {
	tests := []struct {
		name   string
		grants []Grant
		want   bool
	}{
		{"neither member", nil, false},
		{"process mapping only", []Grant{{ModuleID: 4}}, true},
		{"service mapping only", []Grant{{ModuleID: 5}}, true},
		{"both members", []Grant{{ModuleID: 4}, {ModuleID: 5}}, true},
		{"unrelated module", []Grant{{ModuleID: 1}}, false},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(map[string][]Grant{"org-1": tt.grants})

			composite, err := r.IsLicensed(ctx, "org-1", catalog.Ref{Name: "Process and Service Mapping"})
			require.NoError(t, err)

			pm, err := r.IsLicensed(ctx, "org-1", catalog.Ref{Name: "Process Mapping"})
			require.NoError(t, err)
			sm, err := r.IsLicensed(ctx, "org-1", catalog.Ref{Name: "Service Mapping"})
			require.NoError(t, err)

			assert.Equal(t, tt.want, composite)
			assert.Equal(t, pm || sm, composite, "composite iff any member licensed")
		})
	}
}

func TestIsLicensedDemoOverride(t *testing.T) {
	r := newResolver(map[string][]Grant{}, "org-demo")
	ctx := context.Background()

	// Every module, no grants needed.
	for _, ref := range []catalog.Ref{{ID: 1}, {ID: 12}, {Name: "Process and Service Mapping"}} {
		licensed, err := r.IsLicensed(ctx, "org-demo", ref)
		require.NoError(t, err)
		assert.True(t, licensed, "ref %v", ref)
	}

	// Override is scoped to the listed organization only.
	licensed, err := r.IsLicensed(ctx, "org-other", catalog.Ref{ID: 1})
	require.NoError(t, err)
	assert.False(t, licensed)

	// Override short-circuits even unknown references: it is evaluated
	// before catalog resolution.
	licensed, err = r.IsLicensed(ctx, "org-demo", catalog.Ref{Name: "Not A Module"})
	require.NoError(t, err)
	assert.True(t, licensed)
}

func TestIsLicensedIsRepeatable(t *testing.T) {
	r := newResolver(map[string][]Grant{
		"org-1": {{OrganizationID: "org-1", ModuleID: 3}},
	})
	ctx := context.Background()

	first, err := r.IsLicensed(ctx, "org-1", catalog.Ref{ID: 3})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := r.IsLicensed(ctx, "org-1", catalog.Ref{ID: 3})
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}
