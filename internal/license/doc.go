// Package license decides whether an organization may use a module.
//
// It owns the license grant read/write boundary: a durable GrantStore feeds
// a read-through GrantCache (in-process or Redis), and the Resolver applies
// the catalog's module identity rules on top — composite expansion, the
// ID-before-name matching precedence for legacy records, and fail-closed
// handling of unknown module references.
package license
