// Package app wires the access control service together: configuration,
// logging, observability, store and cache selection, domain services, the
// chi router, and the HTTP server lifecycle.
package app
