// Package http contains the HTTP handlers of the access control service.
// Each handler owns a chi sub-router mounted by the application router and
// delegates all business logic to the services layer.
package http
