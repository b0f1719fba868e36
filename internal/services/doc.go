// Package services contains the business logic layer of the access control
// service. Services sit between the HTTP transport and the domain packages:
// they enforce role permissions, translate between API contracts and domain
// types, and own the composition of catalog, license and workflow operations.
package services
