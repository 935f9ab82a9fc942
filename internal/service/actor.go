package service

import "github.com/google/uuid"

// Actor identifies the authenticated user performing an operation.
// Handlers build it from the values the auth middleware stores in
// fiber locals, so services never touch the request context directly.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Email          string
}
