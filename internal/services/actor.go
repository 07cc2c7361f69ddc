package services

import "agriconnect/internal/models"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role models.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanActFor reports whether the actor may act on behalf of userID.
func (a Actor) CanActFor(userID string) bool {
	return a.ID == userID || a.IsAdmin()
}
