package models

import (
	"github.com/google/uuid"
)

const (
	ConnectUserRoleUser  = "USER"
	ConnectUserRoleAdmin = "ADMIN"
)

// ConnectUser is the caller identity resolved from a Connect access token.
// Only the fields checkout authorization needs are decoded.
type ConnectUser struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email,omitempty"`
	Username   string    `json:"username,omitempty"`
	GlobalRole string    `json:"global_role,omitempty"`
}

func (u *ConnectUser) IsAdmin() bool {
	return u != nil && u.GlobalRole == ConnectUserRoleAdmin
}

// Owns reports whether the caller may act on a resource owned by userID.
func (u *ConnectUser) Owns(userID uuid.UUID) bool {
	return u != nil && (u.ID == userID || u.IsAdmin())
}
