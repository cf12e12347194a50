package domain

import "github.com/google/uuid"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleBiller   Role = "biller"
	RoleManager  Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBiller, RoleManager:
		return true
	}
	return false
}

// Actor is the authenticated caller of a core operation, as asserted by the
// identity provider's bearer credential.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
