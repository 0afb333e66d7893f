package rbac

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// IsStaff reports whether the role carries site-wide mutation rights.
func IsStaff(role Role) bool {
	return role == RoleAdmin || role == RoleOwner
}

// CanMutate reports whether an actor may update or delete a record owned by
// ownerID. Authorship or a staff role is required; an empty actor fails closed.
func CanMutate(actorID, ownerID string, role Role) bool {
	if actorID == "" {
		return false
	}
	return actorID == ownerID || IsStaff(role)
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAdmin, RoleOwner:
		return Role(role)
	default:
		return RoleUser
	}
}
