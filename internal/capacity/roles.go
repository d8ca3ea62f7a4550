package capacity

// Role is the global staff role hierarchy. The ordering matters only to
// humans; the policy cares about the admin bucket.
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleAdmin       Role = "ADMIN"
	RoleClinicAdmin Role = "CLINIC_ADMIN"
	RoleDoctor      Role = "DOCTOR"
	RoleStaff       Role = "STAFF"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleClinicAdmin, RoleDoctor, RoleStaff:
		return true
	}
	return false
}

// CountsTowardAdminLimit collapses OWNER, ADMIN and CLINIC_ADMIN into the
// single admin bucket the plan's max_admins constrains.
func (r Role) CountsTowardAdminLimit() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleClinicAdmin:
		return true
	}
	return false
}

// AdminRoles lists the roles inside the admin bucket, for counting queries.
func AdminRoles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleClinicAdmin}
}
