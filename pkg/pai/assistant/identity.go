// Package assistant – identity.go defines roles and the per-request Identity.
//
// Roles are an ordered tier; staff and above are "managers" and see every
// registered device. An Identity is resolved fresh on every request and
// never persisted — there is no session object anywhere in this core.
package assistant

// Role is the permission tier of a caller.
type Role string

const (
	RoleBase     Role = "base"     // unauthenticated / unrecognized caller
	RoleResident Role = "resident" // tenant or associate
	RoleStaff    Role = "staff"    // property staff (manager threshold)
	RoleAdmin    Role = "admin"
	RoleOracle   Role = "oracle" // platform operator
)

// roleLevels orders the tiers. Unknown roles map to the base level.
var roleLevels = map[Role]int{
	RoleBase:     0,
	RoleResident: 1,
	RoleStaff:    2,
	RoleAdmin:    3,
	RoleOracle:   4,
}

// Level returns the ordinal tier of the role.
func (r Role) Level() int {
	return roleLevels[r]
}

// IsManager reports whether the role meets the manager threshold (staff+).
// Managers skip assigned-space resolution and see every device category in
// full; thermostat per-device minimum roles still apply.
func (r Role) IsManager() bool {
	return r.Level() >= RoleStaff.Level()
}

// ParseRole maps a directory role name to a Role. "associate" is the legacy
// name for the resident tier.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleResident, RoleStaff, RoleAdmin, RoleOracle:
		return Role(s)
	}
	if s == "associate" {
		return RoleResident
	}
	return RoleBase
}

// Identity is the resolved caller of one request.
type Identity struct {
	// PersonID links to the directory person record. Empty for unrecognized
	// voice callers.
	PersonID string

	// DisplayName is shown to the model in the prompt preamble.
	DisplayName string

	// Role is the effective permission tier.
	Role Role

	// Phone is the caller's number, set only on the voice channel. The
	// send_link tool requires it.
	Phone string
}
