package identity

// Role is the single role a user holds inside an organization
type Role string

const (
	RoleAdmin    Role = "ADMIN"    // Full access including settings, users and audit log
	RoleManager  Role = "MANAGER"  // Manages customers, documents, payments and syncs
	RoleViewer   Role = "VIEWER"   // Read-only staff access
	RoleCustomer Role = "CUSTOMER" // Portal user bound to one customer
)

// AllRoles lists every valid role
var AllRoles = []Role{RoleAdmin, RoleManager, RoleViewer, RoleCustomer}

// StaffRoles are roles that see the whole organization
var StaffRoles = []Role{RoleAdmin, RoleManager, RoleViewer}

// WriterRoles may change AR data
var WriterRoles = []Role{RoleAdmin, RoleManager}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer, RoleCustomer:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsStaff returns true for organization members (not portal customers)
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleViewer
}

// CanWrite returns true if the role may create or change AR records
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanAdminister returns true if the role may manage users and settings
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// In reports whether r is one of roles
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
