package models

// Permissions checked by the API.
const (
	PermDatabaseRead    = "database.read"
	PermDatabaseBackup  = "database.backup"
	PermDatabaseRestore = "database.restore"
	PermAuditRead       = "audit.read"
)

// RoleAdmin holds every permission.
const RoleAdmin = "admin"

// User is an authenticated API caller.
type User struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Can reports whether the user holds perm.
func (u *User) Can(perm string) bool {
	if u == nil {
		return false
	}

	if u.Role == RoleAdmin {
		return true
	}

	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}

	return false
}
