package autocode

import "github.com/notepid/autocode/internal/settings"

// Permission names checked by the command layer and the lock policies.
const (
	PermUse   = "autocode.use"
	PermTry   = "autocode.try"
	PermAdmin = "autocode.admin"
)

// Permissions answers whether a user holds a named permission.
type Permissions interface {
	HasPermission(id settings.UserID, perm string) bool
}

// PermissionsFunc adapts a function to Permissions.
type PermissionsFunc func(id settings.UserID, perm string) bool

// HasPermission implements Permissions.
func (f PermissionsFunc) HasPermission(id settings.UserID, perm string) bool { return f(id, perm) }
