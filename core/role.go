package core

import (
	"fmt"
	"strings"
)

// Role tags an entry in a node's message history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleFunction  Role = "function"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
)

// Roles lists every role accepted by ValidateRole, in display order.
var Roles = []Role{RoleSystem, RoleAssistant, RoleUser, RoleFunction, RoleTool, RoleDeveloper}

// InvalidRoleError is returned when an agent is invoked with a role outside
// the supported set.
type InvalidRoleError struct {
	Role Role
}

// Error implements error.
func (e *InvalidRoleError) Error() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return fmt.Sprintf("invalid role '%s': supported values are %s", e.Role, strings.Join(names, ", "))
}

// ValidateRole returns an *InvalidRoleError when r is not a supported role.
func ValidateRole(r Role) error {
	for _, known := range Roles {
		if r == known {
			return nil
		}
	}
	return &InvalidRoleError{Role: r}
}
