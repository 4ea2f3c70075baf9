package domain

// Role is the coarse-grained permission class assigned to a user. The set is
// closed; exactly one role per user at any time.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole validates a role value received from a caller.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Action names a privileged operation checked against the permission table.
type Action string

const (
	// ActionSetRole is the privilege to change another user's role.
	ActionSetRole Action = "user:set-role"
	// ActionListUsers is the privilege to enumerate user accounts.
	ActionListUsers Action = "user:list"
)

// Permissions is the immutable role-to-action table. It is constructed once
// at startup and passed explicitly to whatever needs a permission check; no
// ambient global lookup.
type Permissions struct {
	granted map[Role]map[Action]struct{}
}

// NewPermissions builds the static permission table. ADMIN holds every
// administrative action; USER holds none of them.
func NewPermissions() *Permissions {
	return &Permissions{
		granted: map[Role]map[Action]struct{}{
			RoleAdmin: {
				ActionSetRole:   {},
				ActionListUsers: {},
			},
			RoleUser: {},
		},
	}
}

// Has reports whether role may perform action. Unknown roles hold nothing.
func (p *Permissions) Has(role Role, action Action) bool {
	actions, ok := p.granted[role]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}
