package models

type Role string

const (
	RoleBuyer     Role = "buyer"
	RoleOperator  Role = "operator"
	RoleSuperuser Role = "superuser"
)

// Actor is the authenticated identity behind a core operation. It is passed
// explicitly to every service call; the core never reads it from ambient
// request state.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) CanOperate() bool {
	return a.Role == RoleOperator || a.Role == RoleSuperuser
}

func (a Actor) IsSuperuser() bool {
	return a.Role == RoleSuperuser
}
