package auth

import (
	"letterdesk/internal/authz"
	"letterdesk/internal/model"
)

// Actor is the authenticated user on whose behalf an operation runs.
// Services receive it as an explicit argument.
type Actor struct {
	UserID uint
	Email  string
	Role   model.Role
}

// Can reports whether the actor's role allows action.
func (a Actor) Can(action authz.Action) bool {
	return authz.Allowed(a.Role, action)
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// System is the actor used by the command line tool.
var System = Actor{Email: "system", Role: model.RoleAdmin}
