// Package authz decides which role may perform which action.
package authz

import "letterdesk/internal/model"

// Action is something a user can attempt through the API.
type Action int

const (
	ManageUsers Action = iota
	ImportUsers
	ManageOffices
	ManageDepartments
	ManageStaff
	ManageLetterTypes
	ManageTemplates
	ViewDirectory
	CreateLetter
	ApproveLetter
	ViewAllLetters
)

var actionNames = map[Action]string{
	ManageUsers:       "manage_users",
	ImportUsers:       "import_users",
	ManageOffices:     "manage_offices",
	ManageDepartments: "manage_departments",
	ManageStaff:       "manage_staff",
	ManageLetterTypes: "manage_letter_types",
	ManageTemplates:   "manage_templates",
	ViewDirectory:     "view_directory",
	CreateLetter:      "create_letter",
	ApproveLetter:     "approve_letter",
	ViewAllLetters:    "view_all_letters",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// Allowed reports whether role may perform action. Unknown roles are denied.
func Allowed(role model.Role, action Action) bool {
	switch role {
	case model.RoleAdmin:
		_, known := actionNames[action]
		return known
	case model.RoleExecutive:
		switch action {
		case ViewDirectory, CreateLetter, ApproveLetter, ViewAllLetters:
			return true
		}
		return false
	case model.RoleStaff:
		switch action {
		case ViewDirectory, CreateLetter:
			return true
		}
		return false
	default:
		return false
	}
}
