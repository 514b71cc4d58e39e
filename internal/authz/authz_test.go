package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"letterdesk/internal/model"
)

func TestAllowed(t *testing.T) {
	all := []Action{
		ManageUsers, ImportUsers, ManageOffices, ManageDepartments, ManageStaff,
		ManageLetterTypes, ManageTemplates, ViewDirectory, CreateLetter, ApproveLetter, ViewAllLetters,
	}

	executive := map[Action]bool{ViewDirectory: true, CreateLetter: true, ApproveLetter: true, ViewAllLetters: true}
	staff := map[Action]bool{ViewDirectory: true, CreateLetter: true}

	for _, a := range all {
		t.Run(a.String(), func(t *testing.T) {
			assert.True(t, Allowed(model.RoleAdmin, a))
			assert.Equal(t, executive[a], Allowed(model.RoleExecutive, a))
			assert.Equal(t, staff[a], Allowed(model.RoleStaff, a))
			assert.False(t, Allowed(model.Role("manager"), a))
		})
	}
}

func TestAllowed_UnknownAction(t *testing.T) {
	assert.False(t, Allowed(model.RoleAdmin, Action(99)))
	assert.Equal(t, "unknown", Action(99).String())
}
