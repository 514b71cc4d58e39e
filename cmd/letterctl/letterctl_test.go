package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letterdesk/internal/config"
	"letterdesk/internal/importer"
)

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	s := &importer.Summary{
		Created:  1,
		Updated:  1,
		Rejected: 1,
		Total:    3,
		Errors: []importer.RowError{
			{Row: 4, Email: "bad@", Error: "email must be a valid email address"},
		},
	}

	require.NoError(t, printSummary(&buf, s))

	out := buf.String()
	assert.Contains(t, out, "Created   1")
	assert.Contains(t, out, "Total     3")
	assert.Contains(t, out, "ROW")
	assert.Contains(t, out, "bad@")
	assert.Contains(t, out, "email must be a valid email address")
}

func TestPrintSummary_NoErrorsOmitsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, &importer.Summary{Created: 2, Total: 2}))
	assert.NotContains(t, buf.String(), "ROW")
}

func TestImportTemplateCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	root := newRootCmd(&app{cfg: &config.Config{LogLevel: "error"}})
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"import-template"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "name,email,password,role"))
}

func TestImportUsersCommand_RequiresFile(t *testing.T) {
	root := newRootCmd(&app{cfg: &config.Config{LogLevel: "error"}})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"import-users"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestSeedAdminCommand_ShortPassword(t *testing.T) {
	root := newRootCmd(&app{cfg: &config.Config{LogLevel: "error"}})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"seed-admin", "--email", "a@example.com", "--password", "short"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8")
}
