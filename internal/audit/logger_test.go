package audit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"john@example.edu": "j***@example.edu",
		"a@x.com":          "***@x.com",
		"no-at-sign":       "***no-at-sign",
	}
	for in, want := range cases {
		assert.Equal(t, want, maskEmail(in), in)
	}
}

func TestImportCompleted_WritesAuditFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.ImportCompleted(7, "http", 2, 1, 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["audit"])
	assert.Equal(t, "users_imported", entry["action"])
	assert.EqualValues(t, 7, entry["actor_user_id"])
	assert.EqualValues(t, 3, entry["rejected"])
}
