package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocRegistered(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	assert.Contains(t, parsed.Paths, "/units/{unit_id}/lms/grades")
	assert.Contains(t, parsed.Paths, "/lms/callback")
}
