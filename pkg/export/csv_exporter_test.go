package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRenderQuotesMessages(t *testing.T) {
	exp := NewCSVExporter()
	out, err := exp.Render(Dataset{
		Headers: []string{"Status", "Message"},
		Rows: []map[string]string{
			{"Status": "Success", "Message": "Posted 50 for s1, user1"},
			{"Status": "Skipped"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Status,Message\nSuccess,\"Posted 50 for s1, user1\"\nSkipped,\n", string(out))
}

func TestCSVExporterRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestCSVExporterParse(t *testing.T) {
	exp := NewCSVExporter()
	data, err := exp.Parse(bytes.NewBufferString("Status,Message\nSuccess,\"a, b\"\nFailed,boom\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Status", "Message"}, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "a, b", data.Rows[0]["Message"])
	assert.Equal(t, "Failed", data.Rows[1]["Status"])

	_, err = exp.Parse(bytes.NewBufferString(""))
	require.Error(t, err)
}
