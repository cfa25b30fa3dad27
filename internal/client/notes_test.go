package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscan-io/was/v2/internal/constants"
	internalhttp "github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

func TestNotesClient_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/was/v2/scans/scan-1/notes", request.URL.Path)
		assert.Equal(t, "GET", request.Method)

		writeJSON(t, writer, http.StatusOK, map[string]interface{}{
			"notes": []was.ScanNote{
				{ScanNoteID: "note-1", Severity: "warning", Title: "Excluded pages", Message: "12 pages excluded by scope rules"},
			},
		})
	}))
	defer server.Close()

	notes := NewNotesClient(internalhttp.NewClient(server.URL, nil))

	list, err := notes.List(context.Background(), "scan-1", nil)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Excluded pages", list.Items[0].Title)
}

func TestNotesClient_List_MissingScanID(t *testing.T) {
	notes := NewNotesClient(internalhttp.NewClient("http://localhost", nil))

	list, err := notes.List(context.Background(), "", nil)
	require.ErrorIs(t, err, constants.ErrScanIDRequired)
	assert.Nil(t, list)
}
