package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalhttp "github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

func TestFiltersClient(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(*FiltersClient, context.Context) ([]was.FilterMetadata, error)
	}{
		{
			name: "scan filters",
			path: "/was/v2/scans/filters",
			call: (*FiltersClient).Scans,
		},
		{
			name: "vuln filters",
			path: "/was/v2/vulns/filters",
			call: (*FiltersClient).Vulns,
		},
		{
			name: "application filters",
			path: "/was/v2/applications/filters",
			call: (*FiltersClient).Applications,
		},
		{
			name: "plugin filters",
			path: "/was/v2/plugins/filters",
			call: (*FiltersClient).Plugins,
		},
		{
			name: "user template filters",
			path: "/was/v2/user-templates/filters",
			call: (*FiltersClient).UserTemplates,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.path, request.URL.Path)
				assert.Equal(t, "GET", request.Method)

				writeJSON(t, writer, http.StatusOK, map[string]interface{}{
					"filters": []was.FilterMetadata{
						{
							Name:         "status",
							ReadableName: "Status",
							Operators:    []string{was.OperatorEq},
							Control: &was.FilterControl{
								Type: "dropdown",
								List: []string{"completed", "running"},
							},
						},
					},
				})
			}))
			defer server.Close()

			filters := NewFiltersClient(internalhttp.NewClient(server.URL, nil))

			metadata, err := testCase.call(filters, context.Background())
			require.NoError(t, err)
			require.Len(t, metadata, 1)
			assert.Equal(t, "status", metadata[0].Name)
			assert.Equal(t, []string{was.OperatorEq}, metadata[0].Operators)
			require.NotNil(t, metadata[0].Control)
			assert.Equal(t, "dropdown", metadata[0].Control.Type)
		})
	}
}
