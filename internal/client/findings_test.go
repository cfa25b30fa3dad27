package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscan-io/was/v2/internal/constants"
	internalhttp "github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

func TestFindingsClient_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/was/v2/scans/scan-1/findings", request.URL.Path)
		assert.Equal(t, "GET", request.Method)

		writeJSON(t, writer, http.StatusOK, listBody([]was.Finding{
			{ID: "finding-1", Severity: "high", PluginID: "98000"},
			{ID: "finding-2", Severity: "low", PluginID: "98001"},
		}, 2))
	}))
	defer server.Close()

	findings := NewFindingsClient(internalhttp.NewClient(server.URL, nil))

	list, err := findings.List(context.Background(), "scan-1", nil)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "high", list.Items[0].Severity)
}

func TestFindingsClient_List_MissingScanID(t *testing.T) {
	findings := NewFindingsClient(internalhttp.NewClient("http://localhost", nil))

	list, err := findings.List(context.Background(), "", nil)
	require.ErrorIs(t, err, constants.ErrScanIDRequired)
	assert.Nil(t, list)
}

func TestFindingsClient_Summary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/was/v2/scans/scan-1/findings", request.URL.Path)

		offset, _ := strconv.Atoi(request.URL.Query().Get("offset"))

		// Two pages: a full one, then the remainder.
		var items []was.Finding

		if offset == 0 {
			items = make([]was.Finding, constants.StandardPageSize)
			for i := range items {
				items[i] = was.Finding{ID: "finding-" + strconv.Itoa(i), Severity: "medium"}
			}
		} else {
			items = []was.Finding{
				{ID: "finding-crit", Severity: "critical"},
				{ID: "finding-high", Severity: "high"},
				{ID: "finding-info", Severity: "info"},
			}
		}

		writeJSON(t, writer, http.StatusOK, listBody(items, constants.StandardPageSize+3))
	}))
	defer server.Close()

	findings := NewFindingsClient(internalhttp.NewClient(server.URL, nil))

	summary, err := findings.Summary(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, "scan-1", summary.ScanID)
	assert.Equal(t, constants.StandardPageSize+3, summary.Total)
	assert.Equal(t, 1, summary.Critical)
	assert.Equal(t, 1, summary.High)
	assert.Equal(t, constants.StandardPageSize, summary.Medium)
	assert.Equal(t, 0, summary.Low)
	assert.Equal(t, 1, summary.Info)
}

func TestFindingsClient_Export(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/was/v2/export/findings", request.URL.Path)
		assert.Equal(t, "POST", request.Method)

		var body was.FindingsExportRequest

		err := decodeRequestJSON(request, &body)
		assert.NoError(t, err)
		assert.Equal(t, "scan-1", body.ScanID)

		writeJSON(t, writer, http.StatusOK, map[string]interface{}{
			"findings": []was.Finding{
				{ID: "finding-1", Severity: "high"},
			},
		})
	}))
	defer server.Close()

	findings := NewFindingsClient(internalhttp.NewClient(server.URL, nil))

	export, err := findings.Export(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, "scan-1", export.ScanID)
	require.Len(t, export.Findings, 1)
	assert.Equal(t, "finding-1", export.Findings[0].ID)
}

func TestFindingsClient_Export_ItemsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		// Some deployments wrap the records in "items" instead.
		writeJSON(t, writer, http.StatusOK, map[string]interface{}{
			"items": []was.Finding{
				{ID: "finding-1"},
				{ID: "finding-2"},
			},
		})
	}))
	defer server.Close()

	findings := NewFindingsClient(internalhttp.NewClient(server.URL, nil))

	export, err := findings.Export(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Len(t, export.Findings, 2)
}

func TestFindingsClient_ExportAll(t *testing.T) {
	var scanIDs []string

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body was.FindingsExportRequest

		err := decodeRequestJSON(request, &body)
		assert.NoError(t, err)

		scanIDs = append(scanIDs, body.ScanID)

		if body.ScanID == "scan-2" {
			writeJSON(t, writer, http.StatusNotFound, errorBody("scan not found"))

			return
		}

		writeJSON(t, writer, http.StatusOK, map[string]interface{}{
			"findings": []was.Finding{{ID: "finding-" + body.ScanID}},
		})
	}))
	defer server.Close()

	findings := NewFindingsClient(internalhttp.NewClient(server.URL, nil))

	var progress []string

	results, err := findings.ExportAll(context.Background(), []string{"scan-1", "scan-2", "scan-3"}, &was.BulkOptions{
		OnProgress: func(completed, total int, result was.BulkResult) {
			progress = append(progress, result.ID)
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Strictly ordered, failure recorded without stopping the run.
	assert.Equal(t, []string{"scan-1", "scan-2", "scan-3"}, scanIDs)
	assert.Equal(t, []string{"scan-1", "scan-2", "scan-3"}, progress)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, was.IsNotFound(results[1].Error))
	assert.True(t, results[2].Success)

	export, ok := results[0].Data.(*was.FindingsExport)
	require.True(t, ok)
	assert.Equal(t, "scan-1", export.ScanID)
}

func TestFindingsClient_ExportAll_EmptyInput(t *testing.T) {
	findings := NewFindingsClient(internalhttp.NewClient("http://localhost", nil))

	results, err := findings.ExportAll(context.Background(), nil, nil)
	require.ErrorIs(t, err, was.ErrNoIdentifiers)
	assert.Nil(t, results)
}
