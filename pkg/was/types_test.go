package was_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webscan-io/was/v2/pkg/was"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  int64
		zero  bool
	}{
		{name: "epoch integer", input: `1700000000`, want: 1700000000},
		{name: "epoch string", input: `"1700000000"`, want: 1700000000},
		{name: "ISO 8601", input: `"2023-11-14T22:13:20Z"`, want: 1700000000},
		{name: "ISO 8601 with offset", input: `"2023-11-14T23:13:20+01:00"`, want: 1700000000},
		{name: "null", input: `null`, zero: true},
		{name: "empty string", input: `""`, zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ts was.Timestamp

			err := json.Unmarshal([]byte(tt.input), &ts)
			require.NoError(t, err)

			if tt.zero {
				assert.True(t, ts.IsZero())

				return
			}

			assert.Equal(t, tt.want, ts.Unix())
		})
	}
}

func TestTimestamp_UnmarshalJSONRejectsGarbage(t *testing.T) {
	t.Parallel()

	var ts was.Timestamp

	err := json.Unmarshal([]byte(`"not-a-time"`), &ts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing timestamp")
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	t.Parallel()

	ts := was.NewTimestamp(time.Unix(1700000000, 0))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2023-11-14T22:13:20Z"`, string(data))

	var zero was.Timestamp

	data, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestTimestamp_Epoch(t *testing.T) {
	t.Parallel()

	ts := was.NewTimestamp(time.Unix(1700000000, 0))
	assert.Equal(t, int64(1700000000), ts.Epoch())

	var zero was.Timestamp

	assert.Equal(t, int64(0), zero.Epoch())
}

func TestListResponse_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("items key", func(t *testing.T) {
		t.Parallel()

		payload := `{"items": [{"id": "scan-1", "status": "completed"}], "total": 10, "offset": 2, "limit": 1}`

		var list was.ScanList

		err := json.Unmarshal([]byte(payload), &list)
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "scan-1", list.Items[0].ID)
		assert.Equal(t, 10, list.Total)
		assert.Equal(t, 2, list.Offset)
		assert.Equal(t, 1, list.Limit)
		assert.Equal(t, "items", list.Key)
	})

	t.Run("resource plural key", func(t *testing.T) {
		t.Parallel()

		payload := `{"scans": [{"id": "scan-1"}, {"id": "scan-2"}]}`

		var list was.ScanList

		err := json.Unmarshal([]byte(payload), &list)
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		assert.Equal(t, "scan-2", list.Items[1].ID)
		assert.Equal(t, "scans", list.Key)
	})

	t.Run("items wins over plural", func(t *testing.T) {
		t.Parallel()

		payload := `{"items": [{"id": "a"}], "scans": [{"id": "b"}]}`

		var list was.ScanList

		err := json.Unmarshal([]byte(payload), &list)
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "a", list.Items[0].ID)
	})

	t.Run("bare array", func(t *testing.T) {
		t.Parallel()

		payload := `[{"user_id": "u-1"}, {"user_id": "u-2"}]`

		var list was.UserList

		err := json.Unmarshal([]byte(payload), &list)
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		assert.Empty(t, list.Key)
	})

	t.Run("total_count fallback", func(t *testing.T) {
		t.Parallel()

		payload := `{"applications": [], "total_count": 7}`

		var list was.ApplicationList

		err := json.Unmarshal([]byte(payload), &list)
		require.NoError(t, err)
		assert.Equal(t, 7, list.Total)
		assert.Equal(t, "applications", list.Key)
	})

	t.Run("unrecognized envelope", func(t *testing.T) {
		t.Parallel()

		payload := `{"records": [{"id": "x"}]}`

		var list was.ScanList

		err := json.Unmarshal([]byte(payload), &list)
		require.NoError(t, err)
		assert.Empty(t, list.Items)
		assert.Empty(t, list.Key)
	})

	t.Run("malformed item", func(t *testing.T) {
		t.Parallel()

		payload := `{"items": [{"id": 42}]}`

		var list was.ScanList

		err := json.Unmarshal([]byte(payload), &list)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `parsing "items" list`)
	})
}

func TestSearchResponse_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("vulns key", func(t *testing.T) {
		t.Parallel()

		payload := `{"returned": 2, "total": 5, "vulns": [{"vuln_id": "v-1"}, {"vuln_id": "v-2"}]}`

		var page was.SearchResponse

		err := json.Unmarshal([]byte(payload), &page)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Returned)
		assert.Equal(t, 5, page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "v-1", page.Items[0].VulnID)
	})

	t.Run("items key", func(t *testing.T) {
		t.Parallel()

		payload := `{"returned": 1, "total": 1, "items": [{"vuln_id": "v-9", "severity": "high"}]}`

		var page was.SearchResponse

		err := json.Unmarshal([]byte(payload), &page)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "high", page.Items[0].Severity)
	})
}

func TestFindingsExport_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("findings key", func(t *testing.T) {
		t.Parallel()

		payload := `{"scan_id": "scan-1", "findings": [{"id": "f-1", "severity": "high"}]}`

		var export was.FindingsExport

		err := json.Unmarshal([]byte(payload), &export)
		require.NoError(t, err)
		assert.Equal(t, "scan-1", export.ScanID)
		require.Len(t, export.Findings, 1)
		assert.Equal(t, "f-1", export.Findings[0].ID)
	})

	t.Run("items key", func(t *testing.T) {
		t.Parallel()

		payload := `{"scan_id": "scan-2", "items": [{"id": "f-2"}]}`

		var export was.FindingsExport

		err := json.Unmarshal([]byte(payload), &export)
		require.NoError(t, err)
		assert.Equal(t, "scan-2", export.ScanID)
		require.Len(t, export.Findings, 1)
	})
}

func TestBuildVulnFilters(t *testing.T) {
	t.Parallel()

	filters := was.BuildVulnFilters(was.VulnFilterArgs{
		Severity:       "High",
		PluginIDs:      []string{"98074", "98075"},
		ScanIDs:        []string{"scan-1"},
		ApplicationIDs: []string{"app-1"},
		State:          "open",
		Since:          "2024-01-01T00:00:00Z",
		Until:          "2024-06-01T00:00:00Z",
	})

	require.Len(t, filters, 7)

	assert.Equal(t, was.SearchFilter{Field: "severity", Operator: was.OperatorEq, Value: "high"}, filters[0])
	assert.Equal(t, was.SearchFilter{Field: "plugin_id", Operator: was.OperatorIn, Value: []string{"98074", "98075"}}, filters[1])
	assert.Equal(t, was.SearchFilter{Field: "scan_id", Operator: was.OperatorIn, Value: []string{"scan-1"}}, filters[2])
	assert.Equal(t, was.SearchFilter{Field: "application_id", Operator: was.OperatorIn, Value: []string{"app-1"}}, filters[3])
	assert.Equal(t, was.SearchFilter{Field: "state", Operator: was.OperatorEq, Value: "open"}, filters[4])
	assert.Equal(t, was.SearchFilter{Field: "last_seen", Operator: was.OperatorGte, Value: "2024-01-01T00:00:00Z"}, filters[5])
	assert.Equal(t, was.SearchFilter{Field: "last_seen", Operator: was.OperatorLte, Value: "2024-06-01T00:00:00Z"}, filters[6])
}

func TestBuildVulnFilters_Empty(t *testing.T) {
	t.Parallel()

	filters := was.BuildVulnFilters(was.VulnFilterArgs{})
	assert.Empty(t, filters)
}

func TestScan_DurationSeconds(t *testing.T) {
	t.Parallel()

	scan := &was.Scan{
		StartTime: was.NewTimestamp(time.Unix(1700000000, 0)),
		EndTime:   was.NewTimestamp(time.Unix(1700000090, 0)),
	}
	assert.Equal(t, int64(90), scan.DurationSeconds())

	open := &was.Scan{StartTime: was.NewTimestamp(time.Unix(1700000000, 0))}
	assert.Equal(t, int64(0), open.DurationSeconds())

	inverted := &was.Scan{
		StartTime: was.NewTimestamp(time.Unix(1700000090, 0)),
		EndTime:   was.NewTimestamp(time.Unix(1700000000, 0)),
	}
	assert.Equal(t, int64(0), inverted.DurationSeconds())
}

func TestIsTerminalStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   string
		terminal bool
	}{
		{status: "completed", terminal: true},
		{status: "failed", terminal: true},
		{status: "cancelled", terminal: true},
		{status: "COMPLETED", terminal: true},
		{status: "running", terminal: false},
		{status: "queued", terminal: false},
		{status: "processing", terminal: false},
		{status: "", terminal: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.terminal, was.IsTerminalStatus(tt.status))
		})
	}
}

func TestClassifyScanStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		want   string
	}{
		{status: "queued", want: "Queued (waiting to start)"},
		{status: "running", want: "Running"},
		{status: "processing", want: "Processing results"},
		{status: "completed", want: "Completed successfully"},
		{status: "FAILED", want: "Failed"},
		{status: "cancelled", want: "Cancelled"},
		{status: "paused", want: "unknown (paused)"},
		{status: "", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, was.ClassifyScanStatus(tt.status))
		})
	}
}

func TestNewScanSummary(t *testing.T) {
	t.Parallel()

	scan := &was.Scan{
		ID:          "scan-1",
		Name:        "nightly",
		Status:      "completed",
		Application: "storefront",
		StartTime:   was.NewTimestamp(time.Unix(1700000000, 0)),
		EndTime:     was.NewTimestamp(time.Unix(1700000300, 0)),
	}

	summary := was.NewScanSummary(scan)
	assert.Equal(t, "scan-1", summary.ScanID)
	assert.Equal(t, "nightly", summary.Name)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, "storefront", summary.Application)
	assert.Equal(t, int64(300), summary.DurationSeconds)
}

func TestSummarizeFindings(t *testing.T) {
	t.Parallel()

	findings := []was.Finding{
		{ID: "f-1", Severity: "critical"},
		{ID: "f-2", Severity: "High"},
		{ID: "f-3", Severity: "high"},
		{ID: "f-4", Severity: "medium"},
		{ID: "f-5", Severity: "low"},
		{ID: "f-6", Severity: "info"},
		{ID: "f-7", Severity: "bogus"},
	}

	summary := was.SummarizeFindings("scan-1", findings)
	assert.Equal(t, "scan-1", summary.ScanID)
	assert.Equal(t, 7, summary.Total)
	assert.Equal(t, 1, summary.Critical)
	assert.Equal(t, 2, summary.High)
	assert.Equal(t, 1, summary.Medium)
	assert.Equal(t, 1, summary.Low)
	assert.Equal(t, 1, summary.Info)
}
