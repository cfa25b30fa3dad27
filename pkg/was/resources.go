package was

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/webscan-io/was/v2/internal/constants"
)

// Scan represents a web application scan.
type Scan struct {
	ID          string                 `json:"id"                    yaml:"id"`
	Name        string                 `json:"name"                  yaml:"name"`
	Application string                 `json:"application,omitempty" yaml:"application,omitempty"`
	Status      string                 `json:"status"                yaml:"status"`
	StartTime   Timestamp              `json:"start_time,omitempty"  yaml:"start_time,omitempty"`
	EndTime     Timestamp              `json:"end_time,omitempty"    yaml:"end_time,omitempty"`
	OwnerID     string                 `json:"owner_id,omitempty"    yaml:"owner_id,omitempty"`
	OwnerName   string                 `json:"owner_name,omitempty"  yaml:"owner_name,omitempty"`
	OwnerEmail  string                 `json:"owner_email,omitempty" yaml:"owner_email,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"    yaml:"metadata,omitempty"`
}

// DurationSeconds returns the scan's wall-clock duration in seconds, or zero
// when either timestamp is missing or the window is inverted.
func (s *Scan) DurationSeconds() int64 {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}

	duration := s.EndTime.Unix() - s.StartTime.Unix()
	if duration < 0 {
		return 0
	}

	return duration
}

// IsTerminal reports whether the scan has reached a final state.
func (s *Scan) IsTerminal() bool {
	return IsTerminalStatus(s.Status)
}

// IsTerminalStatus reports whether a scan status is final.
func IsTerminalStatus(status string) bool {
	switch strings.ToLower(status) {
	case constants.ScanStatusCompleted, constants.ScanStatusFailed, constants.ScanStatusCancelled:
		return true
	}

	return false
}

// ClassifyScanStatus converts a raw scan status into a human-friendly
// description for display surfaces.
func ClassifyScanStatus(status string) string {
	if status == "" {
		return "unknown"
	}

	switch strings.ToLower(status) {
	case constants.ScanStatusQueued:
		return "Queued (waiting to start)"
	case constants.ScanStatusRunning:
		return "Running"
	case constants.ScanStatusProcessing:
		return "Processing results"
	case constants.ScanStatusCompleted:
		return "Completed successfully"
	case constants.ScanStatusFailed:
		return "Failed"
	case constants.ScanStatusCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("unknown (%s)", status)
	}
}

// ScanSummary represents a condensed view of a scan for reporting.
type ScanSummary struct {
	ScanID          string    `json:"scan_id"               yaml:"scan_id"`
	Name            string    `json:"name"                  yaml:"name"`
	Status          string    `json:"status"                yaml:"status"`
	Application     string    `json:"application,omitempty" yaml:"application,omitempty"`
	Start           Timestamp `json:"start,omitempty"       yaml:"start,omitempty"`
	End             Timestamp `json:"end,omitempty"         yaml:"end,omitempty"`
	DurationSeconds int64     `json:"duration_seconds"      yaml:"duration_seconds"`
}

// NewScanSummary builds a ScanSummary from a scan.
func NewScanSummary(scan *Scan) ScanSummary {
	return ScanSummary{
		ScanID:          scan.ID,
		Name:            scan.Name,
		Status:          scan.Status,
		Application:     scan.Application,
		Start:           scan.StartTime,
		End:             scan.EndTime,
		DurationSeconds: scan.DurationSeconds(),
	}
}

// ScanOwnerUpdateRequest represents a request to reassign a scan's owner.
type ScanOwnerUpdateRequest struct {
	OwnerID string `json:"owner_id" yaml:"owner_id"`
}

// ScanNote represents a scanner diagnostic note attached to a scan.
type ScanNote struct {
	ScanNoteID string    `json:"scan_note_id"         yaml:"scan_note_id"`
	ScanID     string    `json:"scan_id,omitempty"    yaml:"scan_id,omitempty"`
	CreatedAt  Timestamp `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Severity   string    `json:"severity,omitempty"   yaml:"severity,omitempty"`
	Title      string    `json:"title"                yaml:"title"`
	Message    string    `json:"message,omitempty"    yaml:"message,omitempty"`
}

// Application represents a registered web application under scan coverage.
type Application struct {
	ID          string    `json:"id"                    yaml:"id"`
	Name        string    `json:"name"                  yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"        yaml:"tags,omitempty"`
	URLs        []AppURL  `json:"urls,omitempty"        yaml:"urls,omitempty"`
	CreatedAt   Timestamp `json:"created_at,omitempty"  yaml:"created_at,omitempty"`
	UpdatedAt   Timestamp `json:"updated_at,omitempty"  yaml:"updated_at,omitempty"`
}

// AppURL represents a single target URL attached to an application.
type AppURL struct {
	ID      string `json:"id,omitempty"      yaml:"id,omitempty"`
	URL     string `json:"url"               yaml:"url"`
	Method  string `json:"method,omitempty"  yaml:"method,omitempty"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// ApplicationCreateRequest represents a request to register an application.
type ApplicationCreateRequest struct {
	// Name is the application name (unique within the account).
	Name string `json:"name" yaml:"name"`
	// Description is an optional free-form description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Tags are optional labels used for grouping.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// URLs seeds the application's target URL set.
	URLs []AppURL `json:"urls,omitempty" yaml:"urls,omitempty"`
}

// ApplicationUpdateRequest represents a request to update an application.
type ApplicationUpdateRequest struct {
	// Name updates the application name; nil leaves it unchanged.
	Name *string `json:"name,omitempty" yaml:"name,omitempty"`
	// Description updates the description; nil leaves it unchanged.
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	// Tags replaces the tag set; nil leaves it unchanged.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ApplicationURLsRequest represents a request to replace an application's
// target URL set.
type ApplicationURLsRequest struct {
	URLs []AppURL `json:"urls" yaml:"urls"`
}

// Finding represents a single issue discovered by a scan.
type Finding struct {
	ID          string      `json:"id"                    yaml:"id"`
	ScanID      string      `json:"scan_id,omitempty"     yaml:"scan_id,omitempty"`
	Severity    string      `json:"severity,omitempty"    yaml:"severity,omitempty"`
	PluginID    string      `json:"plugin_id,omitempty"   yaml:"plugin_id,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Evidence    interface{} `json:"evidence,omitempty"    yaml:"evidence,omitempty"`
	URL         string      `json:"url,omitempty"         yaml:"url,omitempty"`
}

// FindingsSummary represents per-severity finding counts for one scan.
type FindingsSummary struct {
	ScanID   string `json:"scan_id"  yaml:"scan_id"`
	Total    int    `json:"total"    yaml:"total"`
	Critical int    `json:"critical" yaml:"critical"`
	High     int    `json:"high"     yaml:"high"`
	Medium   int    `json:"medium"   yaml:"medium"`
	Low      int    `json:"low"      yaml:"low"`
	Info     int    `json:"info"     yaml:"info"`
}

// SummarizeFindings tallies findings by severity for one scan.
func SummarizeFindings(scanID string, findings []Finding) FindingsSummary {
	summary := FindingsSummary{ScanID: scanID, Total: len(findings)}

	for _, finding := range findings {
		switch strings.ToLower(finding.Severity) {
		case SeverityCritical:
			summary.Critical++
		case SeverityHigh:
			summary.High++
		case SeverityMedium:
			summary.Medium++
		case SeverityLow:
			summary.Low++
		case SeverityInfo:
			summary.Info++
		}
	}

	return summary
}

// FindingsExportRequest represents the body of a findings export call.
type FindingsExportRequest struct {
	ScanID string `json:"scan_id" yaml:"scan_id"`
}

// FindingsExport represents the result of a findings export for one scan.
type FindingsExport struct {
	ScanID   string    `json:"scan_id" yaml:"scan_id"`
	Findings []Finding `json:"findings" yaml:"findings"`
}

// findingsEnvelopeKeys are the wrapper keys tried for exported findings.
var findingsEnvelopeKeys = []string{"findings", "items", "data"}

// UnmarshalJSON decodes an export payload, tolerating either findings key.
func (e *FindingsExport) UnmarshalJSON(data []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("parsing export envelope: %w", err)
	}

	if raw, ok := envelope["scan_id"]; ok {
		if err := json.Unmarshal(raw, &e.ScanID); err != nil {
			return fmt.Errorf("parsing export scan id: %w", err)
		}
	}

	for _, key := range findingsEnvelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}

		if err := json.Unmarshal(raw, &e.Findings); err != nil {
			return fmt.Errorf("parsing %q findings: %w", key, err)
		}

		break
	}

	return nil
}

// Vulnerability represents a detected vulnerability record.
type Vulnerability struct {
	VulnID        string                 `json:"vuln_id"                  yaml:"vuln_id"`
	PluginID      string                 `json:"plugin_id,omitempty"      yaml:"plugin_id,omitempty"`
	Name          string                 `json:"name,omitempty"           yaml:"name,omitempty"`
	Severity      string                 `json:"severity,omitempty"       yaml:"severity,omitempty"`
	State         string                 `json:"state,omitempty"          yaml:"state,omitempty"`
	ScanID        string                 `json:"scan_id,omitempty"        yaml:"scan_id,omitempty"`
	ApplicationID string                 `json:"application_id,omitempty" yaml:"application_id,omitempty"`
	AffectedURLs  []string               `json:"affected_urls,omitempty"  yaml:"affected_urls,omitempty"`
	FirstSeen     Timestamp              `json:"first_seen,omitempty"     yaml:"first_seen,omitempty"`
	LastSeen      Timestamp              `json:"last_seen,omitempty"      yaml:"last_seen,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"        yaml:"details,omitempty"`
}

// Plugin represents a detection plugin.
type Plugin struct {
	PluginID    string `json:"plugin_id"             yaml:"plugin_id"`
	Name        string `json:"name"                  yaml:"name"`
	Family      string `json:"family,omitempty"      yaml:"family,omitempty"`
	RiskFactor  string `json:"risk_factor,omitempty" yaml:"risk_factor,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Solution    string `json:"solution,omitempty"    yaml:"solution,omitempty"`
}

// Template represents a built-in scan template.
type Template struct {
	TemplateID  string `json:"template_id"           yaml:"template_id"`
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// UserTemplate represents a user-defined scan template.
type UserTemplate struct {
	ID          string                 `json:"id"                     yaml:"id"`
	Name        string                 `json:"name"                   yaml:"name"`
	Description string                 `json:"description,omitempty"  yaml:"description,omitempty"`
	TemplateID  string                 `json:"template_id,omitempty"  yaml:"template_id,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty"     yaml:"settings,omitempty"`
	Permissions []TemplatePermission   `json:"permissions,omitempty"  yaml:"permissions,omitempty"`
	CreatedAt   Timestamp              `json:"created_at,omitempty"   yaml:"created_at,omitempty"`
	UpdatedAt   Timestamp              `json:"updated_at,omitempty"   yaml:"updated_at,omitempty"`
}

// TemplatePermission represents an access grant on a user template.
type TemplatePermission struct {
	Entity   string `json:"entity"    yaml:"entity"`
	EntityID string `json:"entity_id" yaml:"entity_id"`
	Level    string `json:"level"     yaml:"level"`
}

// UserTemplateCreateRequest represents a request to create a user template.
type UserTemplateCreateRequest struct {
	// Name is the template name.
	Name string `json:"name" yaml:"name"`
	// Description is an optional free-form description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// TemplateID names the built-in template this one derives from.
	TemplateID string `json:"template_id" yaml:"template_id"`
	// Settings overrides scan settings from the base template.
	Settings map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
	// Permissions sets initial access grants.
	Permissions []TemplatePermission `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// UserTemplateUpdateRequest represents a request to update a user template.
type UserTemplateUpdateRequest struct {
	// Name updates the template name; nil leaves it unchanged.
	Name *string `json:"name,omitempty" yaml:"name,omitempty"`
	// Description updates the description; nil leaves it unchanged.
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	// Settings replaces setting overrides; nil leaves them unchanged.
	Settings map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
	// Permissions replaces access grants; nil leaves them unchanged.
	Permissions []TemplatePermission `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// Configuration represents a predefined system scan configuration.
type Configuration struct {
	TemplateID   string                 `json:"template_id"             yaml:"template_id"`
	Name         string                 `json:"name"                    yaml:"name"`
	Description  string                 `json:"description,omitempty"   yaml:"description,omitempty"`
	PluginState  string                 `json:"plugin_state,omitempty"  yaml:"plugin_state,omitempty"`
	ScannerTypes []string               `json:"scanner_types,omitempty" yaml:"scanner_types,omitempty"`
	Settings     map[string]interface{} `json:"settings,omitempty"      yaml:"settings,omitempty"`
	Defaults     map[string]interface{} `json:"defaults,omitempty"      yaml:"defaults,omitempty"`
}

// Folder represents a scan folder.
type Folder struct {
	ID   int    `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// User represents an account user.
type User struct {
	UserID   string `json:"user_id"            yaml:"user_id"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Name     string `json:"name,omitempty"     yaml:"name,omitempty"`
	Email    string `json:"email,omitempty"    yaml:"email,omitempty"`
	Type     string `json:"type,omitempty"     yaml:"type,omitempty"`
}

// OwnerInfo represents the display fields of a scan owner.
type OwnerInfo struct {
	Name  string `json:"name"  yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// FilterMetadata represents one filterable field advertised by the service.
type FilterMetadata struct {
	Name         string         `json:"name"                    yaml:"name"`
	ReadableName string         `json:"readable_name,omitempty" yaml:"readable_name,omitempty"`
	Operators    []string       `json:"operators,omitempty"     yaml:"operators,omitempty"`
	Control      *FilterControl `json:"control,omitempty"       yaml:"control,omitempty"`
}

// FilterControl represents the input control metadata for a filter field.
type FilterControl struct {
	Type  string   `json:"type"            yaml:"type"`
	Regex string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	List  []string `json:"list,omitempty"  yaml:"list,omitempty"`
}

// FilterMetadataList represents a list of FilterMetadata entries.
type FilterMetadataList = ListResponse[FilterMetadata]
