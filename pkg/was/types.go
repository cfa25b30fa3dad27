package was

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp handles the mixed timestamp encodings the service emits: integer
// epoch seconds, numeric strings, ISO 8601 strings, and null all appear in
// payloads depending on the endpoint.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps a time.Time in a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// UnmarshalJSON accepts epoch seconds, numeric strings, and RFC 3339 strings.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}

		return nil
	}

	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t.Time = time.Unix(epoch, 0).UTC()

		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("parsing timestamp: %w", err)
	}

	if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
		t.Time = time.Unix(epoch, 0).UTC()

		return nil
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", value, err)
	}

	t.Time = parsed.UTC()

	return nil
}

// MarshalJSON renders the timestamp as an RFC 3339 string, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// MarshalYAML renders the timestamp as an RFC 3339 string, or nil when unset.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}

	return t.UTC().Format(time.RFC3339), nil
}

// Epoch returns the timestamp as epoch seconds, or zero when unset.
func (t Timestamp) Epoch() int64 {
	if t.IsZero() {
		return 0
	}

	return t.Unix()
}

// listEnvelopeKeys are the wrapper keys the service uses for list payloads,
// in the order they are tried during decoding.
var listEnvelopeKeys = []string{
	"items",
	"data",
	"scans",
	"applications",
	"findings",
	"vulns",
	"templates",
	"user_templates",
	"configurations",
	"plugins",
	"users",
	"folders",
	"notes",
	"urls",
	"filters",
}

// ListResponse represents a paginated list response. The service wraps list
// payloads inconsistently (some endpoints use "items", others the resource
// plural), so decoding tries each known wrapper key and records which one
// matched in Key. A bare JSON array decodes directly into Items.
type ListResponse[T any] struct {
	Items  []T    `json:"items"            yaml:"items"`
	Total  int    `json:"total,omitempty"  yaml:"total,omitempty"`
	Offset int    `json:"offset,omitempty" yaml:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"  yaml:"limit,omitempty"`
	Key    string `json:"-"                yaml:"-"`
}

// UnmarshalJSON decodes either a bare array or an enveloped list payload.
func (r *ListResponse[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(data, &r.Items)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("parsing list envelope: %w", err)
	}

	for _, key := range listEnvelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}

		if err := json.Unmarshal(raw, &r.Items); err != nil {
			return fmt.Errorf("parsing %q list: %w", key, err)
		}

		r.Key = key

		break
	}

	r.Total = envelopeInt(envelope, "total", "total_count")
	r.Offset = envelopeInt(envelope, "offset")
	r.Limit = envelopeInt(envelope, "limit", "size")

	return nil
}

// envelopeInt reads the first present integer field from an envelope.
func envelopeInt(envelope map[string]json.RawMessage, keys ...string) int {
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}

		var value int
		if err := json.Unmarshal(raw, &value); err == nil {
			return value
		}
	}

	return 0
}

// Vuln is an alias for Vulnerability to keep call sites short.
type Vuln = Vulnerability

// ScanList represents a list of Scan resources.
type ScanList = ListResponse[Scan]

// ApplicationList represents a list of Application resources.
type ApplicationList = ListResponse[Application]

// FindingList represents a list of Finding resources.
type FindingList = ListResponse[Finding]

// PluginList represents a list of Plugin resources.
type PluginList = ListResponse[Plugin]

// TemplateList represents a list of Template resources.
type TemplateList = ListResponse[Template]

// UserTemplateList represents a list of UserTemplate resources.
type UserTemplateList = ListResponse[UserTemplate]

// ConfigurationList represents a list of Configuration resources.
type ConfigurationList = ListResponse[Configuration]

// UserList represents a list of User resources.
type UserList = ListResponse[User]

// FolderList represents a list of Folder resources.
type FolderList = ListResponse[Folder]

// ScanNoteList represents a list of ScanNote resources.
type ScanNoteList = ListResponse[ScanNote]

// VulnList represents a list of Vulnerability resources.
type VulnList = ListResponse[Vulnerability]

// SearchFilter represents a single field condition in a search request.
type SearchFilter struct {
	Field    string      `json:"field"    yaml:"field"`
	Operator string      `json:"operator" yaml:"operator"`
	Value    interface{} `json:"value"    yaml:"value"`
}

// Search filter operators.
const (
	// OperatorEq matches values equal to the filter value.
	OperatorEq = "eq"

	// OperatorIn matches values contained in the filter value list.
	OperatorIn = "in"

	// OperatorGte matches values greater than or equal to the filter value.
	OperatorGte = "gte"

	// OperatorLte matches values less than or equal to the filter value.
	OperatorLte = "lte"
)

// SearchRequest represents the body of a vulnerability search call.
type SearchRequest struct {
	Filters []SearchFilter `json:"filters"          yaml:"filters"`
	Size    int            `json:"size,omitempty"   yaml:"size,omitempty"`
	Offset  int            `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// VulnFilterArgs captures CLI-style vulnerability filter arguments before
// they are mapped onto the search filter structure.
type VulnFilterArgs struct {
	Severity       string
	PluginIDs      []string
	ScanIDs        []string
	ApplicationIDs []string
	State          string
	Since          string
	Until          string
}

// BuildVulnFilters converts filter arguments into search filters. Severity
// matches with a lowercased equality filter, identifier arguments become
// membership filters, and since/until become a last_seen range.
func BuildVulnFilters(args VulnFilterArgs) []SearchFilter {
	filters := make([]SearchFilter, 0, 7)

	if args.Severity != "" {
		filters = append(filters, SearchFilter{
			Field:    "severity",
			Operator: OperatorEq,
			Value:    strings.ToLower(args.Severity),
		})
	}

	if len(args.PluginIDs) > 0 {
		filters = append(filters, SearchFilter{
			Field:    "plugin_id",
			Operator: OperatorIn,
			Value:    args.PluginIDs,
		})
	}

	if len(args.ScanIDs) > 0 {
		filters = append(filters, SearchFilter{
			Field:    "scan_id",
			Operator: OperatorIn,
			Value:    args.ScanIDs,
		})
	}

	if len(args.ApplicationIDs) > 0 {
		filters = append(filters, SearchFilter{
			Field:    "application_id",
			Operator: OperatorIn,
			Value:    args.ApplicationIDs,
		})
	}

	if args.State != "" {
		filters = append(filters, SearchFilter{
			Field:    "state",
			Operator: OperatorEq,
			Value:    args.State,
		})
	}

	if args.Since != "" {
		filters = append(filters, SearchFilter{
			Field:    "last_seen",
			Operator: OperatorGte,
			Value:    args.Since,
		})
	}

	if args.Until != "" {
		filters = append(filters, SearchFilter{
			Field:    "last_seen",
			Operator: OperatorLte,
			Value:    args.Until,
		})
	}

	return filters
}

// SearchResponse represents one page of vulnerability search results. The
// service reports the page size in "returned" and wraps the records in either
// "vulns" or "items".
type SearchResponse struct {
	Returned int             `json:"returned" yaml:"returned"`
	Total    int             `json:"total"    yaml:"total"`
	Items    []Vulnerability `json:"items"    yaml:"items"`
}

// searchEnvelopeKeys are the wrapper keys tried for search result records.
var searchEnvelopeKeys = []string{"vulns", "items", "data"}

// UnmarshalJSON decodes a search page, tolerating either record wrapper key.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("parsing search envelope: %w", err)
	}

	for _, key := range searchEnvelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}

		if err := json.Unmarshal(raw, &r.Items); err != nil {
			return fmt.Errorf("parsing %q records: %w", key, err)
		}

		break
	}

	r.Returned = envelopeInt(envelope, "returned")
	r.Total = envelopeInt(envelope, "total", "total_count")

	return nil
}
