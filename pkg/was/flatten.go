package was

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/webscan-io/was/v2/internal/constants"
)

// Severity labels used across findings and vulnerabilities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
	SeverityUnknown  = "unknown"
)

// severityRanks orders severity labels; higher means more severe.
var severityRanks = map[string]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityInfo:     0,
}

// SeverityRank returns the numeric rank of a severity label, or -1 when the
// label is empty or unrecognized.
func SeverityRank(severity string) int {
	if severity == "" {
		return -1
	}

	rank, ok := severityRanks[strings.ToLower(severity)]
	if !ok {
		return -1
	}

	return rank
}

// SortFindingsBySeverity returns findings ordered most severe first. The
// input slice is not modified.
func SortFindingsBySeverity(findings []Finding) []Finding {
	ordered := make([]Finding, len(findings))
	copy(ordered, findings)

	sort.SliceStable(ordered, func(i, j int) bool {
		return SeverityRank(ordered[i].Severity) > SeverityRank(ordered[j].Severity)
	})

	return ordered
}

// GroupFindingsBySeverity buckets findings by severity label. Unrecognized
// labels land in the "unknown" bucket.
func GroupFindingsBySeverity(findings []Finding) map[string][]Finding {
	groups := map[string][]Finding{
		SeverityCritical: {},
		SeverityHigh:     {},
		SeverityMedium:   {},
		SeverityLow:      {},
		SeverityInfo:     {},
	}

	for _, finding := range findings {
		label := strings.ToLower(finding.Severity)
		if _, ok := groups[label]; !ok {
			label = SeverityUnknown
		}

		groups[label] = append(groups[label], finding)
	}

	return groups
}

// FlattenMap converts nested maps into a single level using dotted keys.
// Lists are kept as values; only nested maps recurse.
func FlattenMap(data map[string]interface{}) map[string]interface{} {
	flattened := make(map[string]interface{}, len(data))
	flattenInto(flattened, "", data)

	return flattened
}

func flattenInto(dst map[string]interface{}, prefix string, data map[string]interface{}) {
	for key, value := range data {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			flattenInto(dst, name, nested)

			continue
		}

		dst[name] = value
	}
}

// FlattenValue converts any JSON-encodable value into a flattened map with
// dotted keys.
func FlattenValue(value interface{}) (map[string]interface{}, error) {
	if data, ok := value.(map[string]interface{}); ok {
		return FlattenMap(data), nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	return FlattenMap(decoded), nil
}

// FlattenVulnerability expands a vulnerability into one flattened row per
// affected URL, keyed "affected_url". A record with no affected URLs yields
// a single row with a nil URL.
func FlattenVulnerability(vuln *Vulnerability) ([]map[string]interface{}, error) {
	if vuln == nil {
		return nil, nil
	}

	base, err := FlattenValue(vuln)
	if err != nil {
		return nil, err
	}

	if len(vuln.AffectedURLs) == 0 {
		base["affected_url"] = nil

		return []map[string]interface{}{base}, nil
	}

	rows := make([]map[string]interface{}, 0, len(vuln.AffectedURLs))

	for _, url := range vuln.AffectedURLs {
		row := make(map[string]interface{}, len(base)+1)
		for key, value := range base {
			row[key] = value
		}

		row["affected_url"] = url
		rows = append(rows, row)
	}

	return rows, nil
}

// FlattenVulnerabilities expands many vulnerabilities into flattened rows.
func FlattenVulnerabilities(vulns []Vulnerability) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(vulns))

	for i := range vulns {
		expanded, err := FlattenVulnerability(&vulns[i])
		if err != nil {
			return nil, err
		}

		rows = append(rows, expanded...)
	}

	return rows, nil
}

// CSVValue renders a field value as a CSV-safe string: lists become
// comma-separated strings, maps become JSON strings, scalars print as-is.
func CSVValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, CSVValue(item))
		}

		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case map[string]interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

// CSVRow converts one flattened record into CSV-safe string fields.
func CSVRow(record map[string]interface{}) map[string]string {
	row := make(map[string]string, len(record))

	for key, value := range record {
		row[key] = CSVValue(value)
	}

	return row
}

// CSVHeaders returns the sorted union of keys across all rows.
func CSVHeaders(rows []map[string]string) []string {
	seen := make(map[string]struct{})

	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}

	headers := make([]string, 0, len(seen))
	for key := range seen {
		headers = append(headers, key)
	}

	sort.Strings(headers)

	return headers
}

// ParseTimestamp converts a mixed-format timestamp value into epoch seconds.
// It accepts integers, numeric strings, RFC 3339 strings, and Timestamp
// values; anything else yields ok=false.
func ParseTimestamp(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		if v == "" {
			return 0, false
		}

		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return epoch, true
		}

		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed.Unix(), true
		}

		return 0, false
	case Timestamp:
		if v.IsZero() {
			return 0, false
		}

		return v.Unix(), true
	case time.Time:
		if v.IsZero() {
			return 0, false
		}

		return v.Unix(), true
	default:
		return 0, false
	}
}

// FormatEpochISO renders epoch seconds as an RFC 3339 UTC string, or an
// empty string for non-positive epochs.
func FormatEpochISO(epoch int64) string {
	if epoch <= 0 {
		return ""
	}

	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}

// DurationSeconds computes the whole-second difference between two
// mixed-format timestamps, clamped at zero. ok is false when either
// timestamp cannot be parsed.
func DurationSeconds(start, end interface{}) (int64, bool) {
	startEpoch, ok := ParseTimestamp(start)
	if !ok {
		return 0, false
	}

	endEpoch, ok := ParseTimestamp(end)
	if !ok {
		return 0, false
	}

	if endEpoch < startEpoch {
		return 0, true
	}

	return endEpoch - startEpoch, true
}

// NormalizeID trims surrounding whitespace from an identifier.
func NormalizeID(value string) string {
	return strings.TrimSpace(value)
}

// NormalizeURL trims and lowercases a URL for comparison.
func NormalizeURL(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}

// IsUUID reports whether a string has the canonical 36-character UUID shape.
func IsUUID(value string) bool {
	if len(value) != constants.UUIDLength {
		return false
	}

	for i, r := range value {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !isHexDigit(r) {
				return false
			}
		}
	}

	return true
}

func isHexDigit(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'f':
		return true
	case r >= 'A' && r <= 'F':
		return true
	}

	return false
}

// PrettyJSON renders a value as indented JSON for CLI output and logging.
func PrettyJSON(value interface{}) string {
	encoded, err := json.MarshalIndent(value, "", strings.Repeat(" ", constants.JSONIndentSize))
	if err != nil {
		return fmt.Sprint(value)
	}

	return string(encoded)
}
