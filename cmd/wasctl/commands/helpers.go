package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
	"github.com/webscan-io/was/v2/pkg/wasclient"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	// NotAvailable represents a missing value in table output.
	NotAvailable = "N/A"

	// OutputFormatJSON represents JSON output format.
	OutputFormatJSON = "json"

	// OutputFormatYAML represents YAML output format.
	OutputFormatYAML = "yaml"

	// TimestampFormat is the display format for timestamps in tables.
	TimestampFormat = "2006-01-02 15:04:05"

	// maxTableCellWidth bounds free-form text columns in table output.
	maxTableCellWidth = 60
)

// Static error variables for CLI operations.
var (
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrScanIDsAndFile      = errors.New("scan IDs and --from-file are mutually exclusive")
	ErrNoScanIDsProvided   = errors.New("no scan IDs provided")
	ErrPluginIDsAndFile    = errors.New("plugin IDs and --from-file are mutually exclusive")
	ErrNoPluginIDsProvided = errors.New("no plugin IDs provided")
	ErrEmptyInput          = errors.New("input value must not be empty")
)

// titleCaser renders identifiers and severities for table display.
var titleCaser = cases.Title(language.English)

// CreateClient builds a WAS client from the resolved CLI configuration.
func CreateClient() (was.Client, error) {
	endpoint := viper.GetString("api")
	if endpoint == "" {
		endpoint = constants.DefaultAPIEndpoint
	}

	accessKey := viper.GetString("access_key")
	secretKey := viper.GetString("secret_key")

	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("%w, run 'wasctl config set-keys' first", constants.ErrNoCredentialsConfigured)
	}

	config := &was.Config{
		APIEndpoint: endpoint,
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		Proxy:       viper.GetString("proxy"),
	}

	client, err := wasclient.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// readIDsFromFile reads one identifier per line, skipping blank lines and
// lines starting with '#'.
func readIDsFromFile(path string) ([]string, error) {
	file, err := os.Open(path) // #nosec G304 -- path comes from the operator's own flag
	if err != nil {
		return nil, fmt.Errorf("failed to open ID file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var ids []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ids = append(ids, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ID file: %w", err)
	}

	return ids, nil
}

// writeCSVRows writes flattened records as CSV with a sorted header union.
// An empty path writes to stdout.
func writeCSVRows(path string, rows []map[string]string) error {
	out := os.Stdout

	if path != "" {
		file, err := os.Create(path) // #nosec G304 -- path comes from the operator's own flag
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}

		defer func() {
			_ = file.Close()
		}()

		out = file
	}

	writer := csv.NewWriter(out)
	headers := was.CSVHeaders(rows)

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(headers))

	for _, row := range rows {
		for i, header := range headers {
			record[i] = row[header]
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}

// formatTimestamp renders a timestamp for table output.
func formatTimestamp(timestamp was.Timestamp) string {
	if timestamp.IsZero() {
		return ""
	}

	return timestamp.Format(TimestampFormat)
}

// formatSeverity renders a severity value for table output.
func formatSeverity(severity string) string {
	if severity == "" {
		return NotAvailable
	}

	return titleCaser.String(strings.ToLower(severity))
}

// truncate shortens free-form text so table rows stay readable.
func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}

	return value[:limit-3] + "..."
}

// boolString renders a bool pointer for table output.
func boolString(value *bool) string {
	if value == nil {
		return NotAvailable
	}

	if *value {
		return constants.BooleanTrue
	}

	return constants.BooleanFalse
}

// bulkResultView is the serializable form of a bulk outcome.
type bulkResultView struct {
	ID       string `json:"id"              yaml:"id"`
	Index    int    `json:"index"           yaml:"index"`
	Success  bool   `json:"success"         yaml:"success"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string `json:"duration"        yaml:"duration"`
}

// outputBulkResults renders the per-item outcomes of a bulk run.
func outputBulkResults(results []was.BulkResult) error {
	views := make([]bulkResultView, 0, len(results))
	succeeded := 0

	for _, result := range results {
		view := bulkResultView{
			ID:       result.ID,
			Index:    result.Index,
			Success:  result.Success,
			Duration: result.Duration.Round(time.Millisecond).String(),
		}

		if result.Error != nil {
			view.Error = result.Error.Error()
		} else {
			succeeded++
		}

		views = append(views, view)
	}

	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(views)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(views)
	default:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Result", "Duration", "Error")

		for _, view := range views {
			result := "ok"
			if !view.Success {
				result = "failed"
			}

			_ = table.Append(view.ID, result, view.Duration, truncate(view.Error, maxTableCellWidth))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		fmt.Printf("\n%d of %d succeeded\n", succeeded, len(results))

		return nil
	}
}
