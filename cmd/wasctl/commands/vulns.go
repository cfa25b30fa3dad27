package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/webscan-io/was/v2/pkg/was"
	"gopkg.in/yaml.v3"
)

// NewVulnsCommand creates the vulns command group.
func NewVulnsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vulns",
		Aliases: []string{"vuln", "vulnerabilities"},
		Short:   "Search detected vulnerabilities",
		Long:    "Search and inspect the vulnerabilities detected across scans",
	}

	cmd.AddCommand(newVulnsSearchCommand())
	cmd.AddCommand(newVulnsGetCommand())
	cmd.AddCommand(newVulnsExportCommand())

	return cmd
}

// VulnsSearchOptions holds the filter and paging options for a search.
type VulnsSearchOptions struct {
	Filters  was.VulnFilterArgs
	Size     int
	Offset   int
	AllPages bool
}

func newVulnsSearchCommand() *cobra.Command {
	var opts VulnsSearchOptions

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search vulnerabilities",
		Long:  "Search vulnerabilities with optional severity, identifier, and date filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVulnsSearchCommand(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Filters.Severity, "severity", "", "filter by severity (critical, high, medium, low, info)")
	cmd.Flags().StringSliceVar(&opts.Filters.PluginIDs, "plugin-id", nil, "filter by plugin ID (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Filters.ScanIDs, "scan-id", nil, "filter by scan ID (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Filters.ApplicationIDs, "app-id", nil, "filter by application ID (repeatable)")
	cmd.Flags().StringVar(&opts.Filters.State, "state", "", "filter by state (open, fixed, accepted)")
	cmd.Flags().StringVar(&opts.Filters.Since, "since", "", "only records last seen on or after this date")
	cmd.Flags().StringVar(&opts.Filters.Until, "until", "", "only records last seen on or before this date")
	cmd.Flags().IntVar(&opts.Size, "size", 0, "page size (default is the service default)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "offset into the result set")
	cmd.Flags().BoolVar(&opts.AllPages, "all", false, "fetch all pages")

	return cmd
}

func runVulnsSearchCommand(opts VulnsSearchOptions) error {
	client, err := CreateClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	filters := was.BuildVulnFilters(opts.Filters)

	if opts.AllPages {
		vulns, err := client.Vulns().SearchAll(ctx, filters)
		if err != nil {
			return fmt.Errorf("failed to search vulnerabilities: %w", err)
		}

		return outputVulns(vulns, len(vulns))
	}

	request := &was.SearchRequest{
		Filters: filters,
		Size:    opts.Size,
		Offset:  opts.Offset,
	}

	page, err := client.Vulns().Search(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to search vulnerabilities: %w", err)
	}

	return outputVulns(page.Items, page.Total)
}

func outputVulns(vulns []was.Vulnerability, total int) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(vulns)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(vulns)
	default:
		if len(vulns) == 0 {
			fmt.Println("No vulnerabilities found")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Severity", "State", "Plugin", "Last Seen")

		for _, vuln := range vulns {
			_ = table.Append(vuln.VulnID, truncate(vuln.Name, maxTableCellWidth),
				formatSeverity(vuln.Severity), vuln.State, vuln.PluginID,
				formatTimestamp(vuln.LastSeen))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		if total > len(vulns) {
			fmt.Printf("\nShowing %d of %d. Use --all to fetch every page.\n", len(vulns), total)
		}

		return nil
	}
}

func newVulnsExportCommand() *cobra.Command {
	var (
		filters  was.VulnFilterArgs
		filePath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export vulnerabilities as CSV",
		Long:  "Search vulnerabilities and write flattened CSV rows, one row per vulnerability and affected URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVulnsExportCommand(filters, filePath)
		},
	}

	cmd.Flags().StringVar(&filters.Severity, "severity", "", "filter by severity (critical, high, medium, low, info)")
	cmd.Flags().StringSliceVar(&filters.PluginIDs, "plugin-id", nil, "filter by plugin ID (repeatable)")
	cmd.Flags().StringSliceVar(&filters.ScanIDs, "scan-id", nil, "filter by scan ID (repeatable)")
	cmd.Flags().StringSliceVar(&filters.ApplicationIDs, "app-id", nil, "filter by application ID (repeatable)")
	cmd.Flags().StringVar(&filters.State, "state", "", "filter by state (open, fixed, accepted)")
	cmd.Flags().StringVar(&filters.Since, "since", "", "only records last seen on or after this date")
	cmd.Flags().StringVar(&filters.Until, "until", "", "only records last seen on or before this date")
	cmd.Flags().StringVar(&filePath, "file", "", "write CSV to this file instead of stdout")

	return cmd
}

func runVulnsExportCommand(filters was.VulnFilterArgs, filePath string) error {
	client, err := CreateClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	vulns, err := client.Vulns().SearchAll(ctx, was.BuildVulnFilters(filters))
	if err != nil {
		return fmt.Errorf("failed to search vulnerabilities: %w", err)
	}

	records, err := was.FlattenVulnerabilities(vulns)
	if err != nil {
		return fmt.Errorf("failed to flatten vulnerabilities: %w", err)
	}

	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, was.CSVRow(record))
	}

	return writeCSVRows(filePath, rows)
}

func newVulnsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get VULN_ID",
		Short: "Get vulnerability details",
		Long:  "Display detailed information about a specific vulnerability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vulnID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			vuln, err := client.Vulns().Get(ctx, vulnID)
			if err != nil {
				return fmt.Errorf("failed to get vulnerability: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(vuln)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(vuln)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")

				_ = table.Append("ID", vuln.VulnID)
				_ = table.Append("Name", vuln.Name)
				_ = table.Append("Severity", formatSeverity(vuln.Severity))
				_ = table.Append("State", vuln.State)
				_ = table.Append("Plugin", vuln.PluginID)
				_ = table.Append("Scan", vuln.ScanID)
				_ = table.Append("Application", vuln.ApplicationID)
				_ = table.Append("First Seen", formatTimestamp(vuln.FirstSeen))
				_ = table.Append("Last Seen", formatTimestamp(vuln.LastSeen))
				_ = table.Append("Affected URLs", strings.Join(vuln.AffectedURLs, ", "))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
