package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
	"gopkg.in/yaml.v3"
)

// NewFindingsCommand creates the findings command group.
func NewFindingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "findings",
		Aliases: []string{"finding"},
		Short:   "Inspect scan findings",
		Long:    "List, summarize, and export the findings discovered by scans",
	}

	cmd.AddCommand(newFindingsListCommand())
	cmd.AddCommand(newFindingsSummaryCommand())
	cmd.AddCommand(newFindingsExportCommand())
	cmd.AddCommand(newFindingsExportAllCommand())

	return cmd
}

func newFindingsListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list SCAN_ID",
		Short: "List scan findings",
		Long:  "List the findings discovered by a specific scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			params := was.NewQueryParams().WithLimit(limit).WithOffset(offset)

			findings, err := client.Findings().List(ctx, scanID, params)
			if err != nil {
				return fmt.Errorf("failed to list findings: %w", err)
			}

			return outputFindings(findings.Items)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "results per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the result set")

	return cmd
}

func outputFindings(findings []was.Finding) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(findings)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(findings)
	default:
		if len(findings) == 0 {
			fmt.Println("No findings found")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Severity", "Plugin", "URL", "Description")

		for _, finding := range findings {
			_ = table.Append(finding.ID, formatSeverity(finding.Severity), finding.PluginID,
				truncate(finding.URL, maxTableCellWidth),
				truncate(finding.Description, maxTableCellWidth))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

func newFindingsSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary SCAN_ID",
		Short: "Summarize scan findings by severity",
		Long:  "Fetch every finding of a scan and tally the counts per severity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			summary, err := client.Findings().Summary(ctx, scanID)
			if err != nil {
				return fmt.Errorf("failed to summarize findings: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(summary)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(summary)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Severity", "Count")

				_ = table.Append("Critical", strconv.Itoa(summary.Critical))
				_ = table.Append("High", strconv.Itoa(summary.High))
				_ = table.Append("Medium", strconv.Itoa(summary.Medium))
				_ = table.Append("Low", strconv.Itoa(summary.Low))
				_ = table.Append("Info", strconv.Itoa(summary.Info))
				_ = table.Append("Total", strconv.Itoa(summary.Total))

				fmt.Printf("Findings for scan %s:\n\n", summary.ScanID)

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newFindingsExportCommand() *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "export SCAN_ID",
		Short: "Export scan findings",
		Long:  "Request a findings export for one scan and print the exported records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			export, err := client.Findings().Export(ctx, scanID)
			if err != nil {
				return fmt.Errorf("failed to export findings: %w", err)
			}

			if csvPath != "" {
				return writeFindingsCSV(csvPath, export.Findings)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(export)
			default:
				// Exports are meant for downstream tooling, so anything
				// except explicit YAML is emitted as JSON.
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(export)
			}
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write flattened findings as CSV to this file")

	return cmd
}

// writeFindingsCSV flattens findings into dotted-key rows and writes them
// as CSV.
func writeFindingsCSV(path string, findings []was.Finding) error {
	rows := make([]map[string]string, 0, len(findings))

	for i := range findings {
		record, err := was.FlattenValue(&findings[i])
		if err != nil {
			return fmt.Errorf("failed to flatten finding: %w", err)
		}

		rows = append(rows, was.CSVRow(record))
	}

	return writeCSVRows(path, rows)
}

func newFindingsExportAllCommand() *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "export-all [SCAN_ID...]",
		Short: "Export findings for many scans",
		Long: `Request findings exports for many scans in one run.

Scans are processed strictly in order, one at a time. A failing scan does
not stop the run; its error is reported alongside the successes at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanIDs := args

			if fromFile != "" {
				if len(scanIDs) > 0 {
					return ErrScanIDsAndFile
				}

				ids, err := readIDsFromFile(fromFile)
				if err != nil {
					return err
				}

				scanIDs = ids
			}

			if len(scanIDs) == 0 {
				return ErrNoScanIDsProvided
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			options := &was.BulkOptions{}

			output := viper.GetString("output")
			if output != OutputFormatJSON && output != OutputFormatYAML {
				options.OnProgress = func(completed, total int, result was.BulkResult) {
					marker := "ok"
					if !result.Success {
						marker = "failed"
					}

					fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", completed, total, result.ID, marker)
				}
			}

			results, err := client.Findings().ExportAll(ctx, scanIDs, options)
			if err != nil {
				return fmt.Errorf("failed to export findings: %w", err)
			}

			if output == OutputFormatJSON || output == OutputFormatYAML {
				return outputFindingsExports(results, output)
			}

			return outputBulkResults(results)
		},
	}

	cmd.Flags().StringVar(&fromFile, "from-file", "", "file with one scan ID per line")

	return cmd
}

// outputFindingsExports emits the exported records themselves, keyed by scan,
// with failures reported separately.
func outputFindingsExports(results []was.BulkResult, output string) error {
	type exportView struct {
		ScanID   string              `json:"scan_id"            yaml:"scan_id"`
		Export   *was.FindingsExport `json:"export,omitempty"   yaml:"export,omitempty"`
		Error    string              `json:"error,omitempty"    yaml:"error,omitempty"`
		Duration string              `json:"duration"           yaml:"duration"`
	}

	views := make([]exportView, 0, len(results))

	for _, result := range results {
		view := exportView{
			ScanID:   result.ID,
			Duration: result.Duration.String(),
		}

		if export, ok := result.Data.(*was.FindingsExport); ok {
			view.Export = export
		}

		if result.Error != nil {
			view.Error = result.Error.Error()
		}

		views = append(views, view)
	}

	if output == OutputFormatYAML {
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(views)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(views)
}
