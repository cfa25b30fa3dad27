package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
	"gopkg.in/yaml.v3"
)

// NewScansCommand creates the scans command group.
func NewScansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scans",
		Aliases: []string{"scan"},
		Short:   "Manage web application scans",
		Long:    "List, inspect, launch, and reassign web application scans",
	}

	cmd.AddCommand(newScansListCommand())
	cmd.AddCommand(newScansGetCommand())
	cmd.AddCommand(newScansStatusCommand())
	cmd.AddCommand(newScansLaunchCommand())
	cmd.AddCommand(newScansWaitCommand())
	cmd.AddCommand(newScansSummaryCommand())
	cmd.AddCommand(newScansSetOwnerCommand())
	cmd.AddCommand(newScansSetOwnerBulkCommand())

	return cmd
}

// ScansListOptions holds the options for listing scans.
type ScansListOptions struct {
	Limit    int
	Offset   int
	AllPages bool
	Owners   bool
}

func newScansListCommand() *cobra.Command {
	var opts ScansListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scans",
		Long:  "List web application scans in the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScansListCommand(opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", constants.StandardPageSize, "results per page")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "offset into the result set")
	cmd.Flags().BoolVar(&opts.AllPages, "all", false, "fetch all pages")
	cmd.Flags().BoolVar(&opts.Owners, "owners", false, "resolve owner names from the user directory")

	return cmd
}

func runScansListCommand(opts ScansListOptions) error {
	client, err := CreateClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	params := was.NewQueryParams().WithLimit(opts.Limit).WithOffset(opts.Offset)

	var scans []was.Scan

	if opts.AllPages {
		scans, err = client.Scans().ListAll(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list scans: %w", err)
		}
	} else {
		page, err := client.Scans().List(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list scans: %w", err)
		}

		scans = page.Items
	}

	if opts.Owners {
		err = client.Users().EnrichScans(ctx, scans)
		if err != nil {
			return fmt.Errorf("failed to resolve scan owners: %w", err)
		}
	}

	return outputScans(scans)
}

func outputScans(scans []was.Scan) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(scans)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(scans)
	default:
		return outputScansTable(scans)
	}
}

func outputScansTable(scans []was.Scan) error {
	if len(scans) == 0 {
		fmt.Println("No scans found")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Application", "Status", "Owner", "Started", "Finished")

	for _, scan := range scans {
		owner := scan.OwnerName
		if owner == "" {
			owner = scan.OwnerID
		}

		_ = table.Append(scan.ID, scan.Name, scan.Application, scan.Status, owner,
			formatTimestamp(scan.StartTime), formatTimestamp(scan.EndTime))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newScansGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get SCAN_ID",
		Short: "Get scan details",
		Long:  "Display detailed information about a specific scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			scan, err := client.Scans().Get(ctx, scanID)
			if err != nil {
				return fmt.Errorf("failed to get scan: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(scan)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(scan)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")

				_ = table.Append("ID", scan.ID)
				_ = table.Append("Name", scan.Name)
				_ = table.Append("Application", scan.Application)
				_ = table.Append("Status", was.ClassifyScanStatus(scan.Status))

				if scan.OwnerID != "" {
					owner := scan.OwnerName
					if owner == "" {
						owner = scan.OwnerID
					}

					_ = table.Append("Owner", owner)
				}

				_ = table.Append("Started", formatTimestamp(scan.StartTime))
				_ = table.Append("Finished", formatTimestamp(scan.EndTime))

				if seconds := scan.DurationSeconds(); seconds > 0 {
					_ = table.Append("Duration", (time.Duration(seconds) * time.Second).String())
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newScansStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status SCAN_ID",
		Short: "Get the live scan status",
		Long:  "Fetch the current status of a scan directly from the service, bypassing the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			status, err := client.Scans().GetStatus(ctx, scanID)
			if err != nil {
				return fmt.Errorf("failed to get scan status: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(map[string]string{"scan_id": scanID, "status": status})
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(map[string]string{"scan_id": scanID, "status": status})
			default:
				fmt.Println(was.ClassifyScanStatus(status))
			}

			return nil
		},
	}
}

func newScansLaunchCommand() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "launch SCAN_ID",
		Short: "Launch a scan",
		Long:  "Start a configured scan, optionally waiting for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			if wait {
				scan, err := client.Scans().LaunchAndWait(ctx, scanID, interval, timeout)
				if err != nil {
					return fmt.Errorf("failed to launch scan: %w", err)
				}

				return outputFinishedScan(scan)
			}

			err = client.Scans().Launch(ctx, scanID)
			if err != nil {
				return fmt.Errorf("failed to launch scan: %w", err)
			}

			fmt.Printf("Launched scan %s\n", scanID)

			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the scan to reach a final state")
	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultScanPollInterval, "status poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultScanPollTimeout, "maximum time to wait")

	return cmd
}

func newScansWaitCommand() *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait SCAN_ID",
		Short: "Wait for a scan to finish",
		Long:  "Poll a running scan until it reaches a final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			scan, err := client.Scans().WaitUntilComplete(ctx, scanID, interval, timeout)
			if err != nil {
				return fmt.Errorf("failed to wait for scan: %w", err)
			}

			return outputFinishedScan(scan)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultScanPollInterval, "status poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultScanPollTimeout, "maximum time to wait")

	return cmd
}

func outputFinishedScan(scan *was.Scan) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(scan)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(scan)
	default:
		fmt.Printf("Scan %s: %s\n", scan.ID, was.ClassifyScanStatus(scan.Status))

		return nil
	}
}

func newScansSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary SCAN_ID",
		Short: "Get a condensed scan report",
		Long:  "Display the scan's final status and timing in a condensed form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			summary, err := client.Scans().Summary(ctx, scanID)
			if err != nil {
				return fmt.Errorf("failed to get scan summary: %w", err)
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
				table.Header("Property", "Value")

				_ = table.Append("Scan ID", summary.ScanID)
				_ = table.Append("Name", summary.Name)
				_ = table.Append("Status", was.ClassifyScanStatus(summary.Status))
				_ = table.Append("Application", summary.Application)
				_ = table.Append("Started", formatTimestamp(summary.Start))
				_ = table.Append("Finished", formatTimestamp(summary.End))
				_ = table.Append("Duration", (time.Duration(summary.DurationSeconds) * time.Second).String())

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newScansSetOwnerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-owner SCAN_ID OWNER_ID",
		Short: "Reassign a scan to a new owner",
		Long:  "Change the owning user of a single scan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]
			ownerID := args[1]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			err = client.Scans().ChangeOwner(ctx, scanID, ownerID)
			if err != nil {
				return fmt.Errorf("failed to change scan owner: %w", err)
			}

			fmt.Printf("Reassigned scan %s to owner %s\n", scanID, ownerID)

			return nil
		},
	}
}

func newScansSetOwnerBulkCommand() *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "set-owner-bulk OWNER_ID [SCAN_ID...]",
		Short: "Reassign many scans to a new owner",
		Long: `Change the owning user of many scans in one run.

Scans are processed strictly in order, one at a time. A failing scan does
not stop the run; its error is reported alongside the successes at the end.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID := args[0]
			scanIDs := args[1:]

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

			results, err := client.Scans().ChangeOwnerBulk(ctx, scanIDs, ownerID, options)
			if err != nil {
				return fmt.Errorf("failed to reassign scans: %w", err)
			}

			return outputBulkResults(results)
		},
	}

	cmd.Flags().StringVar(&fromFile, "from-file", "", "file with one scan ID per line")

	return cmd
}
