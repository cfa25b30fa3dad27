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

// NewFiltersCommand creates the filters command group.
func NewFiltersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Browse filter metadata",
		Long:  "List the filterable fields each search surface advertises",
	}

	cmd.AddCommand(newFiltersSubCommand("scans", "scan listings",
		func(ctx context.Context, client was.Client) ([]was.FilterMetadata, error) {
			return client.Filters().Scans(ctx)
		}))
	cmd.AddCommand(newFiltersSubCommand("vulns", "vulnerability searches",
		func(ctx context.Context, client was.Client) ([]was.FilterMetadata, error) {
			return client.Filters().Vulns(ctx)
		}))
	cmd.AddCommand(newFiltersSubCommand("applications", "application listings",
		func(ctx context.Context, client was.Client) ([]was.FilterMetadata, error) {
			return client.Filters().Applications(ctx)
		}))
	cmd.AddCommand(newFiltersSubCommand("plugins", "plugin listings",
		func(ctx context.Context, client was.Client) ([]was.FilterMetadata, error) {
			return client.Filters().Plugins(ctx)
		}))
	cmd.AddCommand(newFiltersSubCommand("user-templates", "user template listings",
		func(ctx context.Context, client was.Client) ([]was.FilterMetadata, error) {
			return client.Filters().UserTemplates(ctx)
		}))

	return cmd
}

func newFiltersSubCommand(use, surface string, fetch func(context.Context, was.Client) ([]was.FilterMetadata, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: "List filters for " + surface,
		Long:  "List the filterable fields advertised for " + surface,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			filters, err := fetch(ctx, client)
			if err != nil {
				return fmt.Errorf("failed to list filters: %w", err)
			}

			return outputFilterMetadata(filters)
		},
	}
}

func outputFilterMetadata(filters []was.FilterMetadata) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(filters)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(filters)
	default:
		if len(filters) == 0 {
			fmt.Println("No filters found")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Name", "Readable Name", "Operators", "Control")

		for _, filter := range filters {
			control := NotAvailable
			if filter.Control != nil {
				control = filter.Control.Type
			}

			_ = table.Append(filter.Name, filter.ReadableName,
				strings.Join(filter.Operators, ", "), control)
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}
