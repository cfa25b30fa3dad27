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
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
	"gopkg.in/yaml.v3"
)

// NewConfigurationsCommand creates the configurations command group.
func NewConfigurationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "configurations",
		Aliases: []string{"configuration", "configs"},
		Short:   "Browse system scan configurations",
		Long:    "List and inspect the predefined system scan configurations",
	}

	cmd.AddCommand(newConfigurationsListCommand())
	cmd.AddCommand(newConfigurationsGetCommand())

	return cmd
}

func newConfigurationsListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configurations",
		Long:  "List the predefined system scan configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			params := was.NewQueryParams().WithLimit(limit).WithOffset(offset)

			configurations, err := client.Configurations().List(ctx, params)
			if err != nil {
				return fmt.Errorf("failed to list configurations: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(configurations.Items)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(configurations.Items)
			default:
				if len(configurations.Items) == 0 {
					fmt.Println("No configurations found")

					return nil
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("ID", "Name", "Scanner Types", "Plugin State")

				for _, configuration := range configurations.Items {
					_ = table.Append(configuration.TemplateID, configuration.Name,
						strings.Join(configuration.ScannerTypes, ", "), configuration.PluginState)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "results per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the result set")

	return cmd
}

func newConfigurationsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get CONFIG_ID",
		Short: "Get configuration details",
		Long:  "Display detailed information about a specific scan configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			configuration, err := client.Configurations().Get(ctx, configID)
			if err != nil {
				return fmt.Errorf("failed to get configuration: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(configuration)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(configuration)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")

				_ = table.Append("ID", configuration.TemplateID)
				_ = table.Append("Name", configuration.Name)
				_ = table.Append("Description", truncate(configuration.Description, maxTableCellWidth))
				_ = table.Append("Scanner Types", strings.Join(configuration.ScannerTypes, ", "))
				_ = table.Append("Plugin State", configuration.PluginState)

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
