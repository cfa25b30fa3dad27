package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
	"gopkg.in/yaml.v3"
)

// NewPluginsCommand creates the plugins command group.
func NewPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"plugin"},
		Short:   "Browse detection plugins",
		Long:    "List and inspect the detection plugins used by scans",
	}

	cmd.AddCommand(newPluginsListCommand())
	cmd.AddCommand(newPluginsGetCommand())
	cmd.AddCommand(newPluginsExportCommand())

	return cmd
}

func newPluginsListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins",
		Long:  "List the detection plugins in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			params := was.NewQueryParams().WithLimit(limit).WithOffset(offset)

			plugins, err := client.Plugins().List(ctx, params)
			if err != nil {
				return fmt.Errorf("failed to list plugins: %w", err)
			}

			return outputPlugins(plugins.Items)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "results per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the result set")

	return cmd
}

func outputPlugins(plugins []was.Plugin) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(plugins)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(plugins)
	default:
		if len(plugins) == 0 {
			fmt.Println("No plugins found")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Family", "Risk")

		for _, plugin := range plugins {
			_ = table.Append(plugin.PluginID, truncate(plugin.Name, maxTableCellWidth),
				plugin.Family, plugin.RiskFactor)
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

func newPluginsExportCommand() *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "export [PLUGIN_ID...]",
		Short: "Export many plugins",
		Long: `Fetch full plugin records for many plugin IDs in one run.

Plugins are fetched strictly in order, one at a time. A failing lookup does
not stop the run; its error is reported alongside the successes at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pluginIDs := args

			if fromFile != "" {
				if len(pluginIDs) > 0 {
					return ErrPluginIDsAndFile
				}

				ids, err := readIDsFromFile(fromFile)
				if err != nil {
					return err
				}

				pluginIDs = ids
			}

			if len(pluginIDs) == 0 {
				return ErrNoPluginIDsProvided
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

			results, err := client.Plugins().GetMany(ctx, pluginIDs, options)
			if err != nil {
				return fmt.Errorf("failed to export plugins: %w", err)
			}

			if output == OutputFormatJSON || output == OutputFormatYAML {
				return outputPluginExports(results, output)
			}

			return outputBulkResults(results)
		},
	}

	cmd.Flags().StringVar(&fromFile, "from-file", "", "file with one plugin ID per line")

	return cmd
}

// outputPluginExports emits the fetched plugin records keyed by ID, with
// failures reported separately.
func outputPluginExports(results []was.BulkResult, output string) error {
	type exportView struct {
		PluginID string      `json:"plugin_id"        yaml:"plugin_id"`
		Plugin   *was.Plugin `json:"plugin,omitempty" yaml:"plugin,omitempty"`
		Error    string      `json:"error,omitempty"  yaml:"error,omitempty"`
	}

	views := make([]exportView, 0, len(results))

	for _, result := range results {
		view := exportView{PluginID: result.ID}

		if plugin, ok := result.Data.(*was.Plugin); ok {
			view.Plugin = plugin
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

func newPluginsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PLUGIN_ID",
		Short: "Get plugin details",
		Long:  "Display detailed information about a specific detection plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pluginID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			plugin, err := client.Plugins().Get(ctx, pluginID)
			if err != nil {
				return fmt.Errorf("failed to get plugin: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(plugin)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(plugin)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")

				_ = table.Append("ID", plugin.PluginID)
				_ = table.Append("Name", plugin.Name)
				_ = table.Append("Family", plugin.Family)
				_ = table.Append("Risk", plugin.RiskFactor)
				_ = table.Append("Description", truncate(plugin.Description, maxTableCellWidth))
				_ = table.Append("Solution", truncate(plugin.Solution, maxTableCellWidth))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
