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

// NewApplicationsCommand creates the applications command group.
func NewApplicationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "applications",
		Aliases: []string{"application", "apps", "app"},
		Short:   "Manage scanned web applications",
		Long:    "List and manage the web applications registered for scanning",
	}

	cmd.AddCommand(newApplicationsListCommand())
	cmd.AddCommand(newApplicationsGetCommand())
	cmd.AddCommand(newApplicationsCreateCommand())
	cmd.AddCommand(newApplicationsUpdateCommand())
	cmd.AddCommand(newApplicationsDeleteCommand())
	cmd.AddCommand(newApplicationsURLsCommand())
	cmd.AddCommand(newApplicationsSetURLsCommand())

	return cmd
}

func newApplicationsListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		Long:  "List the web applications registered for scanning",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			params := was.NewQueryParams().WithLimit(limit).WithOffset(offset)

			apps, err := client.Applications().List(ctx, params)
			if err != nil {
				return fmt.Errorf("failed to list applications: %w", err)
			}

			return outputApplications(apps.Items)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "results per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the result set")

	return cmd
}

func outputApplications(apps []was.Application) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(apps)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(apps)
	default:
		if len(apps) == 0 {
			fmt.Println("No applications found")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Tags", "URLs", "Created")

		for _, app := range apps {
			_ = table.Append(app.ID, app.Name, strings.Join(app.Tags, ", "),
				fmt.Sprintf("%d", len(app.URLs)), formatTimestamp(app.CreatedAt))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

func newApplicationsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get APP_ID",
		Short: "Get application details",
		Long:  "Display detailed information about a specific application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			app, err := client.Applications().Get(ctx, appID)
			if err != nil {
				return fmt.Errorf("failed to get application: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(app)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(app)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")

				_ = table.Append("ID", app.ID)
				_ = table.Append("Name", app.Name)
				_ = table.Append("Description", truncate(app.Description, maxTableCellWidth))
				_ = table.Append("Tags", strings.Join(app.Tags, ", "))
				_ = table.Append("Created", formatTimestamp(app.CreatedAt))
				_ = table.Append("Updated", formatTimestamp(app.UpdatedAt))

				for _, appURL := range app.URLs {
					_ = table.Append("URL", appURL.URL)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newApplicationsCreateCommand() *cobra.Command {
	var (
		description string
		tags        []string
		urls        []string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Register an application",
		Long:  "Register a new web application for scanning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			request := &was.ApplicationCreateRequest{
				Name:        name,
				Description: description,
				Tags:        tags,
			}

			for _, target := range urls {
				request.URLs = append(request.URLs, was.AppURL{URL: target})
			}

			app, err := client.Applications().Create(ctx, request)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}

			fmt.Printf("Created application %s (%s)\n", app.Name, app.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "application description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")
	cmd.Flags().StringSliceVar(&urls, "url", nil, "target URL to seed (repeatable)")

	return cmd
}

func newApplicationsUpdateCommand() *cobra.Command {
	var (
		name        string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "update APP_ID",
		Short: "Update an application",
		Long:  "Update the name, description, or tags of an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			request := &was.ApplicationUpdateRequest{Tags: tags}
			if cmd.Flags().Changed("name") {
				request.Name = &name
			}

			if cmd.Flags().Changed("description") {
				request.Description = &description
			}

			app, err := client.Applications().Update(ctx, appID, request)
			if err != nil {
				return fmt.Errorf("failed to update application: %w", err)
			}

			fmt.Printf("Updated application %s (%s)\n", app.Name, app.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new application name")
	cmd.Flags().StringVar(&description, "description", "", "new application description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replacement tag set (repeatable)")

	return cmd
}

func newApplicationsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete APP_ID",
		Short: "Delete an application",
		Long:  "Remove a web application and its scan coverage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			err = client.Applications().Delete(ctx, appID)
			if err != nil {
				return fmt.Errorf("failed to delete application: %w", err)
			}

			fmt.Printf("Deleted application %s\n", appID)

			return nil
		},
	}
}

func newApplicationsURLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "urls APP_ID",
		Short: "List application target URLs",
		Long:  "List the target URLs attached to an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			urls, err := client.Applications().ListURLs(ctx, appID)
			if err != nil {
				return fmt.Errorf("failed to list application URLs: %w", err)
			}

			return outputAppURLs(urls)
		},
	}
}

func newApplicationsSetURLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-urls APP_ID URL [URL...]",
		Short: "Replace application target URLs",
		Long:  "Replace the full target URL set of an application",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID := args[0]
			targets := args[1:]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			urls, err := client.Applications().ReplaceURLs(ctx, appID, targets)
			if err != nil {
				return fmt.Errorf("failed to replace application URLs: %w", err)
			}

			return outputAppURLs(urls)
		},
	}
}

func outputAppURLs(urls []was.AppURL) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(urls)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(urls)
	default:
		if len(urls) == 0 {
			fmt.Println("No URLs found")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "URL", "Method", "Enabled")

		for _, appURL := range urls {
			_ = table.Append(appURL.ID, appURL.URL, appURL.Method, boolString(appURL.Enabled))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}
