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

// NewUserTemplatesCommand creates the user-templates command group.
func NewUserTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user-templates",
		Aliases: []string{"user-template", "ut"},
		Short:   "Manage user-defined scan templates",
		Long:    "List and manage scan templates defined in the account",
	}

	cmd.AddCommand(newUserTemplatesListCommand())
	cmd.AddCommand(newUserTemplatesGetCommand())
	cmd.AddCommand(newUserTemplatesCreateCommand())
	cmd.AddCommand(newUserTemplatesUpdateCommand())
	cmd.AddCommand(newUserTemplatesDeleteCommand())

	return cmd
}

func newUserTemplatesListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user templates",
		Long:  "List the scan templates defined in the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			params := was.NewQueryParams().WithLimit(limit).WithOffset(offset)

			templates, err := client.UserTemplates().List(ctx, params)
			if err != nil {
				return fmt.Errorf("failed to list user templates: %w", err)
			}

			return outputUserTemplates(templates.Items)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "results per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the result set")

	return cmd
}

func outputUserTemplates(templates []was.UserTemplate) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(templates)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(templates)
	default:
		if len(templates) == 0 {
			fmt.Println("No user templates found")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Name", "Base Template", "Created", "Updated")

		for _, template := range templates {
			_ = table.Append(template.ID, template.Name, template.TemplateID,
				formatTimestamp(template.CreatedAt), formatTimestamp(template.UpdatedAt))
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

func newUserTemplatesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TEMPLATE_ID",
		Short: "Get user template details",
		Long:  "Display detailed information about a specific user template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			template, err := client.UserTemplates().Get(ctx, templateID)
			if err != nil {
				return fmt.Errorf("failed to get user template: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(template)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(template)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")

				_ = table.Append("ID", template.ID)
				_ = table.Append("Name", template.Name)
				_ = table.Append("Description", truncate(template.Description, maxTableCellWidth))
				_ = table.Append("Base Template", template.TemplateID)
				_ = table.Append("Created", formatTimestamp(template.CreatedAt))
				_ = table.Append("Updated", formatTimestamp(template.UpdatedAt))

				for _, permission := range template.Permissions {
					value := fmt.Sprintf("%s %s (%s)", permission.Entity, permission.EntityID, permission.Level)
					_ = table.Append("Permission", value)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newUserTemplatesCreateCommand() *cobra.Command {
	var (
		baseTemplate string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a user template",
		Long:  "Create a scan template derived from a vendor template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			request := &was.UserTemplateCreateRequest{
				Name:        name,
				Description: description,
				TemplateID:  baseTemplate,
			}

			template, err := client.UserTemplates().Create(ctx, request)
			if err != nil {
				return fmt.Errorf("failed to create user template: %w", err)
			}

			fmt.Printf("Created user template %s (%s)\n", template.Name, template.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&baseTemplate, "template-id", "", "vendor template to derive from")
	cmd.Flags().StringVar(&description, "description", "", "template description")
	_ = cmd.MarkFlagRequired("template-id")

	return cmd
}

func newUserTemplatesUpdateCommand() *cobra.Command {
	var (
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "update TEMPLATE_ID",
		Short: "Update a user template",
		Long:  "Update the name or description of a user template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			request := &was.UserTemplateUpdateRequest{}
			if cmd.Flags().Changed("name") {
				request.Name = &name
			}

			if cmd.Flags().Changed("description") {
				request.Description = &description
			}

			template, err := client.UserTemplates().Update(ctx, templateID, request)
			if err != nil {
				return fmt.Errorf("failed to update user template: %w", err)
			}

			fmt.Printf("Updated user template %s (%s)\n", template.Name, template.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new template name")
	cmd.Flags().StringVar(&description, "description", "", "new template description")

	return cmd
}

func newUserTemplatesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete TEMPLATE_ID",
		Short: "Delete a user template",
		Long:  "Remove a user-defined scan template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			err = client.UserTemplates().Delete(ctx, templateID)
			if err != nil {
				return fmt.Errorf("failed to delete user template: %w", err)
			}

			fmt.Printf("Deleted user template %s\n", templateID)

			return nil
		},
	}
}
