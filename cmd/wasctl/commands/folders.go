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
	"gopkg.in/yaml.v3"
)

// NewFoldersCommand creates the folders command group.
func NewFoldersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folders",
		Aliases: []string{"folder"},
		Short:   "Browse scan folders",
		Long:    "List the folders scans are organized into",
	}

	cmd.AddCommand(newFoldersListCommand())

	return cmd
}

func newFoldersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Long:  "List the scan folders in the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			folders, err := client.Folders().List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list folders: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(folders)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(folders)
			default:
				if len(folders) == 0 {
					fmt.Println("No folders found")

					return nil
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("ID", "Name")

				for _, folder := range folders {
					_ = table.Append(strconv.Itoa(folder.ID), folder.Name)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
