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

// NewNotesCommand creates the notes command group.
func NewNotesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "Browse scanner notes",
		Long:    "List the diagnostic notes the scanner attached to a scan",
	}

	cmd.AddCommand(newNotesListCommand())

	return cmd
}

func newNotesListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list SCAN_ID",
		Short: "List scan notes",
		Long:  "List the diagnostic notes attached to a specific scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			params := was.NewQueryParams().WithLimit(limit).WithOffset(offset)

			notes, err := client.Notes().List(ctx, scanID, params)
			if err != nil {
				return fmt.Errorf("failed to list scan notes: %w", err)
			}

			output := viper.GetString("output")
			switch output {
			case OutputFormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(notes.Items)
			case OutputFormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(notes.Items)
			default:
				if len(notes.Items) == 0 {
					fmt.Println("No scan notes found")

					return nil
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("ID", "Severity", "Title", "Created", "Message")

				for _, note := range notes.Items {
					_ = table.Append(note.ScanNoteID, formatSeverity(note.Severity), note.Title,
						formatTimestamp(note.CreatedAt), truncate(note.Message, maxTableCellWidth))
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
