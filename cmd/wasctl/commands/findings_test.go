package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFindingsCommand(t *testing.T) {
	cmd := NewFindingsCommand()
	assert.Equal(t, "findings", cmd.Use)
	assert.Equal(t, []string{"finding"}, cmd.Aliases)
	assert.Equal(t, "Inspect scan findings", cmd.Short)

	subcommands := cmd.Commands()
	assert.Len(t, subcommands, 4)

	var commandNames []string
	for _, subcmd := range subcommands {
		commandNames = append(commandNames, subcmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "summary")
	assert.Contains(t, commandNames, "export")
	assert.Contains(t, commandNames, "export-all")
}

func TestFindingsListCommand(t *testing.T) {
	cmd := newFindingsListCommand()
	assert.Equal(t, "list SCAN_ID", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.NotNil(t, cmd.Args)

	assert.NotNil(t, cmd.Flags().Lookup("limit"))
	assert.NotNil(t, cmd.Flags().Lookup("offset"))
}

func TestFindingsExportCommand(t *testing.T) {
	cmd := newFindingsExportCommand()
	assert.Equal(t, "export SCAN_ID", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.NotNil(t, cmd.Args)

	// CSV output is opt-in through a file flag.
	assert.NotNil(t, cmd.Flags().Lookup("csv"))
}

func TestFindingsExportAllCommand(t *testing.T) {
	cmd := newFindingsExportAllCommand()
	assert.Equal(t, "export-all [SCAN_ID...]", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	assert.NotNil(t, cmd.Flags().Lookup("from-file"))
}
