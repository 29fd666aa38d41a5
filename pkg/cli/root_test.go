package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	// Restore stdout
	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	// Test basic properties
	assert.Equal(t, "handoff", root.Name)
	assert.Equal(t, "Handoff - SSO delegation token tooling", root.Description)
	assert.NotNil(t, root.Subcommands)
	assert.NotNil(t, root.Flags)

	expectedCommands := []string{"mint", "inspect", "ping", "sweep"}
	for _, cmdName := range expectedCommands {
		assert.Contains(t, root.Subcommands, cmdName, "Expected subcommand %s to be registered", cmdName)
		assert.NotNil(t, root.Subcommands[cmdName].Flags, "Expected subcommand %s to have flags", cmdName)
	}
	assert.Equal(t, len(expectedCommands), len(root.Subcommands))
}

func TestCommandUsage(t *testing.T) {
	root := NewRootCommand()

	var err error
	output := captureStdout(t, func() { err = root.usage() })

	assert.NoError(t, err)
	assert.Contains(t, output, "Usage: handoff <command> [args]")
	assert.Contains(t, output, "Commands:")
	for _, name := range []string{"mint", "inspect", "ping", "sweep"} {
		assert.Contains(t, output, name)
	}
	assert.Less(t, bytes.Index([]byte(output), []byte("inspect")), bytes.Index([]byte(output), []byte("mint")),
		"commands should be listed alphabetically")
}

func TestCommandExecute_NoArgs(t *testing.T) {
	root := NewRootCommand()

	// Save and override os.Args
	oldArgs := os.Args
	os.Args = []string{"handoff"}
	defer func() { os.Args = oldArgs }()

	var err error
	output := captureStdout(t, func() { err = root.Execute() })

	assert.NoError(t, err)
	assert.Contains(t, output, "Usage: handoff <command> [args]")
}

func TestCommandExecute_HelpFlag(t *testing.T) {
	root := NewRootCommand()

	testCases := []struct {
		name     string
		helpFlag string
	}{
		{"lowercase -h", "-h"},
		{"uppercase -H", "-H"},
		{"lowercase --help", "--help"},
		{"uppercase --HELP", "--HELP"},
		{"mixed case --Help", "--Help"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			output := captureStdout(t, func() { err = root.ExecuteArgs([]string{tc.helpFlag}) })

			assert.NoError(t, err)
			assert.Contains(t, output, "Usage: handoff <command> [args]")
		})
	}
}

func TestCommandExecute_ValidSubcommand(t *testing.T) {
	root := NewRootCommand()

	mockCalled := false
	root.Subcommands["test"] = &Command{
		Name:        "test",
		Description: "Test command",
		Run: func(args []string) error {
			mockCalled = true
			return nil
		},
	}

	// Save and override os.Args
	oldArgs := os.Args
	os.Args = []string{"handoff", "test"}
	defer func() { os.Args = oldArgs }()

	err := root.Execute()

	assert.NoError(t, err)
	assert.True(t, mockCalled, "Expected mock subcommand to be called")
}

func TestCommandExecute_UnknownCommand(t *testing.T) {
	root := NewRootCommand()

	err := root.ExecuteArgs([]string{"nonexistent"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: nonexistent")
}

func TestCommandExecute_SubcommandWithArgs(t *testing.T) {
	root := NewRootCommand()

	var receivedArgs []string
	root.Subcommands["test"] = &Command{
		Name:        "test",
		Description: "Test command",
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}

	err := root.ExecuteArgs([]string{"test", "arg1", "arg2", "-flag"})

	assert.NoError(t, err)
	require.Equal(t, []string{"arg1", "arg2", "-flag"}, receivedArgs)
}
