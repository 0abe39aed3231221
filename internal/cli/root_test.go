package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "chronotree", cmd.Use)
	assert.Contains(t, cmd.Long, "causal history")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"add", "merge", "show", "get", "heads", "simulate", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	defaults := map[string]string{
		"format":    "text",
		"backend":   "sqlite",
		"db":        "chronotree.db",
		"replica":   "main",
		"log-level": "warn",
	}
	for name, want := range defaults {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, want, flag.DefValue, name)
	}
}

func TestGlobalFlags_FromEnvironment(t *testing.T) {
	t.Setenv("CHRONOTREE_BACKEND", "memory")
	t.Setenv("CHRONOTREE_REPLICA", "phone")

	cmd := NewRootCommand()
	assert.Equal(t, "memory", cmd.PersistentFlags().Lookup("backend").DefValue)
	assert.Equal(t, "phone", cmd.PersistentFlags().Lookup("replica").DefValue)
}

func TestRootCommand_InvalidFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"format", []string{"--format", "xml", "heads"}, `invalid format "xml"`},
		{"backend", []string{"--backend", "postgres", "heads"}, `invalid backend "postgres"`},
		{"log level", []string{"--log-level", "loud", "--backend", "memory", "heads"}, `invalid log level "loud"`},
		{"empty db", []string{"--db", "", "heads"}, "needs a database path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRootCommand_InvalidEnvironment(t *testing.T) {
	t.Setenv("CHRONOTREE_FORMAT", "yaml")

	_, err := execute(t, "heads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSubcommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		command string
		flag    string
		def     string
	}{
		{"add", "parent", ""},
		{"add", "payload", "{}"},
		{"show", "dump", "false"},
		{"simulate", "seed", "1"},
		{"simulate", "rounds", "100"},
		{"simulate", "replicas", "3"},
		{"simulate", "mode", "random"},
		{"test", "update", "false"},
		{"test", "filter", ""},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			flag := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.def, flag.DefValue)
		})
	}
}
