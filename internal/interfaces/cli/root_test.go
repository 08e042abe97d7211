package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: localhost
  user: plasmodock
log:
  level: error
  format: console
`), 0o644))
	return path
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "prepare")
	assert.Contains(t, names, "process")
	assert.Contains(t, names, "enqueue")
	assert.Contains(t, names, "migrate")
}

func TestInitContextLoadsConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())
	opts := &RootOptions{ConfigPath: writeTestConfig(t), LogLevel: "debug"}

	require.NoError(t, initContext(cmd, opts))

	cliCtx := getCLIContext(cmd)
	require.NotNil(t, cliCtx)
	assert.Equal(t, "plasmodock", cliCtx.Config.Database.DBName)
	// The flag override wins over the file's level.
	assert.Equal(t, "debug", cliCtx.Config.Log.Level)
	assert.NotNil(t, cliCtx.Logger)
}

func TestInitContextMissingConfigFile(t *testing.T) {
	cmd := NewRootCommand()
	err := initContext(cmd, &RootOptions{ConfigPath: "/nonexistent/config.yaml"})
	assert.Error(t, err)
}

func TestPrepareCommandRequiresFlags(t *testing.T) {
	cmd := newPrepareCommand()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.Error(t, err)
}
