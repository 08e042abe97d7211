package toolchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// touch creates an empty file and returns its path.
func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	return p
}

func validConfig(t *testing.T) Config {
	dir := t.TempDir()
	return Config{
		PythonSH:        touch(t, dir, "pythonsh"),
		PrepareReceptor: touch(t, dir, "prepare_receptor4.py"),
		PrepareLigand:   touch(t, dir, "prepare_ligand4.py"),
		PrepareGPF:      touch(t, dir, "prepare_gpf4.py"),
		AutoGrid:        touch(t, dir, "autogrid4"),
		AD4Parameters:   touch(t, dir, "AD4_parameters.dat"),
		AutoDockGPU:     touch(t, dir, "autodock_gpu_128wi"),
		OpenBabel:       touch(t, dir, "obabel"),
		FLDCutoffLine:   23,
	}
}

func TestValidateAllPathsPresent(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestValidateMissingPathIsFatal(t *testing.T) {
	cfg := validConfig(t)
	cfg.AutoGrid = filepath.Join(t.TempDir(), "does-not-exist")

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolchainMissing))
	assert.Contains(t, err.Error(), "autogrid")
}

func TestValidateReportsAllMissingAtOnce(t *testing.T) {
	cfg := validConfig(t)
	cfg.OpenBabel = ""
	cfg.AutoDockGPU = "/nonexistent/autodock_gpu"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obabel")
	assert.Contains(t, err.Error(), "autodock_gpu")
}

func TestValidateRejectsNonPositiveCutoff(t *testing.T) {
	cfg := validConfig(t)
	cfg.FLDCutoffLine = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolchainInvalid))
}
