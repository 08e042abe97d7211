// Package toolchain defines the immutable set of external executables and
// data files the docking pipelines shell out to.  A Config is constructed
// once per worker process, validated eagerly, and passed by parameter into
// every component that needs it; pipeline logic never reads global state.
package toolchain

import (
	"os"
	"sort"
	"strings"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Config holds absolute paths to the required external tools plus the one
// tunable integer of the preparation pipeline (the FLD truncation line).
// All path fields must point at existing files; Validate treats any missing
// path as a fatal deployment error.
type Config struct {
	// PythonSH is the MGLTools python interpreter wrapper that runs the
	// prepare_*.py scripts.
	PythonSH string `mapstructure:"pythonsh"`

	// PrepareReceptor is the prepare_receptor4.py script (PDB → PDBQT).
	PrepareReceptor string `mapstructure:"prepare_receptor"`

	// PrepareLigand is the prepare_ligand4.py script (PDB → PDBQT).
	PrepareLigand string `mapstructure:"prepare_ligand"`

	// PrepareGPF is the prepare_gpf4.py script that emits grid parameter
	// files for autogrid4.
	PrepareGPF string `mapstructure:"prepare_gpf"`

	// AutoGrid is the autogrid4 binary that computes grid maps.
	AutoGrid string `mapstructure:"autogrid"`

	// AD4Parameters is the AD4_parameters.dat force-field data file
	// referenced from every generated GPF.
	AD4Parameters string `mapstructure:"ad4_parameters"`

	// AutoDockGPU is the docking engine binary.
	AutoDockGPU string `mapstructure:"autodock_gpu"`

	// OpenBabel is the obabel binary used to split multi-ligand SDF input.
	OpenBabel string `mapstructure:"obabel"`

	// FLDCutoffLine is the number of leading lines kept when the combined
	// field descriptor is post-processed.
	FLDCutoffLine int `mapstructure:"fld_cutoff_line"`
}

// requiredPaths returns name→path for every file Validate must stat.
func (c Config) requiredPaths() map[string]string {
	return map[string]string{
		"pythonsh":         c.PythonSH,
		"prepare_receptor": c.PrepareReceptor,
		"prepare_ligand":   c.PrepareLigand,
		"prepare_gpf":      c.PrepareGPF,
		"autogrid":         c.AutoGrid,
		"ad4_parameters":   c.AD4Parameters,
		"autodock_gpu":     c.AutoDockGPU,
		"obabel":           c.OpenBabel,
	}
}

// Validate checks that every configured tool path exists on disk and that
// the cutoff line is positive.  The returned error lists all missing tools
// at once so a misconfigured deployment can be fixed in one pass.
func (c Config) Validate() error {
	var missing []string
	for name, path := range c.requiredPaths() {
		if path == "" {
			missing = append(missing, name+" (unset)")
			continue
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		// Deterministic message ordering for tests and log grepping.
		sort.Strings(missing)
		return errors.New(errors.ErrCodeToolchainMissing,
			"missing toolchain paths: "+strings.Join(missing, ", "))
	}
	if c.FLDCutoffLine <= 0 {
		return errors.Newf(errors.ErrCodeToolchainInvalid,
			"fld_cutoff_line must be positive, got %d", c.FLDCutoffLine)
	}
	return nil
}
