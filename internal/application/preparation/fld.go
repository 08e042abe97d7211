package preparation

import (
	"os"
	"strings"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// receptorToken is the placeholder the trailer template carries wherever
// the receptor's base name belongs.
const receptorToken = "{RECEPTOR}"

// fldTrailer replaces the per-partition map listing autogrid leaves in
// the combined field descriptor.  AutoDock-GPU reads the map files named
// here relative to the descriptor's own directory.
const fldTrailer = `label=A-affinity	# (4) atom-specific affinity map
label=C-affinity	# (5) atom-specific affinity map
label=HD-affinity	# (6) atom-specific affinity map
label=N-affinity	# (7) atom-specific affinity map
label=NA-affinity	# (8) atom-specific affinity map
label=OA-affinity	# (9) atom-specific affinity map
label=SA-affinity	# (10) atom-specific affinity map
label=Electrostatics	# (11) electrostatic potential map
label=Desolvation	# (12) desolvation potential map
#
# location of affinity grid files and how to read them
#
variable 1 file={RECEPTOR}.A.map filetype=ascii skip=6
variable 2 file={RECEPTOR}.C.map filetype=ascii skip=6
variable 3 file={RECEPTOR}.HD.map filetype=ascii skip=6
variable 4 file={RECEPTOR}.N.map filetype=ascii skip=6
variable 5 file={RECEPTOR}.NA.map filetype=ascii skip=6
variable 6 file={RECEPTOR}.OA.map filetype=ascii skip=6
variable 7 file={RECEPTOR}.SA.map filetype=ascii skip=6
variable 8 file={RECEPTOR}.e.map filetype=ascii skip=6
variable 9 file={RECEPTOR}.d.map filetype=ascii skip=6
`

// RewriteFieldFile turns autogrid's raw combined descriptor into the
// final one docking consumes: the leading cutoffLines lines are kept and
// the templated trailer is appended with receptorName substituted in.
// Files shorter than the cutoff are kept whole.  Rewriting is idempotent
// because the cutoff always lands before the generated trailer.
func RewriteFieldFile(path, receptorName string, cutoffLines int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFieldFileMissing, "reading field descriptor")
	}
	lines := strings.SplitAfter(string(data), "\n")
	// SplitAfter leaves a spurious empty tail when the file ends in \n.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) > cutoffLines {
		lines = lines[:cutoffLines]
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
	}
	if !strings.HasSuffix(sb.String(), "\n") && sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(strings.ReplaceAll(fldTrailer, receptorToken, receptorName))

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "writing field descriptor")
	}
	return nil
}
