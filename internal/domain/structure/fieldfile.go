package structure

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// LocateFieldFile finds the combined *.maps.fld descriptor inside dir.
// With several candidates the lexicographically first wins, keeping
// repeated runs deterministic.
func LocateFieldFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.maps.fld"))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "scanning for field descriptor")
	}
	if len(matches) == 0 {
		return "", errors.Newf(errors.ErrCodeFieldFileMissing,
			"no *.maps.fld descriptor in %s", dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// ResolveFieldFile turns a stored field-descriptor reference into a
// concrete file path.  Receptor records may point either at the
// descriptor itself or at the directory holding it.
func ResolveFieldFile(ref string) (string, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return "", errors.Newf(errors.ErrCodeFieldFileMissing,
			"field descriptor %s does not exist", ref)
	}
	if info.IsDir() {
		return LocateFieldFile(ref)
	}
	return ref, nil
}
