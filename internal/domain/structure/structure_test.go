package structure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// pdbLine builds a fixed-column ATOM record with the given coordinates.
func pdbLine(record string, x, y, z string) string {
	line := record
	for len(line) < 30 {
		line += " "
	}
	pad := func(s string) string {
		for len(s) < 8 {
			s = " " + s
		}
		return s
	}
	return line + pad(x) + pad(y) + pad(z)
}

func writePDB(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lig.pdb")
	body := ""
	for _, l := range lines {
		body += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCentroidAveragesAtomRecords(t *testing.T) {
	path := writePDB(t,
		"REMARK generated",
		pdbLine("ATOM", "1.000", "2.000", "3.000"),
		pdbLine("HETATM", "3.000", "4.000", "5.000"),
		"TER",
	)
	c, ok, err := Centroid(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.0, c.X, 1e-9)
	assert.InDelta(t, 3.0, c.Y, 1e-9)
	assert.InDelta(t, 4.0, c.Z, 1e-9)
}

func TestCentroidSkipsMalformedRecords(t *testing.T) {
	path := writePDB(t,
		"ATOM short line",
		pdbLine("ATOM", "abc", "2.000", "3.000"),
		pdbLine("ATOM", "6.000", "6.000", "6.000"),
	)
	c, ok, err := Centroid(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 6.0, c.X, 1e-9)
}

func TestCentroidNoAtoms(t *testing.T) {
	path := writePDB(t, "REMARK nothing here")
	_, ok, err := Centroid(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseSizeSeparators(t *testing.T) {
	for _, text := range []string{"60,60,40", "60 60 40", "60, 60,\t40", "60\n60\n40", "60\r\n60\r\n40"} {
		size, err := ParseSize(text)
		require.NoError(t, err, text)
		assert.Equal(t, [3]int{60, 60, 40}, size)
	}
}

func TestParseSizeRejectsBadInput(t *testing.T) {
	cases := []string{"60,60", "60,60,60,60", "60,x,60", "60,-2,60", "60,60.5,60", ""}
	for _, text := range cases {
		_, err := ParseSize(text)
		require.Error(t, err, text)
		assert.True(t, errors.IsCode(err, errors.ErrCodeGridInvalidSpec), text)
	}
}

func TestParseCenter(t *testing.T) {
	c, err := ParseCenter("1.5, -2.25, 10")
	require.NoError(t, err)
	assert.Equal(t, Point3{X: 1.5, Y: -2.25, Z: 10}, c)
}

func TestResolveGridExplicitCenter(t *testing.T) {
	g, err := ResolveGrid("60,60,60", "1.0,2.0,3.0", "")
	require.NoError(t, err)
	assert.Equal(t, "60 60 60", g.SizeSpec())
	assert.Equal(t, "1.000 2.000 3.000", g.CenterSpec())
}

func TestResolveGridCentroidFallback(t *testing.T) {
	lig := writePDB(t,
		pdbLine("ATOM", "2.000", "2.000", "2.000"),
		pdbLine("ATOM", "4.000", "4.000", "4.000"),
	)
	g, err := ResolveGrid("40 40 40", "", lig)
	require.NoError(t, err)
	assert.Equal(t, "3.000 3.000 3.000", g.CenterSpec())
}

func TestResolveGridMissingSize(t *testing.T) {
	_, err := ResolveGrid("", "1,2,3", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeGridNoSize))
}

func TestResolveGridNoCenterNoLigand(t *testing.T) {
	_, err := ResolveGrid("60,60,60", "", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeGridNoCenter))
}

func TestLocateFieldFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zzz.maps.fld"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.maps.fld"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.A.map"), nil, 0o644))

	path, err := LocateFieldFile(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc.maps.fld", filepath.Base(path))
}

func TestLocateFieldFileMissing(t *testing.T) {
	_, err := LocateFieldFile(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFieldFileMissing))
}

func TestResolveFieldFile(t *testing.T) {
	dir := t.TempDir()
	fld := filepath.Join(dir, "3eqa.maps.fld")
	require.NoError(t, os.WriteFile(fld, nil, 0o644))

	// Direct file reference.
	path, err := ResolveFieldFile(fld)
	require.NoError(t, err)
	assert.Equal(t, fld, path)

	// Directory reference resolves to the descriptor inside it.
	path, err = ResolveFieldFile(dir)
	require.NoError(t, err)
	assert.Equal(t, fld, path)

	_, err = ResolveFieldFile(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFieldFileMissing))
}

func TestResolveGridEmptyLigand(t *testing.T) {
	lig := writePDB(t, "REMARK empty")
	_, err := ResolveGrid("60,60,60", "", lig)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGridNoCenter))
}
