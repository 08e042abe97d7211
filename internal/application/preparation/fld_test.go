package preparation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

func TestRewriteFieldFileTruncatesAndSubstitutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3eqa.maps.fld")
	var raw strings.Builder
	for i := 1; i <= 30; i++ {
		raw.WriteString("line\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(raw.String()), 0o644))

	require.NoError(t, RewriteFieldFile(path, "3eqa", 23))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")

	trailerLines := strings.Count(fldTrailer, "\n")
	assert.Len(t, lines, 23+trailerLines)
	assert.Contains(t, body, "variable 1 file=3eqa.A.map filetype=ascii skip=6")
	assert.Contains(t, body, "file=3eqa.d.map")
	assert.NotContains(t, body, receptorToken)
}

func TestRewriteFieldFileShortInputKeptWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.maps.fld")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	require.NoError(t, RewriteFieldFile(path, "r", 23))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "one\ntwo\n"))
	assert.Contains(t, string(data), "file=r.e.map")
}

func TestRewriteFieldFileMissing(t *testing.T) {
	err := RewriteFieldFile(filepath.Join(t.TempDir(), "nope.fld"), "r", 23)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFieldFileMissing))
}
