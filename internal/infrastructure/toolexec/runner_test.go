package toolexec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

func newTestRunner() *ExecRunner {
	return NewExecRunner(logging.NewNopLogger())
}

func TestRunCapturesStdout(t *testing.T) {
	out, err := newTestRunner().Run(context.Background(), Command{
		Path: "/bin/sh",
		Args: []string{"-c", "echo hello"},
		Tag:  "echo",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.Stdout)
	assert.Empty(t, out.Stderr)
}

func TestRunStderrAloneDoesNotFail(t *testing.T) {
	out, err := newTestRunner().Run(context.Background(), Command{
		Path: "/bin/sh",
		Args: []string{"-c", "echo warning >&2; echo body"},
		Tag:  "warn",
	})
	require.NoError(t, err)
	assert.Equal(t, "body\n", out.Stdout)
	assert.Equal(t, "warning\n", out.Stderr)
}

func TestRunNonZeroExitFails(t *testing.T) {
	out, err := newTestRunner().Run(context.Background(), Command{
		Path: "/bin/sh",
		Args: []string{"-c", "echo boom >&2; exit 3"},
		Tag:  "boom",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolExecFailed))
	assert.Contains(t, errors.GetAppError(err).Detail, "exit code 3")
	// Output captured up to the failure is still returned.
	assert.Equal(t, "boom\n", out.Stderr)
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	_, err := newTestRunner().Run(context.Background(), Command{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
		Tag:     "sleepy",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolTimeout))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunTimeoutIsRetryable(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), Command{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
		Tag:     "sleepy",
	})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestRunHonoursWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	out, err := newTestRunner().Run(context.Background(), Command{
		Path: "/bin/sh",
		Args: []string{"-c", "pwd"},
		Dir:  dir,
		Tag:  "pwd",
	})
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(out.Stdout))
}

func TestRunMissingBinaryFails(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), Command{
		Path: "/nonexistent/bin/autogrid4",
		Tag:  "missing",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolExecFailed))
}
