// Package toolexec runs the external command-line tools the docking
// pipelines depend on.  It is the only place in the engine that spawns
// processes; callers receive a classified error (execution failure vs
// timeout) and own any retry policy themselves.
package toolexec

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// logPreviewLen bounds how much captured output is echoed into the log.
const logPreviewLen = 300

// Command describes one external tool invocation.
type Command struct {
	// Path is the absolute path of the executable.
	Path string

	// Args are the command arguments, excluding the executable itself.
	Args []string

	// Dir is the working directory the process runs in.
	Dir string

	// Timeout bounds the invocation; the process is killed when exceeded.
	Timeout time.Duration

	// Tag identifies the invocation in log output, e.g. "autogrid_3".
	Tag string
}

// Output carries the captured streams of a completed invocation.
type Output struct {
	Stdout string
	Stderr string
}

// Runner executes external commands.  The single-method interface keeps
// pipeline code mockable in tests.
type Runner interface {
	// Run blocks until the command completes, fails, or times out.
	// A non-zero exit code or timeout always fails; stderr content alone
	// never does.  No retries happen at this layer.
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner is the os/exec-backed Runner used in production.
type ExecRunner struct {
	logger logging.Logger
}

// NewExecRunner constructs an ExecRunner.
func NewExecRunner(logger logging.Logger) *ExecRunner {
	return &ExecRunner{logger: logger.Named("toolexec")}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	r.logger.Info("executing tool",
		logging.String("tag", cmd.Tag),
		logging.String("cmd", cmd.Path+" "+strings.Join(cmd.Args, " ")),
		logging.String("dir", cmd.Dir),
	)

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	start := time.Now()
	err := proc.Run()
	elapsed := time.Since(start)

	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		r.logger.Error("tool timed out",
			logging.String("tag", cmd.Tag),
			logging.Duration("elapsed", elapsed),
		)
		return out, errors.Newf(errors.ErrCodeToolTimeout,
			"%s timed out after %s", cmd.Tag, elapsed.Round(time.Second))
	}

	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		r.logger.Error("tool failed",
			logging.String("tag", cmd.Tag),
			logging.Int("exit_code", exitCode),
			logging.Duration("elapsed", elapsed),
			logging.String("stderr", preview(out.Stderr)),
		)
		return out, errors.Wrap(err, errors.ErrCodeToolExecFailed,
			cmd.Tag+" failed").WithDetail("exit code " + strconv.Itoa(exitCode))
	}

	if s := strings.TrimSpace(out.Stderr); s != "" {
		// Many of the MGLTools scripts write warnings to stderr on success.
		r.logger.Warn("tool wrote to stderr",
			logging.String("tag", cmd.Tag),
			logging.String("stderr", preview(s)),
		)
	}
	r.logger.Debug("tool completed",
		logging.String("tag", cmd.Tag),
		logging.Duration("elapsed", elapsed),
		logging.String("stdout", preview(out.Stdout)),
	)
	return out, nil
}

func preview(s string) string {
	if len(s) > logPreviewLen {
		return s[:logPreviewLen] + "..."
	}
	return s
}
