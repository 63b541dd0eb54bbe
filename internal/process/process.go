// Package process runs external tools in their own process group so that a
// canceled context takes down every child they spawned.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// ErrEmptyCommand is returned when no program is given.
var ErrEmptyCommand = errors.New("empty command")

// WaitDelay bounds how long Run waits for output pipes after a kill.
const WaitDelay = 2 * time.Second

// Result holds the captured streams of a finished command.
type Result struct {
	Stdout []byte
	Stderr []byte
	Code   int
}

// Run executes argv with stdin and captures its output. A non-zero exit is
// reported in Result.Code with a nil error; err is set only when the command
// could not run or ctx ended first.
func Run(ctx context.Context, dir string, stdin io.Reader, argv ...string) (Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Result{}, ErrEmptyCommand
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 -- command comes from configuration
	cmd.Dir = dir
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = WaitDelay
	Isolate(cmd)
	cmd.Cancel = func() error {
		KillGroup(cmd.Process.Pid)
		return nil
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Code = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("running %s: %w", argv[0], err)
	}
	return res, nil
}
