package slidesync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-slidesync/internal/fileutil"
	"github.com/alnah/go-slidesync/internal/process"
)

// MarpBackend renders decks with an external marp command. The deck is
// written to a temporary .md file whose path is appended to the command;
// the PDF is read from the command's stdout.
type MarpBackend struct {
	command []string
	workDir string
	log     logrus.FieldLogger
}

// NewMarpBackend creates a backend running command. Temporary files and the
// command itself live in workDir so relative references resolve against it.
func NewMarpBackend(command []string, workDir string, opts ...Option) *MarpBackend {
	s := newSettings(opts)
	return &MarpBackend{
		command: append([]string(nil), command...),
		workDir: workDir,
		log:     s.log,
	}
}

// Render implements Backend.
func (b *MarpBackend) Render(ctx context.Context, markdown string, progress ProgressFunc) ([]byte, error) {
	if len(b.command) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, process.ErrEmptyCommand)
	}
	report(progress, 0, "writing deck")

	path, cleanup, err := fileutil.WriteTempFile(b.workDir, markdown, "md")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	defer cleanup()

	report(progress, 10, "running "+b.command[0])
	argv := append(append([]string(nil), b.command...), path)
	b.log.WithField("command", argv).Debug("running export command")

	res, err := process.Run(ctx, b.workDir, nil, argv...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	if res.Code != 0 {
		return nil, &ExitError{Code: res.Code, Stderr: string(res.Stderr)}
	}
	if len(res.Stdout) == 0 {
		return nil, fmt.Errorf("%w: %s produced no output", ErrExportFailed, b.command[0])
	}

	report(progress, 100, "PDF written")
	return res.Stdout, nil
}

func report(progress ProgressFunc, percent int, message string) {
	if progress != nil {
		progress(percent, message)
	}
}

var _ Backend = (*MarpBackend)(nil)
