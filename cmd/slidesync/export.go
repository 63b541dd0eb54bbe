package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	slidesync "github.com/alnah/go-slidesync"
	"github.com/alnah/go-slidesync/internal/config"
	"github.com/alnah/go-slidesync/internal/diagram"
	"github.com/alnah/go-slidesync/internal/hints"
)

func runExport(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseExportFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	s, err := newSession(positional, flags.common, env)
	if err != nil {
		return err
	}

	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	doc, err := s.load(ctx, slidesync.NewRegistry(slidesync.WithLogger(s.log)))
	if err != nil {
		return err
	}

	backend, err := newBackend(flags.backend, flags.timeout, s)
	if err != nil {
		return err
	}
	if c, ok := backend.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	exp := slidesync.NewExporter(s.proc, backend,
		slidesync.WithConcurrency(s.cfg.Preview.Concurrency),
		slidesync.WithLogger(s.log),
	)
	progress := func(percent int, message string) {
		if !flags.common.quiet {
			fmt.Fprintf(env.Stderr, "[%3d%%] %s\n", percent, message)
		}
	}

	pdf, err := exp.Export(ctx, doc.Pages(), progress)
	if err != nil {
		return withExportHint(err, s.cfg, flags.timeout)
	}

	out := flags.output
	if out == "" {
		out = strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".pdf"
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil { // #nosec G306 -- PDFs are meant to be shared
		return fmt.Errorf("%w: %w%s", ErrWritePDF, err, hints.ForOutputDirectory())
	}
	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "wrote %s\n", out)
	}
	return nil
}

// newBackend builds the export backend named by flag or config.
func newBackend(name string, timeout time.Duration, s *session) (slidesync.Backend, error) {
	if name == "" {
		name = s.cfg.Export.Backend
	}
	switch strings.ToLower(name) {
	case "", config.BackendMarp:
		workDir := s.cfg.Export.WorkDir
		if workDir == "" {
			workDir = filepath.Dir(s.path)
		}
		return slidesync.NewMarpBackend(s.cfg.Export.Command, workDir, slidesync.WithLogger(s.log)), nil
	case config.BackendChrome:
		opts := []slidesync.Option{slidesync.WithLogger(s.log)}
		if timeout > 0 {
			opts = append(opts, slidesync.WithTimeout(timeout))
		}
		return slidesync.NewChromeBackend(s.compiler, filepath.Dir(s.path), opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q (must be marp or chrome)", slidesync.ErrUnknownBackend, name)
	}
}

func withExportHint(err error, cfg *config.Config, timeout time.Duration) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) && timeout > 0:
		return fmt.Errorf("%w%s", err, hints.ForTimeout())
	case errors.Is(err, slidesync.ErrBrowserConnect):
		return fmt.Errorf("%w%s", err, hints.ForBrowserConnect())
	case errors.Is(err, slidesync.ErrExportFailed) && len(cfg.Export.Command) > 0:
		return fmt.Errorf("%w%s", err, hints.ForExportCommand(cfg.Export.Command[0]))
	case errors.Is(err, diagram.ErrRender):
		return fmt.Errorf("%w%s", err, hints.ForDiagramCommand())
	}
	return err
}
