package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	slidesync "github.com/alnah/go-slidesync"
	"github.com/alnah/go-slidesync/internal/config"
	"github.com/alnah/go-slidesync/internal/diagram"
	"github.com/alnah/go-slidesync/internal/hints"
	"github.com/alnah/go-slidesync/internal/pipeline"
	"github.com/alnah/go-slidesync/internal/resolve"
)

// session is everything a command needs to work on one deck.
type session struct {
	cfg      *config.Config
	log      *logrus.Logger
	path     string
	files    *resolve.FS
	proc     *pipeline.Processor
	compiler *slidesync.GoldmarkCompiler
}

func newLogger(f commonFlags, env *Environment) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(env.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case f.verbose:
		log.SetLevel(logrus.DebugLevel)
	case f.quiet:
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// newSession loads the config and wires the pipeline for the deck at path.
func newSession(args []string, f commonFlags, env *Environment) (*session, error) {
	path, err := inputPath(args)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadMarkdown, err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrReadMarkdown, path)
	}

	cfg, err := config.Load(f.config, env.Getenv)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(config.SearchPaths()))
		}
		return nil, err
	}

	log := newLogger(f, env)
	vault := cfg.Vault
	if vault == "" {
		vault = filepath.Dir(abs)
	}
	files, err := resolve.New(vault, resolve.WithLogger(log))
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithEmbedCache(resolve.NewNoteEmbeds(files, pipeline.NewGoldmarkConverter())),
		pipeline.WithConcurrency(cfg.Preview.Concurrency),
		pipeline.WithLogger(log),
	}
	if cfg.Diagram.Enabled {
		opts = append(opts,
			pipeline.WithRasterizer(diagram.NewCLIRasterizer(cfg.Diagram.Command,
				diagram.WithDir(filepath.Dir(abs)),
				diagram.WithLogger(log),
			)),
			pipeline.WithDiagramLanguages(cfg.Diagram.Languages...),
		)
	}

	compiler, err := slidesync.NewGoldmarkCompiler(slidesync.WithThemeDir(cfg.Theme.Dir))
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		log:      log,
		path:     abs,
		files:    files,
		proc:     pipeline.NewProcessor(files, opts...),
		compiler: compiler,
	}, nil
}

// load reads the deck into a fresh document.
func (s *session) load(ctx context.Context, reg *slidesync.Registry) (*slidesync.Document, error) {
	data, err := os.ReadFile(s.path) // #nosec G304 -- the file the user named
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	doc := reg.Open(s.path)
	if _, err := doc.Update(ctx, string(data)); err != nil {
		return nil, err
	}
	return doc, nil
}
