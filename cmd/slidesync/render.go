package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	slidesync "github.com/alnah/go-slidesync"
	"github.com/alnah/go-slidesync/internal/pages"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// pageJoin matches the separator the library puts between pages.
const pageJoin = "\n---\n"

func runRender(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	mode, err := parseMode(flags.mode)
	if err != nil {
		return err
	}
	s, err := newSession(positional, flags.common, env)
	if err != nil {
		return err
	}
	doc, err := s.load(ctx, slidesync.NewRegistry(slidesync.WithLogger(s.log)))
	if err != nil {
		return err
	}

	list := doc.Pages()
	if flags.page >= 0 {
		if flags.page >= len(list) {
			return fmt.Errorf("%w: %w: page %d of %d", ErrUsage, slidesync.ErrPageOutOfRange, flags.page, len(list))
		}
		list = pages.List{list[flags.page]}
	}

	parts := make([]string, len(list))
	for i, rec := range list {
		out, err := s.proc.Process(ctx, rec, mode)
		if err != nil {
			return err
		}
		parts[i] = out
	}
	markdown := strings.Join(parts, pageJoin)

	if !flags.html {
		_, err := fmt.Fprint(env.Stdout, markdown)
		return err
	}

	slides, err := s.compiler.Compile(ctx, markdown)
	if err != nil {
		return err
	}
	title := slides.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	}
	css := &pipeline.CSSInjection{}
	_, err = fmt.Fprint(env.Stdout, css.InjectCSS(ctx, pipeline.Standalone(title, slides.Markup), slides.Stylesheet))
	return err
}

func parseMode(s string) (pipeline.Mode, error) {
	switch strings.ToLower(s) {
	case "", "preview":
		return pipeline.Preview, nil
	case "export":
		return pipeline.Export, nil
	default:
		return 0, fmt.Errorf("%w: mode %q (must be preview or export)", ErrUsage, s)
	}
}
