package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	slidesync "github.com/alnah/go-slidesync"
	"github.com/alnah/go-slidesync/internal/assets"
	"github.com/alnah/go-slidesync/internal/hints"
	"github.com/alnah/go-slidesync/internal/server"
	"github.com/alnah/go-slidesync/internal/watch"
)

const shutdownTimeout = 5 * time.Second

func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	s, err := newSession(positional, flags.common, env)
	if err != nil {
		return err
	}

	reg := slidesync.NewRegistry(slidesync.WithLogger(s.log))
	doc, err := s.load(ctx, reg)
	if err != nil {
		return err
	}
	defer reg.Close(s.path)

	renderer := slidesync.NewRenderer(doc, s.proc, s.compiler,
		slidesync.WithConcurrency(s.cfg.Preview.Concurrency),
		slidesync.WithLogger(s.log),
		slidesync.WithImageRewriter(func(ref string) (string, bool) {
			p, err := s.files.ResolveForPreview(ctx, ref, s.path)
			return p, err == nil
		}),
	)
	defer renderer.Close()

	loader, err := assets.NewAssetResolver(s.cfg.Theme.Dir)
	if err != nil {
		return err
	}
	srv := server.New(doc, renderer, s.files,
		server.WithLogger(s.log),
		server.WithAssets(loader),
	)
	defer srv.Close()

	watcher, err := watch.New(s.path, doc, watch.WithLogger(s.log))
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	addr := flags.addr
	if addr == "" {
		addr = s.cfg.Preview.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w%s", addr, err, hints.ForAddrInUse())
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "serving %s at http://%s/\n", s.path, ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	// A signal ends the server normally.
	return g.Wait()
}
