package slidesync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-slidesync/internal/pages"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// Share of the progress range spent processing pages. The backend gets the
// rest.
const prepareShare = 30

// ProgressFunc receives export progress as a percentage and a short message.
// Percentages never decrease within one export.
type ProgressFunc func(percent int, message string)

// Backend turns deck markdown into PDF bytes.
type Backend interface {
	Render(ctx context.Context, markdown string, progress ProgressFunc) ([]byte, error)
}

// Exporter processes every page for export and hands the deck to a Backend.
type Exporter struct {
	proc    Processor
	backend Backend
	limit   int
	log     logrus.FieldLogger
}

// NewExporter creates an Exporter.
func NewExporter(proc Processor, backend Backend, opts ...Option) *Exporter {
	s := newSettings(opts)
	return &Exporter{
		proc:    proc,
		backend: backend,
		limit:   s.limit,
		log:     s.log,
	}
}

// Prepare processes list in export mode and joins the pages into one deck.
func (e *Exporter) Prepare(ctx context.Context, list pages.List) (string, error) {
	return e.prepare(ctx, list, nil)
}

// Export processes list and renders it with the backend. progress may be nil.
func (e *Exporter) Export(ctx context.Context, list pages.List, progress ProgressFunc) ([]byte, error) {
	p := &reporter{fn: progress}
	p.report(0, "processing pages")

	markdown, err := e.prepare(ctx, list, p.scaled(0, prepareShare))
	if err != nil {
		return nil, err
	}

	pdf, err := e.backend.Render(ctx, markdown, p.scaled(prepareShare, 100))
	if err != nil {
		return nil, err
	}
	p.report(100, "done")
	e.log.WithFields(logrus.Fields{"pages": len(list), "bytes": len(pdf)}).Info("deck exported")
	return pdf, nil
}

func (e *Exporter) prepare(ctx context.Context, list pages.List, progress ProgressFunc) (string, error) {
	if len(list) == 0 {
		return "", ErrNoPages
	}

	results := make([]string, len(list))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, rec := range list {
		g.Go(func() error {
			md, err := e.proc.Process(gctx, rec, pipeline.Export)
			if err != nil {
				return fmt.Errorf("page %d: %w", rec.Page, err)
			}
			results[i] = md

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			if progress != nil {
				progress(n*100/len(list), fmt.Sprintf("processed page %d of %d", n, len(list)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(results, pageJoin), nil
}

// reporter keeps progress monotonic and serializes calls to fn.
type reporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func (r *reporter) report(percent int, message string) {
	if r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	percent = min(max(percent, r.last), 100)
	r.last = percent
	r.fn(percent, message)
}

// scaled maps 0..100 onto from..to.
func (r *reporter) scaled(from, to int) ProgressFunc {
	return func(percent int, message string) {
		percent = min(max(percent, 0), 100)
		r.report(from+percent*(to-from)/100, message)
	}
}
