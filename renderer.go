package slidesync

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-slidesync/internal/pages"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// pageJoin joins processed pages back into one deck.
const pageJoin = "\n---\n"

// Processor transforms one page's markdown.
type Processor interface {
	Process(ctx context.Context, rec pages.Record, mode pipeline.Mode) (string, error)
}

// Frame is one published preview of a document. Seq increases with every
// frame of a renderer.
type Frame struct {
	Slides
	Pages int
	Seq   uint64
}

type slot struct {
	markdown string
	ok       bool
	gen      uint64
}

type job struct {
	rec pages.Record
	gen uint64
}

// Renderer keeps a document's preview current. It caches the processed
// markdown of every page, re-processes only the pages each store update
// marks, and publishes a Frame once every page of the latest list has a
// result. Results for a page superseded by a later edit are dropped.
type Renderer struct {
	doc      *Document
	proc     Processor
	compiler Compiler
	rewrite  pipeline.SourceRewriter
	log      logrus.FieldLogger
	limit    int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// pubMu orders compile and publish.
	pubMu sync.Mutex

	mu        sync.Mutex
	slots     []slot
	epoch     uint64
	version   uint64 // bumped whenever the slot contents change
	published uint64 // version of the last published frame
	seq       uint64
	frame     Frame
	hasFrame  bool
	closed    bool
	listeners map[int]func(Frame)
	nextID    int

	unsubscribe func()
}

// NewRenderer starts rendering doc. A document that already has pages is
// rendered at once.
func NewRenderer(doc *Document, proc Processor, compiler Compiler, opts ...Option) *Renderer {
	s := newSettings(opts)
	ctx, cancel := context.WithCancel(context.Background())
	r := &Renderer{
		doc:       doc,
		proc:      proc,
		compiler:  compiler,
		rewrite:   s.rewrite,
		log:       s.log.WithField("document", doc.ID()),
		limit:     s.limit,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(Frame)),
	}
	r.unsubscribe = doc.Store().Subscribe(r.schedule)
	if list := doc.Store().Current(); len(list) > 0 {
		r.schedule(pages.Update{Full: true, Pages: list})
	}
	return r
}

// OnFrame registers fn for every future frame. fn runs on a render
// goroutine and must not block. The returned function removes it.
func (r *Renderer) OnFrame(fn func(Frame)) (remove func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Frame returns the latest published frame.
func (r *Renderer) Frame() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame, r.hasFrame
}

// Wait blocks until every scheduled render has finished.
func (r *Renderer) Wait() {
	r.wg.Wait()
}

// Close stops listening to the document and cancels in-flight renders.
func (r *Renderer) Close() {
	r.unsubscribe()

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

// schedule is the store subscriber. It marks the pages to process under a
// new generation and starts a render for them.
func (r *Renderer) schedule(u pages.Update) {
	list := u.Pages
	if !u.Full {
		list = r.doc.Store().Current()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if u.Full || len(r.slots) != len(list) {
		next := make([]slot, len(list))
		for i := range next {
			if i < len(r.slots) {
				next[i].gen = r.slots[i].gen
			}
		}
		r.slots = next
		r.version++
	}

	var jobs []job
	for _, rec := range list {
		if rec.Page < 0 || rec.Page >= len(r.slots) {
			continue
		}
		s := &r.slots[rec.Page]
		if !rec.IsUpdate && s.ok {
			continue
		}
		s.gen++
		jobs = append(jobs, job{rec: rec, gen: s.gen})
	}
	r.epoch++
	epoch := r.epoch
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"epoch": epoch, "pages": len(jobs)}).Debug("render scheduled")
	go r.render(epoch, jobs)
}

func (r *Renderer) render(epoch uint64, jobs []job) {
	defer r.wg.Done()

	g, ctx := errgroup.WithContext(r.ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, j := range jobs {
		g.Go(func() error {
			md, err := r.proc.Process(ctx, j.rec, pipeline.Preview)
			if err != nil {
				return err
			}
			r.store(j, md)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if r.ctx.Err() == nil {
			r.log.WithError(err).Warn("page render failed")
		}
		return
	}
	r.log.WithField("epoch", epoch).Debug("render finished")
	r.publish()
}

func (r *Renderer) store(j job, markdown string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page := j.rec.Page
	if page >= len(r.slots) || r.slots[page].gen != j.gen {
		r.log.WithField("page", page).Debug("stale page render dropped")
		return
	}
	r.slots[page].markdown = markdown
	r.slots[page].ok = true
	r.version++
}

// publish compiles the cache and hands the frame to listeners. It does
// nothing while a page is missing or when the slots have not changed since
// the last published frame, whichever render stored them.
func (r *Renderer) publish() {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	r.mu.Lock()
	version := r.version
	if r.hasFrame && version <= r.published {
		r.mu.Unlock()
		return
	}
	parts := make([]string, len(r.slots))
	for i, s := range r.slots {
		if !s.ok {
			r.mu.Unlock()
			return
		}
		parts[i] = s.markdown
	}
	r.mu.Unlock()

	slides, err := r.compiler.Compile(r.ctx, strings.Join(parts, pageJoin))
	if err != nil {
		if r.ctx.Err() == nil {
			r.log.WithError(err).Warn("compiling slides")
		}
		return
	}
	if r.rewrite != nil {
		markup, err := pipeline.RewriteImageSources(slides.Markup, r.rewrite)
		if err != nil {
			r.log.WithError(err).Warn("rewriting image sources")
		} else {
			slides.Markup = markup
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.published = version
	r.seq++
	frame := Frame{Slides: slides, Pages: len(parts), Seq: r.seq}
	r.frame, r.hasFrame = frame, true
	listeners := make([]func(Frame), 0, len(r.listeners))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"seq": frame.Seq, "pages": frame.Pages}).Debug("frame published")
	for _, fn := range listeners {
		fn(frame)
	}
}
