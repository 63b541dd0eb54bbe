package slidesync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-slidesync/internal/cursor"
	"github.com/alnah/go-slidesync/internal/pages"
)

// EditorUpdate describes one editor event. DocChanged events carry the whole
// new Text. Selection events carry the caret Offset.
type EditorUpdate struct {
	DocChanged      bool
	FocusChanged    bool
	ViewportChanged bool
	Text            string
	Offset          int
}

// Editor is the editor side of a document's page sync.
type Editor interface {
	// SetCursor moves the caret to offset and scrolls it into view.
	SetCursor(ctx context.Context, offset int)
}

// Document is the state of one open markdown file: its stored pages, the
// shared page cursor and the editor-side segmentation.
// Use Registry.Open to get one.
type Document struct {
	id    string
	log   logrus.FieldLogger
	store *pages.Store
	sync  *cursor.Channel
	guard cursor.Guard

	// writeMu serializes Update so store notifications arrive in edit order.
	writeMu sync.Mutex

	mu      sync.Mutex
	text    string
	fresh   pages.List
	loaded  bool
	closed  bool
	detach  map[int]func()
	nextSub int
}

func newDocument(id string, opts ...Option) *Document {
	s := newSettings(opts)
	return &Document{
		id:     id,
		log:    s.log.WithField("document", id),
		store:  pages.NewStore(),
		sync:   cursor.NewChannel(),
		detach: make(map[int]func()),
	}
}

// ID returns the document's identity, the absolute path of its file.
func (d *Document) ID() string { return d.id }

// Store returns the document's page store.
func (d *Document) Store() *pages.Store { return d.store }

// Sync returns the document's page cursor.
func (d *Document) Sync() *cursor.Channel { return d.sync }

// Pages returns the stored page list.
func (d *Document) Pages() pages.List { return d.store.Current() }

// Text returns the last text passed to Update.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Update segments text and reconciles the store with it. The first update
// and any update that changes the page count replace every page. Otherwise
// only pages whose content changed are merged, and the remaining offsets are
// realigned to the new text.
func (d *Document) Update(ctx context.Context, text string) (pages.Change, error) {
	if err := ctx.Err(); err != nil {
		return pages.Change{}, err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	fresh := pages.Segment(text, d.id)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return pages.Change{}, fmt.Errorf("%w: %s", ErrDocumentClosed, d.id)
	}
	old, first := d.fresh, !d.loaded
	d.text, d.fresh, d.loaded = text, fresh, true
	d.mu.Unlock()

	if first {
		d.store.ReplaceAll(fresh)
		d.log.WithField("pages", len(fresh)).Debug("pages loaded")
		return pages.Change{Invalidate: true, Pages: fresh.Clone()}, nil
	}

	change := pages.Diff(old, fresh)
	switch {
	case change.Invalidate:
		d.store.ReplaceAll(fresh)
		d.log.WithFields(logrus.Fields{"from": len(old), "to": len(fresh)}).Debug("page count changed")
	case len(change.Pages) > 0:
		d.store.MergePartial(change.Pages)
		d.store.Realign(fresh)
		d.log.WithField("changed", len(change.Pages)).Debug("pages merged")
	default:
		d.store.Realign(fresh)
	}
	return change, nil
}

// HandleEditorUpdate routes an editor event. Events raised while the
// document moves the editor caret itself are ignored. Text changes go to
// Update. Pure selection changes move the page cursor to the page holding
// the caret.
func (d *Document) HandleEditorUpdate(ctx context.Context, u EditorUpdate) error {
	if d.guard.Active() {
		return nil
	}
	if u.DocChanged {
		_, err := d.Update(ctx, u.Text)
		return err
	}
	if u.FocusChanged || u.ViewportChanged {
		return nil
	}

	d.mu.Lock()
	list := d.fresh
	d.mu.Unlock()

	rec, ok := list.Locate(u.Offset)
	if !ok {
		return nil
	}
	d.sync.Emit(ctx, cursor.State{Page: rec.Page, SetBy: cursor.OriginEditor})
	return nil
}

// ShowPage moves the page cursor on behalf of the preview. It reports false
// when the move was suppressed because ctx comes from a cursor delivery.
// A document without pages only accepts page 0, its initial page.
func (d *Document) ShowPage(ctx context.Context, page int) (bool, error) {
	if n := d.store.Len(); page < 0 || page >= max(n, 1) {
		return false, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, n)
	}
	emitted := d.sync.Emit(ctx, cursor.State{Page: page, SetBy: cursor.OriginPreview})
	if !emitted {
		d.log.WithField("page", page).Debug("page change suppressed")
	}
	return emitted, nil
}

// AttachEditor subscribes ed to page changes made by the preview. The caret
// lands on the first line of the page. The returned function detaches ed.
func (d *Document) AttachEditor(ed Editor) (detach func()) {
	unsubscribe := d.sync.Subscribe(cursor.OriginEditor, func(ctx context.Context, s cursor.State) {
		offset, ok := d.pageOffset(s.Page)
		if !ok {
			return
		}
		d.guard.Do(func() { ed.SetCursor(ctx, offset) })
	})

	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.detach[id] = unsubscribe
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.detach, id)
		d.mu.Unlock()
		unsubscribe()
	}
}

// pageOffset returns the caret position for page: 0 for the first page,
// otherwise the start of the line after its separator.
func (d *Document) pageOffset(page int) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if page < 0 || page >= len(d.fresh) {
		return 0, false
	}
	if page == 0 {
		return 0, true
	}
	return nextLineStart(d.text, d.fresh[page].Start), true
}

func nextLineStart(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	i := strings.IndexByte(text[pos:], '\n')
	if i < 0 {
		return len(text)
	}
	return pos + i + 1
}

func (d *Document) close() {
	d.mu.Lock()
	d.closed = true
	detach := d.detach
	d.detach = make(map[int]func())
	d.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
}
