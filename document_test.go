package slidesync

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/alnah/go-slidesync/internal/cursor"
	"github.com/alnah/go-slidesync/internal/pages"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type updateLog struct {
	mu      sync.Mutex
	updates []pages.Update
}

func (l *updateLog) record(u pages.Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, u)
}

func (l *updateLog) all() []pages.Update {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]pages.Update(nil), l.updates...)
}

func openDoc(t *testing.T, text string) (*Document, *updateLog) {
	t.Helper()
	doc := NewRegistry().Open("deck.md")
	log := &updateLog{}
	t.Cleanup(doc.Store().Subscribe(log.record))
	if text != "" {
		if _, err := doc.Update(context.Background(), text); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	return doc, log
}

// ---------------------------------------------------------------------------
// TestDocument_Update
// ---------------------------------------------------------------------------

func TestDocument_Update(t *testing.T) {
	t.Parallel()

	const initial = "# A\n---\n# B\n"

	tests := []struct {
		name        string
		next        string
		invalidate  bool
		notified    []int // pages in the second notification, nil = none
		full        bool
		secondStart int
	}{
		{
			name:        "one page edited",
			next:        "# A\n---\n# B changed\n",
			notified:    []int{1},
			secondStart: 7,
		},
		{
			name:        "first page grows",
			next:        "# A longer\n---\n# B\n",
			notified:    []int{0},
			secondStart: 14,
		},
		{
			name:        "page added",
			next:        "# A\n---\n# B\n---\n# C\n",
			invalidate:  true,
			notified:    []int{0, 1, 2},
			full:        true,
			secondStart: 7,
		},
		{
			name:        "separator widened",
			next:        "# A\n-----\n# B\n",
			secondStart: 9,
		},
		{
			name:        "unchanged",
			next:        initial,
			secondStart: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, log := openDoc(t, initial)

			change, err := doc.Update(context.Background(), tt.next)
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if change.Invalidate != tt.invalidate {
				t.Errorf("Invalidate = %v, want %v", change.Invalidate, tt.invalidate)
			}

			updates := log.all()
			if tt.notified == nil {
				if len(updates) != 1 {
					t.Errorf("got %d notifications, want only the initial one", len(updates))
				}
			} else {
				if len(updates) != 2 {
					t.Fatalf("got %d notifications, want 2", len(updates))
				}
				u := updates[1]
				if u.Full != tt.full {
					t.Errorf("Full = %v, want %v", u.Full, tt.full)
				}
				var got []int
				for _, r := range u.Pages {
					got = append(got, r.Page)
				}
				if !slices.Equal(got, tt.notified) {
					t.Errorf("notified pages = %v, want %v", got, tt.notified)
				}
			}

			stored := doc.Pages()
			fresh := pages.Segment(tt.next, doc.ID())
			if len(stored) != len(fresh) {
				t.Fatalf("stored %d pages, want %d", len(stored), len(fresh))
			}
			for i := range stored {
				if stored[i].Start != fresh[i].Start || stored[i].End != fresh[i].End {
					t.Errorf("page %d at [%d,%d), want [%d,%d)", i,
						stored[i].Start, stored[i].End, fresh[i].Start, fresh[i].End)
				}
				if stored[i].Content != fresh[i].Content {
					t.Errorf("page %d content %q, want %q", i, stored[i].Content, fresh[i].Content)
				}
			}
			if stored[1].Start != tt.secondStart {
				t.Errorf("second page starts at %d, want %d", stored[1].Start, tt.secondStart)
			}
			if doc.Text() != tt.next {
				t.Errorf("Text() = %q, want %q", doc.Text(), tt.next)
			}
		})
	}
}

func TestDocument_UpdateFirstIsFull(t *testing.T) {
	t.Parallel()

	doc, log := openDoc(t, "")
	change, err := doc.Update(context.Background(), "# A\n---\n# B\n")
	if err != nil {
		t.Fatal(err)
	}
	if !change.Invalidate || len(change.Pages) != 2 {
		t.Errorf("first Update = %+v, want invalidating change with 2 pages", change)
	}
	updates := log.all()
	if len(updates) != 1 || !updates[0].Full {
		t.Fatalf("notifications = %+v, want one full update", updates)
	}
	for _, r := range updates[0].Pages {
		if !r.IsUpdate {
			t.Errorf("page %d not marked for update", r.Page)
		}
	}
}

func TestDocument_UpdateCanceled(t *testing.T) {
	t.Parallel()

	doc, log := openDoc(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := doc.Update(ctx, "# A"); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if len(log.all()) != 0 {
		t.Error("canceled Update notified subscribers")
	}
}

// ---------------------------------------------------------------------------
// TestDocument_HandleEditorUpdate
// ---------------------------------------------------------------------------

func TestDocument_HandleEditorUpdate(t *testing.T) {
	t.Parallel()

	const text = "# A\n---\n# B\n---\n# C\n"

	tests := []struct {
		name     string
		update   EditorUpdate
		expected []int // pages delivered to the preview
	}{
		{name: "caret on first page", update: EditorUpdate{Offset: 1}, expected: []int{0}},
		{name: "caret on third page", update: EditorUpdate{Offset: 16}, expected: []int{2}},
		{name: "page boundary picks earlier page", update: EditorUpdate{Offset: 4}, expected: []int{0}},
		{name: "focus change ignored", update: EditorUpdate{FocusChanged: true, Offset: 16}},
		{name: "viewport change ignored", update: EditorUpdate{ViewportChanged: true, Offset: 16}},
		{name: "offset past end ignored", update: EditorUpdate{Offset: 999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, _ := openDoc(t, text)
			var got []int
			unsubscribe := doc.Sync().Subscribe(cursor.OriginPreview, func(_ context.Context, s cursor.State) {
				if s.SetBy != cursor.OriginEditor {
					t.Errorf("SetBy = %v, want editor", s.SetBy)
				}
				got = append(got, s.Page)
			})
			defer unsubscribe()

			if err := doc.HandleEditorUpdate(context.Background(), tt.update); err != nil {
				t.Fatalf("HandleEditorUpdate: %v", err)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("preview saw pages %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDocument_HandleEditorUpdateDocChanged(t *testing.T) {
	t.Parallel()

	doc, _ := openDoc(t, "# A\n")
	err := doc.HandleEditorUpdate(context.Background(), EditorUpdate{
		DocChanged: true,
		Text:       "# A\n---\n# B\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(doc.Pages()); n != 2 {
		t.Errorf("got %d pages, want 2", n)
	}
}

// ---------------------------------------------------------------------------
// TestDocument_ShowPage
// ---------------------------------------------------------------------------

func TestDocument_ShowPageMovesEditor(t *testing.T) {
	t.Parallel()

	const text = "# A\n---\n# B\n---\n# C\n"
	doc, _ := openDoc(t, text)

	ed := &recordingEditor{echo: doc}
	detach := doc.AttachEditor(ed)
	defer detach()

	for _, page := range []int{1, 2, 0} {
		emitted, err := doc.ShowPage(context.Background(), page)
		if err != nil || !emitted {
			t.Fatalf("ShowPage(%d) = %v, %v", page, emitted, err)
		}
	}

	if got, want := ed.seen(), []int{8, 16, 0}; !slices.Equal(got, want) {
		t.Errorf("editor offsets = %v, want %v", got, want)
	}
	// The editor's echoed selection events must not flip the origin.
	if s := doc.Sync().Current(); s.SetBy != cursor.OriginPreview || s.Page != 0 {
		t.Errorf("state = %+v, want page 0 set by preview", s)
	}
}

func TestDocument_ShowPageCRLF(t *testing.T) {
	t.Parallel()

	doc, _ := openDoc(t, "# A\r\n---\r\n# B\r\n")
	ed := &recordingEditor{}
	defer doc.AttachEditor(ed)()

	if _, err := doc.ShowPage(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if got := ed.seen(); !slices.Equal(got, []int{10}) {
		t.Errorf("editor offsets = %v, want [10]", got)
	}
}

func TestDocument_ShowPageOutOfRange(t *testing.T) {
	t.Parallel()

	doc, _ := openDoc(t, "# A\n---\n# B\n")
	for _, page := range []int{-1, 2} {
		if _, err := doc.ShowPage(context.Background(), page); !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("ShowPage(%d) error = %v, want ErrPageOutOfRange", page, err)
		}
	}
}

func TestDocument_ShowPageEmptyDocument(t *testing.T) {
	t.Parallel()

	doc, _ := openDoc(t, "")
	for _, page := range []int{1, 5} {
		if _, err := doc.ShowPage(context.Background(), page); !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("ShowPage(%d) error = %v, want ErrPageOutOfRange", page, err)
		}
	}
	if s := doc.Sync().Current(); s.Page != 0 {
		t.Errorf("state = %+v, want page 0 after rejected moves", s)
	}
	if _, err := doc.ShowPage(context.Background(), 0); err != nil {
		t.Errorf("ShowPage(0) error = %v", err)
	}
}

func TestDocument_ShowPageSuppressedDuringDelivery(t *testing.T) {
	t.Parallel()

	doc, _ := openDoc(t, "# A\n---\n# B\n")
	var echoed bool
	defer doc.Sync().Subscribe(cursor.OriginPreview, func(ctx context.Context, s cursor.State) {
		emitted, err := doc.ShowPage(ctx, s.Page)
		if err != nil {
			t.Errorf("ShowPage: %v", err)
		}
		echoed = emitted
	})()

	if err := doc.HandleEditorUpdate(context.Background(), EditorUpdate{Offset: 9}); err != nil {
		t.Fatal(err)
	}
	if echoed {
		t.Error("preview echo was emitted")
	}
	if s := doc.Sync().Current(); s.SetBy != cursor.OriginEditor || s.Page != 1 {
		t.Errorf("state = %+v, want page 1 set by editor", s)
	}
}

func TestDocument_DetachEditor(t *testing.T) {
	t.Parallel()

	doc, _ := openDoc(t, "# A\n---\n# B\n")
	ed := &recordingEditor{}
	detach := doc.AttachEditor(ed)
	detach()

	if _, err := doc.ShowPage(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if got := ed.seen(); len(got) != 0 {
		t.Errorf("detached editor received %v", got)
	}
}
