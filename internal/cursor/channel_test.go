package cursor

import (
	"context"
	"testing"

	"github.com/alnah/go-slidesync/internal/pages"
)

// ---------------------------------------------------------------------------
// TestChannel
// ---------------------------------------------------------------------------

func TestNewChannel_InitialState(t *testing.T) {
	t.Parallel()

	got := NewChannel().Current()
	want := State{Page: 0, SetBy: OriginPreview}
	if got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestChannel_EchoSuppression(t *testing.T) {
	t.Parallel()

	c := NewChannel()
	var editorSaw, previewSaw []State
	c.Subscribe(OriginEditor, func(_ context.Context, s State) { editorSaw = append(editorSaw, s) })
	c.Subscribe(OriginPreview, func(_ context.Context, s State) { previewSaw = append(previewSaw, s) })

	ctx := context.Background()
	c.Emit(ctx, State{Page: 2, SetBy: OriginEditor})
	c.Emit(ctx, State{Page: 1, SetBy: OriginPreview})

	if len(previewSaw) != 1 || previewSaw[0].Page != 2 {
		t.Errorf("preview saw %+v, want only page 2", previewSaw)
	}
	if len(editorSaw) != 1 || editorSaw[0].Page != 1 {
		t.Errorf("editor saw %+v, want only page 1", editorSaw)
	}
	if got := c.Current(); got != (State{Page: 1, SetBy: OriginPreview}) {
		t.Errorf("Current() = %+v", got)
	}
}

func TestChannel_ReentrantEmitSuppressed(t *testing.T) {
	t.Parallel()

	c := NewChannel()
	var editorCalls, previewCalls int
	var reentrant bool

	// The preview reacts to an editor move by scrolling, which would report
	// the page back.
	c.Subscribe(OriginPreview, func(ctx context.Context, s State) {
		previewCalls++
		reentrant = c.Emit(ctx, State{Page: s.Page, SetBy: OriginPreview})
	})
	c.Subscribe(OriginEditor, func(context.Context, State) { editorCalls++ })

	if !c.Emit(context.Background(), State{Page: 3, SetBy: OriginEditor}) {
		t.Fatal("top-level Emit returned false")
	}
	if reentrant {
		t.Error("Emit during delivery returned true")
	}
	if previewCalls != 1 || editorCalls != 0 {
		t.Errorf("calls preview=%d editor=%d, want 1 and 0", previewCalls, editorCalls)
	}
	if got := c.Current(); got != (State{Page: 3, SetBy: OriginEditor}) {
		t.Errorf("Current() = %+v", got)
	}
}

func TestChannel_GuardIsPerChannel(t *testing.T) {
	t.Parallel()

	a, b := NewChannel(), NewChannel()
	var got []State
	b.Subscribe(OriginPreview, func(_ context.Context, s State) { got = append(got, s) })
	a.Subscribe(OriginPreview, func(ctx context.Context, s State) {
		b.Emit(ctx, State{Page: s.Page, SetBy: OriginEditor})
	})

	a.Emit(context.Background(), State{Page: 4, SetBy: OriginEditor})
	if len(got) != 1 || got[0].Page != 4 {
		t.Errorf("second channel saw %+v, want page 4", got)
	}
}

func TestChannel_ApplyingEndsAfterDelivery(t *testing.T) {
	t.Parallel()

	c := NewChannel()
	var inside context.Context
	c.Subscribe(OriginPreview, func(ctx context.Context, _ State) { inside = ctx })

	ctx := context.Background()
	c.Emit(ctx, State{Page: 1, SetBy: OriginEditor})
	if !c.Applying(inside) {
		t.Error("delivery context not marked")
	}
	if c.Applying(ctx) {
		t.Error("caller context marked")
	}
	if !c.Emit(ctx, State{Page: 2, SetBy: OriginPreview}) {
		t.Error("Emit after delivery returned false")
	}
}

func TestChannel_Unsubscribe(t *testing.T) {
	t.Parallel()

	c := NewChannel()
	calls := 0
	unsubscribe := c.Subscribe(OriginPreview, func(context.Context, State) { calls++ })
	c.Emit(context.Background(), State{Page: 1, SetBy: OriginEditor})
	unsubscribe()
	unsubscribe()
	c.Emit(context.Background(), State{Page: 2, SetBy: OriginEditor})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestOrigin_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		origin Origin
		want   string
	}{
		{OriginEditor, "editor"},
		{OriginPreview, "preview"},
		{Origin(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.origin.String(); got != tt.want {
			t.Errorf("Origin(%d).String() = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestGuard
// ---------------------------------------------------------------------------

func TestGuard(t *testing.T) {
	t.Parallel()

	var g Guard
	if g.Active() {
		t.Fatal("zero Guard is active")
	}

	var during, nested bool
	g.Do(func() {
		during = g.Active()
		g.Do(func() {})
		nested = g.Active()
	})

	if !during {
		t.Error("Active() = false inside Do")
	}
	if !nested {
		t.Error("nested Do lowered the guard")
	}
	if g.Active() {
		t.Error("Active() = true after Do")
	}
}

func TestGuard_ReleasedOnPanic(t *testing.T) {
	t.Parallel()

	var g Guard
	func() {
		defer func() { _ = recover() }()
		g.Do(func() { panic("boom") })
	}()
	if g.Active() {
		t.Error("guard still active after panic")
	}
}

// ---------------------------------------------------------------------------
// TestLocate
// ---------------------------------------------------------------------------

func TestLocate(t *testing.T) {
	t.Parallel()

	list := pages.Segment("# One\n\n---\n\n# Two\n\n---\n\n# Three", "")
	tests := []struct {
		name   string
		offset int
		want   int
		wantOK bool
	}{
		{name: "document start", offset: 0, want: 0, wantOK: true},
		{name: "end of first page", offset: list[0].End, want: 0, wantOK: true},
		{name: "inside separator", offset: list[0].End + 1, wantOK: false},
		{name: "start of second page", offset: list[1].Start, want: 1, wantOK: true},
		{name: "last page", offset: list[2].Start + 3, want: 2, wantOK: true},
		{name: "past end", offset: list[2].End + 1, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Locate(list, tt.offset)
			if ok != tt.wantOK || (ok && got.Page != tt.want) {
				t.Errorf("Locate(%d) = (%d, %v), want (%d, %v)", tt.offset, got.Page, ok, tt.want, tt.wantOK)
			}
		})
	}
}
