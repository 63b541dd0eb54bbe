package slidesync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-slidesync/internal/pages"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// fakeProcessor upper-cases page content and counts calls per content.
type fakeProcessor struct {
	mu    sync.Mutex
	calls map[string]int
	modes []pipeline.Mode
	err   error
	// block, when set, is called before processing and may wait.
	block func(rec pages.Record)
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{calls: make(map[string]int)}
}

func (p *fakeProcessor) Process(ctx context.Context, rec pages.Record, mode pipeline.Mode) (string, error) {
	if p.block != nil {
		p.block(rec)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.calls[rec.Content]++
	p.modes = append(p.modes, mode)
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(rec.Content), nil
}

func (p *fakeProcessor) count(content string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[content]
}

func (p *fakeProcessor) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

// echoCompiler returns the markdown as markup.
type echoCompiler struct {
	mu    sync.Mutex
	calls int
}

func (c *echoCompiler) Compile(_ context.Context, markdown string) (Slides, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return Slides{Markup: markdown, Stylesheet: "css", Title: "deck"}, nil
}

// recordingEditor collects SetCursor offsets and optionally forwards them
// back to the document like a real editor selection event would.
type recordingEditor struct {
	mu      sync.Mutex
	offsets []int
	echo    *Document
}

func (e *recordingEditor) SetCursor(ctx context.Context, offset int) {
	e.mu.Lock()
	e.offsets = append(e.offsets, offset)
	e.mu.Unlock()
	if e.echo != nil {
		_ = e.echo.HandleEditorUpdate(ctx, EditorUpdate{Offset: offset})
	}
}

func (e *recordingEditor) seen() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.offsets...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
