package slidesync

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/alnah/go-slidesync/internal/pipeline"
)

// fakeRenderer captures the HTML file handed to the browser.
type fakeRenderer struct {
	html   string
	err    error
	closed bool
}

func (r *fakeRenderer) RenderFromFile(_ context.Context, filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	r.html = string(data)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF"), nil
}

func (r *fakeRenderer) Close() error {
	r.closed = true
	return nil
}

func newFakeChrome(t *testing.T, renderer *fakeRenderer, sourceDir string) *ChromeBackend {
	t.Helper()
	c, err := NewGoldmarkCompiler()
	if err != nil {
		t.Fatal(err)
	}
	return &ChromeBackend{
		compiler:  c,
		sourceDir: sourceDir,
		renderer:  renderer,
		css:       &pipeline.CSSInjection{},
		log:       pipeline.DiscardLogger(),
	}
}

func TestChromeBackend_Render(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	renderer := &fakeRenderer{}
	b := newFakeChrome(t, renderer, dir)

	deck := "---\ntitle: Q3 & Q4\n---\n# One\n\n![](chart.png)\n---\n# Two\n"
	log := &progressLog{}
	pdf, err := b.Render(context.Background(), deck, log.record)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(pdf) != "%PDF" {
		t.Errorf("pdf = %q", pdf)
	}

	for _, s := range []string{
		"<title>Q3 &amp; Q4</title>",
		"<style>",
		"section.slide",
		`data-page="1"`,
		"file://",
		"chart.png",
	} {
		if !strings.Contains(renderer.html, s) {
			t.Errorf("HTML missing %q", s)
		}
	}
	if last := log.percents[len(log.percents)-1]; last != 100 {
		t.Errorf("last progress = %d, want 100", last)
	}

	if err := b.Close(); err != nil || !renderer.closed {
		t.Errorf("Close() = %v, closed = %v", err, renderer.closed)
	}
}

func TestChromeBackend_RendererError(t *testing.T) {
	t.Parallel()

	b := newFakeChrome(t, &fakeRenderer{err: ErrPageLoad}, "")
	if _, err := b.Render(context.Background(), "# A", nil); !errors.Is(err, ErrPageLoad) {
		t.Errorf("got %v, want ErrPageLoad", err)
	}
}

func TestRodRenderer_CanceledBeforeLaunch(t *testing.T) {
	t.Parallel()

	r := newRodRenderer(defaultTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderFromFile(ctx, "/nonexistent.html"); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on idle renderer = %v", err)
	}
}
