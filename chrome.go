package slidesync

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-slidesync/internal/fileutil"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// Slide page dimensions in inches: 1280x720 CSS pixels.
const (
	slideWidthInches  = 13.333
	slideHeightInches = 7.5
)

// pdfRenderer renders a local HTML file to PDF. It lets tests run without a
// browser.
type pdfRenderer interface {
	RenderFromFile(ctx context.Context, filePath string) ([]byte, error)
	Close() error
}

// ChromeBackend compiles the deck itself and prints it with headless Chrome.
// Rod downloads Chromium on first use unless ROD_BROWSER_BIN is set.
type ChromeBackend struct {
	compiler  Compiler
	sourceDir string
	renderer  pdfRenderer
	css       pipeline.CSSInjector
	log       logrus.FieldLogger
}

// NewChromeBackend creates a backend. Relative links in the deck resolve
// against sourceDir. WithTimeout bounds page loads.
func NewChromeBackend(compiler Compiler, sourceDir string, opts ...Option) *ChromeBackend {
	s := newSettings(opts)
	return &ChromeBackend{
		compiler:  compiler,
		sourceDir: sourceDir,
		renderer:  newRodRenderer(s.timeout),
		css:       &pipeline.CSSInjection{},
		log:       s.log,
	}
}

// Render implements Backend.
func (b *ChromeBackend) Render(ctx context.Context, markdown string, progress ProgressFunc) ([]byte, error) {
	report(progress, 0, "compiling slides")
	slides, err := b.compiler.Compile(ctx, markdown)
	if err != nil {
		return nil, err
	}

	doc := pipeline.Standalone(slides.Title, slides.Markup)
	doc = b.css.InjectCSS(ctx, doc, slides.Stylesheet)
	doc, err = pipeline.RewriteRelativePaths(doc, b.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: rewriting paths: %v", ErrExportFailed, err)
	}

	path, cleanup, err := fileutil.WriteTempFile("", doc, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	defer cleanup()

	report(progress, 30, "printing PDF")
	b.log.WithField("slides", slides.Count).Debug("printing deck")
	pdf, err := b.renderer.RenderFromFile(ctx, path)
	if err != nil {
		return nil, err
	}
	report(progress, 100, "PDF written")
	return pdf, nil
}

// Close releases the browser.
func (b *ChromeBackend) Close() error {
	return b.renderer.Close()
}

// rodRenderer implements pdfRenderer using go-rod. The browser starts on
// first use and is reused until Close.
type rodRenderer struct {
	timeout time.Duration

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func newRodRenderer(timeout time.Duration) *rodRenderer {
	return &rodRenderer{timeout: timeout}
}

func (r *rodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher, r.browser = l, browser
	return browser, nil
}

// Close releases browser resources.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Kill()
	r.browser, r.launcher = nil, nil
	return err
}

// RenderFromFile opens a local HTML file and prints it at slide size.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + filePath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PaperWidth:        floatPtr(slideWidthInches),
		PaperHeight:       floatPtr(slideHeightInches),
		MarginTop:         floatPtr(0),
		MarginBottom:      floatPtr(0),
		MarginLeft:        floatPtr(0),
		MarginRight:       floatPtr(0),
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

func floatPtr(v float64) *float64 {
	return &v
}

var (
	_ Backend     = (*ChromeBackend)(nil)
	_ pdfRenderer = (*rodRenderer)(nil)
)
