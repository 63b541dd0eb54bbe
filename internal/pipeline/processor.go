package pipeline

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-slidesync/internal/mdtree"
	"github.com/alnah/go-slidesync/internal/pages"
)

// Mode selects the render target.
type Mode int

const (
	// Preview resolves images to paths the live preview can load.
	Preview Mode = iota
	// Export resolves images to absolute local paths or inline markup.
	Export
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == Export {
		return "export"
	}
	return "preview"
}

// defaultConcurrency bounds the transforms in flight for one stage.
const defaultConcurrency = 16

// Processor transforms page markdown. It is safe for concurrent use.
type Processor struct {
	resolver     Resolver
	rasterizer   Rasterizer
	embeds       EmbedCache
	diagramLangs []string
	limit        int
	log          logrus.FieldLogger
}

// Option configures a Processor.
type Option func(*Processor)

// WithRasterizer enables diagram rasterization.
func WithRasterizer(r Rasterizer) Option {
	return func(p *Processor) {
		p.rasterizer = r
	}
}

// WithEmbedCache enables note embeds.
func WithEmbedCache(c EmbedCache) Option {
	return func(p *Processor) {
		p.embeds = c
	}
}

// WithDiagramLanguages sets the fence languages sent to the rasterizer.
// The default is "mermaid".
func WithDiagramLanguages(langs ...string) Option {
	return func(p *Processor) {
		p.diagramLangs = langs
	}
}

// WithConcurrency bounds the transforms run at once within a stage.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		p.limit = n
	}
}

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// NewProcessor creates a Processor resolving references through resolver.
func NewProcessor(resolver Resolver, opts ...Option) *Processor {
	p := &Processor{
		resolver:     resolver,
		diagramLangs: []string{"mermaid"},
		limit:        defaultConcurrency,
		log:          DiscardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// run is the state of one Process call.
type run struct {
	*Processor
	rec  pages.Record
	mode Mode
	log  logrus.FieldLogger
}

// Process returns the transformed markdown of rec for mode. A leading
// frontmatter block on page 0 is carried through verbatim.
func (p *Processor) Process(ctx context.Context, rec pages.Record, mode Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r := &run{
		Processor: p,
		rec:       rec,
		mode:      mode,
		log: p.log.WithFields(logrus.Fields{
			"doc":  rec.SourcePath,
			"page": rec.Page,
			"mode": mode.String(),
		}),
	}

	root := mdtree.Build(rec.Content, mdtree.WithFrontmatter(rec.Page == 0))

	frontmatter, err := r.extractFrontmatter(ctx, root)
	if err != nil {
		return "", err
	}
	if err := mdtree.Transform(ctx, root, p.limit, r.resolveEmbed); err != nil {
		return "", err
	}
	if err := mdtree.Transform(ctx, root, p.limit, r.inlineStylesheet); err != nil {
		return "", err
	}
	if err := mdtree.Transform(ctx, root, p.limit, r.sizeImage); err != nil {
		return "", err
	}
	if err := mdtree.Transform(ctx, root, p.limit, r.resolveImage); err != nil {
		return "", err
	}
	if err := mdtree.Transform(ctx, root, p.limit, r.rasterizeDiagram); err != nil {
		return "", err
	}

	return frontmatter + mdtree.Render(root), nil
}

func (r *run) isDiagram(lang string) bool {
	for _, l := range r.diagramLangs {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}
