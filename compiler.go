package slidesync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alnah/go-slidesync/internal/assets"
	"github.com/alnah/go-slidesync/internal/mdparse"
	"github.com/alnah/go-slidesync/internal/pages"
	"github.com/alnah/go-slidesync/internal/pipeline"
	"github.com/alnah/go-slidesync/internal/yamlutil"
)

// Slides is a compiled deck.
type Slides struct {
	Markup     string // <div class="slides"> holding one <section> per page
	Stylesheet string
	Title      string
	Count      int
}

// Compiler turns processed deck markdown into slides.
type Compiler interface {
	Compile(ctx context.Context, markdown string) (Slides, error)
}

// GoldmarkCompiler compiles each page with goldmark into a <section>.
// A leading frontmatter block is dropped; its title becomes the deck title.
type GoldmarkCompiler struct {
	conv   pipeline.HTMLConverter
	loader assets.AssetLoader

	once   sync.Once
	css    string
	cssErr error
}

// NewGoldmarkCompiler creates a compiler. WithThemeDir overrides the
// built-in slide stylesheet.
func NewGoldmarkCompiler(opts ...Option) (*GoldmarkCompiler, error) {
	s := newSettings(opts)
	loader, err := assets.NewAssetResolver(s.themeDir)
	if err != nil {
		return nil, err
	}
	return &GoldmarkCompiler{
		conv:   pipeline.NewGoldmarkConverter(),
		loader: loader,
	}, nil
}

// Compile splits markdown into pages and renders each one.
func (c *GoldmarkCompiler) Compile(ctx context.Context, markdown string) (Slides, error) {
	css, err := c.stylesheet()
	if err != nil {
		return Slides{}, err
	}

	title, markdown := splitFrontmatter(markdown)
	list := pages.Segment(markdown, "")

	var b strings.Builder
	b.WriteString(`<div class="slides">` + "\n")
	for _, rec := range list {
		body, err := c.conv.ToHTML(ctx, rec.Content)
		if err != nil {
			return Slides{}, fmt.Errorf("%w: page %d: %v", ErrCompile, rec.Page, err)
		}
		fmt.Fprintf(&b, `<section class="slide" data-page="%d">`+"\n%s</section>\n", rec.Page, body)
	}
	b.WriteString("</div>\n")

	return Slides{
		Markup:     b.String(),
		Stylesheet: css,
		Title:      title,
		Count:      len(list),
	}, nil
}

func (c *GoldmarkCompiler) stylesheet() (string, error) {
	c.once.Do(func() {
		base, err := c.loader.LoadStyle(assets.SlidesStyle)
		if err != nil {
			c.cssErr = fmt.Errorf("%w: %v", ErrCompile, err)
			return
		}
		highlight, err := pipeline.HighlightCSS()
		if err != nil {
			c.cssErr = fmt.Errorf("%w: %v", ErrCompile, err)
			return
		}
		c.css = base + "\n" + highlight
	})
	return c.css, c.cssErr
}

// splitFrontmatter removes a leading frontmatter block from markdown and
// returns its title. The page separator that follows the block is kept.
func splitFrontmatter(markdown string) (title, rest string) {
	end, ok := mdparse.FrontmatterEnd([]byte(markdown))
	if !ok {
		return "", markdown
	}
	doc := mdparse.Parse([]byte(markdown[:end]), mdparse.WithFrontmatter(true))
	if fm := doc.Frontmatter(); fm != nil {
		if meta, err := yamlutil.ParseMetadata(string(fm.Body(doc.Source))); err == nil {
			title = meta.String("title")
		}
	}
	return title, markdown[end:]
}

var _ Compiler = (*GoldmarkCompiler)(nil)
