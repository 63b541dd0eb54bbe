package pipeline

import (
	"context"
	"html"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alnah/go-slidesync/internal/mdparse"
	"github.com/alnah/go-slidesync/internal/mdtree"
)

var (
	embedMarker    = regexp.MustCompile(`^!\[\[([^\[\]]+)\]\]$`)
	wikilinkMarker = regexp.MustCompile(`^\[\[([^\[\]]+)\]\]$`)
	windowsDrive   = regexp.MustCompile(`^/[A-Za-z]:`)
)

const (
	defaultAlt       = "image"
	stylesheetLang   = "css"
	diagramClass     = "mermaid-image"
	diagramErrClass  = "diagram-error"
	fileURLPrefix    = "file:///"
	dataURLPrefix    = "data:"
	stylesheetSuffix = ".css"
	stylesheetNote   = ".css.md"
)

// extractFrontmatter detaches the frontmatter block and returns its raw text.
func (r *run) extractFrontmatter(ctx context.Context, root *mdtree.Root) (string, error) {
	blocks := mdtree.Find[*mdtree.Frontmatter](root)
	if len(blocks) == 0 {
		return "", nil
	}
	raw := blocks[0].Value
	err := mdtree.Transform(ctx, root, 1, func(context.Context, *mdtree.Frontmatter) (mdtree.Edit, error) {
		return mdtree.Remove(), nil
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// resolveEmbed turns `![[name|alt]]` into an image or cached note markup and
// `[[name|text]]` into a link.
func (r *run) resolveEmbed(ctx context.Context, n *mdtree.Text) (mdtree.Edit, error) {
	if m := embedMarker.FindStringSubmatch(n.Value); m != nil {
		name, alt, _ := strings.Cut(m[1], "|")
		if alt == "" {
			alt = defaultAlt
		}
		if isImageName(name) {
			return mdtree.Replace(&mdtree.Image{URL: name, Alt: alt}), nil
		}
		if r.embeds != nil {
			if markup, ok := r.embeds.Lookup(r.rec.SourcePath, name); ok {
				return mdtree.Replace(&mdtree.Raw{Value: markup}), nil
			}
		}
		r.log.WithField("embed", name).Debug("embed left as text")
		return mdtree.Keep(), nil
	}

	if m := wikilinkMarker.FindStringSubmatch(n.Value); m != nil {
		name, text, _ := strings.Cut(m[1], "|")
		if text == "" {
			text = name
		}
		return mdtree.Replace(&mdtree.Link{
			URL:   name,
			Nodes: []mdtree.Node{&mdtree.Text{Value: text}},
		}), nil
	}
	return mdtree.Keep(), nil
}

// isImageName reports whether the media type for name's extension is image/*.
func isImageName(name string) bool {
	name, _, _ = strings.Cut(name, "#")
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "image/")
}

// IsStylesheetTarget reports whether a link target names a stylesheet file or
// a note holding css blocks.
func IsStylesheetTarget(target string) bool {
	target, _, _ = strings.Cut(target, "#")
	target = strings.ToLower(target)
	return strings.HasSuffix(target, stylesheetSuffix) || strings.HasSuffix(target, stylesheetNote)
}

// inlineStylesheet replaces a link to a stylesheet with a style block. A .css
// target is inlined whole, a note contributes its css fences.
func (r *run) inlineStylesheet(ctx context.Context, n *mdtree.Link) (mdtree.Edit, error) {
	if !IsStylesheetTarget(n.URL) {
		return mdtree.Keep(), nil
	}
	target, _, _ := strings.Cut(n.URL, "#")
	log := r.log.WithField("stylesheet", target)

	p, err := r.resolver.ResolveForExport(ctx, target, r.rec.SourcePath)
	if err != nil {
		if ctx.Err() != nil {
			return mdtree.Edit{}, ctx.Err()
		}
		log.WithError(err).Debug("stylesheet not resolved")
		return mdtree.Keep(), nil
	}
	text, err := r.resolver.ReadFile(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return mdtree.Edit{}, ctx.Err()
		}
		log.WithError(err).Warn("stylesheet not readable")
		return mdtree.Keep(), nil
	}

	css := text
	if !strings.HasSuffix(strings.ToLower(target), stylesheetSuffix) {
		css = StylesheetBlocks(text)
	}
	if strings.TrimSpace(css) == "" {
		return mdtree.Keep(), nil
	}
	return mdtree.Replace(&mdtree.Raw{Value: "<style>\n" + sanitizeCSS(css) + "</style>"}), nil
}

// StylesheetBlocks concatenates the css fenced blocks of a note.
func StylesheetBlocks(text string) string {
	doc := mdparse.Parse([]byte(text))
	return strings.Join(mdparse.FencedCode(doc, stylesheetLang), "")
}

// sizeImage applies the bare size alt convention.
func (r *run) sizeImage(_ context.Context, n *mdtree.Image) (mdtree.Edit, error) {
	alt := SizeAlt(n.Alt)
	if alt == n.Alt {
		return mdtree.Keep(), nil
	}
	return mdtree.Replace(&mdtree.Image{URL: n.URL, Alt: alt, Title: n.Title}), nil
}

// resolveImage rewrites an image URL for the render target, dropping images
// whose target cannot be found.
func (r *run) resolveImage(ctx context.Context, n *mdtree.Image) (mdtree.Edit, error) {
	u := n.URL
	switch {
	case strings.HasPrefix(u, dataURLPrefix):
		if r.mode == Export {
			return mdtree.Replace(&mdtree.Raw{Value: InlineImage(u, n.Alt)}), nil
		}
		return mdtree.Keep(), nil
	case isRemote(u):
		return mdtree.Keep(), nil
	}

	var (
		resolved string
		err      error
	)
	switch {
	case r.mode == Preview:
		resolved, err = r.resolver.ResolveForPreview(ctx, u, r.rec.SourcePath)
	case strings.HasPrefix(u, fileURLPrefix):
		resolved, err = fileURLPath(u)
		if err == nil {
			resolved, err = r.resolver.ResolveForExport(ctx, resolved, r.rec.SourcePath)
		}
	default:
		resolved, err = r.resolver.ResolveForExport(ctx, u, r.rec.SourcePath)
	}
	if err != nil {
		if ctx.Err() != nil {
			return mdtree.Edit{}, ctx.Err()
		}
		r.log.WithError(err).WithField("image", u).Debug("image dropped")
		return mdtree.Remove(), nil
	}
	if r.mode == Export {
		resolved = filepath.ToSlash(resolved)
	}
	if resolved == u {
		return mdtree.Keep(), nil
	}
	return mdtree.Replace(&mdtree.Image{URL: resolved, Alt: n.Alt, Title: n.Title}), nil
}

func isRemote(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// fileURLPath converts a file:/// URL to a clean local path.
func fileURLPath(u string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", err
	}
	p := parsed.Path
	if windowsDrive.MatchString(p) {
		p = p[1:]
	}
	return path.Clean(p), nil
}

// InlineImage returns an <img> element for src, styled from the size
// directives in alt.
func InlineImage(src, alt string) string {
	size, rest := ParseSize(alt)
	if rest == "" {
		rest = defaultAlt
	}
	return `<img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(rest) + `"` + styleAttr(size) + ` />`
}

// rasterizeDiagram replaces a diagram fence with an image, or with an error
// marker when rendering fails.
func (r *run) rasterizeDiagram(ctx context.Context, n *mdtree.Code) (mdtree.Edit, error) {
	if r.rasterizer == nil || !r.isDiagram(n.Lang) {
		return mdtree.Keep(), nil
	}

	dataURL, err := r.rasterizer.Render(ctx, n.Value)
	if err != nil {
		if ctx.Err() != nil {
			return mdtree.Edit{}, ctx.Err()
		}
		r.log.WithError(err).WithField("lang", n.Lang).Warn("diagram rasterization failed")
		return mdtree.Replace(&mdtree.Raw{
			Value: `<pre class="` + diagramErrClass + `">` + html.EscapeString(err.Error()) + `</pre>`,
		}), nil
	}

	size, _ := ParseSize(n.Meta)
	alt := strings.ToLower(n.Lang)
	return mdtree.Replace(&mdtree.Raw{
		Value: `<img src="` + html.EscapeString(dataURL) + `" alt="` + html.EscapeString(alt) + `" class="` + diagramClass + `"` + styleAttr(size) + ` />`,
	}), nil
}
