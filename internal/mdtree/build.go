package mdtree

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-slidesync/internal/mdparse"
)

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	frontmatter bool
}

// WithFrontmatter makes Build recognize a leading YAML block.
func WithFrontmatter(enabled bool) Option {
	return func(o *buildOptions) {
		o.frontmatter = enabled
	}
}

type regionKind int

const (
	regionVerbatim regionKind = iota
	regionCode
	regionFrontmatter
	regionImage
	regionLink
)

// region is a source range that becomes a node of its own. Links also carry
// the offset of the `]` closing their text and the regions inside it.
type region struct {
	kind     regionKind
	start    int
	end      int
	label    int
	node     ast.Node
	children []region
}

// Build parses src into a tree. Root-level fenced code becomes Code, a
// leading frontmatter block becomes Frontmatter, and inline images and links
// found by goldmark become Image and Link. The remaining source is kept as
// Text, split around wiki markers. Nested code, indented code, HTML blocks,
// code spans, autolinks and raw HTML stay verbatim.
func Build(src string, opts ...Option) *Root {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	doc := mdparse.Parse([]byte(src), mdparse.WithFrontmatter(o.frontmatter))
	b := &builder{doc: doc, src: src}

	root := &Root{}
	root.Append(b.nodes(0, len(src), collectRegions(doc, doc.Root))...)
	return root
}

type builder struct {
	doc *mdparse.Document
	src string
}

// nodes converts src[from:to] into nodes, given the regions it contains in
// source order.
func (b *builder) nodes(from, to int, regions []region) []Node {
	var nodes []Node
	cursor := from
	for _, r := range regions {
		if r.start < cursor || r.end > to {
			continue
		}
		nodes = append(nodes, splitWiki(b.src[cursor:r.start])...)
		nodes = append(nodes, b.node(r))
		cursor = r.end
	}
	return append(nodes, splitWiki(b.src[cursor:to])...)
}

func (b *builder) node(r region) Node {
	data := b.doc.Source
	raw := b.src[r.start:r.end]
	switch r.kind {
	case regionCode:
		fence := r.node.(*ast.FencedCodeBlock)
		lang, meta := mdparse.CodeInfo(fence, data)
		return &Code{
			Lang:   lang,
			Meta:   meta,
			Value:  mdparse.CodeValue(fence, data),
			Source: raw,
		}
	case regionFrontmatter:
		fm := r.node.(*mdparse.Frontmatter)
		return &Frontmatter{Value: raw, Body: string(fm.Body(data))}
	case regionImage:
		img := r.node.(*ast.Image)
		return &Image{
			URL:    string(img.Destination),
			Alt:    b.src[r.start+2 : r.label],
			Title:  string(img.Title),
			Source: raw,
		}
	case regionLink:
		link := r.node.(*ast.Link)
		return &Link{
			URL:   string(link.Destination),
			Title: string(link.Title),
			Nodes: b.nodes(r.start+1, r.label, r.children),
		}
	default:
		return &Text{Value: raw}
	}
}

// collectRegions walks the descendants of parent in document order.
func collectRegions(doc *mdparse.Document, parent ast.Node) []region {
	src := doc.Source
	var regions []region
	_ = ast.Walk(parent, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n == parent {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *mdparse.Frontmatter:
			if span, ok := doc.Span(node); ok {
				regions = append(regions, region{kind: regionFrontmatter, start: span.Start, end: span.End, node: node})
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			if span, ok := doc.Span(node); ok {
				kind := regionVerbatim
				if node.Parent() == doc.Root {
					kind = regionCode
				}
				regions = append(regions, region{kind: kind, start: span.Start, end: span.End, node: node})
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if start, end, ok := linesExtent(src, node.Lines()); ok {
				regions = append(regions, region{start: start, end: end, node: node})
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			start, end, ok := linesExtent(src, node.Lines())
			if node.HasClosure() {
				closure := node.ClosureLine
				if !ok {
					start = lineStart(src, closure.Start)
				}
				end, ok = max(end, closure.Stop), true
			}
			if ok {
				regions = append(regions, region{start: start, end: end, node: node})
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan, *ast.AutoLink, *ast.RawHTML:
			if span, ok := doc.Span(node); ok {
				regions = append(regions, region{start: span.Start, end: span.End, node: node})
			}
			return ast.WalkSkipChildren, nil
		case *ast.Image, *ast.Link:
			span, ok := doc.Link(node)
			if !ok || !span.Inline(src) {
				return ast.WalkContinue, nil
			}
			r := region{kind: regionImage, start: span.Start, end: span.End, label: span.Label, node: node}
			if _, isLink := node.(*ast.Link); isLink {
				r.kind = regionLink
				r.children = collectRegions(doc, node)
			}
			regions = append(regions, r)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return regions
}

// linesExtent returns the range from the start of the first line to the end
// of the last one.
func linesExtent(src []byte, lines *text.Segments) (int, int, bool) {
	if lines.Len() == 0 {
		return 0, 0, false
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return lineStart(src, first.Start), last.Stop, true
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// ---------------------------------------------------------------------------
// Wiki markers
// ---------------------------------------------------------------------------

// splitWiki splits s into Text nodes, giving each `![[...]]` or `[[...]]`
// marker a node of its own. Markers are not CommonMark, so goldmark leaves
// them as plain text.
func splitWiki(s string) []Node {
	var nodes []Node
	textStart := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++
			continue
		case !strings.HasPrefix(s[i:], "[["):
			continue
		}
		start := i
		if i > 0 && s[i-1] == '!' && (i < 2 || s[i-2] != '\\') {
			start = i - 1
		}
		end, ok := wikiEnd(s, i+2)
		if !ok {
			continue
		}
		if start > textStart {
			nodes = append(nodes, &Text{Value: s[textStart:start]})
		}
		nodes = append(nodes, &Text{Value: s[start:end]})
		textStart = end
		i = end - 1
	}
	if textStart < len(s) {
		nodes = append(nodes, &Text{Value: s[textStart:]})
	}
	return nodes
}

// wikiEnd returns the offset just past the `]]` closing a marker whose body
// starts at from. Bodies are single-line and non-empty.
func wikiEnd(s string, from int) (int, bool) {
	for i := from; i+1 < len(s); i++ {
		switch s[i] {
		case '\n', '[':
			return 0, false
		case ']':
			if s[i+1] == ']' && i > from {
				return i + 2, true
			}
			return 0, false
		}
	}
	return 0, false
}
