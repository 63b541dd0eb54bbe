package mdparse

import (
	"bytes"
	"maps"
	"strings"
	"sync"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Parser priorities. goldmark registers thematic breaks at 200 and fenced
// code at 700; the trackers run just before them.
const (
	frontmatterPriority   = 0
	thematicBreakPriority = 199
	fencedCodePriority    = 699
	frontmatterFence      = "---"
	maxFenceIndent        = 3
	carriageReturn        = '\r'
	lineFeed              = '\n'
)

// Span is a half-open byte range [Start, End) into the parsed source.
type Span struct {
	Start int
	End   int
}

// Document is a parsed markdown source with recorded block and link spans.
type Document struct {
	Source []byte
	Root   ast.Node

	spans       map[ast.Node]Span
	links       map[ast.Node]LinkSpan
	frontmatter *Frontmatter
}

// Span returns the source extent of a thematic break, fenced code block,
// frontmatter, code span, autolink or raw HTML node. Other nodes are not
// tracked; see Link for links and images.
func (d *Document) Span(n ast.Node) (Span, bool) {
	s, ok := d.spans[n]
	return s, ok
}

// Link returns the source extent of an *ast.Link or *ast.Image.
func (d *Document) Link(n ast.Node) (LinkSpan, bool) {
	s, ok := d.links[n]
	return s, ok
}

// Frontmatter returns the frontmatter block, or nil when the document has none
// or was parsed without WithFrontmatter.
func (d *Document) Frontmatter() *Frontmatter {
	return d.frontmatter
}

// Option configures Parse.
type Option func(*options)

type options struct {
	frontmatter bool
}

// WithFrontmatter enables detection of a leading YAML frontmatter block.
func WithFrontmatter(enabled bool) Option {
	return func(o *options) {
		o.frontmatter = enabled
	}
}

var (
	plainParser = sync.OnceValue(func() parser.Parser { return newParser(false) })
	fmParser    = sync.OnceValue(func() parser.Parser { return newParser(true) })

	blockStartsKey = parser.NewContextKey()
)

func newParser(frontmatter bool) parser.Parser {
	blockParsers := []util.PrioritizedValue{
		util.Prioritized(spanTracker{parser.NewThematicBreakParser()}, thematicBreakPriority),
		util.Prioritized(spanTracker{parser.NewFencedCodeBlockParser()}, fencedCodePriority),
	}
	if frontmatter {
		blockParsers = append(blockParsers, util.Prioritized(&frontmatterParser{}, frontmatterPriority))
	}
	return parser.NewParser(
		parser.WithBlockParsers(append(parser.DefaultBlockParsers(), blockParsers...)...),
		parser.WithInlineParsers(inlineParsers()...),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
	)
}

// Parse parses src and records the spans of separators, fences, frontmatter,
// links and images. The returned Document aliases src.
func Parse(src []byte, opts ...Option) *Document {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := plainParser()
	if o.frontmatter {
		p = fmParser()
	}

	pc := parser.NewContext()
	root := p.Parse(text.NewReader(src), parser.WithContext(pc))

	doc := &Document{Source: src, Root: root, spans: make(map[ast.Node]Span)}
	starts, _ := pc.Get(blockStartsKey).(map[ast.Node]int)
	doc.links, _ = pc.Get(linkSpansKey).(map[ast.Node]LinkSpan)
	inlines, _ := pc.Get(inlineSpansKey).(map[ast.Node]Span)
	maps.Copy(doc.spans, inlines)

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *Frontmatter:
			if end, ok := FrontmatterEnd(src); ok {
				doc.spans[node] = Span{Start: 0, End: end}
				doc.frontmatter = node
			}
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			if start, ok := starts[node]; ok {
				doc.spans[node] = Span{Start: start, End: lineEnd(src, start)}
			}
		case *ast.FencedCodeBlock:
			if start, ok := starts[node]; ok {
				doc.spans[node] = Span{Start: start, End: fenceEnd(src, node, start)}
			}
		}
		return ast.WalkContinue, nil
	})

	return doc
}

// spanTracker delegates to a goldmark block parser and records the offset of
// the line each opened block starts on.
type spanTracker struct {
	parser.BlockParser
}

func (t spanTracker) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	_, segment := reader.PeekLine()
	node, state := t.BlockParser.Open(parent, reader, pc)
	if node != nil {
		starts, _ := pc.Get(blockStartsKey).(map[ast.Node]int)
		if starts == nil {
			starts = make(map[ast.Node]int)
			pc.Set(blockStartsKey, starts)
		}
		starts[node] = segment.Start
	}
	return node, state
}

// CodeInfo splits a fenced block's info string into language and metadata.
func CodeInfo(n *ast.FencedCodeBlock, src []byte) (lang, meta string) {
	if n.Info == nil {
		return "", ""
	}
	info := strings.TrimSpace(string(n.Info.Segment.Value(src)))
	lang, meta, _ = strings.Cut(info, " ")
	return lang, strings.TrimSpace(meta)
}

// CodeValue returns the content lines of a fenced block.
func CodeValue(n *ast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// FencedCode returns the contents of every fenced block tagged lang
// (case-insensitive), in document order.
func FencedCode(doc *Document, lang string) []string {
	var blocks []string
	_ = ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fence, ok := n.(*ast.FencedCodeBlock); ok {
			if l, _ := CodeInfo(fence, doc.Source); strings.EqualFold(l, lang) {
				blocks = append(blocks, CodeValue(fence, doc.Source))
			}
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

// lineEnd returns the offset of the line terminator of the line containing
// pos, excluding a trailing carriage return.
func lineEnd(src []byte, pos int) int {
	end := len(src)
	if i := bytes.IndexByte(src[pos:], lineFeed); i >= 0 {
		end = pos + i
	}
	if end > pos && src[end-1] == carriageReturn {
		end--
	}
	return end
}

// nextLine returns the offset just past the line terminator at or after pos.
func nextLine(src []byte, pos int) int {
	if i := bytes.IndexByte(src[pos:], lineFeed); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}

// fenceEnd locates the end of a fenced block: its closing fence line when
// present, else its last content line.
func fenceEnd(src []byte, n *ast.FencedCodeBlock, start int) int {
	char, width := fenceMarker(src[start:lineEnd(src, start)])

	pos := nextLine(src, start)
	if lines := n.Lines(); lines.Len() > 0 {
		pos = lines.At(lines.Len() - 1).Stop
		if pos > 0 && pos <= len(src) && src[pos-1] != lineFeed {
			pos = nextLine(src, pos)
		}
	}
	if pos < len(src) && isClosingFence(src[pos:lineEnd(src, pos)], char, width) {
		return lineEnd(src, pos)
	}

	end := pos
	for end > start && (src[end-1] == lineFeed || src[end-1] == carriageReturn) {
		end--
	}
	if end < lineEnd(src, start) {
		end = lineEnd(src, start)
	}
	return end
}

// fenceMarker returns the fence character and run length of an opening line.
func fenceMarker(line []byte) (byte, int) {
	i := 0
	for i < len(line) && i < maxFenceIndent && line[i] == ' ' {
		i++
	}
	if i >= len(line) || (line[i] != '`' && line[i] != '~') {
		return 0, 0
	}
	char := line[i]
	width := 0
	for i < len(line) && line[i] == char {
		i++
		width++
	}
	return char, width
}

func isClosingFence(line []byte, char byte, width int) bool {
	if char == 0 {
		return false
	}
	c, w := fenceMarker(line)
	if c != char || w < width {
		return false
	}
	rest := bytes.TrimLeft(bytes.TrimSpace(line), string(char))
	return len(rest) == 0
}
