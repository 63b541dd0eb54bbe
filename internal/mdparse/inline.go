package mdparse

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	labelOpenersKey = parser.NewContextKey()
	linkSpansKey    = parser.NewContextKey()
	inlineSpansKey  = parser.NewContextKey()
)

// LinkSpan locates an inline link or image. Span covers the construct from
// its opening `[` (or `!`) through its closing parenthesis or label; Label is
// the offset of the `]` closing its text.
type LinkSpan struct {
	Span
	Label int
}

// Inline reports whether the link uses the `[text](dest "title")` form rather
// than a reference.
func (s LinkSpan) Inline(src []byte) bool {
	return s.End > s.Label+1 && src[s.Label+1] == '('
}

// inlineParsers returns goldmark's inline parsers at their usual priorities,
// with the link parser wrapped by a linkTracker and the code span, autolink
// and raw HTML parsers by an inlineTracker.
func inlineParsers() []util.PrioritizedValue {
	link := parser.NewLinkParser()
	parsers := parser.DefaultInlineParsers()
	for i, v := range parsers {
		switch v.Value {
		case link:
			parsers[i] = util.Prioritized(linkTracker{link}, v.Priority)
		case parser.NewCodeSpanParser(), parser.NewAutoLinkParser(), parser.NewRawHTMLParser():
			parsers[i] = util.Prioritized(inlineTracker{v.Value.(parser.InlineParser)}, v.Priority)
		}
	}
	return parsers
}

// inlineTracker records the source extent of the code spans, autolinks and
// raw HTML produced by the wrapped parser.
type inlineTracker struct {
	parser.InlineParser
}

func (t inlineTracker) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	_, segment := block.PeekLine()
	node := t.InlineParser.Parse(parent, block, pc)
	switch node.(type) {
	case *ast.CodeSpan, *ast.AutoLink, *ast.RawHTML:
		_, pos := block.Position()
		spans, _ := pc.Get(inlineSpansKey).(map[ast.Node]Span)
		if spans == nil {
			spans = make(map[ast.Node]Span)
			pc.Set(inlineSpansKey, spans)
		}
		spans[node] = Span{Start: segment.Start, End: pos.Start}
	}
	return node
}

// linkTracker delegates to goldmark's link parser and records the source
// extent of every link and image it produces. goldmark keeps open labels on a
// stack and always closes the innermost one on `]`, so the tracker mirrors
// that stack with the offsets of the openers.
type linkTracker struct {
	parser.InlineParser
}

func (t linkTracker) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	openers, _ := pc.Get(labelOpenersKey).([]int)

	if line[0] != ']' {
		node := t.InlineParser.Parse(parent, block, pc)
		if node != nil {
			pc.Set(labelOpenersKey, append(openers, segment.Start))
		}
		return node
	}

	node := t.InlineParser.Parse(parent, block, pc)
	if len(openers) == 0 {
		return node
	}
	start := openers[len(openers)-1]
	pc.Set(labelOpenersKey, openers[:len(openers)-1])

	switch node.(type) {
	case *ast.Link, *ast.Image:
		_, pos := block.Position()
		spans, _ := pc.Get(linkSpansKey).(map[ast.Node]LinkSpan)
		if spans == nil {
			spans = make(map[ast.Node]LinkSpan)
			pc.Set(linkSpansKey, spans)
		}
		spans[node] = LinkSpan{Span: Span{Start: start, End: pos.Start}, Label: segment.Start}
	}
	return node
}

func (t linkTracker) CloseBlock(parent ast.Node, block text.Reader, pc parser.Context) {
	if closer, ok := t.InlineParser.(parser.CloseBlocker); ok {
		closer.CloseBlock(parent, block, pc)
	}
	pc.Set(labelOpenersKey, nil)
}
