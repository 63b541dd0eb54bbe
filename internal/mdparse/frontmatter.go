package mdparse

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// KindFrontmatter is the node kind of a leading YAML block.
var KindFrontmatter = ast.NewNodeKind("Frontmatter")

// Frontmatter is a leading `---` delimited metadata block. Its lines hold the
// YAML body without the fences.
type Frontmatter struct {
	ast.BaseBlock
}

// Kind implements ast.Node.
func (n *Frontmatter) Kind() ast.NodeKind {
	return KindFrontmatter
}

// IsRaw implements ast.Node.
func (n *Frontmatter) IsRaw() bool {
	return true
}

// Dump implements ast.Node.
func (n *Frontmatter) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Body returns the YAML between the fences.
func (n *Frontmatter) Body(src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.Bytes()
}

// frontmatterParser opens only on line 0 and only when a closing fence
// exists, so an unclosed leading `---` still parses as a page separator.
type frontmatterParser struct{}

func (p *frontmatterParser) Trigger() []byte {
	return []byte{'-'}
}

func (p *frontmatterParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	if lineNum, _ := reader.Position(); lineNum != 0 {
		return nil, parser.NoChildren
	}
	line, _ := reader.PeekLine()
	if !isFrontmatterFence(line) {
		return nil, parser.NoChildren
	}
	if _, ok := FrontmatterEnd(reader.Source()); !ok {
		return nil, parser.NoChildren
	}
	return &Frontmatter{}, parser.NoChildren
}

func (p *frontmatterParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if isFrontmatterFence(line) {
		reader.Advance(segment.Len())
		return parser.Close
	}
	node.Lines().Append(segment)
	return parser.Continue | parser.NoChildren
}

func (p *frontmatterParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *frontmatterParser) CanInterruptParagraph() bool {
	return false
}

func (p *frontmatterParser) CanAcceptIndentedLine() bool {
	return false
}

// FrontmatterEnd reports the offset just before the line terminator of the
// closing fence of a leading frontmatter block.
func FrontmatterEnd(src []byte) (int, bool) {
	first := lineEnd(src, 0)
	if !isFrontmatterFence(src[:first]) {
		return 0, false
	}
	for pos := nextLine(src, 0); pos < len(src); pos = nextLine(src, pos) {
		end := lineEnd(src, pos)
		if isFrontmatterFence(src[pos:end]) {
			return end, true
		}
	}
	return 0, false
}

func isFrontmatterFence(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r\n")) == frontmatterFence
}
