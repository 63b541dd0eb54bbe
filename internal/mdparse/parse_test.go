package mdparse

import (
	"testing"

	"github.com/yuin/goldmark/ast"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func spansOf[T ast.Node](t *testing.T, doc *Document) []Span {
	t.Helper()
	var spans []Span
	for n := doc.Root.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(T); !ok {
			continue
		}
		s, ok := doc.Span(n)
		if !ok {
			t.Fatalf("node %s has no recorded span", n.Kind())
		}
		spans = append(spans, s)
	}
	return spans
}

// ---------------------------------------------------------------------------
// TestParse - Thematic breaks
// ---------------------------------------------------------------------------

func TestParse_ThematicBreakSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Span
	}{
		{
			name:  "single break between paragraphs",
			input: "A\n\n---\n\nB",
			want:  []Span{{Start: 3, End: 6}},
		},
		{
			name:  "break on first line",
			input: "---\nB",
			want:  []Span{{Start: 0, End: 3}},
		},
		{
			name:  "break at end without newline",
			input: "A\n\n***",
			want:  []Span{{Start: 3, End: 6}},
		},
		{
			name:  "setext underline is not a break",
			input: "Title\n---\n",
			want:  nil,
		},
		{
			name:  "two breaks",
			input: "a\n\n---\nb\n\n___\nc",
			want:  []Span{{Start: 3, End: 6}, {Start: 10, End: 13}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := Parse([]byte(tt.input))
			got := spansOf[*ast.ThematicBreak](t, doc)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d breaks %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("break %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestParse - Fenced code
// ---------------------------------------------------------------------------

func TestParse_FencedCodeSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		want     Span
		wantLang string
		wantMeta string
		wantBody string
	}{
		{
			name:     "closed fence with metadata",
			input:    "```mermaid w:300\ngraph TD\n```\nafter",
			want:     Span{Start: 0, End: 29},
			wantLang: "mermaid",
			wantMeta: "w:300",
			wantBody: "graph TD\n",
		},
		{
			name:     "tilde fence after paragraph",
			input:    "p\n\n~~~css\na{}\n~~~",
			want:     Span{Start: 3, End: 17},
			wantLang: "css",
			wantBody: "a{}\n",
		},
		{
			name:     "unclosed fence runs to end",
			input:    "```go\nx := 1\n",
			want:     Span{Start: 0, End: 12},
			wantLang: "go",
			wantBody: "x := 1\n",
		},
		{
			name:  "empty fence",
			input: "```\n```",
			want:  Span{Start: 0, End: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := []byte(tt.input)
			doc := Parse(src)
			spans := spansOf[*ast.FencedCodeBlock](t, doc)
			if len(spans) != 1 {
				t.Fatalf("got %d fences, want 1", len(spans))
			}
			if spans[0] != tt.want {
				t.Errorf("span = %+v, want %+v (%q)", spans[0], tt.want, tt.input[spans[0].Start:spans[0].End])
			}

			var fence *ast.FencedCodeBlock
			for n := doc.Root.FirstChild(); n != nil; n = n.NextSibling() {
				if f, ok := n.(*ast.FencedCodeBlock); ok {
					fence = f
				}
			}
			lang, meta := CodeInfo(fence, src)
			if lang != tt.wantLang || meta != tt.wantMeta {
				t.Errorf("CodeInfo = (%q, %q), want (%q, %q)", lang, meta, tt.wantLang, tt.wantMeta)
			}
			if got := CodeValue(fence, src); got != tt.wantBody {
				t.Errorf("CodeValue = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestFencedCode(t *testing.T) {
	t.Parallel()

	src := "# Theme\n\n```css\nh1 { color: red; }\n```\n\n```js\nx()\n```\n\n```CSS\np {}\n```\n"
	got := FencedCode(Parse([]byte(src)), "css")
	want := []string{"h1 { color: red; }\n", "p {}\n"}
	if len(got) != len(want) {
		t.Fatalf("FencedCode() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// TestParse - Inline spans
// ---------------------------------------------------------------------------

func TestParse_LinkSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		want       []string
		wantInline []bool
	}{
		{
			name:       "image and link",
			input:      "See ![cat](img/cat.png \"Cat\") and [docs](https://x.y).",
			want:       []string{"![cat](img/cat.png \"Cat\")", "[docs](https://x.y)"},
			wantInline: []bool{true, true},
		},
		{
			name:       "image inside link",
			input:      "[![badge](b.svg)](https://ci)",
			want:       []string{"[![badge](b.svg)](https://ci)", "![badge](b.svg)"},
			wantInline: []bool{true, true},
		},
		{
			name:       "link in heading",
			input:      "# [a](b)\n",
			want:       []string{"[a](b)"},
			wantInline: []bool{true},
		},
		{
			name:       "full reference",
			input:      "[x][r]\n\n[r]: /u\n",
			want:       []string{"[x][r]"},
			wantInline: []bool{false},
		},
		{
			name:       "shortcut reference",
			input:      "[r]\n\n[r]: /u\n",
			want:       []string{"[r]"},
			wantInline: []bool{false},
		},
		{name: "inside code span", input: "`[x](u)`"},
		{name: "unclosed", input: "[a ![b]("},
		{name: "wiki markers", input: "[[Note]] and ![[pic.png|300]]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := []byte(tt.input)
			doc := Parse(src)
			var got []string
			var gotInline []bool
			_ = ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
				if !entering {
					return ast.WalkContinue, nil
				}
				switch n.(type) {
				case *ast.Link, *ast.Image:
					span, ok := doc.Link(n)
					if !ok {
						t.Fatalf("node %s has no recorded span", n.Kind())
					}
					got = append(got, string(src[span.Start:span.End]))
					gotInline = append(gotInline, span.Inline(src))
				}
				return ast.WalkContinue, nil
			})

			if len(got) != len(tt.want) {
				t.Fatalf("spans = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("span %d = %q, want %q", i, got[i], tt.want[i])
				}
				if gotInline[i] != tt.wantInline[i] {
					t.Errorf("span %d inline = %v, want %v", i, gotInline[i], tt.wantInline[i])
				}
			}
		})
	}
}

func TestParse_LinkLabel(t *testing.T) {
	t.Parallel()

	src := []byte("x ![a [b] c](u.png) y")
	doc := Parse(src)
	para := doc.Root.FirstChild()
	for n := para.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*ast.Image); !ok {
			continue
		}
		span, ok := doc.Link(n)
		if !ok {
			t.Fatal("image has no recorded span")
		}
		if got := string(src[span.Start+2 : span.Label]); got != "a [b] c" {
			t.Errorf("label = %q, want %q", got, "a [b] c")
		}
		return
	}
	t.Fatal("no image found")
}

func TestParse_VerbatimInlineSpans(t *testing.T) {
	t.Parallel()

	src := []byte("a `![x](y)` b <https://x.y> c <span class=\"k\"> d")
	doc := Parse(src)

	var got []string
	_ = ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.CodeSpan, *ast.AutoLink, *ast.RawHTML:
			span, ok := doc.Span(n)
			if !ok {
				t.Fatalf("node %s has no recorded span", n.Kind())
			}
			got = append(got, string(src[span.Start:span.End]))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	want := []string{"`![x](y)`", "<https://x.y>", "<span class=\"k\">"}
	if len(got) != len(want) {
		t.Fatalf("spans = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// TestParse - Frontmatter
// ---------------------------------------------------------------------------

func TestParse_Frontmatter(t *testing.T) {
	t.Parallel()

	src := []byte("---\nmarp: true\ntheme: gaia\n---\n\n# Title\n\n---\n\nNext")
	doc := Parse(src, WithFrontmatter(true))

	fm := doc.Frontmatter()
	if fm == nil {
		t.Fatal("expected frontmatter")
	}
	span, _ := doc.Span(fm)
	if got := string(src[span.Start:span.End]); got != "---\nmarp: true\ntheme: gaia\n---" {
		t.Errorf("frontmatter raw = %q", got)
	}
	if got := string(fm.Body(src)); got != "marp: true\ntheme: gaia\n" {
		t.Errorf("frontmatter body = %q", got)
	}

	breaks := spansOf[*ast.ThematicBreak](t, doc)
	if len(breaks) != 1 {
		t.Fatalf("got %d breaks, want 1", len(breaks))
	}
	if got := string(src[breaks[0].Start:breaks[0].End]); got != "---" {
		t.Errorf("break text = %q", got)
	}
}

func TestParse_FrontmatterDisabled(t *testing.T) {
	t.Parallel()

	doc := Parse([]byte("---\na: 1\n---\n"))
	if doc.Frontmatter() != nil {
		t.Error("frontmatter detected without WithFrontmatter")
	}
}

func TestParse_UnclosedFrontmatterIsBreak(t *testing.T) {
	t.Parallel()

	doc := Parse([]byte("---\n\nB"), WithFrontmatter(true))
	if doc.Frontmatter() != nil {
		t.Fatal("unclosed fence parsed as frontmatter")
	}
	breaks := spansOf[*ast.ThematicBreak](t, doc)
	if len(breaks) != 1 || breaks[0] != (Span{Start: 0, End: 3}) {
		t.Errorf("breaks = %+v, want [{0 3}]", breaks)
	}
}

func TestFrontmatterEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{name: "closed", input: "---\na: 1\n---\nrest", want: 12, wantOK: true},
		{name: "closed at eof", input: "---\na: 1\n---", want: 12, wantOK: true},
		{name: "empty body", input: "---\n---\n", want: 7, wantOK: true},
		{name: "unclosed", input: "---\na: 1\n", wantOK: false},
		{name: "not at start", input: "x\n---\na\n---\n", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := FrontmatterEnd([]byte(tt.input))
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("FrontmatterEnd(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
