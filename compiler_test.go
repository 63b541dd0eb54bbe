package slidesync

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGoldmarkCompiler_Compile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		markdown string
		count    int
		title    string
		contains []string
		excludes []string
	}{
		{
			name:     "two slides",
			markdown: "# One\n---\n# Two\n",
			count:    2,
			contains: []string{
				`<div class="slides">`,
				`<section class="slide" data-page="0">`,
				`<section class="slide" data-page="1">`,
				"One</h1>",
				"Two</h1>",
			},
		},
		{
			name:     "frontmatter title",
			markdown: "---\ntitle: Quarterly\ntheme: gaia\n---\n# One\n",
			count:    1,
			title:    "Quarterly",
			excludes: []string{"theme: gaia", "Quarterly"},
		},
		{
			name:     "frontmatter without title",
			markdown: "---\nmarp: true\n---\n# One\n",
			count:    1,
			excludes: []string{"marp: true"},
		},
		{
			name:     "empty deck",
			markdown: "",
			count:    0,
			contains: []string{`<div class="slides">`},
			excludes: []string{"<section"},
		},
		{
			name:     "highlighted code",
			markdown: "```go\nfunc main() {}\n```\n",
			count:    1,
			contains: []string{`class="chroma"`},
		},
	}

	c, err := NewGoldmarkCompiler()
	if err != nil {
		t.Fatalf("NewGoldmarkCompiler: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slides, err := c.Compile(context.Background(), tt.markdown)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if slides.Count != tt.count {
				t.Errorf("Count = %d, want %d", slides.Count, tt.count)
			}
			if slides.Title != tt.title {
				t.Errorf("Title = %q, want %q", slides.Title, tt.title)
			}
			for _, s := range tt.contains {
				if !strings.Contains(slides.Markup, s) {
					t.Errorf("Markup missing %q:\n%s", s, slides.Markup)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(slides.Markup, s) {
					t.Errorf("Markup contains %q:\n%s", s, slides.Markup)
				}
			}
		})
	}
}

func TestGoldmarkCompiler_Stylesheet(t *testing.T) {
	t.Parallel()

	c, err := NewGoldmarkCompiler()
	if err != nil {
		t.Fatal(err)
	}
	slides, err := c.Compile(context.Background(), "# A")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"section.slide", ".chroma"} {
		if !strings.Contains(slides.Stylesheet, s) {
			t.Errorf("Stylesheet missing %q", s)
		}
	}
}

func TestGoldmarkCompiler_ThemeDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "styles/slides.css", "section.slide { background: hotpink; }")

	c, err := NewGoldmarkCompiler(WithThemeDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	slides, err := c.Compile(context.Background(), "# A")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(slides.Stylesheet, "hotpink") {
		t.Errorf("Stylesheet = %q, want theme override", slides.Stylesheet)
	}
}

func TestGoldmarkCompiler_Canceled(t *testing.T) {
	t.Parallel()

	c, err := NewGoldmarkCompiler()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Compile(ctx, "# A"); !errors.Is(err, ErrCompile) {
		t.Errorf("got %v, want ErrCompile", err)
	}
}
