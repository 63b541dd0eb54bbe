package mdtree

import "strings"

// Render serializes n back to markdown.
func Render(n Node) string {
	var b strings.Builder
	render(&b, n)
	return b.String()
}

func render(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Root:
		for _, c := range n.Nodes {
			render(b, c)
		}
	case *Text:
		b.WriteString(n.Value)
	case *Raw:
		b.WriteString(n.Value)
	case *Frontmatter:
		b.WriteString(n.Value)
	case *Image:
		if n.Source != "" {
			b.WriteString(n.Source)
			return
		}
		b.WriteString("![")
		b.WriteString(escapeLabel(n.Alt))
		b.WriteString("](")
		writeTarget(b, n.URL, n.Title)
		b.WriteByte(')')
	case *Link:
		b.WriteByte('[')
		for _, c := range n.Nodes {
			render(b, c)
		}
		b.WriteString("](")
		writeTarget(b, n.URL, n.Title)
		b.WriteByte(')')
	case *Code:
		if n.Source != "" {
			b.WriteString(n.Source)
			return
		}
		fence := codeFence(n.Value)
		b.WriteString(fence)
		b.WriteString(n.Lang)
		if n.Meta != "" {
			b.WriteByte(' ')
			b.WriteString(n.Meta)
		}
		b.WriteByte('\n')
		b.WriteString(n.Value)
		if n.Value != "" && !strings.HasSuffix(n.Value, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(fence)
	}
}

func writeTarget(b *strings.Builder, url, title string) {
	if url == "" || strings.ContainsAny(url, " \t\n()<>") {
		b.WriteByte('<')
		b.WriteString(strings.NewReplacer("<", "\\<", ">", "\\>").Replace(url))
		b.WriteByte('>')
	} else {
		b.WriteString(url)
	}
	if title != "" {
		b.WriteString(` "`)
		b.WriteString(strings.ReplaceAll(title, `"`, `\"`))
		b.WriteByte('"')
	}
}

func escapeLabel(s string) string {
	return strings.NewReplacer("[", "\\[", "]", "\\]").Replace(s)
}

// codeFence returns a backtick fence longer than any run inside value.
func codeFence(value string) string {
	longest, run := 0, 0
	for i := 0; i < len(value); i++ {
		if value[i] == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
