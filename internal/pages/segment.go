package pages

import (
	"github.com/yuin/goldmark/ast"

	"github.com/alnah/go-slidesync/internal/mdparse"
)

// Segment splits src into pages at each root-level thematic break. A leading
// frontmatter block belongs to the first page and never splits it.
//
// Every record is marked IsUpdate: a fresh segmentation is new until diffed.
// When the document ends exactly at a separator no trailing page is emitted.
func Segment(src, sourcePath string) List {
	data := []byte(src)
	doc := mdparse.Parse(data, mdparse.WithFrontmatter(true))

	var list List
	cut := 0
	for n := doc.Root.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() != ast.KindThematicBreak {
			continue
		}
		span, ok := doc.Span(n)
		if !ok || span.Start < cut {
			continue
		}
		list = append(list, newRecord(len(list), cut, span.Start, src, sourcePath))
		cut = span.End
	}
	if cut < len(src) {
		list = append(list, newRecord(len(list), cut, len(src), src, sourcePath))
	}
	return list
}

func newRecord(page, start, end int, src, sourcePath string) Record {
	return Record{
		Page:       page,
		Start:      start,
		End:        end,
		Content:    src[start:end],
		IsUpdate:   true,
		SourcePath: sourcePath,
	}
}
