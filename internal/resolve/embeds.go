package resolve

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-slidesync/internal/mdparse"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// embedTimeout bounds the conversion of one embedded note.
const embedTimeout = 10 * time.Second

type embedEntry struct {
	modTime time.Time
	markup  string
}

// NoteEmbeds renders embedded markdown notes to HTML. Results are cached per
// path and reused until the file's modification time changes.
type NoteEmbeds struct {
	fs   *FS
	conv pipeline.HTMLConverter

	mu    sync.Mutex
	cache map[string]embedEntry
}

// NewNoteEmbeds creates an embed cache resolving notes through fs.
func NewNoteEmbeds(fs *FS, conv pipeline.HTMLConverter) *NoteEmbeds {
	return &NoteEmbeds{
		fs:    fs,
		conv:  conv,
		cache: make(map[string]embedEntry),
	}
}

// Lookup returns the rendered markup of the note name embedded from
// sourcePath. Non-markdown targets are not embeddable.
func (n *NoteEmbeds) Lookup(sourcePath, name string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), embedTimeout)
	defer cancel()

	path, err := n.fs.Lookup(ctx, name, sourcePath)
	if err != nil || !strings.EqualFold(filepath.Ext(path), ".md") {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}

	n.mu.Lock()
	entry, ok := n.cache[path]
	n.mu.Unlock()
	if ok && entry.modTime.Equal(info.ModTime()) {
		return entry.markup, true
	}

	content, err := n.fs.ReadFile(ctx, path)
	if err != nil {
		n.fs.log.WithError(err).WithField("embed", name).Warn("reading embedded note")
		return "", false
	}
	if end, ok := mdparse.FrontmatterEnd([]byte(content)); ok {
		content = content[end:]
	}
	body, err := n.conv.ToHTML(ctx, content)
	if err != nil {
		n.fs.log.WithError(err).WithField("embed", name).Warn("rendering embedded note")
		return "", false
	}

	markup := `<div class="markdown-embed">` + strings.TrimSpace(body) + `</div>`

	n.mu.Lock()
	n.cache[path] = embedEntry{modTime: info.ModTime(), markup: markup}
	n.mu.Unlock()

	return markup, true
}

// Forget drops the cached rendering of path.
func (n *NoteEmbeds) Forget(path string) {
	n.mu.Lock()
	delete(n.cache, path)
	n.mu.Unlock()
}

var _ pipeline.EmbedCache = (*NoteEmbeds)(nil)
