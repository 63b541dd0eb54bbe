package slidesync

import (
	"path/filepath"
	"sync"
)

// Registry holds the open documents, keyed by DocumentID.
// It is safe for concurrent use.
type Registry struct {
	opts []Option

	mu   sync.Mutex
	docs map[string]*Document
}

// NewRegistry creates an empty Registry. Options are passed to every
// document it opens.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts: opts,
		docs: make(map[string]*Document),
	}
}

// DocumentID returns the identity of the document at path: its cleaned
// absolute form.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Open returns the document at path, creating it on first reference.
func (r *Registry) Open(path string) *Document {
	id := DocumentID(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[id]; ok {
		return doc
	}
	doc := newDocument(id, r.opts...)
	r.docs[id] = doc
	return doc
}

// Get returns the open document at path.
func (r *Registry) Get(path string) (*Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[DocumentID(path)]
	return doc, ok
}

// Close evicts the document at path and releases its subscriptions.
// It reports whether the document was open.
func (r *Registry) Close(path string) bool {
	id := DocumentID(path)

	r.mu.Lock()
	doc, ok := r.docs[id]
	delete(r.docs, id)
	r.mu.Unlock()

	if ok {
		doc.close()
	}
	return ok
}

// Len returns the number of open documents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}
