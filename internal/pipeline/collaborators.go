package pipeline

import (
	"context"
	"errors"
)

// ErrUnresolved indicates a reference has no target.
var ErrUnresolved = errors.New("reference not resolved")

// Resolver maps image and note references to locations.
type Resolver interface {
	// ResolveForPreview returns a path the live preview can load.
	ResolveForPreview(ctx context.Context, url, sourcePath string) (string, error)
	// ResolveForExport returns an absolute local filesystem path.
	ResolveForExport(ctx context.Context, url, sourcePath string) (string, error)
	// ReadFile returns the text content at a resolved path.
	ReadFile(ctx context.Context, path string) (string, error)
}

// Rasterizer renders diagram source to an image data URL.
type Rasterizer interface {
	Render(ctx context.Context, code string) (string, error)
}

// EmbedCache returns pre-rendered markup for an embedded note.
type EmbedCache interface {
	Lookup(sourcePath, name string) (string, bool)
}
