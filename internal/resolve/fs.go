package resolve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-slidesync/internal/fileutil"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// PreviewPrefix starts every preview path.
const PreviewPrefix = "/files/"

// ErrOutsideVault is returned for paths that leave the vault.
var ErrOutsideVault = errors.New("path outside vault")

// FS resolves references against a vault directory.
type FS struct {
	vault string
	log   logrus.FieldLogger
}

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *FS) {
		f.log = l
	}
}

// New creates an FS rooted at vault.
func New(vault string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(vault)
	if err != nil {
		return nil, fmt.Errorf("resolving vault: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening vault: %s is not a directory", abs)
	}

	f := &FS{vault: abs, log: pipeline.DiscardLogger()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Vault returns the absolute vault directory.
func (f *FS) Vault() string {
	return f.vault
}

// ResolveForPreview returns the preview path of ref. Targets outside the
// vault cannot be served and are unresolved.
func (f *FS) ResolveForPreview(ctx context.Context, ref, sourcePath string) (string, error) {
	abs, err := f.Lookup(ctx, ref, sourcePath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(f.vault, abs)
	if err != nil || !fileutil.Within(f.vault, abs) {
		return "", fmt.Errorf("%w: %s", pipeline.ErrUnresolved, ref)
	}
	return PreviewPrefix + escapePath(filepath.ToSlash(rel)), nil
}

// ResolveForExport returns the absolute path of ref with forward slashes.
func (f *FS) ResolveForExport(ctx context.Context, ref, sourcePath string) (string, error) {
	abs, err := f.Lookup(ctx, ref, sourcePath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

// ReadFile returns the content of a resolved path. Only files inside the
// vault are read, so a deck cannot inline arbitrary files by absolute path.
func (f *FS) ReadFile(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	native := filepath.FromSlash(p)
	if !filepath.IsAbs(native) || !fileutil.Within(f.vault, native) {
		return "", fmt.Errorf("%w: %w: %s", pipeline.ErrUnresolved, ErrOutsideVault, p)
	}
	data, err := os.ReadFile(native) // #nosec G304 -- confined to the vault
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", pipeline.ErrUnresolved, p)
		}
		return "", fmt.Errorf("reading %s: %w", p, err)
	}
	return string(data), nil
}

// Open maps a preview path back to a file inside the vault.
func (f *FS) Open(previewPath string) (string, error) {
	rel, err := url.PathUnescape(strings.TrimPrefix(previewPath, PreviewPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutsideVault, err)
	}
	abs := filepath.Join(f.vault, filepath.FromSlash(path.Clean("/"+rel)))
	if !fileutil.Within(f.vault, abs) {
		return "", ErrOutsideVault
	}
	if !fileutil.FileExists(abs) {
		return "", fmt.Errorf("%w: %s", pipeline.ErrUnresolved, previewPath)
	}
	return abs, nil
}

// Lookup returns the absolute path of the file ref points to from the note
// at sourcePath.
func (f *FS) Lookup(ctx context.Context, ref, sourcePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := clean(ref)
	if err != nil || name == "" {
		return "", fmt.Errorf("%w: %s", pipeline.ErrUnresolved, ref)
	}

	if strings.HasPrefix(name, PreviewPrefix) {
		return f.Open(name)
	}

	for _, candidate := range f.candidates(name, sourcePath) {
		if fileutil.FileExists(candidate) {
			return candidate, nil
		}
	}

	if found, ok := f.byBaseName(ctx, name); ok {
		return found, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.log.WithField("ref", ref).Debug("reference not found in vault")
	return "", fmt.Errorf("%w: %s", pipeline.ErrUnresolved, ref)
}

func (f *FS) candidates(name, sourcePath string) []string {
	native := filepath.FromSlash(name)
	if filepath.IsAbs(native) {
		return withNoteExt(native)
	}

	var out []string
	if sourcePath != "" {
		dir := filepath.Dir(sourcePath)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(f.vault, dir)
		}
		out = append(out, withNoteExt(filepath.Join(dir, native))...)
	}
	out = append(out, withNoteExt(filepath.Join(f.vault, native))...)

	inside := out[:0]
	for _, c := range out {
		if fileutil.Within(f.vault, c) {
			inside = append(inside, c)
		}
	}
	return inside
}

// byBaseName walks the vault in lexical order for the first file whose name
// matches the last element of name. Hidden directories are skipped.
func (f *FS) byBaseName(ctx context.Context, name string) (string, bool) {
	targets := withNoteExt(path.Base(name))
	var found string
	_ = filepath.WalkDir(f.vault, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if p != f.vault && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		for _, t := range targets {
			if d.Name() == t {
				found = p
				return filepath.SkipAll
			}
		}
		return nil
	})
	return found, found != ""
}

// clean strips a file URL scheme, query, fragment and percent-encoding.
func clean(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(strings.ToLower(ref), "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", err
		}
		p := u.Path
		if len(p) > 2 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
		return p, nil
	}
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.IndexByte(ref, '|'); i >= 0 {
		ref = ref[:i]
	}
	return url.PathUnescape(ref)
}

// withNoteExt adds a ".md" candidate for extensionless names.
func withNoteExt(p string) []string {
	if filepath.Ext(p) == "" {
		return []string{p, p + ".md"}
	}
	return []string{p}
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

var _ pipeline.Resolver = (*FS)(nil)
