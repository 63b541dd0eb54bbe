// Package diagram rasterizes diagram source through an external command
// such as mermaid-cli.
package diagram

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-slidesync/internal/pipeline"
	"github.com/alnah/go-slidesync/internal/process"
)

// Sentinel errors for rasterization.
var (
	ErrRender      = errors.New("diagram rendering failed")
	ErrEmptyOutput = errors.New("diagram command produced no output")
)

// DefaultTimeout bounds one command run.
const DefaultTimeout = 30 * time.Second

// maxCached bounds the number of remembered renderings.
const maxCached = 256

// CLIRasterizer pipes diagram source to a command on stdin and reads the
// image from stdout. Identical sources share one run and are cached.
type CLIRasterizer struct {
	command []string
	dir     string
	timeout time.Duration
	log     logrus.FieldLogger

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]string
	order []string
}

// Option configures a CLIRasterizer.
type Option func(*CLIRasterizer)

// WithDir sets the command's working directory.
func WithDir(dir string) Option {
	return func(r *CLIRasterizer) {
		r.dir = dir
	}
}

// WithTimeout bounds each command run.
func WithTimeout(d time.Duration) Option {
	return func(r *CLIRasterizer) {
		r.timeout = d
	}
}

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *CLIRasterizer) {
		r.log = l
	}
}

// NewCLIRasterizer creates a rasterizer running command.
func NewCLIRasterizer(command []string, opts ...Option) *CLIRasterizer {
	r := &CLIRasterizer{
		command: append([]string(nil), command...),
		timeout: DefaultTimeout,
		log:     pipeline.DiscardLogger(),
		cache:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns a data URL of the rendered diagram.
func (r *CLIRasterizer) Render(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := digest(code)

	r.mu.Lock()
	url, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return url, nil
	}

	// The shared run outlives any single waiter.
	ch := r.group.DoChan(key, func() (any, error) {
		return r.run(context.WithoutCancel(ctx), code)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		url := res.Val.(string)
		r.remember(key, url)
		return url, nil
	}
}

func (r *CLIRasterizer) run(ctx context.Context, code string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := process.Run(ctx, r.dir, strings.NewReader(code), r.command...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	if res.Code != 0 {
		return "", fmt.Errorf("%w: exit status %d: %s", ErrRender, res.Code, firstLine(res.Stderr))
	}
	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return "", ErrEmptyOutput
	}

	r.log.WithFields(logrus.Fields{
		"bytes":    len(res.Stdout),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("diagram rendered")

	return DataURL(res.Stdout), nil
}

func (r *CLIRasterizer) remember(key, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[key]; ok {
		return
	}
	if len(r.order) >= maxCached {
		delete(r.cache, r.order[0])
		r.order = r.order[1:]
	}
	r.cache[key] = url
	r.order = append(r.order, key)
}

// DataURL encodes image bytes as a base64 data URL. SVG is recognized by its
// markup, other formats by content sniffing.
func DataURL(data []byte) string {
	mediaType := http.DetectContentType(data)
	if isSVG(data) {
		mediaType = "image/svg+xml"
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func isSVG(data []byte) bool {
	head := bytes.TrimSpace(data)
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<svg")) ||
		(bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg")))
}

func digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no error output"
	}
	return s
}

var _ pipeline.Rasterizer = (*CLIRasterizer)(nil)
