package slidesync

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-slidesync/internal/pipeline"
)

// Default values for library options.
const (
	defaultConcurrency = 8
	defaultTimeout     = 2 * time.Minute
)

type settings struct {
	log      logrus.FieldLogger
	limit    int
	themeDir string
	rewrite  pipeline.SourceRewriter
	timeout  time.Duration
}

// Option configures the types of this package. Each constructor reads the
// options that apply to it and ignores the rest.
type Option func(*settings)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConcurrency bounds how many pages are processed at once.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		s.limit = n
	}
}

// WithThemeDir makes the compiler load its stylesheet from dir, falling
// back to the built-in one.
func WithThemeDir(dir string) Option {
	return func(s *settings) {
		s.themeDir = dir
	}
}

// WithImageRewriter makes the renderer pass every local <img> source in the
// compiled markup through fn. Raw HTML written in the document is not seen
// by the pipeline, so this is where its images get preview paths.
func WithImageRewriter(fn pipeline.SourceRewriter) Option {
	return func(s *settings) {
		s.rewrite = fn
	}
}

// WithTimeout bounds page loads in the chrome backend.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		log:     pipeline.DiscardLogger(),
		limit:   defaultConcurrency,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
