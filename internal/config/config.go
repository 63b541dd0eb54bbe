// Package config loads slidesync settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-slidesync/internal/fileutil"
	"github.com/alnah/go-slidesync/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidValue   = errors.New("invalid config value")
	ErrFieldTooLong   = errors.New("field exceeds maximum length")
)

// Environment overrides.
const (
	EnvVault = "SLIDESYNC_VAULT"
	EnvAddr  = "SLIDESYNC_ADDR"
)

// FileName is the base name searched in the working and user config dirs.
const FileName = "slidesync"

// Defaults.
const (
	DefaultAddr        = "127.0.0.1:7878"
	DefaultConcurrency = 16
	DefaultBackend     = "marp"
	MaxConcurrency     = 256
	MaxPathLength      = 4096
)

// Supported export backends.
const (
	BackendMarp   = "marp"
	BackendChrome = "chrome"
)

// DefaultMarpCommand runs marp-cli through npx, writing the PDF to stdout.
// The markdown file path is appended.
var DefaultMarpCommand = []string{
	"npx", "-y", "@marp-team/marp-cli@latest",
	"--html", "--allow-local-files", "--pdf", "-o", "-",
}

// DefaultDiagramCommand runs mermaid-cli reading stdin and writing SVG to stdout.
var DefaultDiagramCommand = []string{"mmdc", "-i", "-", "-o", "-", "-e", "svg"}

// Config holds all slidesync settings.
type Config struct {
	Vault   string        `yaml:"vault"` // Root for reference lookup (empty = document dir)
	Preview PreviewConfig `yaml:"preview"`
	Export  ExportConfig  `yaml:"export"`
	Diagram DiagramConfig `yaml:"diagram"`
	Theme   ThemeConfig   `yaml:"theme"`
}

// PreviewConfig defines live preview options.
type PreviewConfig struct {
	Addr        string `yaml:"addr"`
	Concurrency int    `yaml:"concurrency"` // Transforms in flight per stage
}

// ExportConfig defines PDF export options.
type ExportConfig struct {
	Backend string   `yaml:"backend"` // "marp" or "chrome"
	Command []string `yaml:"command"` // marp command, file path appended
	WorkDir string   `yaml:"workDir"` // Temp markdown location (empty = document dir)
}

// DiagramConfig defines diagram rasterization options.
type DiagramConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"`
	Command   []string `yaml:"command"`
}

// ThemeConfig defines preview styling.
type ThemeConfig struct {
	Dir string `yaml:"dir"` // Asset base dir with styles/ and templates/ (empty = embedded)
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Preview: PreviewConfig{Addr: DefaultAddr, Concurrency: DefaultConcurrency},
		Export: ExportConfig{
			Backend: DefaultBackend,
			Command: append([]string(nil), DefaultMarpCommand...),
		},
		Diagram: DiagramConfig{
			Enabled:   true,
			Languages: []string{"mermaid"},
			Command:   append([]string(nil), DefaultDiagramCommand...),
		},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	for field, value := range map[string]string{
		"vault":          c.Vault,
		"export.workDir": c.Export.WorkDir,
		"theme.dir":      c.Theme.Dir,
	} {
		if err := validateFieldLength(field, value, MaxPathLength); err != nil {
			return err
		}
	}

	if c.Preview.Concurrency < 0 || c.Preview.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: preview.concurrency must be between 0 and %d, got %d",
			ErrInvalidValue, MaxConcurrency, c.Preview.Concurrency)
	}

	switch strings.ToLower(c.Export.Backend) {
	case "", BackendMarp, BackendChrome:
	default:
		return fmt.Errorf("%w: export.backend %q (must be marp or chrome)", ErrInvalidValue, c.Export.Backend)
	}

	if c.Diagram.Enabled && len(c.Diagram.Command) == 0 {
		return fmt.Errorf("%w: diagram.command required when diagrams are enabled", ErrInvalidValue)
	}
	for i, lang := range c.Diagram.Languages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("%w: diagram.languages[%d] is empty", ErrInvalidValue, i)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig reads, decodes and validates the file at path. Fields absent
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load resolves the configuration for a run. An explicit path must exist.
// Otherwise the working directory and then the user config directory are
// searched, falling back to DefaultConfig. Environment overrides are
// applied last.
func Load(explicit string, getenv func(string) string) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch {
	case explicit != "":
		cfg, err = LoadConfig(explicit)
	default:
		if path, ok := searchConfig(); ok {
			cfg, err = LoadConfig(path)
		} else {
			cfg = DefaultConfig()
		}
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields with non-empty environment values.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := getenv(EnvVault); v != "" {
		c.Vault = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Preview.Addr = v
	}
}

// SearchPaths lists candidate config files in lookup order.
func SearchPaths() []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, FileName+ext)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-slidesync", FileName+ext))
		}
	}

	return paths
}

func searchConfig() (string, bool) {
	for _, p := range SearchPaths() {
		if fileutil.FileExists(p) {
			return p, true
		}
	}
	return "", false
}
