package diagram

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// ---------------------------------------------------------------------------
// TestDataURL
// ---------------------------------------------------------------------------

func TestDataURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), "data:image/svg+xml;base64,"},
		{"svg with prolog", []byte("<?xml version=\"1.0\"?>\n<svg></svg>"), "data:image/svg+xml;base64,"},
		{"png", []byte("\x89PNG\r\n\x1a\n0000"), "data:image/png;base64,"},
		{"text", []byte("hello"), "data:text/plain;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DataURL(tt.data)
			if !strings.HasPrefix(got, tt.expected) {
				t.Errorf("DataURL() = %q, want prefix %q", got, tt.expected)
			}
			decoded, err := base64.StdEncoding.DecodeString(got[strings.IndexByte(got, ',')+1:])
			if err != nil || string(decoded) != string(tt.data) {
				t.Errorf("payload does not round-trip: %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCLIRasterizer
// ---------------------------------------------------------------------------

func TestCLIRasterizer_Render(t *testing.T) {
	t.Parallel()
	requireShell(t)

	r := NewCLIRasterizer([]string{"sh", "-c", `printf '<svg>'; cat; printf '</svg>'`})

	got, err := r.Render(context.Background(), "graph TD")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte("<svg>graph TD</svg>"))
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestCLIRasterizer_Cache(t *testing.T) {
	t.Parallel()
	requireShell(t)

	counter := filepath.Join(t.TempDir(), "runs")
	r := NewCLIRasterizer([]string{"sh", "-c", `echo x >> "$0"; printf '<svg/>'`, counter})

	for range 3 {
		if _, err := r.Render(context.Background(), "same"); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(counter)
	if err != nil {
		t.Fatal(err)
	}
	if runs := strings.Count(string(data), "x"); runs != 1 {
		t.Errorf("command ran %d times, want 1", runs)
	}
}

func TestCLIRasterizer_Failure(t *testing.T) {
	t.Parallel()
	requireShell(t)

	tests := []struct {
		name     string
		script   string
		wantErr  error
		contains string
	}{
		{"non-zero exit", "echo 'Parse error on line 1' >&2; exit 1", ErrRender, "Parse error on line 1"},
		{"silent exit", "exit 2", ErrRender, "no error output"},
		{"empty output", "true", ErrEmptyOutput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewCLIRasterizer([]string{"sh", "-c", tt.script})
			_, err := r.Render(context.Background(), "graph")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Render() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q should contain %q", err, tt.contains)
			}
		})
	}
}

func TestCLIRasterizer_MissingCommand(t *testing.T) {
	t.Parallel()

	r := NewCLIRasterizer([]string{"slidesync-no-such-mmdc"})
	if _, err := r.Render(context.Background(), "graph"); !errors.Is(err, ErrRender) {
		t.Errorf("Render() error = %v, want ErrRender", err)
	}
}

func TestCLIRasterizer_Canceled(t *testing.T) {
	t.Parallel()
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewCLIRasterizer([]string{"sh", "-c", "sleep 5"})
	if _, err := r.Render(ctx, "graph"); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}
