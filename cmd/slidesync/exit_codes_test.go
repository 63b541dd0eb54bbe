package main

// Notes:
// - exitCodeFor: we test the sentinel errors of the library, config and
//   CLI, plus wrapped errors to verify the errors.Is chain.
// - Exit code constants: we verify Unix conventions and that custom codes
//   stay below 126.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	slidesync "github.com/alnah/go-slidesync"
	"github.com/alnah/go-slidesync/internal/assets"
	"github.com/alnah/go-slidesync/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitSuccess},

		{"canceled", context.Canceled, ExitInterrupted},
		{"wrapped canceled", fmt.Errorf("page 2: %w", context.Canceled), ExitInterrupted},

		{"browser connect", slidesync.ErrBrowserConnect, ExitBrowser},
		{"page create", slidesync.ErrPageCreate, ExitBrowser},
		{"page load", slidesync.ErrPageLoad, ExitBrowser},
		{"pdf generation", slidesync.ErrPDFGeneration, ExitBrowser},

		{"export failed", slidesync.ErrExportFailed, ExitExport},
		{"exit error", &slidesync.ExitError{Code: 1, Stderr: "npx: not found"}, ExitExport},

		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"read markdown", ErrReadMarkdown, ExitIO},
		{"write pdf", ErrWritePDF, ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"wrapped file not exist", fmt.Errorf("reading: %w", os.ErrNotExist), ExitIO},

		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"invalid base path", assets.ErrInvalidBasePath, ExitUsage},
		{"no pages", slidesync.ErrNoPages, ExitUsage},
		{"unknown backend", slidesync.ErrUnknownBackend, ExitUsage},
		{"usage", ErrUsage, ExitUsage},

		{"unknown error", errors.New("boom"), ExitGeneral},
		{"deadline", context.DeadlineExceeded, ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.expected {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Unix conventions
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 || ExitGeneral != 1 || ExitUsage != 2 {
		t.Errorf("standard codes = %d/%d/%d, want 0/1/2", ExitSuccess, ExitGeneral, ExitUsage)
	}
	for _, code := range []int{ExitIO, ExitBrowser, ExitExport} {
		if code >= 126 {
			t.Errorf("custom exit code %d collides with shell reserved codes", code)
		}
	}
	if ExitInterrupted != 128+2 {
		t.Errorf("ExitInterrupted = %d, want 130 (128+SIGINT)", ExitInterrupted)
	}
}
