package main

import (
	"context"
	"errors"
	"os"

	slidesync "github.com/alnah/go-slidesync"
	"github.com/alnah/go-slidesync/internal/assets"
	"github.com/alnah/go-slidesync/internal/config"
)

// Exit codes for the slidesync CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0   // Command completed
	ExitGeneral     = 1   // General/unexpected error
	ExitUsage       = 2   // Invalid flags, config, or validation
	ExitIO          = 3   // File not found, permission denied
	ExitBrowser     = 4   // Browser/Chrome errors
	ExitExport      = 5   // Export command failed
	ExitInterrupted = 130 // Canceled by a signal
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	// Browser errors (exit 4)
	if errors.Is(err, slidesync.ErrBrowserConnect) ||
		errors.Is(err, slidesync.ErrPageCreate) ||
		errors.Is(err, slidesync.ErrPageLoad) ||
		errors.Is(err, slidesync.ErrPDFGeneration) {
		return ExitBrowser
	}

	// Export command errors (exit 5)
	if errors.Is(err, slidesync.ErrExportFailed) {
		return ExitExport
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, slidesync.ErrNoPages) ||
		errors.Is(err, slidesync.ErrUnknownBackend) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
