package slidesync

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for library operations.
var (
	ErrDocumentClosed = errors.New("document closed")
	ErrPageOutOfRange = errors.New("page out of range")
	ErrNoPages        = errors.New("document has no pages")
	ErrCompile        = errors.New("slide compilation failed")
	ErrUnknownBackend = errors.New("unknown export backend")

	// Export errors.
	ErrExportFailed   = errors.New("export failed")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
)

// ExitError reports an export command that exited with a non-zero status.
// It matches ErrExportFailed with errors.Is.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%v: exit status %d", ErrExportFailed, e.Code)
	}
	return fmt.Sprintf("%v: exit status %d: %s", ErrExportFailed, e.Code, msg)
}

// Unwrap returns ErrExportFailed.
func (e *ExitError) Unwrap() error {
	return ErrExportFailed
}
