package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// ErrPDFToolNotFound indicates a poppler or tesseract binary is missing from PATH.
var ErrPDFToolNotFound = fmt.Errorf("%w: pdftoppm, pdfinfo or tesseract", domain.ErrToolNotFound)

// CommandRunner executes external commands. Abstracted for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

// Run executes the command and returns its standard output.
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPDFToolNotFound, name)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// CheckAvailable reports whether the OCR toolchain is installed.
func CheckAvailable() error {
	for _, tool := range []string{"pdftoppm", "tesseract"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s", ErrPDFToolNotFound, tool)
		}
	}
	return nil
}

// InstallInstructions returns platform-specific install hints for the OCR toolchain.
func InstallInstructions() string {
	return `OCR needs pdftoppm (poppler) and tesseract with French and English data.

Install with:
  macOS:         brew install poppler tesseract tesseract-lang
  Ubuntu/Debian: apt install poppler-utils tesseract-ocr tesseract-ocr-fra
  Fedora:        dnf install poppler-utils tesseract tesseract-langpack-fra
  Arch:          pacman -S poppler tesseract tesseract-data-fra`
}
