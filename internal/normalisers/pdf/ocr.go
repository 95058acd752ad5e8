package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// OCRStrategy renders a page with pdftoppm and recognises it with tesseract.
type OCRStrategy struct {
	runner    CommandRunner
	languages string
	dpi       int
}

// NewOCRStrategy creates an OCR strategy.
// Empty languages default to "fra+eng" and a non-positive dpi to 144.
func NewOCRStrategy(runner CommandRunner, languages string, dpi int) *OCRStrategy {
	if runner == nil {
		runner = execRunner{}
	}
	if languages == "" {
		languages = "fra+eng"
	}
	if dpi <= 0 {
		dpi = 144
	}
	return &OCRStrategy{runner: runner, languages: languages, dpi: dpi}
}

// Name implements Strategy.
func (s *OCRStrategy) Name() domain.Strategy {
	return domain.StrategyOCR
}

// ExtractPage implements Strategy.
func (s *OCRStrategy) ExtractPage(ctx context.Context, doc *Document, page int) (string, error) {
	src, err := doc.Path()
	if err != nil {
		return "", err
	}
	dir, err := doc.TempDir()
	if err != nil {
		return "", err
	}

	n := strconv.Itoa(page)
	prefix := filepath.Join(dir, "page-"+n)
	image := prefix + ".png"
	defer os.Remove(image)

	if _, err := s.runner.Run(ctx, "pdftoppm",
		"-r", strconv.Itoa(s.dpi),
		"-f", n, "-l", n,
		"-singlefile", "-png",
		src, prefix,
	); err != nil {
		return "", fmt.Errorf("render page %d: %w", page, err)
	}

	out, err := s.runner.Run(ctx, "tesseract", image, "stdout", "-l", s.languages)
	if err != nil {
		return "", fmt.Errorf("recognise page %d: %w", page, err)
	}
	return string(out), nil
}
