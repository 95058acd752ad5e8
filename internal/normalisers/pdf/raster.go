package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// RasterStrategy rebuilds lines from raw glyph positions.
// It uses a second, independent PDF parser, so it often succeeds where the
// layout reader trips over a font or stream encoding.
type RasterStrategy struct{}

// Name implements Strategy.
func (RasterStrategy) Name() domain.Strategy {
	return domain.StrategyRasterText
}

// ExtractPage implements Strategy.
func (RasterStrategy) ExtractPage(ctx context.Context, doc *Document, page int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := doc.RasterReader()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}

	var text string
	err = safely(func() error {
		p := r.Page(page)
		if p.V.IsNull() {
			return errors.New("page not found")
		}
		content := p.Content()
		glyphs := make([]glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
		}
		text = assembleLines(glyphs)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	return text, nil
}
