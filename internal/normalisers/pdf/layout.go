package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/fiches/internal/core/domain"
)

// LayoutStrategy reads the text layer grouped into rows by baseline.
type LayoutStrategy struct{}

// Name implements Strategy.
func (LayoutStrategy) Name() domain.Strategy {
	return domain.StrategyLayoutText
}

// ExtractPage implements Strategy.
func (LayoutStrategy) ExtractPage(ctx context.Context, doc *Document, page int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := doc.LayoutReader()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}

	var text string
	err = safely(func() error {
		p := r.Page(page)
		if p.V.IsNull() {
			return errors.New("page not found")
		}
		rows, rerr := p.GetTextByRow()
		if rerr != nil {
			return rerr
		}
		text = joinRows(rows)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	return text, nil
}

func joinRows(rows lpdf.Rows) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		glyphs := make([]glyph, 0, len(row.Content))
		for _, t := range row.Content {
			glyphs = append(glyphs, glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
		}
		if line := joinRow(glyphs); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
