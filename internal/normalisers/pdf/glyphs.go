package pdf

import (
	"math"
	"sort"
	"strings"
)

// glyph is a positioned run of text from a content stream.
type glyph struct {
	X, Y, W, Size float64
	S             string
}

// joinRow concatenates glyphs left to right, inserting a space where the
// horizontal gap is wider than a fraction of the font size.
func joinRow(row []glyph) string {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

	var b strings.Builder
	for i, g := range row {
		if i > 0 {
			prev := row[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > spaceGap(g.Size) && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return strings.TrimSpace(b.String())
}

// assembleLines groups glyphs into lines top to bottom and joins them.
// A vertical gap well beyond the line height becomes a blank line so
// paragraph boundaries survive.
func assembleLines(glyphs []glyph) string {
	if len(glyphs) == 0 {
		return ""
	}
	sort.SliceStable(glyphs, func(i, j int) bool {
		if glyphs[i].Y != glyphs[j].Y {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var (
		lines   []string
		current []glyph
		lineY   = glyphs[0].Y
		size    = lineSize(glyphs[0].Size)
	)
	flush := func() {
		if text := joinRow(current); text != "" {
			lines = append(lines, text)
		}
		current = current[:0]
	}

	for _, g := range glyphs {
		if math.Abs(g.Y-lineY) > size/2 {
			flush()
			if lineY-g.Y > 1.8*size && len(lines) > 0 {
				lines = append(lines, "")
			}
			lineY = g.Y
			size = lineSize(g.Size)
		}
		current = append(current, g)
	}
	flush()

	return strings.Join(lines, "\n")
}

func spaceGap(size float64) float64 {
	if size <= 0 {
		return 1
	}
	return 0.2 * size
}

func lineSize(size float64) float64 {
	if size <= 0 {
		return 4
	}
	return size
}
