package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	lpdf "github.com/ledongthuc/pdf"
	rpdf "rsc.io/pdf"
)

var pdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// Document gives strategies lazy access to one PDF's bytes.
// Readers and the temp copy are created on first use and released by Close.
// A Document is used by a single goroutine.
type Document struct {
	content []byte
	runner  CommandRunner

	layout    *lpdf.Reader
	layoutErr error

	raster    *rpdf.Reader
	rasterErr error

	dir  string
	path string
}

func newDocument(content []byte, runner CommandRunner) *Document {
	return &Document{content: content, runner: runner}
}

// LayoutReader returns the row-grouping reader.
func (d *Document) LayoutReader() (*lpdf.Reader, error) {
	if d.layout == nil && d.layoutErr == nil {
		d.layoutErr = safely(func() error {
			r, err := lpdf.NewReader(bytes.NewReader(d.content), int64(len(d.content)))
			d.layout = r
			return err
		})
	}
	return d.layout, d.layoutErr
}

// RasterReader returns the glyph-position reader.
func (d *Document) RasterReader() (*rpdf.Reader, error) {
	if d.raster == nil && d.rasterErr == nil {
		d.rasterErr = safely(func() error {
			r, err := rpdf.NewReader(bytes.NewReader(d.content), int64(len(d.content)))
			d.raster = r
			return err
		})
	}
	return d.raster, d.rasterErr
}

// Path returns a temp file holding the PDF bytes, for external tools.
func (d *Document) Path() (string, error) {
	if d.path != "" {
		return d.path, nil
	}
	dir, err := os.MkdirTemp("", "fiches-pdf-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	p := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(p, d.content, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	d.dir, d.path = dir, p
	return p, nil
}

// TempDir returns the directory holding the temp copy, creating it if needed.
func (d *Document) TempDir() (string, error) {
	if _, err := d.Path(); err != nil {
		return "", err
	}
	return d.dir, nil
}

// PageCount returns the number of physical pages.
// Each text-layer reader is tried before asking pdfinfo.
func (d *Document) PageCount(ctx context.Context) (int, error) {
	var errs []error

	if r, err := d.LayoutReader(); err == nil {
		var n int
		if perr := safely(func() error { n = r.NumPage(); return nil }); perr == nil && n > 0 {
			return n, nil
		}
	} else {
		errs = append(errs, fmt.Errorf("layout reader: %w", err))
	}

	if r, err := d.RasterReader(); err == nil {
		var n int
		if perr := safely(func() error { n = r.NumPage(); return nil }); perr == nil && n > 0 {
			return n, nil
		}
	} else {
		errs = append(errs, fmt.Errorf("raster reader: %w", err))
	}

	if d.runner != nil {
		n, err := d.pdfinfoPages(ctx)
		if err == nil {
			return n, nil
		}
		errs = append(errs, fmt.Errorf("pdfinfo: %w", err))
	}

	if len(errs) == 0 {
		return 0, errors.New("no pages")
	}
	return 0, errors.Join(errs...)
}

func (d *Document) pdfinfoPages(ctx context.Context) (int, error) {
	p, err := d.Path()
	if err != nil {
		return 0, err
	}
	out, err := d.runner.Run(ctx, "pdfinfo", p)
	if err != nil {
		return 0, err
	}
	m := pdfinfoPages.FindSubmatch(out)
	if m == nil {
		return 0, errors.New("page count not reported")
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid page count %q", m[1])
	}
	return n, nil
}

// Close removes the temp copy, if any.
func (d *Document) Close() error {
	if d.dir == "" {
		return nil
	}
	err := os.RemoveAll(d.dir)
	d.dir, d.path = "", ""
	return err
}

// safely runs fn and turns a panic into an error.
// Both PDF readers panic on some malformed streams.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	return fn()
}
