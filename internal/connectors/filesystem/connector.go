// Package filesystem provides a DocumentSource over a local directory tree,
// with an fsnotify-backed watch mode.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/logger"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.DocumentSource  = (*Connector)(nil)
	_ driven.WatchableSource = (*Connector)(nil)
)

// Connector lists and fetches files below a root directory.
// Hidden files and directories are skipped.
type Connector struct {
	sourceID string
	rootPath string
	accept   func(mimeType string) bool

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// Option configures a Connector.
type Option func(*Connector)

// WithMIMEFilter limits listing and watch events to files whose detected
// MIME type passes accept.
func WithMIMEFilter(accept func(mimeType string) bool) Option {
	return func(c *Connector) {
		c.accept = accept
	}
}

// New creates a filesystem connector rooted at rootPath.
func New(sourceID, rootPath string, opts ...Option) *Connector {
	c := &Connector{
		sourceID: sourceID,
		rootPath: rootPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the source type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// SourceID returns the identifier documents are scoped to.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Root returns the directory being read.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks the root exists and is a directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.checkRoot()
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("root path %s does not exist", c.rootPath)
		}
		return fmt.Errorf("root path %s: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path %s is not a directory", c.rootPath)
	}
	return nil
}

// Documents walks the tree in lexical order and sends each visible file.
func (c *Connector) Documents(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.checkRoot(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				switch {
				case path == c.rootPath:
					return err
				case d != nil && d.IsDir():
					logger.Warn("filesystem: skip %s: %v", path, err)
					return filepath.SkipDir
				case isHidden(filepath.Base(path)) || !c.accepts(path):
					return nil
				}
				return c.send(ctx, docs, c.unreadable(path, err))
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path == c.rootPath {
				return nil
			}
			if isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !c.accepts(path) {
				return nil
			}

			raw, err := c.read(path)
			if err != nil {
				raw = c.unreadable(path, err)
			}
			return c.send(ctx, docs, raw)
		})
		if err != nil {
			errs <- err
		}
	}()

	return docs, errs
}

func (c *Connector) accepts(path string) bool {
	return c.accept == nil || c.accept(DetectMIMEType(path))
}

func (c *Connector) send(ctx context.Context, docs chan<- domain.RawDocument, raw domain.RawDocument) error {
	select {
	case docs <- raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// unreadable reports a file that was listed but could not be read.
func (c *Connector) unreadable(path string, err error) domain.RawDocument {
	logger.Warn("filesystem: %v", err)
	rel, relErr := filepath.Rel(c.rootPath, path)
	if relErr != nil {
		rel = filepath.Base(path)
	}
	return domain.UnreadableDocument(c.sourceID, filepath.ToSlash(rel), DetectMIMEType(path), err)
}

// Fetch loads the file at relPath below the root.
func (c *Connector) Fetch(ctx context.Context, relPath string) (domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawDocument{}, err
	}
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return domain.RawDocument{}, fmt.Errorf("%w: path %q escapes the source root", domain.ErrInvalidInput, relPath)
	}
	return c.read(filepath.Join(c.rootPath, clean))
}

func (c *Connector) read(path string) (domain.RawDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.RawDocument{}, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return domain.RawDocument{}, fmt.Errorf("read %s: %w", path, err)
	}

	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("relative path for %s: %w", path, err)
	}

	return domain.RawDocument{
		Document: domain.NewDocument(c.sourceID, filepath.ToSlash(rel), DetectMIMEType(path), content),
		Content:  content,
		Metadata: map[string]any{"path": path},
	}, nil
}

// Watch reports file changes below the root until ctx is cancelled.
// The returned channel is closed when watching stops.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.DocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("connector is closed")
	}
	if err := c.checkRoot(); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addTree(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.DocumentChange)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
						if err := c.addTree(watcher, event.Name); err != nil {
							logger.Warn("filesystem: watch %s: %v", event.Name, err)
						}
					}
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("filesystem: watch error: %v", err)
			}
		}
	}()

	return changes, nil
}

// addTree watches dir and every visible subdirectory; fsnotify is not recursive.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent maps an fsnotify event to a document change.
// Directories, hidden paths and chmod-only events yield nil.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.DocumentChange {
	rel, err := filepath.Rel(c.rootPath, event.Name)
	if err != nil || isHidden(rel) {
		return nil
	}
	if c.accept != nil && !c.accept(DetectMIMEType(event.Name)) {
		return nil
	}
	change := &domain.DocumentChange{Path: filepath.ToSlash(rel)}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		change.Type = domain.ChangeDeleted
		return change
	case event.Has(fsnotify.Create):
		change.Type = domain.ChangeCreated
	case event.Has(fsnotify.Write):
		change.Type = domain.ChangeUpdated
	default:
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return nil
	}
	return change
}

// Close stops any active watcher. It is idempotent.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		_ = c.watcher.Close()
		c.watcher = nil
	}
	return nil
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// customMIMETypes covers extensions the platform tables often miss or
// report inconsistently.
var customMIMETypes = map[string]string{
	".pdf":      "application/pdf",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".html":     "text/html",
	".htm":      "text/html",
	".rtf":      "application/rtf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".odt":      "application/vnd.oasis.opendocument.text",
}

// DetectMIMEType returns the MIME type for path from its extension,
// without parameters. No extension means text/plain.
func DetectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := customMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
		return t
	}
	return "application/octet-stream"
}
