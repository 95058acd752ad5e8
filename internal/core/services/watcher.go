package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
	"github.com/custodia-labs/fiches/internal/logger"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 2 * time.Second

// Watcher re-ingests documents as a watchable source reports changes.
// Changes are collected until the source has been quiet for the debounce
// interval, then ingested as one run.
type Watcher struct {
	ingest    driving.IngestionService
	source    driven.WatchableSource
	debounce  time.Duration
	onSummary func(*domain.Summary, error)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewWatcher creates a watcher. onSummary, if not nil, receives the
// outcome of every re-ingestion run.
func NewWatcher(
	ingest driving.IngestionService,
	source driven.WatchableSource,
	debounce time.Duration,
	onSummary func(*domain.Summary, error),
) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		ingest:    ingest,
		source:    source,
		debounce:  debounce,
		onSummary: onSummary,
	}
}

// Start watches until ctx is cancelled or Stop is called. It blocks.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	changes, err := w.source.Watch(ctx)
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logger.Info("Watching %s", w.source.SourceID())

	pending := make(map[string]struct{})
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case change, ok := <-changes:
			if !ok {
				w.flush(ctx, pending)
				return nil
			}
			logger.Debug("watch: %s %s", change.Type, change.Path)
			pending[change.Path] = struct{}{}
			settle = time.After(w.debounce)
		case <-settle:
			settle = nil
			w.flush(ctx, pending)
		}
	}
}

// Stop ends a running Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
		delete(pending, p)
	}
	sort.Strings(paths)

	summary, err := w.ingest.IngestPaths(ctx, w.source, paths, nil)
	if err != nil {
		logger.Warn("watch: re-ingest %d paths: %v", len(paths), err)
	}
	if w.onSummary != nil {
		w.onSummary(summary, err)
	}
}
