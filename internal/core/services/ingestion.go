package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/core/ports/driving"
	"github.com/custodia-labs/fiches/internal/logger"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.IngestionService = (*IngestionOrchestrator)(nil)

// maxDefaultWorkers caps the worker pool when Settings.Ingest.Workers is zero.
const maxDefaultWorkers = 4

// IngestionOrchestrator runs documents through extract, chunk, embed and
// store, one worker per document.
type IngestionOrchestrator struct {
	registry  driven.ExtractorRegistry
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	runStore  driven.RunStore
	settings  domain.IngestSettings
	minChars  int
	newRunID  func() string
	clock     func() time.Time
	workerCap int
}

// NewIngestionOrchestrator creates an orchestrator.
// The runStore is optional - if nil, runs are not persisted.
func NewIngestionOrchestrator(
	registry driven.ExtractorRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	runStore driven.RunStore,
	settings domain.Settings,
) *IngestionOrchestrator {
	return &IngestionOrchestrator{
		registry:  registry,
		pipeline:  pipeline,
		embedder:  embedder,
		store:     store,
		runStore:  runStore,
		settings:  settings.Ingest,
		minChars:  settings.Extraction.MinDocumentChars,
		newRunID:  uuid.NewString,
		clock:     time.Now,
		workerCap: ResolveWorkers(settings.Ingest.Workers),
	}
}

// ResolveWorkers returns the pool size for a configured value.
// Zero or less means runtime.NumCPU() capped at 4.
func ResolveWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n > maxDefaultWorkers {
		n = maxDefaultWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Ingest processes every document the source lists.
func (o *IngestionOrchestrator) Ingest(
	ctx context.Context,
	source driven.DocumentSource,
	events chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: source is nil", domain.ErrInvalidInput)
	}
	logger.Section("Ingestion")
	logger.Info("Listing documents from %s", source.SourceID())

	listed, listErr := collect(ctx, source)
	if listErr != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("list documents: %w", listErr)
	}

	var (
		docs       []domain.RawDocument
		unreadable []domain.DocumentResult
	)
	for _, raw := range listed {
		if raw.Err != nil {
			unreadable = append(unreadable, discoveryFailure(raw.Document, raw.Err))
			continue
		}
		docs = append(docs, raw)
	}
	return o.run(ctx, source, docs, unreadable, events)
}

// IngestPaths processes only the given paths relative to the source root.
// A path that no longer exists has its stored fragments removed instead.
func (o *IngestionOrchestrator) IngestPaths(
	ctx context.Context,
	source driven.DocumentSource,
	paths []string,
	events chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: source is nil", domain.ErrInvalidInput)
	}

	var (
		docs    []domain.RawDocument
		fetched []domain.DocumentResult
	)
	for _, p := range paths {
		raw, err := source.Fetch(ctx, p)
		switch {
		case err == nil:
			docs = append(docs, raw)
		case errors.Is(err, domain.ErrNotFound):
			id := domain.DocumentID(source.SourceID(), p)
			n, derr := o.store.DeleteByDocument(ctx, id)
			if derr != nil {
				logger.Warn("remove fragments of deleted %s: %v", p, derr)
				continue
			}
			logger.Info("Removed %d fragments of deleted %s", n, p)
		default:
			doc := domain.Document{ID: domain.DocumentID(source.SourceID(), p), Path: p, Name: p}
			fetched = append(fetched, discoveryFailure(doc, err))
		}
	}
	return o.run(ctx, source, docs, fetched, events)
}

// Reset deletes every stored fragment of a document.
func (o *IngestionOrchestrator) Reset(ctx context.Context, documentID string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	n, err := o.store.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: reset %s: %w", domain.ErrStorage, documentID, err)
	}
	logger.Info("Reset %s: %d fragments removed", documentID, n)
	return n, nil
}

// ResetAll deletes every stored fragment.
func (o *IngestionOrchestrator) ResetAll(ctx context.Context) error {
	if err := o.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: reset all: %w", domain.ErrStorage, err)
	}
	logger.Info("Vector store truncated")
	return nil
}

// collect drains the source listing. On error the documents listed so far
// are returned with it.
func collect(ctx context.Context, source driven.DocumentSource) ([]domain.RawDocument, error) {
	docsCh, errsCh := source.Documents(ctx)
	var docs []domain.RawDocument
	for raw := range docsCh {
		docs = append(docs, raw)
	}
	if err := <-errsCh; err != nil {
		return docs, err
	}
	return docs, ctx.Err()
}

func discoveryFailure(doc domain.Document, err error) domain.DocumentResult {
	return domain.DocumentResult{
		Document: doc,
		Status:   domain.StatusFailed,
		Err:      domain.NewStageError(domain.StageDiscovery, doc.ID, err),
	}
}

// runState accumulates results from concurrent workers.
type runState struct {
	mu        sync.Mutex
	summary   *domain.Summary
	completed int
	total     int
	events    chan<- domain.ProgressEvent
}

func (o *IngestionOrchestrator) run(
	ctx context.Context,
	source driven.DocumentSource,
	docs []domain.RawDocument,
	pre []domain.DocumentResult,
	events chan<- domain.ProgressEvent,
) (*domain.Summary, error) {
	summary := &domain.Summary{
		RunID:     o.newRunID(),
		StartedAt: o.clock(),
	}
	state := &runState{
		summary: summary,
		total:   len(docs) + len(pre),
		events:  events,
	}
	o.saveRun(ctx, source, summary)

	for _, r := range pre {
		o.record(ctx, state, r)
	}

	logger.Info("Run %s: %d documents, %d workers", summary.RunID, len(docs), o.workerCap)

	var g errgroup.Group
	g.SetLimit(o.workerCap)

	for i := range docs {
		raw := docs[i]
		if ctx.Err() != nil {
			o.record(ctx, state, aborted(raw.Document))
			continue
		}
		g.Go(func() error {
			var r domain.DocumentResult
			if ctx.Err() != nil {
				r = aborted(raw.Document)
			} else {
				r = o.processDocument(ctx, &raw)
			}
			o.record(ctx, state, r)
			return nil
		})
	}
	_ = g.Wait()

	summary.Elapsed = o.clock().Sub(summary.StartedAt)
	for _, r := range summary.Skipped {
		if domain.IsBatchAborted(r.Err) {
			summary.Aborted = true
			break
		}
	}
	o.saveRun(context.WithoutCancel(ctx), source, summary)

	logger.Info("Run %s complete: %d succeeded, %d failed, %d skipped, %d fragments",
		summary.RunID, summary.Succeeded, len(summary.Failed), len(summary.Skipped), summary.TotalFragments)
	return summary, nil
}

func aborted(doc domain.Document) domain.DocumentResult {
	return domain.DocumentResult{
		Document: doc,
		Status:   domain.StatusSkipped,
		Err:      domain.ErrBatchAborted,
	}
}

// record folds a result into the summary, persists it and emits its event.
func (o *IngestionOrchestrator) record(ctx context.Context, state *runState, r domain.DocumentResult) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.summary.Add(r)
	state.completed++

	if r.Status == domain.StatusFailed {
		logger.Warn("%s failed at %s: %v", r.Document.Path, r.Stage(), domain.Cause(r.Err))
	}

	if o.runStore != nil {
		outcome := domain.NewDocumentOutcome(state.summary.RunID, r)
		if err := o.runStore.SaveOutcome(context.WithoutCancel(ctx), outcome); err != nil {
			logger.Warn("save outcome for %s: %v", r.Document.Path, err)
		}
	}

	if state.events != nil {
		state.events <- domain.ProgressEvent{
			RunID:      state.summary.RunID,
			DocumentID: r.Document.ID,
			Name:       r.Document.Name,
			Status:     r.Status,
			Stage:      r.Stage(),
			Fragments:  r.Fragments,
			Elapsed:    r.Elapsed,
			Err:        r.Err,
			Completed:  state.completed,
			Total:      state.total,
		}
	}
}

func (o *IngestionOrchestrator) saveRun(ctx context.Context, source driven.DocumentSource, summary *domain.Summary) {
	if o.runStore == nil {
		return
	}
	if err := o.runStore.SaveRun(ctx, domain.NewRunRecord(source.SourceID(), summary)); err != nil {
		logger.Warn("save run %s: %v", summary.RunID, err)
	}
}

// processDocument runs one document through every stage sequentially.
func (o *IngestionOrchestrator) processDocument(ctx context.Context, raw *domain.RawDocument) domain.DocumentResult {
	start := o.clock()
	result := domain.DocumentResult{Document: raw.Document, Status: domain.StatusPending}
	doc := &result.Document

	fail := func(stage domain.Stage, err error) domain.DocumentResult {
		result.Status = domain.StatusFailed
		result.Err = domain.NewStageError(stage, doc.ID, err)
		result.Elapsed = o.clock().Sub(start)
		return result
	}
	skip := func(err error) domain.DocumentResult {
		result.Status = domain.StatusSkipped
		result.Err = err
		result.Elapsed = o.clock().Sub(start)
		return result
	}
	// A cancelled run lets the running stage finish and stops before the next.
	abort := func(next domain.Stage) domain.DocumentResult {
		logger.Debug("%s: interrupted before %s", doc.Path, next)
		return skip(domain.NewStageError(next, doc.ID, domain.ErrBatchAborted))
	}
	stageCtx := context.WithoutCancel(ctx)

	// 1. Extract
	result.Status = domain.StatusExtracting
	logger.Debug("%s: %s", doc.Path, result.Status)
	pages, err := o.extract(stageCtx, raw)
	if err != nil {
		return fail(domain.StageExtracting, err)
	}
	doc.PageCount = len(pages)
	result.Pages = len(pages)
	result.Warnings = append(result.Warnings, domain.PageWarnings(pages)...)

	// 2. Join pages
	text := domain.JoinPages(pages)
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < o.minChars {
		return skip(fmt.Errorf("%w: %d characters", domain.ErrNoExtractableText, n))
	}

	// 3. Chunk
	if ctx.Err() != nil {
		return abort(domain.StageChunking)
	}
	result.Status = domain.StatusChunking
	logger.Debug("%s: %s", doc.Path, result.Status)
	fragments, err := o.pipeline.Process(stageCtx, &driven.ExtractedDocument{
		Document: *doc,
		Pages:    pages,
		Text:     text,
	})
	if err != nil {
		return fail(domain.StageChunking, err)
	}
	if len(fragments) == 0 {
		return skip(fmt.Errorf("%w: no fragments", domain.ErrNoExtractableText))
	}
	for i := range fragments {
		if fragments[i].Oversized {
			result.Warnings = append(result.Warnings, fmt.Sprintf("fragment %d: %v (%d words)",
				fragments[i].Index, domain.ErrChunkingAnomaly, fragments[i].WordCount))
		}
	}

	// 4. Embed
	if ctx.Err() != nil {
		return abort(domain.StageEmbedding)
	}
	result.Status = domain.StatusEmbedding
	logger.Debug("%s: %s %d fragments", doc.Path, result.Status, len(fragments))
	vectors, err := o.embed(stageCtx, fragments)
	if err != nil {
		return fail(domain.StageEmbedding, err)
	}

	// 5. Store
	if ctx.Err() != nil {
		return abort(domain.StageStoring)
	}
	result.Status = domain.StatusStoring
	logger.Debug("%s: %s", doc.Path, result.Status)
	if err := o.replace(stageCtx, doc.ID, domain.NewStoredRecords(fragments, vectors)); err != nil {
		return fail(domain.StageStoring, err)
	}

	result.Status = domain.StatusDone
	result.Fragments = len(fragments)
	result.Elapsed = o.clock().Sub(start)
	logger.Debug("%s: %s in %s", doc.Path, result.Status, result.Elapsed)
	return result
}

func (o *IngestionOrchestrator) extract(ctx context.Context, raw *domain.RawDocument) ([]domain.PageExtractionResult, error) {
	source, ok := o.registry.Get(raw.Document.MIMEType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, raw.Document.MIMEType)
	}

	ectx, cancel := withTimeout(ctx, o.settings.ExtractTimeout)
	defer cancel()

	pages, err := source.Extract(ectx, raw)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// embed sends fragments in batches of BatchSize and checks every reply.
func (o *IngestionOrchestrator) embed(ctx context.Context, fragments []domain.Fragment) ([][]float32, error) {
	batchSize := o.settings.BatchSize
	if batchSize <= 0 {
		batchSize = len(fragments)
	}
	dims := o.embedder.Dimensions()

	vectors := make([][]float32, 0, len(fragments))
	for start := 0; start < len(fragments); start += batchSize {
		end := min(start+batchSize, len(fragments))
		texts := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			texts = append(texts, fragments[i].Text)
		}

		bctx, cancel := withTimeout(ctx, o.settings.EmbedTimeout)
		batch, err := o.embedder.EmbedBatch(bctx, texts)
		cancel()
		if err != nil {
			return nil, asEmbeddingError(err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d fragments",
				domain.ErrEmbeddingService, len(batch), len(texts))
		}
		for i, v := range batch {
			if len(v) != dims {
				return nil, fmt.Errorf("%w: fragment %d has %d dimensions, want %d",
					domain.ErrEmbeddingService, start+i, len(v), dims)
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (o *IngestionOrchestrator) replace(ctx context.Context, documentID string, records []domain.StoredRecord) error {
	sctx, cancel := withTimeout(ctx, o.settings.StoreTimeout)
	defer cancel()

	if err := o.store.ReplaceDocument(sctx, documentID, records); err != nil {
		if errors.Is(err, domain.ErrStorage) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nil
}

func asEmbeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingService) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
}

// withTimeout applies d when positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
