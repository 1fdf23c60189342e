package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/localseek/localseek/internal/chunker"
	"github.com/localseek/localseek/internal/embedder"
	"github.com/localseek/localseek/internal/extract"
	"github.com/localseek/localseek/internal/scanner"
	"github.com/localseek/localseek/internal/storage"
	"github.com/localseek/localseek/pkg/types"
)

// vocabularySaver is implemented by providers that persist fitted state.
type vocabularySaver interface {
	SaveVocabulary(path string) error
}

// Indexer coordinates the indexing pipeline: list -> diff -> extract ->
// chunk -> embed -> store.
type Indexer struct {
	store     storage.Storage
	lister    scanner.Lister
	extractor extract.Extractor
	chunker   *chunker.Chunker
	embedder  embedder.Embedder
	log       *zap.Logger

	roots     []string
	workers   int
	vocabPath string

	// Concurrent Scan callers coalesce onto one in-flight cycle
	scans singleflight.Group
	locks pathLocks

	refit atomic.Bool

	mu           sync.Mutex
	lastScanTime time.Time
	lastScanDur  time.Duration
}

// Options configures a new Indexer.
type Options struct {
	Store     storage.Storage
	Lister    scanner.Lister
	Extractor extract.Extractor
	Chunker   *chunker.Chunker
	Embedder  embedder.Embedder
	Roots     []string
	Workers   int // 0 means runtime.NumCPU()
	VocabPath string
	Logger    *zap.Logger
}

// New creates a new Indexer instance
func New(opts Options) *Indexer {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		store:     opts.Store,
		lister:    opts.Lister,
		extractor: opts.Extractor,
		chunker:   opts.Chunker,
		embedder:  opts.Embedder,
		log:       log,
		roots:     opts.Roots,
		workers:   workers,
		vocabPath: opts.VocabPath,
	}
}

// workKind classifies what a scan cycle must do with one path.
type workKind int

const (
	workAdd workKind = iota
	workMaybeModified
	workRemove
	// workUnchanged marks listed files whose metadata matches the stored
	// fingerprint; they only bump the unchanged counter.
	workUnchanged
)

type workItem struct {
	path string
	stat types.FileStat
	kind workKind
	// Prior fingerprint, set for workMaybeModified
	prior types.Fingerprint
}

// scanState carries per-cycle shared data between planning and workers.
type scanState struct {
	// Extracted content cached during vocabulary fitting, keyed by path
	contents map[string]*extract.Content

	indexed   atomic.Int32
	unchanged atomic.Int32
	removed   atomic.Int32
	failed    atomic.Int32

	errMu  sync.Mutex
	errors []string
}

func (st *scanState) recordError(path string, err error) {
	st.errMu.Lock()
	defer st.errMu.Unlock()
	st.errors = append(st.errors, fmt.Sprintf("%s: %v", path, err))
}

// Scan runs one incremental scan cycle over the configured roots. Concurrent
// calls share a single cycle and all receive its summary. A scan brings the
// index to the state the filesystem is in now: new files are added, changed
// files re-indexed, vanished files removed. Unreadable files are recorded and
// skipped; an unavailable embedding provider aborts the cycle.
func (idx *Indexer) Scan(ctx context.Context) (*types.ScanSummary, error) {
	result, err, _ := idx.scans.Do("scan", func() (interface{}, error) {
		return idx.runScan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.ScanSummary), nil
}

func (idx *Indexer) runScan(ctx context.Context) (*types.ScanSummary, error) {
	start := time.Now()
	st := &scanState{}

	listed, err := idx.lister.ListCurrentFiles(ctx, idx.roots)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	if err := idx.fitVocabulary(ctx, listed, st); err != nil {
		return nil, err
	}

	// A provider change invalidates every stored vector
	if err := idx.ensureProviderVersion(ctx); err != nil {
		return nil, err
	}

	items, err := idx.planWork(ctx, listed)
	if err != nil {
		return nil, err
	}

	if err := idx.processWork(ctx, items, st); err != nil {
		return nil, err
	}

	duration := time.Since(start)
	summary := &types.ScanSummary{
		TotalListed: len(listed),
		Indexed:     int(st.indexed.Load()),
		Unchanged:   int(st.unchanged.Load()),
		Removed:     int(st.removed.Load()),
		Failed:      int(st.failed.Load()),
		Duration:    duration,
		Errors:      st.errors,
	}

	idx.mu.Lock()
	idx.lastScanTime = start
	idx.lastScanDur = duration
	idx.mu.Unlock()
	_ = idx.store.SetMeta(ctx, storage.MetaLastScanTime, start.UTC().Format(time.RFC3339))
	_ = idx.store.SetMeta(ctx, storage.MetaLastScanDurationMS, strconv.FormatInt(duration.Milliseconds(), 10))

	idx.log.Info("scan complete",
		zap.Int("listed", summary.TotalListed),
		zap.Int("indexed", summary.Indexed),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("removed", summary.Removed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// fitVocabulary fits a corpus-trained provider on the current file set. Runs
// on the first scan and again after Rebuild; fitted providers loaded from a
// persisted vocabulary are left alone.
func (idx *Indexer) fitVocabulary(ctx context.Context, listed []types.FileStat, st *scanState) error {
	trainer, ok := idx.embedder.(embedder.CorpusTrainer)
	if !ok {
		return nil
	}
	if trainer.Fitted() && !idx.refit.Load() {
		return nil
	}

	st.contents = make(map[string]*extract.Content, len(listed))
	corpus := make([]string, 0, len(listed))
	for _, stat := range listed {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := idx.extractor.Extract(ctx, stat.Path)
		if err != nil {
			// The worker pass reports this failure
			continue
		}
		st.contents[stat.Path] = content
		corpus = append(corpus, content.Text)
	}
	if len(corpus) == 0 {
		return nil
	}

	if err := trainer.Fit(corpus); err != nil {
		return fmt.Errorf("failed to fit vocabulary: %w", err)
	}
	idx.refit.Store(false)

	if saver, ok := idx.embedder.(vocabularySaver); ok && idx.vocabPath != "" {
		if err := saver.SaveVocabulary(idx.vocabPath); err != nil {
			return fmt.Errorf("failed to persist vocabulary: %w", err)
		}
	}
	idx.log.Info("vocabulary fitted",
		zap.Int("documents", len(corpus)),
		zap.String("provider_version", idx.embedder.Version()))
	return nil
}

// ensureProviderVersion resets the index when the stored vectors were
// produced by a different provider, model, or vocabulary.
func (idx *Indexer) ensureProviderVersion(ctx context.Context) error {
	current := idx.embedder.Version()
	stored, err := idx.store.GetMeta(ctx, storage.MetaProviderVersion)
	if errors.Is(err, storage.ErrNotFound) {
		return idx.store.SetMeta(ctx, storage.MetaProviderVersion, current)
	}
	if err != nil {
		return err
	}
	if stored == current {
		return nil
	}

	idx.log.Warn("embedding provider changed, resetting index",
		zap.String("stored", stored),
		zap.String("current", current))
	if err := idx.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	return idx.store.SetMeta(ctx, storage.MetaProviderVersion, current)
}

// planWork diffs the current file listing against stored fingerprints.
// Hash comparison for same-path files is deferred to the workers so the
// planning pass only touches cheap metadata.
func (idx *Indexer) planWork(ctx context.Context, listed []types.FileStat) ([]workItem, error) {
	fingerprints, err := idx.store.ListFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	known := make(map[string]types.Fingerprint, len(fingerprints))
	for _, fp := range fingerprints {
		known[fp.Path] = fp
	}

	var items []workItem
	seen := make(map[string]bool, len(listed))
	for _, stat := range listed {
		seen[stat.Path] = true
		prior, ok := known[stat.Path]
		switch {
		case !ok:
			items = append(items, workItem{path: stat.Path, stat: stat, kind: workAdd})
		case prior.SizeBytes != stat.SizeBytes || !prior.ModTime.Equal(stat.ModTime):
			items = append(items, workItem{path: stat.Path, stat: stat, kind: workMaybeModified, prior: prior})
		default:
			items = append(items, workItem{path: stat.Path, stat: stat, kind: workUnchanged})
		}
	}
	for _, fp := range fingerprints {
		if !seen[fp.Path] {
			items = append(items, workItem{path: fp.Path, kind: workRemove})
		}
	}
	return items, nil
}

// processWork runs the planned items through a bounded worker pool. Any
// embedding failure cancels the group and aborts the cycle.
func (idx *Indexer) processWork(ctx context.Context, items []workItem, st *scanState) error {
	semaphore := make(chan struct{}, idx.workers)
	g, gctx := errgroup.WithContext(ctx)

	for _, item := range items {
		if item.kind == workUnchanged {
			st.unchanged.Add(1)
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			unlock := idx.locks.lock(item.path)
			defer unlock()

			switch item.kind {
			case workRemove:
				return idx.removeFile(gctx, item.path, st)
			default:
				return idx.indexFile(gctx, item, st)
			}
		})
	}
	return g.Wait()
}

// indexFile extracts, chunks, embeds, and stores one file. Extraction
// failures are recorded and skipped; embedding failures propagate and halt
// the scan.
func (idx *Indexer) indexFile(ctx context.Context, item workItem, st *scanState) error {
	hash, err := computeFileHash(item.path)
	if err != nil {
		return idx.recordFailure(ctx, item.path, st, err)
	}
	if item.kind == workMaybeModified && hash == item.prior.ContentHash {
		// Metadata moved but content did not
		if err := idx.store.TouchFingerprint(ctx, item.path, item.stat.SizeBytes, item.stat.ModTime); err != nil {
			return err
		}
		st.unchanged.Add(1)
		return nil
	}

	content := st.cached(item.path)
	if content == nil {
		content, err = idx.extractor.Extract(ctx, item.path)
		if err != nil {
			if types.IsExtractionError(err) {
				return idx.recordFailure(ctx, item.path, st, err)
			}
			return err
		}
	}

	doc := &types.Document{
		ID:          types.DocumentID(item.path),
		Path:        item.path,
		ContentHash: hash,
		SizeBytes:   item.stat.SizeBytes,
		ModTime:     item.stat.ModTime,
		Category:    content.Category,
		Preview:     makePreview(content.Text),
		WordCount:   content.WordCount,
	}

	chunks := idx.chunker.Split(doc.ID, content.Text)
	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Content
		}
		vectors, err = idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", item.path, err)
		}
	}

	if err := idx.store.ReplaceDocumentChunks(ctx, doc, chunks, vectors); err != nil {
		return fmt.Errorf("storing %s: %w", item.path, err)
	}
	_ = idx.store.DeleteFailedPath(ctx, item.path)
	st.indexed.Add(1)
	return nil
}

func (idx *Indexer) removeFile(ctx context.Context, path string, st *scanState) error {
	if err := idx.store.DeleteDocument(ctx, types.DocumentID(path)); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	_ = idx.store.DeleteFailedPath(ctx, path)
	st.removed.Add(1)
	return nil
}

func (idx *Indexer) recordFailure(ctx context.Context, path string, st *scanState, cause error) error {
	st.failed.Add(1)
	st.recordError(path, cause)
	idx.log.Warn("file skipped", zap.String("path", path), zap.Error(cause))
	if err := idx.store.UpsertFailedPath(ctx, path, cause.Error()); err != nil {
		return err
	}
	return nil
}

// Status reports index-wide statistics
func (idx *Indexer) Status(ctx context.Context) (*types.IndexStatus, error) {
	stats, err := idx.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	failed, err := idx.store.ListFailedPaths(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(failed))
	for path := range failed {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	status := &types.IndexStatus{
		TotalDocuments:  int(stats.TotalDocuments),
		TotalChunks:     int(stats.TotalChunks),
		TotalSizeBytes:  stats.TotalSizeBytes,
		Categories:      stats.Categories,
		FailedPaths:     paths,
		ProviderVersion: idx.embedder.Version(),
	}

	idx.mu.Lock()
	status.LastScanTime = idx.lastScanTime
	status.LastScanDuration = idx.lastScanDur
	idx.mu.Unlock()

	if status.LastScanTime.IsZero() {
		if raw, err := idx.store.GetMeta(ctx, storage.MetaLastScanTime); err == nil {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				status.LastScanTime = t
			}
		}
		if raw, err := idx.store.GetMeta(ctx, storage.MetaLastScanDurationMS); err == nil {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				status.LastScanDuration = time.Duration(ms) * time.Millisecond
			}
		}
	}
	return status, nil
}

// Rebuild drops all indexed data and re-indexes everything from scratch.
// Corpus-trained providers are refitted on the current file set.
func (idx *Indexer) Rebuild(ctx context.Context) (*types.ScanSummary, error) {
	if err := idx.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset index: %w", err)
	}
	idx.refit.Store(true)
	return idx.Scan(ctx)
}

func (st *scanState) cached(path string) *extract.Content {
	if st.contents == nil {
		return nil
	}
	return st.contents[path]
}

const previewRunes = 200

// makePreview returns the first few hundred runes of text for display
func makePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes])
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, types.NewExtractionError(filePath, err)
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, types.NewExtractionError(filePath, err)
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))
	return result, nil
}
