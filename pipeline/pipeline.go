// Package pipeline runs the fetch, snapshot, extract and export steps for
// one item.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/use-agent/pricerank/extractor"
	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
	"github.com/use-agent/pricerank/store"
)

// Fetcher retrieves and parses a page. *scraper.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (scraper.Document, error)
}

// State names a step of a run. It is only used for logging.
type State string

const (
	StateStart         State = "start"
	StateFetching      State = "fetching"
	StateFailed        State = "failed"
	StatePersistingDoc State = "persisting_document"
	StateExtracting    State = "extracting"
	StateDoneEmpty     State = "done_empty"
	StatePersistRows   State = "persisting_rows"
	StateDone          State = "done"
)

// Options configures a Pipeline.
type Options struct {
	Layout Layout

	// TopN caps the number of rows per page; non-positive means extractor.DefaultTopN.
	TopN int

	// Headers are sent with every page request (User-Agent included).
	Headers map[string]string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Pipeline is safe for concurrent use across different item ids. Two runs
// for the same id write the same paths and must be serialized by the caller.
type Pipeline struct {
	fetcher Fetcher
	store   store.Store
	layout  Layout
	topN    int
	headers map[string]string
	logger  *slog.Logger
}

// New creates a Pipeline.
func New(f Fetcher, s store.Store, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher: f,
		store:   s,
		layout:  opts.Layout,
		topN:    opts.TopN,
		headers: opts.Headers,
		logger:  logger,
	}
}

// Result is a successful run. An empty result (no rankings on the page) is
// still a success; its RowsPath is blank because no export is written.
type Result struct {
	ItemID       string
	URL          string
	Header       string
	Entries      []models.RankingEntry
	DocumentPath string
	RowsPath     string

	// Markers and Skipped are the extractor's counts, kept for logging.
	Markers int
	Skipped int
}

// Empty reports whether the page had no ranking rows.
func (r *Result) Empty() bool {
	return len(r.Entries) == 0
}

// Run processes one item id. Failures are *models.ScrapeError values:
// ErrCodeFetch or ErrCodeTimeout when nothing was written, and
// ErrCodePersistence when an artifact could not be stored.
func (p *Pipeline) Run(ctx context.Context, itemID string) (*Result, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "item id is required", nil)
	}

	res := &Result{
		ItemID:       itemID,
		URL:          p.layout.URL(itemID),
		DocumentPath: p.layout.DocumentPath(itemID),
	}
	log := p.logger.With("item_id", itemID)
	log.Debug("pipeline", "state", StateStart, "url", res.URL)

	// ── 1. Fetch ────────────────────────────────────────────────────
	log.Debug("pipeline", "state", StateFetching)
	doc, err := p.fetcher.Fetch(ctx, res.URL, p.headers)
	if err != nil {
		log.Warn("pipeline", "state", StateFailed, "error", err)
		if models.IsFetchError(err) {
			return nil, err
		}
		return nil, models.NewScrapeError(models.ErrCodeFetch, "failed to retrieve page", err)
	}

	// ── 2. Snapshot, kept even when the page has no rankings ────────
	log.Debug("pipeline", "state", StatePersistingDoc, "path", res.DocumentPath)
	if err := p.store.SaveDocument(ctx, doc, res.DocumentPath); err != nil {
		log.Error("pipeline", "state", StateFailed, "path", res.DocumentPath, "error", err)
		return nil, models.NewScrapeError(models.ErrCodePersistence, "failed to save page snapshot", err)
	}

	// ── 3. Extract ──────────────────────────────────────────────────
	log.Debug("pipeline", "state", StateExtracting)
	ext := extractor.Extract(doc, p.topN)
	res.Header = ext.Header
	res.Entries = ext.Entries
	res.Markers = ext.Markers
	res.Skipped = ext.Skipped

	if res.Empty() {
		log.Info("no rankings found", "state", StateDoneEmpty, "markers", ext.Markers, "skipped", ext.Skipped)
		return res, nil
	}

	// ── 4. Export ───────────────────────────────────────────────────
	rowsPath := p.layout.RowsPath(itemID)
	log.Debug("pipeline", "state", StatePersistRows, "path", rowsPath)
	if err := p.store.SaveRows(ctx, res.Entries, rowsPath); err != nil {
		log.Error("pipeline", "state", StateFailed, "path", rowsPath, "error", err)
		return nil, models.NewScrapeError(models.ErrCodePersistence, "failed to save rankings", err)
	}
	res.RowsPath = rowsPath

	log.Info("rankings extracted",
		"state", StateDone,
		"entries", len(res.Entries),
		"skipped", ext.Skipped,
		"path", rowsPath,
	)
	return res, nil
}
