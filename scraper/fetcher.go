package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/pricerank/engine"
	"github.com/use-agent/pricerank/models"
)

// Fetcher downloads a page through an engine, decodes it and parses it.
// It never returns a partial document.
type Fetcher struct {
	engine  engine.Engine
	timeout time.Duration
}

// NewFetcher creates a Fetcher. timeout bounds a single fetch; zero means
// only the caller's context applies.
func NewFetcher(e engine.Engine, timeout time.Duration) *Fetcher {
	return &Fetcher{engine: e, timeout: timeout}
}

// Fetch retrieves url with the given headers and returns the parsed page.
// Every failure is a *models.ScrapeError with code ErrCodeFetch or
// ErrCodeTimeout.
func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) (Document, error) {
	start := time.Now()

	res, err := f.engine.Fetch(ctx, &engine.FetchRequest{
		URL:     url,
		Headers: headers,
		Timeout: f.timeout,
	})
	if err != nil {
		return nil, categorizeError(err, fmt.Sprintf("failed to retrieve %s", url))
	}

	text, encName, err := decode(res.Body, res.ContentType)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "failed to decode page", err)
	}
	slog.Debug("page fetched",
		"url", url,
		"engine", res.EngineName,
		"status", res.StatusCode,
		"encoding", encName,
		"bytes", len(res.Body),
		"elapsed", time.Since(start),
	)

	doc, err := ParseString(text)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "failed to parse page", err)
	}
	return doc, nil
}

// categorizeError wraps raw engine errors into typed ScrapeErrors so the API
// layer can map them to status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeFetch, msg, err)
	}
}
