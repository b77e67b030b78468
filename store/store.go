// Package store persists page snapshots and ranking exports.
package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/gocarina/gocsv"

	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
)

// Store writes the two artifacts of a pipeline run. Implementations create
// whatever parent location the path needs.
type Store interface {
	// SaveDocument writes the parsed page back out as HTML.
	SaveDocument(ctx context.Context, doc scraper.Document, path string) error

	// SaveRows writes rows as CSV with a header row. Callers never pass an
	// empty slice.
	SaveRows(ctx context.Context, rows []models.RankingEntry, path string) error
}

// utf8BOM prefixes every export so spreadsheet tools detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const (
	htmlContentType = "text/html; charset=utf-8"
	csvContentType  = "text/csv; charset=utf-8"
)

func encodeDocument(doc scraper.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRows(rows []models.RankingEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return nil, fmt.Errorf("store: encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRows parses an export produced by SaveRows. A leading BOM is optional.
// The header row must match models.CSVHeader exactly.
func DecodeRows(r io.Reader) ([]models.RankingEntry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("store: read rows: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	header, err := csv.NewReader(bytes.NewReader(raw)).Read()
	if err != nil {
		return nil, fmt.Errorf("store: read header: %w", err)
	}
	if !slices.Equal(header, models.CSVHeader) {
		return nil, fmt.Errorf("store: unexpected columns %q", header)
	}

	rows := []models.RankingEntry{}
	if err := gocsv.UnmarshalBytes(raw, &rows); err != nil {
		return nil, fmt.Errorf("store: decode rows: %w", err)
	}
	return rows, nil
}
