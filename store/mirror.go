package store

import (
	"context"

	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
)

// Mirror writes every artifact to a primary store and then to each
// secondary in order. The first failure stops the write and is returned.
type Mirror struct {
	stores []Store
}

// NewMirror creates a Mirror. primary is always written first.
func NewMirror(primary Store, secondaries ...Store) *Mirror {
	return &Mirror{stores: append([]Store{primary}, secondaries...)}
}

func (m *Mirror) SaveDocument(ctx context.Context, doc scraper.Document, path string) error {
	for _, s := range m.stores {
		if err := s.SaveDocument(ctx, doc, path); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) SaveRows(ctx context.Context, rows []models.RankingEntry, path string) error {
	for _, s := range m.stores {
		if err := s.SaveRows(ctx, rows, path); err != nil {
			return err
		}
	}
	return nil
}
