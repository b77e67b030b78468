package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
)

// FileStore writes artifacts to the local filesystem.
type FileStore struct{}

// NewFileStore creates a FileStore.
func NewFileStore() *FileStore {
	return &FileStore{}
}

func (s *FileStore) SaveDocument(_ context.Context, doc scraper.Document, path string) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("store: render %s: %w", path, err)
	}
	return writeFile(path, data)
}

func (s *FileStore) SaveRows(_ context.Context, rows []models.RankingEntry, path string) error {
	data, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// LoadRows reads back an export written by SaveRows.
func LoadRows(path string) ([]models.RankingEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeRows(f)
}

// writeFile replaces path with data through a temp file in the same
// directory, so readers never observe a partially written artifact.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename %s: %w", path, err)
	}
	return nil
}
