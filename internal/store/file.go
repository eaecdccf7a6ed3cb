// Package store implements the indicator snapshot store consumed by the
// integrator. The external collectors write one latest-value JSON document
// per (kind, asset); this package layers retrieval, caching, and circuit
// breaking over that tree, then adapts the raw documents to the typed ports.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/derivscope/derivscope/internal/domain"
)

// DocSource fetches the latest raw document for one (kind, asset). The
// contract mirrors the typed ports: (nil, nil) means the store has no
// document, an error means the lookup failed.
type DocSource interface {
	Fetch(ctx context.Context, kind domain.IndicatorKind, asset domain.Asset) ([]byte, error)
}

// FileStore reads documents from the collector output tree:
// <dir>/<kind>/<ASSET>.json
type FileStore struct {
	dir string
}

// NewFileStore builds a source over the given data directory.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Fetch reads the latest document, distinguishing a missing file (absent)
// from an unreadable one (failure).
func (s *FileStore) Fetch(ctx context.Context, kind domain.IndicatorKind, asset domain.Asset) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, string(kind), string(asset)+".json")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	return b, nil
}
