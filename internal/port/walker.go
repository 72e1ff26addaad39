package port

import (
	"context"

	"dupindex/internal/domain"
)

// ProgressFunc is called after each file has been fingerprinted.
type ProgressFunc func(done, total int, path string)

type FileWalker interface {
	Walk(ctx context.Context, root string, progress ProgressFunc) (*WalkResult, error)
}

// WalkResult holds the records of one traversal in traversal order and the
// entries that were skipped.
type WalkResult struct {
	Records  []domain.FileRecord
	Warnings []*domain.AccessError
}

type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string) (string, error)
}
