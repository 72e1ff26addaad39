package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"dupindex/internal/adapter/memstore"
	"dupindex/internal/domain"
	"dupindex/internal/port"
)

// Index is an ordered, path-unique collection of file records built by a
// single traversal. It starts empty and becomes populated after Create.
// An Index is not safe for concurrent use.
type Index struct {
	walker   port.FileWalker
	writer   port.RecordWriter
	store    port.RecordStore
	log      logrus.FieldLogger
	root     string
	warnings []*domain.AccessError
	built    bool
}

// NewIndex creates an empty index.
func NewIndex(walker port.FileWalker, writer port.RecordWriter, log logrus.FieldLogger) *Index {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Index{
		walker: walker,
		writer: writer,
		store:  memstore.NewMemoryStore(),
		log:    log,
	}
}

// Create replaces the contents of the index with one record per regular
// file under root. Files that cannot be read are skipped and reported by
// Warnings; they never make Create fail.
func (x *Index) Create(ctx context.Context, root string, progress port.ProgressFunc) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.PathNotFoundError{Path: abs, Err: err}
		}
		return fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return &domain.NotADirectoryError{Path: abs}
	}

	x.log.WithField("root", abs).Info("creating index")

	result, err := x.walker.Walk(ctx, abs, progress)
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	x.store.Reset()
	x.warnings = result.Warnings
	for _, rec := range result.Records {
		if err := x.store.Put(rec); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}
	}
	x.root = abs
	x.built = true

	x.log.WithFields(logrus.Fields{
		"root":     abs,
		"files":    x.store.Len(),
		"warnings": len(x.warnings),
	}).Info("index created")
	return nil
}

// Populated reports whether Create has completed successfully.
func (x *Index) Populated() bool {
	return x.built
}

// Root returns the absolute root of the last successful Create.
func (x *Index) Root() string {
	return x.root
}

// Records returns the records in traversal order.
func (x *Index) Records() []domain.FileRecord {
	return x.store.List()
}

// Warnings returns the entries skipped by the last Create.
func (x *Index) Warnings() []*domain.AccessError {
	out := make([]*domain.AccessError, len(x.warnings))
	copy(out, x.warnings)
	return out
}

// FilterDuplicates groups the records by fingerprint and drops groups with
// a single member. The index is not modified.
func (x *Index) FilterDuplicates() domain.DuplicateGroups {
	return GroupDuplicates(x.store.List())
}

// GroupDuplicates groups records by fingerprint, keeping only groups with
// two or more members. Members keep their order from records.
func GroupDuplicates(records []domain.FileRecord) domain.DuplicateGroups {
	byFingerprint := make(map[string][]domain.FileRecord)
	for _, rec := range records {
		byFingerprint[rec.Fingerprint] = append(byFingerprint[rec.Fingerprint], rec)
	}

	groups := make(domain.DuplicateGroups)
	for fp, recs := range byFingerprint {
		if len(recs) > 1 {
			groups[fp] = recs
		}
	}
	return groups
}

// FilterByMinSize returns the records at least minSize bytes large, in
// index order. minSize is a human readable size such as "200 KB" or "1 MiB".
func (x *Index) FilterByMinSize(minSize string) ([]domain.FileRecord, error) {
	n, err := domain.ParseSize(minSize)
	if err != nil {
		return nil, err
	}
	return FilterMinSize(x.store.List(), n), nil
}

// FilterMinSize keeps the records with Size >= min.
func FilterMinSize(records []domain.FileRecord, min int64) []domain.FileRecord {
	out := []domain.FileRecord{}
	for _, rec := range records {
		if rec.Size >= min {
			out = append(out, rec)
		}
	}
	return out
}

// WriteToFile exports records as <name>.csv through the configured writer
// and returns the written path. A nil slice writes a header-only file.
func (x *Index) WriteToFile(records []domain.FileRecord, name string) (string, error) {
	path, err := x.writer.WriteRecords(records, name)
	if err != nil {
		return "", err
	}
	return path, nil
}

// Summary returns aggregate counts for the current contents.
func (x *Index) Summary() domain.Summary {
	records := x.store.List()
	groups := GroupDuplicates(records)

	s := domain.Summary{
		Files:            len(records),
		DuplicateGroups:  len(groups),
		DuplicateFiles:   groups.FileCount(),
		ReclaimableBytes: groups.ReclaimableBytes(),
		Warnings:         len(x.warnings),
	}
	for _, rec := range records {
		s.TotalBytes += rec.Size
	}
	return s
}
