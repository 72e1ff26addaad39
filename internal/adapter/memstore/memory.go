package memstore

import (
	"fmt"
	"sync"

	"dupindex/internal/domain"
)

// MemoryStore keeps records in insertion order and rejects a second record
// for a path that is already present.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.FileRecord
	byPath  map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byPath: make(map[string]int),
	}
}

func (s *MemoryStore) Put(rec domain.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPath[rec.Path]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicatePath, rec.Path)
	}
	s.byPath[rec.Path] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) Get(path string) (domain.FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byPath[path]
	if !ok {
		return domain.FileRecord{}, false
	}
	return s.records[i], true
}

// List returns a copy of the records in insertion order.
func (s *MemoryStore) List() []domain.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FileRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.byPath = make(map[string]int)
}
