package port

import "dupindex/internal/domain"

type RecordStore interface {
	Put(rec domain.FileRecord) error

	Get(path string) (domain.FileRecord, bool)

	List() []domain.FileRecord

	Len() int

	Reset()
}
