package port

import "dupindex/internal/domain"

type RecordWriter interface {
	// WriteRecords writes records to name and returns the path written.
	WriteRecords(records []domain.FileRecord, name string) (string, error)
}
