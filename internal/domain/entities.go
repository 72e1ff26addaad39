package domain

import (
	"strconv"
	"time"
)

// FileRecord describes one regular file discovered under the index root.
type FileRecord struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	Fingerprint string    `json:"fingerprint"`
	ModTime     time.Time `json:"modified_time"`
	Extension   string    `json:"extension"`
	Type        string    `json:"type"`
}

// RecordColumns is the fixed CSV column order for FileRecord.
var RecordColumns = []string{"path", "name", "size", "fingerprint", "modified_time", "extension", "type"}

// TimeLayout is used for modified_time in exported files.
const TimeLayout = time.RFC3339Nano

// Row returns the record fields in RecordColumns order.
func (r FileRecord) Row() []string {
	return []string{
		r.Path,
		r.Name,
		strconv.FormatInt(r.Size, 10),
		r.Fingerprint,
		r.ModTime.Format(TimeLayout),
		r.Extension,
		r.Type,
	}
}

// DuplicateGroups maps a fingerprint to the records sharing it.
// Only fingerprints with at least two records are present.
type DuplicateGroups map[string][]FileRecord

// Fingerprints returns the group keys ordered by the index position of
// each group's first member.
func (g DuplicateGroups) Fingerprints(order []FileRecord) []string {
	keys := make([]string, 0, len(g))
	seen := make(map[string]bool, len(g))
	for _, rec := range order {
		if _, ok := g[rec.Fingerprint]; ok && !seen[rec.Fingerprint] {
			seen[rec.Fingerprint] = true
			keys = append(keys, rec.Fingerprint)
		}
	}
	return keys
}

// Flatten returns every grouped record, groups in first-appearance order.
func (g DuplicateGroups) Flatten(order []FileRecord) []FileRecord {
	var out []FileRecord
	for _, fp := range g.Fingerprints(order) {
		out = append(out, g[fp]...)
	}
	return out
}

// FileCount is the number of records across all groups.
func (g DuplicateGroups) FileCount() int {
	n := 0
	for _, recs := range g {
		n += len(recs)
	}
	return n
}

// ReclaimableBytes is the size of every group member beyond the first.
func (g DuplicateGroups) ReclaimableBytes() int64 {
	var total int64
	for _, recs := range g {
		if len(recs) > 1 {
			total += recs[0].Size * int64(len(recs)-1)
		}
	}
	return total
}

// Summary holds aggregate counts for a populated index.
type Summary struct {
	Files            int
	TotalBytes       int64
	DuplicateGroups  int
	DuplicateFiles   int
	ReclaimableBytes int64
	Warnings         int
}
