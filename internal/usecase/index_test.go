package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"

	"dupindex/internal/adapter/csvfile"
	"dupindex/internal/adapter/fs"
	"dupindex/internal/adapter/hasher"
	"dupindex/internal/domain"
	"dupindex/internal/port"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestIndex(t *testing.T, fp port.Fingerprinter, outDir string) *Index {
	t.Helper()
	if fp == nil {
		h, err := hasher.New("sha256", 0)
		if err != nil {
			t.Fatal(err)
		}
		fp = h
	}
	log := quietLogger()
	walker := fs.NewWalker(fp, fs.Options{Workers: 2}, log)
	return NewIndex(walker, csvfile.NewWriter(outDir, log), log)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func names(recs []domain.FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	sort.Strings(out)
	return out
}

type failingFingerprinter struct {
	inner port.Fingerprinter
	fail  string
}

func (f failingFingerprinter) Fingerprint(ctx context.Context, path string) (string, error) {
	if filepath.Base(path) == f.fail {
		return "", os.ErrPermission
	}
	return f.inner.Fingerprint(ctx, path)
}

func TestIndex_DuplicateScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt": "hello",
		"b.txt": "hello",
		"c.txt": "world",
	})

	idx := newTestIndex(t, nil, t.TempDir())
	if err := idx.Create(context.Background(), root, nil); err != nil {
		t.Fatal(err)
	}
	if got := len(idx.Records()); got != 3 {
		t.Fatalf("expected 3 records, got %d", got)
	}

	groups := idx.FilterDuplicates()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	for _, recs := range groups {
		got := names(recs)
		if len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
			t.Errorf("expected group [a.txt b.txt], got %v", got)
		}
	}
	for _, rec := range groups.Flatten(idx.Records()) {
		if rec.Name == "c.txt" {
			t.Error("c.txt must not be in any group")
		}
	}
}

func TestIndex_GroupingIffSameFingerprint(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"one/x":   "alpha",
		"two/y":   "alpha",
		"three/z": "alpha",
		"p":       "beta",
		"q/r":     "beta",
		"solo":    "gamma",
		"empty1":  "",
		"d/empty": "",
	})

	idx := newTestIndex(t, nil, t.TempDir())
	if err := idx.Create(context.Background(), root, nil); err != nil {
		t.Fatal(err)
	}
	records := idx.Records()
	groups := idx.FilterDuplicates()

	if len(groups) != 3 {
		t.Errorf("expected 3 groups, got %d", len(groups))
	}

	indexed := make(map[string]bool)
	for _, r := range records {
		indexed[r.Path] = true
	}

	for fp, recs := range groups {
		if len(recs) < 2 {
			t.Errorf("group %s has %d members", fp, len(recs))
		}
		for _, r := range recs {
			if r.Fingerprint != fp {
				t.Errorf("record %s has fingerprint %s in group %s", r.Path, r.Fingerprint, fp)
			}
			if !indexed[r.Path] {
				t.Errorf("grouped record %s is not in the index", r.Path)
			}
		}
	}

	for i := range records {
		for j := range records {
			if i == j {
				continue
			}
			same := records[i].Fingerprint == records[j].Fingerprint
			_, grouped := groups[records[i].Fingerprint]
			if same && !grouped {
				t.Errorf("%s and %s share a fingerprint but are not grouped", records[i].Path, records[j].Path)
			}
		}
	}
	if _, ok := groups[recordByName(records, "solo").Fingerprint]; ok {
		t.Error("singleton must not form a group")
	}
}

func recordByName(recs []domain.FileRecord, name string) domain.FileRecord {
	for _, r := range recs {
		if r.Name == name {
			return r
		}
	}
	return domain.FileRecord{}
}

func TestIndex_FilterDuplicatesDoesNotMutate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a": "1", "b": "1", "c": "2"})

	idx := newTestIndex(t, nil, t.TempDir())
	if err := idx.Create(context.Background(), root, nil); err != nil {
		t.Fatal(err)
	}
	before := idx.Records()
	groups := idx.FilterDuplicates()
	for fp := range groups {
		groups[fp][0].Path = "/mutated"
	}
	after := idx.Records()

	if len(before) != len(after) {
		t.Fatalf("record count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Path != after[i].Path {
			t.Errorf("record %d changed: %s -> %s", i, before[i].Path, after[i].Path)
		}
	}
}

func TestIndex_EmptyDirectory(t *testing.T) {
	out := t.TempDir()
	idx := newTestIndex(t, nil, out)
	if err := idx.Create(context.Background(), t.TempDir(), nil); err != nil {
		t.Fatal(err)
	}
	if len(idx.Records()) != 0 {
		t.Errorf("expected no records, got %d", len(idx.Records()))
	}
	if groups := idx.FilterDuplicates(); len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}

	path, err := idx.WriteToFile(idx.Records(), "index")
	if err != nil {
		t.Fatal(err)
	}
	recs, err := csvfile.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("expected header only, got %d rows", len(recs))
	}
}

func TestIndex_BeforeCreate(t *testing.T) {
	idx := newTestIndex(t, nil, t.TempDir())

	if idx.Populated() {
		t.Error("new index must not be populated")
	}
	if groups := idx.FilterDuplicates(); groups == nil || len(groups) != 0 {
		t.Errorf("expected empty non-nil groups, got %v", groups)
	}
	if recs := idx.Records(); len(recs) != 0 {
		t.Errorf("expected no records, got %d", len(recs))
	}
	if _, err := idx.WriteToFile(idx.Records(), "empty"); err != nil {
		t.Errorf("expected empty export to succeed, got %v", err)
	}
}

func TestIndex_RootNotFound(t *testing.T) {
	out := t.TempDir()
	idx := newTestIndex(t, nil, out)

	err := idx.Create(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	var nf *domain.PathNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected PathNotFoundError, got %v", err)
	}
	if idx.Populated() {
		t.Error("index must stay empty after a failed Create")
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("expected no files to be created, found %d", len(entries))
	}
}

func TestIndex_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.txt": "x"})

	idx := newTestIndex(t, nil, t.TempDir())
	err := idx.Create(context.Background(), filepath.Join(root, "file.txt"), nil)
	var nd *domain.NotADirectoryError
	if !errors.As(err, &nd) {
		t.Fatalf("expected NotADirectoryError, got %v", err)
	}
}

func TestIndex_UnreadableFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "locked.txt": "c"})

	h, _ := hasher.New("sha256", 0)
	idx := newTestIndex(t, failingFingerprinter{inner: h, fail: "locked.txt"}, t.TempDir())

	if err := idx.Create(context.Background(), root, nil); err != nil {
		t.Fatalf("expected Create to succeed, got %v", err)
	}
	got := names(idx.Records())
	if len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
		t.Errorf("expected [a.txt b.txt], got %v", got)
	}
	warnings := idx.Warnings()
	if len(warnings) != 1 || filepath.Base(warnings[0].Path) != "locked.txt" {
		t.Errorf("expected one warning for locked.txt, got %v", warnings)
	}
}

func TestIndex_CreateReplacesContents(t *testing.T) {
	first := t.TempDir()
	writeTree(t, first, map[string]string{"a": "1", "b": "2"})
	second := t.TempDir()
	writeTree(t, second, map[string]string{"c": "3"})

	idx := newTestIndex(t, nil, t.TempDir())
	if err := idx.Create(context.Background(), first, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.Create(context.Background(), second, nil); err != nil {
		t.Fatal(err)
	}
	got := names(idx.Records())
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("expected [c], got %v", got)
	}
	abs, _ := filepath.Abs(second)
	if idx.Root() != abs {
		t.Errorf("expected root %s, got %s", abs, idx.Root())
	}
}

func TestIndex_WriteDuplicatesRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "hello",
		"c.txt":     "world",
		"d, e.txt":  "world",
		"f.txt":     "unique",
	})

	out := t.TempDir()
	idx := newTestIndex(t, nil, out)
	if err := idx.Create(context.Background(), root, nil); err != nil {
		t.Fatal(err)
	}
	dupes := idx.FilterDuplicates().Flatten(idx.Records())
	if len(dupes) != 4 {
		t.Fatalf("expected 4 duplicate records, got %d", len(dupes))
	}

	path, err := idx.WriteToFile(dupes, "duplicates")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(out, "duplicates.csv") {
		t.Errorf("unexpected path %s", path)
	}

	back, err := csvfile.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != len(dupes) {
		t.Fatalf("expected %d rows, got %d", len(dupes), len(back))
	}
	for i := range dupes {
		if back[i].Path != dupes[i].Path || back[i].Fingerprint != dupes[i].Fingerprint ||
			back[i].Size != dupes[i].Size || !back[i].ModTime.Equal(dupes[i].ModTime) {
			t.Errorf("row %d: expected %+v, got %+v", i, dupes[i], back[i])
		}
	}
}

func TestIndex_WriteErrorPropagates(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	idx := newTestIndex(t, nil, filepath.Join(blocker, "sub"))
	_, err := idx.WriteToFile(nil, "index")
	var werr *domain.WriteError
	if !errors.As(err, &werr) {
		t.Errorf("expected WriteError, got %v", err)
	}
}

func TestIndex_FilterByMinSize(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"small":  "12345",
		"exact":  string(make([]byte, 1024)),
		"bigger": string(make([]byte, 4096)),
	})

	idx := newTestIndex(t, nil, t.TempDir())
	if err := idx.Create(context.Background(), root, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		min  string
		want []string
	}{
		{"0 B", []string{"bigger", "exact", "small"}},
		{"1 KiB", []string{"bigger", "exact"}},
		{"1kib", []string{"bigger", "exact"}},
		{"2 KB", []string{"bigger"}},
		{"1 MiB", []string{}},
		{"10 EiB", []string{}},
	}
	for _, tt := range tests {
		recs, err := idx.FilterByMinSize(tt.min)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.min, err)
			continue
		}
		got := names(recs)
		if len(got) != len(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.min, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: expected %v, got %v", tt.min, tt.want, got)
				break
			}
		}
	}

	if _, err := idx.FilterByMinSize("lots"); !errors.Is(err, domain.ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestIndex_Summary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a": "hello",
		"b": "hello",
		"c": "hello",
		"d": "xy",
	})

	idx := newTestIndex(t, nil, t.TempDir())
	if err := idx.Create(context.Background(), root, nil); err != nil {
		t.Fatal(err)
	}
	s := idx.Summary()
	if s.Files != 4 || s.TotalBytes != 17 {
		t.Errorf("unexpected totals: %+v", s)
	}
	if s.DuplicateGroups != 1 || s.DuplicateFiles != 3 {
		t.Errorf("unexpected duplicate counts: %+v", s)
	}
	if s.ReclaimableBytes != 10 {
		t.Errorf("expected 10 reclaimable bytes, got %d", s.ReclaimableBytes)
	}
}
