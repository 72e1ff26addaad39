package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dupindex/internal/domain"
	"dupindex/internal/port"
)

// Options controls which entries a Walker records and how it reads them.
type Options struct {
	Includes   []string
	Excludes   []string
	SkipHidden bool
	// FollowSymlinks resolves symbolic links once. Directories are entered
	// at most once by (device, inode), so link cycles terminate. When false
	// every symbolic link is ignored.
	FollowSymlinks bool
	MinSize        int64 // 0 = no lower bound
	MaxSize        int64 // 0 = no upper bound
	Workers        int
	ReadTimeout    time.Duration // 0 = none
	// Types maps a lower-cased extension (".jpg") to a category.
	Types map[string]string
}

// Walker enumerates regular files below a root with an explicit work list
// and fingerprints them with a bounded pool of workers.
type Walker struct {
	opts          Options
	fingerprinter port.Fingerprinter
	log           logrus.FieldLogger
}

func NewWalker(fingerprinter port.Fingerprinter, opts Options, log logrus.FieldLogger) *Walker {
	if len(opts.Includes) == 0 {
		opts.Includes = []string{"**"}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Walker{
		opts:          opts,
		fingerprinter: fingerprinter,
		log:           log,
	}
}

type candidate struct {
	path string
	info os.FileInfo
}

// Walk returns one record per regular file under root. Entries that cannot
// be read are reported in WalkResult.Warnings. Only cancellation of ctx
// fails the walk once it has started.
func (w *Walker) Walk(ctx context.Context, root string, progress port.ProgressFunc) (*port.WalkResult, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	result := &port.WalkResult{}

	candidates, err := w.collect(ctx, root, result)
	if err != nil {
		return nil, err
	}
	w.log.WithField("files", len(candidates)).Debug("traversal complete")

	records := make([]*domain.FileRecord, len(candidates))
	failures := make([]*domain.AccessError, len(candidates))

	var mu sync.Mutex
	done := 0

	g := new(errgroup.Group)
	g.SetLimit(w.opts.Workers)
	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, aerr := w.record(ctx, c)
			records[i] = rec
			failures[i] = aerr

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(candidates), c.path)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range candidates {
		if failures[i] != nil {
			w.warn(result, failures[i])
			continue
		}
		if records[i] != nil {
			result.Records = append(result.Records, *records[i])
		}
	}

	return result, nil
}

// collect walks the tree depth first. Files of a directory come before its
// subdirectories, both in name order.
func (w *Walker) collect(ctx context.Context, root string, result *port.WalkResult) ([]candidate, error) {
	var candidates []candidate

	visited := make(map[fileID]bool)
	if w.opts.FollowSymlinks {
		if id, err := identity(root); err == nil {
			visited[id] = true
		}
	}

	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			w.warn(result, &domain.AccessError{Path: dir, Op: "readdir", Err: err})
		}

		var subdirs []subdir
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			rel, err := filepath.Rel(root, path)
			if err != nil {
				w.warn(result, &domain.AccessError{Path: path, Op: "rel", Err: err})
				continue
			}
			rel = filepath.ToSlash(rel)

			if w.opts.SkipHidden && strings.HasPrefix(entry.Name(), ".") {
				continue
			}

			var info os.FileInfo
			isDir := entry.IsDir()

			if entry.Type()&iofs.ModeSymlink != 0 {
				if !w.opts.FollowSymlinks {
					w.log.WithField("path", path).Debug("skipping symlink")
					continue
				}
				info, err = os.Stat(path)
				if err != nil {
					w.warn(result, &domain.AccessError{Path: path, Op: "stat", Err: err})
					continue
				}
				isDir = info.IsDir()
			}

			if isDir {
				if w.shouldExclude(rel) || w.shouldExclude(rel+"/") {
					continue
				}
				subdirs = append(subdirs, subdir{path: path, link: info != nil})
				continue
			}

			if info == nil {
				info, err = entry.Info()
				if err != nil {
					w.warn(result, &domain.AccessError{Path: path, Op: "stat", Err: err})
					continue
				}
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if !w.shouldInclude(rel) || w.shouldExclude(rel) {
				continue
			}
			if w.opts.MinSize > 0 && info.Size() < w.opts.MinSize {
				continue
			}
			if w.opts.MaxSize > 0 && info.Size() > w.opts.MaxSize {
				continue
			}

			candidates = append(candidates, candidate{path: path, info: info})
		}

		if w.opts.FollowSymlinks {
			subdirs = w.unvisited(subdirs, visited, result)
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i].path)
		}
	}

	return candidates, nil
}

type subdir struct {
	path string
	link bool
}

// unvisited drops directories whose identity was already entered. Real
// directories of a listing are claimed before links to them, so a link that
// sorts ahead of its target does not take the target's place.
func (w *Walker) unvisited(dirs []subdir, visited map[fileID]bool, result *port.WalkResult) []subdir {
	keep := make([]bool, len(dirs))
	for _, links := range []bool{false, true} {
		for i, d := range dirs {
			if d.link != links {
				continue
			}
			id, err := identity(d.path)
			if err != nil {
				w.warn(result, &domain.AccessError{Path: d.path, Op: "stat", Err: err})
				continue
			}
			if visited[id] {
				w.log.WithField("path", d.path).Debug("directory already visited")
				continue
			}
			visited[id] = true
			keep[i] = true
		}
	}

	out := dirs[:0]
	for i, d := range dirs {
		if keep[i] {
			out = append(out, d)
		}
	}
	return out
}

// record fingerprints one file. A nil record and nil error means the walk
// was cancelled while the file was being read.
func (w *Walker) record(ctx context.Context, c candidate) (*domain.FileRecord, *domain.AccessError) {
	fctx := ctx
	if w.opts.ReadTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, w.opts.ReadTimeout)
		defer cancel()
	}

	fingerprint, err := w.fingerprinter.Fingerprint(fctx, c.path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("read timeout after %s: %w", w.opts.ReadTimeout, err)
		}
		return nil, &domain.AccessError{Path: c.path, Op: "read", Err: err}
	}

	ext := strings.ToLower(filepath.Ext(c.path))
	kind, ok := w.opts.Types[ext]
	if !ok {
		kind = "other"
	}

	return &domain.FileRecord{
		Path:        c.path,
		Name:        filepath.Base(c.path),
		Size:        c.info.Size(),
		Fingerprint: fingerprint,
		ModTime:     c.info.ModTime(),
		Extension:   ext,
		Type:        kind,
	}, nil
}

func (w *Walker) warn(result *port.WalkResult, aerr *domain.AccessError) {
	w.log.WithFields(logrus.Fields{
		"path": aerr.Path,
		"op":   aerr.Op,
	}).Warn(aerr.Err)
	result.Warnings = append(result.Warnings, aerr)
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.opts.Includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.opts.Excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
