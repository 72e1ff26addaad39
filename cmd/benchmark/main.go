package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"dupindex/config"
	"dupindex/internal/adapter/csvfile"
	"dupindex/internal/adapter/fs"
	"dupindex/internal/adapter/hasher"
	"dupindex/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory to index")
	algos := flag.String("algos", strings.Join(hasher.Algorithms(), ","), "Comma separated fingerprint algorithms")
	workers := flag.Int("workers", 0, "Fingerprint workers (default from config)")
	flag.Parse()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Index.Workers = *workers
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	fmt.Println("=== Fingerprint benchmark ===")
	fmt.Printf("Directory: %s\n", *dir)
	fmt.Printf("Workers:   %d\n\n", cfg.Index.Workers)

	var baseline *usecase.Index
	for _, name := range strings.Split(*algos, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		idx, err := buildIndex(cfg, name, log)
		if err != nil {
			fmt.Printf("%-12s error: %v\n", name, err)
			continue
		}

		start := time.Now()
		if err := idx.Create(context.Background(), *dir, nil); err != nil {
			fmt.Printf("%-12s error: %v\n", name, err)
			os.Exit(1)
		}
		elapsed := time.Since(start)

		s := idx.Summary()
		rate := float64(s.TotalBytes) / elapsed.Seconds()
		fmt.Printf("%-12s %8s  %6d files  %10s  %10s/s  %d groups\n",
			name, elapsed.Round(time.Millisecond), s.Files, humanize.Bytes(uint64(s.TotalBytes)),
			humanize.Bytes(uint64(rate)), s.DuplicateGroups)

		if baseline == nil {
			baseline = idx
		} else if !sameGrouping(baseline, idx) {
			fmt.Printf("%-12s WARNING: duplicate groups differ from %s\n", "", "first algorithm")
		}
	}
}

func buildIndex(cfg *config.Config, algo string, log logrus.FieldLogger) (*usecase.Index, error) {
	bufSize, err := cfg.Index.BufferBytes()
	if err != nil {
		return nil, err
	}
	h, err := hasher.New(algo, bufSize)
	if err != nil {
		return nil, err
	}
	walker := fs.NewWalker(h, fs.Options{
		Includes: cfg.Index.Includes,
		Excludes: cfg.Index.Excludes,
		Workers:  cfg.Index.Workers,
		Types:    cfg.TypeTable(),
	}, log)
	return usecase.NewIndex(walker, csvfile.NewWriter(os.TempDir(), log), log), nil
}

// sameGrouping reports whether two indexes partition their files into the
// same duplicate groups.
func sameGrouping(a, b *usecase.Index) bool {
	key := func(idx *usecase.Index) map[string]string {
		groups := idx.FilterDuplicates()
		out := make(map[string]string)
		for _, recs := range groups {
			// the first member's path identifies the group
			for _, r := range recs {
				out[r.Path] = recs[0].Path
			}
		}
		return out
	}
	ka, kb := key(a), key(b)
	if len(ka) != len(kb) {
		return false
	}
	for p, g := range ka {
		if kb[p] != g {
			return false
		}
	}
	return true
}
