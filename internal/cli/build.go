package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"dupindex/config"
	"dupindex/internal/adapter/csvfile"
	"dupindex/internal/adapter/fs"
	"dupindex/internal/adapter/hasher"
	"dupindex/internal/port"
	"dupindex/internal/usecase"
)

// newIndex wires an empty index from the configuration.
func newIndex(cfg *config.Config, log logrus.FieldLogger) (*usecase.Index, error) {
	bufSize, err := cfg.Index.BufferBytes()
	if err != nil {
		return nil, err
	}
	h, err := hasher.New(cfg.Index.Algorithm, bufSize)
	if err != nil {
		return nil, err
	}

	minSize, maxSize, err := cfg.Index.SizeBounds()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Index.Timeout()
	if err != nil {
		return nil, err
	}

	walker := fs.NewWalker(h, fs.Options{
		Includes:       cfg.Index.Includes,
		Excludes:       cfg.Index.Excludes,
		SkipHidden:     cfg.Index.SkipHidden,
		FollowSymlinks: cfg.Index.Symlinks == config.SymlinksFollow,
		MinSize:        minSize,
		MaxSize:        maxSize,
		Workers:        cfg.Index.Workers,
		ReadTimeout:    timeout,
		Types:          cfg.TypeTable(),
	}, log)

	writer := csvfile.NewWriter(cfg.Output.Dir, log)
	return usecase.NewIndex(walker, writer, log), nil
}

// resolveRoot returns the directory to index: the first argument if given,
// otherwise the --dir root.
func resolveRoot(args []string) (string, error) {
	path := GetRootDir()
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return abs, nil
}

// newProgress returns a callback that draws a progress bar on stderr once
// the number of files is known.
func newProgress(description string) port.ProgressFunc {
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			remaining := total - processed
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", description, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

func printWarnings(idx *usecase.Index) {
	warnings := idx.Warnings()
	if len(warnings) == 0 {
		return
	}
	fmt.Printf("\nWarnings (%d skipped):\n", len(warnings))
	for _, w := range warnings {
		fmt.Printf("  - %s\n", w)
	}
}
