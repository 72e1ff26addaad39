package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dupindex/internal/domain"
	"dupindex/internal/port"
	"dupindex/internal/usecase"
)

var (
	indexName       string
	indexMinSize    sizeValue
	indexMaxSize    sizeValue
	indexDuplicates bool
	indexNoProgress bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index files and export them as CSV",
	Long: `Index every regular file below the specified directory and write
the records to <name>.csv in the output directory.

Examples:
  dupindex index .                          # Write ./index.csv
  dupindex index /data --name data -o /tmp  # Write /tmp/data.csv
  dupindex index /data --duplicates         # Export duplicated files only
  dupindex index /data --min-size "200 KB"  # Export files of at least 200 KB
  dupindex index /data --max-size "1 GiB"   # Leave files above 1 GiB out of the index`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&indexName, "name", "n", "", "export name without extension (default from config)")
	indexCmd.Flags().Var(&indexMinSize, "min-size", "only export files of at least this size")
	indexCmd.Flags().Var(&indexMaxSize, "max-size", "do not index files larger than this size (overrides config)")
	indexCmd.Flags().BoolVar(&indexDuplicates, "duplicates", false, "only export files that have duplicates")
	indexCmd.Flags().BoolVar(&indexNoProgress, "no-progress", false, "disable the progress bar")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path, err := resolveRoot(args)
	if err != nil {
		return err
	}

	cfg := GetConfig()
	if indexMaxSize.IsSet() {
		c := *cfg
		c.Index.MaxSize = indexMaxSize.String()
		cfg = &c
	}
	idx, err := newIndex(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", path)

	var progress port.ProgressFunc
	if !indexNoProgress {
		progress = newProgress("Fingerprinting")
	}
	if err := idx.Create(cmd.Context(), path, progress); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	records := idx.Records()
	if indexDuplicates {
		records = idx.FilterDuplicates().Flatten(records)
	}
	if indexMinSize.IsSet() {
		records = usecase.FilterMinSize(records, indexMinSize.bytes)
	}

	name := indexName
	if name == "" {
		name = cfg.Output.Name
	}
	out, err := idx.WriteToFile(records, name)
	if err != nil {
		return err
	}

	printSummary(idx.Summary())
	fmt.Printf("  Records written: %d\n", len(records))
	printWarnings(idx)

	fmt.Printf("\nIndex written to: %s\n", out)
	return nil
}

func printSummary(s domain.Summary) {
	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed:   %d (%s)\n", s.Files, humanize.Bytes(uint64(s.TotalBytes)))
	fmt.Printf("  Files skipped:   %d\n", s.Warnings)
	fmt.Printf("  Duplicate sets:  %d (%d files)\n", s.DuplicateGroups, s.DuplicateFiles)
	fmt.Printf("  Reclaimable:     %s\n", humanize.Bytes(uint64(s.ReclaimableBytes)))
}
