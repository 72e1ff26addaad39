package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/facette/natsort"
	"github.com/spf13/cobra"

	"dupindex/internal/domain"
	"dupindex/internal/port"
)

var (
	dupesName       string
	dupesNoWrite    bool
	dupesNoProgress bool
	dupesSortBy     string
)

var dupesCmd = &cobra.Command{
	Use:   "dupes [path]",
	Short: "List files with identical content",
	Long: `Index the specified directory, print every group of files sharing the
same content fingerprint and export the grouped files as CSV.

Examples:
  dupindex dupes .                  # Print groups, write ./duplicates.csv
  dupindex dupes /data --no-write   # Print groups only
  dupindex dupes /data --sort count # Largest groups first`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDupes,
}

func init() {
	rootCmd.AddCommand(dupesCmd)
	dupesCmd.Flags().StringVarP(&dupesName, "name", "n", "duplicates", "export name without extension")
	dupesCmd.Flags().BoolVar(&dupesNoWrite, "no-write", false, "do not write a CSV export")
	dupesCmd.Flags().BoolVar(&dupesNoProgress, "no-progress", false, "disable the progress bar")
	dupesCmd.Flags().StringVar(&dupesSortBy, "sort", "index", `group order: "index", "total", "size" or "count"`)
}

func runDupes(cmd *cobra.Command, args []string) error {
	path, err := resolveRoot(args)
	if err != nil {
		return err
	}

	idx, err := newIndex(GetConfig(), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", path)

	var progress port.ProgressFunc
	if !dupesNoProgress {
		progress = newProgress("Fingerprinting")
	}
	if err := idx.Create(cmd.Context(), path, progress); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	records := idx.Records()
	groups := idx.FilterDuplicates()
	order, err := sortGroups(groups, groups.Fingerprints(records), dupesSortBy)
	if err != nil {
		return err
	}

	printGroups(os.Stdout, groups, order)
	printSummary(idx.Summary())
	printWarnings(idx)

	if dupesNoWrite {
		return nil
	}
	out, err := idx.WriteToFile(groups.Flatten(records), dupesName)
	if err != nil {
		return err
	}
	fmt.Printf("\nDuplicates written to: %s\n", out)
	return nil
}

// sortGroups orders fingerprints. "index" keeps first-appearance order.
func sortGroups(groups domain.DuplicateGroups, fingerprints []string, by string) ([]string, error) {
	out := make([]string, len(fingerprints))
	copy(out, fingerprints)

	size := func(fp string) int64 { return groups[fp][0].Size }
	count := func(fp string) int { return len(groups[fp]) }
	total := func(fp string) int64 { return size(fp) * int64(count(fp)) }

	switch by {
	case "", "index":
	case "total":
		sort.SliceStable(out, func(i, j int) bool { return total(out[i]) > total(out[j]) })
	case "size":
		sort.SliceStable(out, func(i, j int) bool { return size(out[i]) > size(out[j]) })
	case "count":
		sort.SliceStable(out, func(i, j int) bool { return count(out[i]) > count(out[j]) })
	default:
		return nil, fmt.Errorf("unknown sort order %q", by)
	}
	return out, nil
}

// printGroups writes each group with its paths in natural order.
func printGroups(w io.Writer, groups domain.DuplicateGroups, order []string) {
	if len(order) == 0 {
		fmt.Fprintln(w, "No duplicate files found.")
		return
	}
	for i, fp := range order {
		recs := groups[fp]
		paths := make([]string, len(recs))
		for j, r := range recs {
			paths[j] = r.Path
		}
		natsort.Sort(paths)

		size := recs[0].Size
		fmt.Fprintf(w, "#%d  %s x %d = %s  %s\n", i+1,
			humanize.Bytes(uint64(size)), len(recs), humanize.Bytes(uint64(size)*uint64(len(recs))), fp)
		for _, p := range paths {
			fmt.Fprintf(w, "    - %s\n", p)
		}
	}
}
