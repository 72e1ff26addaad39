package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dupindex/config"
)

var (
	cfgFile   string
	cfg       *config.Config
	rootDir   string
	outputDir string
	verbose   bool
	logger    *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dupindex",
	Short: "Index files under a directory and find duplicates",
	Long: `dupindex walks a directory tree, fingerprints the content of every
regular file and exports the index, or only the duplicated files, as CSV.

Example usage:
  dupindex index .                 # Write index.csv for the current directory
  dupindex index ~/Photos --min-size "200 KB"
  dupindex dupes ~/Downloads       # Print duplicate groups, write duplicates.csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if outputDir != "" {
			cfg.Output.Dir = outputDir
		}

		logger, err = newLogger(cfg.Logging.Level, verbose)
		if err != nil {
			return err
		}

		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dupindex.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory for CSV exports (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// newLogger builds the process logger. Logs go to stderr so they never mix
// with command output.
func newLogger(level string, debug bool) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	lvl := logrus.InfoLevel
	if level != "" {
		var err error
		lvl, err = logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	if debug {
		lvl = logrus.DebugLevel
	}
	l.SetLevel(lvl)
	return l, nil
}
