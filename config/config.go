package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"dupindex/internal/domain"
)

const maxBufferSize = 1 << 30

// Symlink policies.
const (
	SymlinksSkip   = "skip"
	SymlinksFollow = "follow"
)

// Config holds all configuration for the indexer.
type Config struct {
	Index   IndexConfig         `yaml:"index"`
	Output  OutputConfig        `yaml:"output"`
	Types   map[string][]string `yaml:"types"`
	Logging LoggingConfig       `yaml:"logging"`
}

// IndexConfig holds traversal and fingerprint configuration.
type IndexConfig struct {
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes"`
	SkipHidden  bool     `yaml:"skip_hidden"`
	Symlinks    string   `yaml:"symlinks"`    // "skip" or "follow"
	Algorithm   string   `yaml:"algorithm"`   // "sha256", "sha1", "sha512", "md5", "highwayhash"
	BufferSize  string   `yaml:"buffer_size"` // e.g. "1 MiB"
	MinSize     string   `yaml:"min_size"`    // empty = no lower bound
	MaxSize     string   `yaml:"max_size"`    // empty = no upper bound
	Workers     int      `yaml:"workers"`
	ReadTimeout string   `yaml:"read_timeout"` // Go duration, empty = none
}

// OutputConfig holds CSV export configuration.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	Name string `yaml:"name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:   []string{"**"},
			Excludes:   []string{"**/.git/**"},
			SkipHidden: false,
			Symlinks:   SymlinksSkip,
			Algorithm:  "sha256",
			BufferSize: "1 MiB",
			Workers:    runtime.NumCPU(),
		},
		Output: OutputConfig{
			Dir:  ".",
			Name: "index",
		},
		Types: DefaultTypes(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultTypes returns the extension table used to classify records.
func DefaultTypes() map[string][]string {
	return map[string][]string{
		"image":    {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp", ".tif", ".tiff", ".heic"},
		"video":    {".mp4", ".mkv", ".avi", ".mov", ".wmv", ".webm", ".flv"},
		"audio":    {".mp3", ".wav", ".flac", ".ogg", ".aac", ".m4a"},
		"document": {".pdf", ".doc", ".docx", ".odt", ".txt", ".md", ".rtf", ".xls", ".xlsx", ".ppt", ".pptx", ".csv"},
		"archive":  {".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar"},
		"code":     {".go", ".py", ".js", ".ts", ".java", ".c", ".cpp", ".h", ".rs", ".rb", ".php", ".sh", ".html", ".css", ".json", ".yaml", ".yml"},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for dupindex.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "dupindex.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".dupindex", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that cannot be checked by YAML decoding alone.
func (c *Config) Validate() error {
	switch c.Index.Symlinks {
	case SymlinksSkip, SymlinksFollow:
	default:
		return fmt.Errorf("symlinks must be %q or %q, got %q", SymlinksSkip, SymlinksFollow, c.Index.Symlinks)
	}
	if _, err := c.Index.BufferBytes(); err != nil {
		return err
	}
	if _, _, err := c.Index.SizeBounds(); err != nil {
		return err
	}
	if _, err := c.Index.Timeout(); err != nil {
		return err
	}
	return nil
}

// BufferBytes returns the parsed hash buffer size.
func (c IndexConfig) BufferBytes() (int, error) {
	if c.BufferSize == "" {
		return 1 << 20, nil
	}
	n, err := domain.ParseSize(c.BufferSize)
	if err != nil {
		return 0, fmt.Errorf("buffer_size: %w", err)
	}
	if n <= 0 || n > maxBufferSize {
		return 0, fmt.Errorf("buffer_size must be between 1 B and %s", humanize.IBytes(maxBufferSize))
	}
	return int(n), nil
}

// SizeBounds returns the parsed min and max file sizes; zero means unbounded.
func (c IndexConfig) SizeBounds() (int64, int64, error) {
	var lo, hi int64
	var err error
	if c.MinSize != "" {
		if lo, err = domain.ParseSize(c.MinSize); err != nil {
			return 0, 0, fmt.Errorf("min_size: %w", err)
		}
	}
	if c.MaxSize != "" {
		if hi, err = domain.ParseSize(c.MaxSize); err != nil {
			return 0, 0, fmt.Errorf("max_size: %w", err)
		}
	}
	if hi > 0 && lo > hi {
		return 0, 0, fmt.Errorf("min_size %s exceeds max_size %s", c.MinSize, c.MaxSize)
	}
	return lo, hi, nil
}

// Timeout returns the per-file read timeout; zero disables it.
func (c IndexConfig) Timeout() (time.Duration, error) {
	if c.ReadTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ReadTimeout)
	if err != nil {
		return 0, fmt.Errorf("read_timeout: %w", err)
	}
	return d, nil
}

// TypeTable inverts Types into an extension lookup.
func (c *Config) TypeTable() map[string]string {
	table := make(map[string]string)
	for kind, exts := range c.Types {
		for _, e := range exts {
			table[strings.ToLower(e)] = kind
		}
	}
	return table
}
