// Package config loads and validates docdex configuration from a YAML file
// and DOCDEX_* environment overrides. Validation is strict and happens at
// load time: an invalid chunk/overlap pair never reaches the chunker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docdex/docdex/internal/errors"
)

// Chunking bounds. Values come from the embedding model's context budget:
// chunks much above 2000 tokens stop fitting common embedding windows.
const (
	MinChunkSize    = 100
	MaxChunkSize    = 2000
	MaxChunkOverlap = 200

	MinBatchSize = 1
	MaxBatchSize = 128

	MinDebounce = 500 * time.Millisecond
	MaxDebounce = 10 * time.Second

	// MaxSearchResults is the hard cap on results per query.
	MaxSearchResults = 20
)

// Config represents the complete docdex configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Indexing   IndexingConfig   `yaml:"indexing" json:"indexing"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Server     ServerConfig     `yaml:"server" json:"server"`

	// PrimaryKeywords are lowercase path substrings that classify a file
	// into the primary collection. Everything else is general.
	PrimaryKeywords []string `yaml:"primary_keywords" json:"primary_keywords"`
}

// PathsConfig configures the document and data directories.
type PathsConfig struct {
	// DocsRoot is the directory tree containing documents to index.
	DocsRoot string `yaml:"docs_root" json:"docs_root"`
	// DataDir holds the vector stores, chunk database, fingerprints, and logs.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// ChunkingConfig configures the token-window chunker.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama" (default) or "static".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// CacheSize is the number of embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// WatchConfig configures the file watcher and dispatcher.
type WatchConfig struct {
	// Debounce is the per-path quiet window, e.g. "2s".
	Debounce string `yaml:"debounce" json:"debounce"`
	// Extensions is the set of indexable file extensions (with dot).
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// IndexingConfig configures indexing concurrency.
type IndexingConfig struct {
	// Workers bounds concurrent per-file pipelines.
	Workers int `yaml:"workers" json:"workers"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	// DefaultLimit is the result count used when the caller omits one.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config with all defaults applied.
func NewConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DocsRoot: filepath.Join(home, "docs"),
			DataDir:  filepath.Join(home, ".docdex"),
		},
		Chunking: ChunkingConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 0, // auto-detect
			BatchSize:  32,
			OllamaHost: "http://localhost:11434",
			CacheSize:  1000,
		},
		Watch: WatchConfig{
			Debounce:   "2s",
			Extensions: []string{".pdf", ".md", ".html", ".htm", ".docx", ".txt"},
		},
		Indexing: IndexingConfig{
			Workers: 4,
		},
		Search: SearchConfig{
			DefaultLimit: 5,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
		PrimaryKeywords: []string{"primary"},
	}
}

// Load reads configuration from path (optional), applies environment
// overrides, and validates. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.New(errors.ErrCodeConfigNotFound,
					fmt.Sprintf("cannot read config file %s", path), err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid YAML in %s", path), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies DOCDEX_* environment variables on top of the
// file values. Invalid numeric values are left to Validate to reject.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCDEX_DOCS_PATH"); v != "" {
		c.Paths.DocsRoot = v
	}
	if v := os.Getenv("DOCDEX_DATA_PATH"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("DOCDEX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.ChunkSize = n
		}
	}
	if v := os.Getenv("DOCDEX_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.ChunkOverlap = n
		}
	}
	if v := os.Getenv("DOCDEX_EMBEDDING_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.BatchSize = n
		}
	}
	if v := os.Getenv("DOCDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("DOCDEX_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
}

// Validate checks all configuration values. It returns a fatal config
// error on the first violation so startup fails fast.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize < MinChunkSize || c.Chunking.ChunkSize > MaxChunkSize {
		return errors.ConfigError(fmt.Sprintf(
			"chunk_size %d out of range [%d, %d]",
			c.Chunking.ChunkSize, MinChunkSize, MaxChunkSize), nil)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap > MaxChunkOverlap {
		return errors.ConfigError(fmt.Sprintf(
			"chunk_overlap %d out of range [0, %d]",
			c.Chunking.ChunkOverlap, MaxChunkOverlap), nil)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return errors.ConfigError(fmt.Sprintf(
			"chunk_overlap %d must be less than chunk_size %d",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize), nil)
	}
	if c.Embeddings.BatchSize < MinBatchSize || c.Embeddings.BatchSize > MaxBatchSize {
		return errors.ConfigError(fmt.Sprintf(
			"batch_size %d out of range [%d, %d]",
			c.Embeddings.BatchSize, MinBatchSize, MaxBatchSize), nil)
	}
	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return errors.ConfigError(fmt.Sprintf(
			"unknown embeddings provider %q (want ollama or static)",
			c.Embeddings.Provider), nil)
	}

	d, err := c.DebounceDuration()
	if err != nil {
		return err
	}
	if d < MinDebounce || d > MaxDebounce {
		return errors.ConfigError(fmt.Sprintf(
			"debounce %s out of range [%s, %s]", d, MinDebounce, MaxDebounce), nil)
	}

	if len(c.Watch.Extensions) == 0 {
		return errors.ConfigError("watch.extensions must not be empty", nil)
	}
	for _, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.ConfigError(fmt.Sprintf(
				"extension %q must start with a dot", ext), nil)
		}
	}

	if c.Indexing.Workers < 1 {
		return errors.ConfigError(fmt.Sprintf(
			"indexing.workers %d must be at least 1", c.Indexing.Workers), nil)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > MaxSearchResults {
		return errors.ConfigError(fmt.Sprintf(
			"search.default_limit %d out of range [1, %d]",
			c.Search.DefaultLimit, MaxSearchResults), nil)
	}

	if !filepath.IsAbs(c.Paths.DocsRoot) {
		return errors.ConfigError(fmt.Sprintf(
			"paths.docs_root must be absolute: %s", c.Paths.DocsRoot), nil)
	}
	if !filepath.IsAbs(c.Paths.DataDir) {
		return errors.ConfigError(fmt.Sprintf(
			"paths.data_dir must be absolute: %s", c.Paths.DataDir), nil)
	}

	return nil
}

// DebounceDuration parses the debounce window.
func (c *Config) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, errors.ConfigError(fmt.Sprintf(
			"invalid debounce duration %q", c.Watch.Debounce), err)
	}
	return d, nil
}

// AllowedExtensions returns the extension set as a lookup map, lowercased.
func (c *Config) AllowedExtensions() map[string]bool {
	m := make(map[string]bool, len(c.Watch.Extensions))
	for _, ext := range c.Watch.Extensions {
		m[strings.ToLower(ext)] = true
	}
	return m
}

// FingerprintPath returns the fingerprint index location.
func (c *Config) FingerprintPath() string {
	return filepath.Join(c.Paths.DataDir, "fingerprints.json")
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docdex", "config.yaml")
}
