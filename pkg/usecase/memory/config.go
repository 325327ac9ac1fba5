package memory

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the retrieval and indexing policy. Thresholds and budgets come
// from here, never from call sites.
type Config struct {
	// MinSimilarity is the lowest similarity a chunk may have to be recalled
	MinSimilarity float64 `yaml:"min_similarity"`

	// DefaultLimit is the number of results when the caller gives none
	DefaultLimit int `yaml:"default_limit"`

	// SnippetMaxChars caps a single formatted recall snippet
	SnippetMaxChars int `yaml:"snippet_max_chars"`

	// OutputMaxChars caps the total recall output
	OutputMaxChars int `yaml:"output_max_chars"`

	// MaxChunkChars bounds the size of an indexed chunk
	MaxChunkChars int `yaml:"max_chunk_chars"`

	// EmbedTimeout bounds a single embedding provider call
	EmbedTimeout time.Duration `yaml:"embed_timeout"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig governs the indexing job queue
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// DefaultConfig returns the built-in policy values
func DefaultConfig() Config {
	return Config{
		MinSimilarity:   0.65,
		DefaultLimit:    6,
		SnippetMaxChars: 600,
		OutputMaxChars:  4000,
		MaxChunkChars:   1200,
		EmbedTimeout:    30 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
	}
}

// LoadConfig reads a YAML policy file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, goerr.Wrap(err, "failed to read policy config", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, goerr.Wrap(err, "failed to parse policy config", goerr.V("path", path))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects unusable policy values
func (c Config) Validate() error {
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return goerr.New("min_similarity must be within [0, 1]",
			goerr.V("min_similarity", c.MinSimilarity))
	}
	if c.DefaultLimit <= 0 {
		return goerr.New("default_limit must be positive",
			goerr.V("default_limit", c.DefaultLimit))
	}
	if c.SnippetMaxChars <= 0 || c.OutputMaxChars <= 0 || c.MaxChunkChars <= 0 {
		return goerr.New("character budgets must be positive")
	}
	return nil
}
