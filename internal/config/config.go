package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docchunk/internal/chunker"
)

// Token budget bounds accepted from callers.
const (
	MinTokens = 100
	MaxTokens = 8000
)

// Store backends.
const (
	BackendBolt      = "bolt"
	BackendPathstore = "pathstore"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	DocchunkAPIKey string `yaml:"api_key"`

	// Chunking
	ChunkStrategy     string  `yaml:"chunk_strategy"`
	MaxTokens         int     `yaml:"max_tokens"`
	HeadingFlushRatio float64 `yaml:"heading_flush_ratio"`
	LargeAtomicRatio  float64 `yaml:"large_atomic_ratio"`

	// Worker pool
	WorkerCount        int `yaml:"worker_count"`
	MaxQueueSize       int `yaml:"max_queue_size"`
	MaxConcurrentStore int `yaml:"max_concurrent_store"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Chunk persistence
	StoreBackend    string `yaml:"store_backend"`
	BoltPath        string `yaml:"bolt_path"`
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"pathstore_api_key"`
	PathstorePrefix string `yaml:"pathstore_prefix"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocchunkAPIKey: os.Getenv("DOCCHUNK_API_KEY"),

		ChunkStrategy:     envOr("CHUNK_STRATEGY", "semantic"),
		MaxTokens:         envInt("MAX_TOKENS", 1000),
		HeadingFlushRatio: envFloat("HEADING_FLUSH_RATIO", 0.2),
		LargeAtomicRatio:  envFloat("LARGE_ATOMIC_RATIO", 0.8),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentStore: envInt("MAX_CONCURRENT_STORE", 10),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		StoreBackend:    envOr("STORE_BACKEND", BackendBolt),
		BoltPath:        envOr("BOLT_PATH", "docchunk.db"),
		PathstoreURL:    envOr("PATHSTORE_URL", "http://localhost:8080"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),
		PathstorePrefix: envOr("PATHSTORE_PREFIX", "docchunk"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}
	cfg.applyDefaults()
	return cfg
}

// LoadFile overlays the YAML document at path onto base. Keys missing from
// the file keep their base values.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ChunkStrategy == "" {
		c.ChunkStrategy = "semantic"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	if c.HeadingFlushRatio <= 0 {
		c.HeadingFlushRatio = 0.2
	}
	if c.LargeAtomicRatio <= 0 {
		c.LargeAtomicRatio = 0.8
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxConcurrentStore <= 0 {
		c.MaxConcurrentStore = 10
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
	if c.StoreBackend == "" {
		c.StoreBackend = BackendBolt
	}
}

func (c Config) Validate() error {
	if c.DocchunkAPIKey == "" {
		return fmt.Errorf("DOCCHUNK_API_KEY is required")
	}
	if c.MaxTokens < MinTokens || c.MaxTokens > MaxTokens {
		return fmt.Errorf("MAX_TOKENS must be within [%d, %d], got %d", MinTokens, MaxTokens, c.MaxTokens)
	}
	if c.HeadingFlushRatio > 1 {
		return fmt.Errorf("HEADING_FLUSH_RATIO must be in (0, 1], got %g", c.HeadingFlushRatio)
	}
	if c.LargeAtomicRatio > 1 {
		return fmt.Errorf("LARGE_ATOMIC_RATIO must be in (0, 1], got %g", c.LargeAtomicRatio)
	}
	switch c.StoreBackend {
	case BackendBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required for the bolt store")
		}
	case BackendPathstore:
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required for the pathstore store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

// Chunker returns the chunking configuration for a token budget. A zero
// budget selects the configured MaxTokens.
func (c Config) Chunker(maxTokens int) chunker.Config {
	if maxTokens == 0 {
		maxTokens = c.MaxTokens
	}
	return chunker.Config{
		MaxTokens:         ClampTokens(maxTokens),
		HeadingFlushRatio: c.HeadingFlushRatio,
		LargeAtomicRatio:  c.LargeAtomicRatio,
	}
}

// ClampTokens keeps a caller-supplied token budget within [MinTokens, MaxTokens].
func ClampTokens(n int) int {
	return min(max(n, MinTokens), MaxTokens)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
