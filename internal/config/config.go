package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"document-qa/internal/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StrategyCharacter = "character"
	StrategyRecursive = "recursive"
)

type Config struct {
	Embedding  LLMConfig       `yaml:"embedding"`
	Completion LLMConfig       `yaml:"completion"`
	Chunking   ChunkingConfig  `yaml:"chunking"`
	Retrieval  RetrievalConfig `yaml:"retrieval"`
	Ingest     IngestConfig    `yaml:"ingest"`
	Server     ServerConfig    `yaml:"server"`
	Log        LogConfig       `yaml:"log"`
}

// LLMConfig describes one external model endpoint. Key is never read from
// the file; it comes from the environment variable named by KeyEnv.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	KeyEnv      string  `yaml:"key_env"`
	Temperature float64 `yaml:"temperature"`
	Key         string  `yaml:"-" json:"-"`
}

type ChunkingConfig struct {
	Strategy     string `yaml:"strategy"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Separator    string `yaml:"separator"`
}

type RetrievalConfig struct {
	TopK             int  `yaml:"top_k"`
	CondenseQuestion bool `yaml:"condense_question"`
}

type IngestConfig struct {
	FirstDocumentOnly bool  `yaml:"first_document_only"`
	MaxUploadBytes    int64 `yaml:"max_upload_bytes"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultSeparator    = "\n"
	defaultKeyEnv       = "OPENAI_API_KEY"
	defaultOpenAIURL    = "https://api.openai.com/v1"
	defaultOllamaURL    = "http://localhost:11434"
	defaultMaxUpload    = 32 << 20
)

// Model defaults per provider, keyed by role.
var defaultModels = map[string]struct{ embedding, completion string }{
	ProviderOpenAI: {embedding: "text-embedding-ada-002", completion: "gpt-3.5-turbo"},
	ProviderOllama: {embedding: "nomic-embed-text", completion: "llama3.2"},
}

// Default returns the settings of the original tool: OpenAI embeddings and
// chat, 1000/200 newline chunks and four retrieved passages.
func Default() *Config {
	cfg := base()
	cfg.applyDefaults(false)
	return cfg
}

// base holds the settings that do not depend on the chosen providers.
// Endpoints, models and the chunk overlap are resolved after the file is read.
func base() *Config {
	return &Config{
		Completion: LLMConfig{Temperature: 0.7},
		Chunking: ChunkingConfig{
			Strategy:  StrategyCharacter,
			Separator: defaultSeparator,
		},
		Retrieval: RetrievalConfig{
			TopK:             models.DefaultTopK,
			CondenseQuestion: true,
		},
		Ingest: IngestConfig{
			MaxUploadBytes: defaultMaxUpload,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8501"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// fileOverlap tells an explicit chunk_overlap of 0 apart from a missing one.
type fileOverlap struct {
	Chunking struct {
		ChunkOverlap *int `yaml:"chunk_overlap"`
	} `yaml:"chunking"`
}

// LoadConfig reads the yaml file at path on top of the defaults. A missing
// file is not an error. Secrets are then read once from the environment,
// after loading .env if present.
func LoadConfig(path string) (*Config, error) {
	cfg := base()
	overlapSet := false

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			var fo fileOverlap
			if err := yaml.Unmarshal(data, &fo); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			overlapSet = fo.Chunking.ChunkOverlap != nil
		}
	}

	_ = godotenv.Load()
	cfg.applyDefaults(overlapSet)
	cfg.Embedding.Key = os.Getenv(cfg.Embedding.KeyEnv)
	cfg.Completion.Key = os.Getenv(cfg.Completion.KeyEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills what the file left empty. Endpoint, model and key
// variable follow each provider. An unset overlap is 200 runes, or a fifth
// of a smaller chunk size.
func (c *Config) applyDefaults(overlapSet bool) {
	for _, l := range []*LLMConfig{&c.Embedding, &c.Completion} {
		l.Provider = strings.ToLower(l.Provider)
		if l.Provider == "" {
			l.Provider = ProviderOpenAI
		}
		if l.BaseURL == "" {
			switch l.Provider {
			case ProviderOllama:
				l.BaseURL = defaultOllamaURL
			case ProviderOpenAI:
				l.BaseURL = defaultOpenAIURL
			}
		}
		if l.KeyEnv == "" && l.Provider == ProviderOpenAI {
			l.KeyEnv = defaultKeyEnv
		}
	}
	if m, ok := defaultModels[c.Embedding.Provider]; ok && c.Embedding.Model == "" {
		c.Embedding.Model = m.embedding
	}
	if m, ok := defaultModels[c.Completion.Provider]; ok && c.Completion.Model == "" {
		c.Completion.Model = m.completion
	}

	if c.Chunking.Strategy == "" {
		c.Chunking.Strategy = StrategyCharacter
	}
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = defaultChunkSize
	}
	if !overlapSet {
		c.Chunking.ChunkOverlap = min(defaultChunkOverlap, c.Chunking.ChunkSize/5)
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = models.DefaultTopK
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = defaultMaxUpload
	}
}

// Validate reports settings no component can work with.
func (c *Config) Validate() error {
	for name, l := range map[string]LLMConfig{"embedding": c.Embedding, "completion": c.Completion} {
		if l.Provider != ProviderOpenAI && l.Provider != ProviderOllama {
			return fmt.Errorf("%w: %s provider %q", models.ErrInvalidConfig, name, l.Provider)
		}
		if l.Model == "" {
			return fmt.Errorf("%w: %s model is required", models.ErrInvalidConfig, name)
		}
	}
	ch := c.Chunking
	if ch.Strategy != StrategyCharacter && ch.Strategy != StrategyRecursive {
		return fmt.Errorf("%w: chunking strategy %q", models.ErrInvalidConfig, ch.Strategy)
	}
	if ch.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", models.ErrInvalidConfig)
	}
	if ch.ChunkOverlap < 0 || ch.ChunkOverlap >= ch.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size)", models.ErrInvalidConfig)
	}
	return nil
}
