package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"clarifyai/internal/apperr"
)

// Supported values of the backend selectors.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"

	EmbeddingHTTP   = "http"
	EmbeddingOpenAI = "openai"
	EmbeddingHash   = "hash"

	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// ProviderSettings configures one OpenAI-compatible completion provider.
type ProviderSettings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	DBPath string

	VectorBackend    string
	IndexDir         string
	QdrantURL        string
	QdrantCollection string

	EmbeddingProvider  string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingAPIKey    string
	EmbeddingDimension int
	EmbeddingSerialize bool // wrap the embedder in a mutex
	EmbeddingAutoload  bool // ask the llama.cpp router to load the model at startup

	TokenizerEncoding string
	ChunkSize         int
	ChunkOverlap      int
	RetrievalTopK     int

	LLMProviders []string // tried in order
	Groq         ProviderSettings
	Gemini       ProviderSettings
	Local        ProviderSettings
	LLMMaxTokens int
	LLMRateLimit float64 // requests per second per remote provider; 0 disables

	// DocsDir is imported in the background at startup when set.
	DocsDir string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or up to five parents, it is loaded.
// If CLARIFY_CONFIG_FILE names a YAML file, its keys (environment variable
// names, case-insensitive) supply defaults below real environment variables.
func Load() (*Config, error) {
	loadDotEnv()

	overlay, err := loadOverlay(os.Getenv("CLARIFY_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	env := source{overlay: overlay}

	cfg := &Config{
		APIPort:   env.get("API_PORT", "8000"),
		LogFormat: strings.ToLower(env.get("LOG_FORMAT", "text")),

		DBPath: env.get("DB_PATH", "./data/clarifyai.db"),

		VectorBackend:    strings.ToLower(env.get("VECTOR_BACKEND", BackendSQLite)),
		IndexDir:         env.get("INDEX_DIR", "./data/index"),
		QdrantURL:        env.get("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: env.get("QDRANT_COLLECTION", "clarifyai_documents"),

		EmbeddingProvider:  strings.ToLower(env.get("EMBEDDING_PROVIDER", EmbeddingHTTP)),
		EmbeddingBaseURL:   env.get("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: env.get("EMBEDDING_MODEL_NAME", "all-mpnet-base-v2"),
		EmbeddingAPIKey:    env.get("EMBEDDING_API_KEY", ""),

		TokenizerEncoding: env.get("TOKENIZER_ENCODING", "cl100k_base"),

		LLMProviders: splitList(env.get("LLM_PROVIDERS", "groq,gemini")),
		Groq: ProviderSettings{
			APIKey:  env.get("GROQ_API_KEY", ""),
			Model:   env.get("GROQ_MODEL", "llama-3.1-8b-instant"),
			BaseURL: env.get("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		},
		Gemini: ProviderSettings{
			APIKey:  env.get("GEMINI_API_KEY", ""),
			Model:   env.get("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: env.get("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		},
		Local: ProviderSettings{
			APIKey:  env.get("LLM_API_KEY", ""),
			Model:   env.get("LLM_MODEL", "local"),
			BaseURL: env.get("LLM_BASE_URL", "http://localhost:8080"),
		},

		DocsDir: env.get("DOCS_DIR", ""),
	}

	if cfg.LogLevel, err = parseLevel(env.get("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	ints := []struct {
		key  string
		def  int
		dst  *int
		zero bool // whether 0 is allowed
	}{
		{"EMBEDDING_DIMENSION", 768, &cfg.EmbeddingDimension, false},
		{"CHUNK_SIZE", 400, &cfg.ChunkSize, false},
		{"CHUNK_OVERLAP", 75, &cfg.ChunkOverlap, true},
		{"RETRIEVAL_TOP_K", 4, &cfg.RetrievalTopK, false},
		{"LLM_MAX_TOKENS", 1000, &cfg.LLMMaxTokens, false},
	}
	for _, it := range ints {
		if *it.dst, err = env.getInt(it.key, it.def, it.zero); err != nil {
			return nil, err
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"EMBEDDING_SERIALIZE", &cfg.EmbeddingSerialize},
		{"EMBEDDING_AUTOLOAD", &cfg.EmbeddingAutoload},
	}
	for _, b := range bools {
		if *b.dst, err = env.getBool(b.key, false); err != nil {
			return nil, err
		}
	}

	if cfg.LLMRateLimit, err = env.getFloat("LLM_REQUESTS_PER_SECOND", 0); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create data directories if they don't exist
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if cfg.VectorBackend == BackendSQLite {
		if err := os.MkdirAll(cfg.IndexDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return configError("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	switch c.VectorBackend {
	case BackendSQLite, BackendQdrant:
	default:
		return configError("VECTOR_BACKEND must be sqlite or qdrant, got %q", c.VectorBackend)
	}
	switch c.EmbeddingProvider {
	case EmbeddingHTTP, EmbeddingOpenAI, EmbeddingHash:
	default:
		return configError("EMBEDDING_PROVIDER must be http, openai or hash, got %q", c.EmbeddingProvider)
	}
	if c.EmbeddingProvider == EmbeddingOpenAI && c.EmbeddingAPIKey == "" {
		return configError("EMBEDDING_API_KEY is required when EMBEDDING_PROVIDER is openai")
	}
	for _, p := range c.LLMProviders {
		switch p {
		case ProviderGroq, ProviderGemini, ProviderLocal:
		default:
			return configError("LLM_PROVIDERS contains unknown provider %q", p)
		}
	}
	return nil
}

// Provider returns the settings of a named provider.
func (c *Config) Provider(name string) (ProviderSettings, bool) {
	switch name {
	case ProviderGroq:
		return c.Groq, true
	case ProviderGemini:
		return c.Gemini, true
	case ProviderLocal:
		return c.Local, true
	}
	return ProviderSettings{}, false
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrConfiguration, fmt.Sprintf(format, args...))
}

// loadDotEnv loads the nearest .env file. Variables already set take precedence.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 6; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// loadOverlay reads a flat YAML mapping of setting names to values.
func loadOverlay(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", apperr.ErrConfiguration, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file %s: %w", apperr.ErrConfiguration, path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(k)
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, len(val))
			for i, p := range val {
				parts[i] = fmt.Sprint(p)
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// source resolves a setting from the environment, then the YAML overlay.
type source struct {
	overlay map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.overlay[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int, allowZero bool) (int, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, configError("%s must be a valid integer: %v", key, err)
	}
	if n < 0 || (n == 0 && !allowZero) {
		return 0, configError("%s must be greater than 0", key)
	}
	return n, nil
}

func (s source) getFloat(key string, defaultValue float64) (float64, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0, configError("%s must be a non-negative number", key)
	}
	return f, nil
}

func (s source) getBool(key string, defaultValue bool) (bool, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, configError("%s must be a boolean: %v", key, err)
	}
	return b, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Join(configError("LOG_LEVEL %q is not a valid level", s), err)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
