package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"clarifyai/internal/apperr"
)

var envVars = []string{
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT", "DB_PATH",
	"VECTOR_BACKEND", "INDEX_DIR", "QDRANT_URL", "QDRANT_COLLECTION",
	"EMBEDDING_PROVIDER", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "EMBEDDING_API_KEY",
	"EMBEDDING_DIMENSION", "EMBEDDING_SERIALIZE", "EMBEDDING_AUTOLOAD",
	"TOKENIZER_ENCODING", "CHUNK_SIZE", "CHUNK_OVERLAP", "RETRIEVAL_TOP_K",
	"LLM_PROVIDERS", "GROQ_API_KEY", "GROQ_MODEL", "GROQ_BASE_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "LLM_MAX_TOKENS", "LLM_REQUESTS_PER_SECOND",
	"DOCS_DIR", "CLARIFY_CONFIG_FILE",
}

// isolate runs the test in an empty working directory with every setting
// unset, so neither a .env file nor the host environment leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DB_PATH", filepath.Join(dir, "data", "clarifyai.db"))
	t.Setenv("INDEX_DIR", filepath.Join(dir, "data", "index"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"APIPort", cfg.APIPort, "8000"},
		{"LogLevel", cfg.LogLevel, slog.LevelInfo},
		{"LogFormat", cfg.LogFormat, "text"},
		{"VectorBackend", cfg.VectorBackend, BackendSQLite},
		{"QdrantCollection", cfg.QdrantCollection, "clarifyai_documents"},
		{"EmbeddingProvider", cfg.EmbeddingProvider, EmbeddingHTTP},
		{"EmbeddingBaseURL", cfg.EmbeddingBaseURL, "http://localhost:8081"},
		{"EmbeddingModelName", cfg.EmbeddingModelName, "all-mpnet-base-v2"},
		{"EmbeddingDimension", cfg.EmbeddingDimension, 768},
		{"EmbeddingSerialize", cfg.EmbeddingSerialize, false},
		{"TokenizerEncoding", cfg.TokenizerEncoding, "cl100k_base"},
		{"ChunkSize", cfg.ChunkSize, 400},
		{"ChunkOverlap", cfg.ChunkOverlap, 75},
		{"RetrievalTopK", cfg.RetrievalTopK, 4},
		{"LLMMaxTokens", cfg.LLMMaxTokens, 1000},
		{"GroqModel", cfg.Groq.Model, "llama-3.1-8b-instant"},
		{"GeminiModel", cfg.Gemini.Model, "gemini-1.5-flash"},
		{"LocalBaseURL", cfg.Local.BaseURL, "http://localhost:8080"},
		{"DocsDir", cfg.DocsDir, ""},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if len(cfg.LLMProviders) != 2 || cfg.LLMProviders[0] != "groq" || cfg.LLMProviders[1] != "gemini" {
		t.Errorf("LLMProviders = %v, want [groq gemini]", cfg.LLMProviders)
	}

	for _, p := range []string{filepath.Join(dir, "data"), filepath.Join(dir, "data", "index")} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", p)
		}
	}
}

func TestLoad_CustomValues(t *testing.T) {
	isolate(t)
	t.Setenv("API_PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	t.Setenv("EMBEDDING_DIMENSION", "256")
	t.Setenv("EMBEDDING_SERIALIZE", "true")
	t.Setenv("CHUNK_OVERLAP", "0")
	t.Setenv("LLM_PROVIDERS", " Local , groq ")
	t.Setenv("LLM_REQUESTS_PER_SECOND", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9100" || cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" {
		t.Errorf("server settings = %s/%v/%s", cfg.APIPort, cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.VectorBackend != BackendQdrant || cfg.EmbeddingProvider != EmbeddingHash {
		t.Errorf("backends = %s/%s", cfg.VectorBackend, cfg.EmbeddingProvider)
	}
	if cfg.EmbeddingDimension != 256 || !cfg.EmbeddingSerialize || cfg.ChunkOverlap != 0 {
		t.Errorf("embedding = %d/%v, overlap = %d", cfg.EmbeddingDimension, cfg.EmbeddingSerialize, cfg.ChunkOverlap)
	}
	if len(cfg.LLMProviders) != 2 || cfg.LLMProviders[0] != "local" {
		t.Errorf("LLMProviders = %v", cfg.LLMProviders)
	}
	if cfg.LLMRateLimit != 0.5 {
		t.Errorf("LLMRateLimit = %v, want 0.5", cfg.LLMRateLimit)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"bad backend", "VECTOR_BACKEND", "faiss"},
		{"bad embedding provider", "EMBEDDING_PROVIDER", "cohere"},
		{"non-numeric chunk size", "CHUNK_SIZE", "big"},
		{"zero chunk size", "CHUNK_SIZE", "0"},
		{"negative overlap", "CHUNK_OVERLAP", "-1"},
		{"zero dimension", "EMBEDDING_DIMENSION", "0"},
		{"bad bool", "EMBEDDING_AUTOLOAD", "maybe"},
		{"unknown provider", "LLM_PROVIDERS", "groq,anthropic"},
		{"negative rate", "LLM_REQUESTS_PER_SECOND", "-2"},
		{"openai embedder without key", "EMBEDDING_PROVIDER", "openai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !errors.Is(err, apperr.ErrConfiguration) {
				t.Errorf("Load() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	// godotenv never overrides variables that are set, even to "", so the
	// key under test must be truly unset.
	_ = os.Unsetenv("GROQ_MODEL")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GROQ_MODEL=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("GROQ_MODEL") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Groq.Model != "from-dotenv" {
		t.Errorf("Groq.Model = %q, want from-dotenv", cfg.Groq.Model)
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "clarify.yaml")
	yaml := "chunk_size: 256\nretrieval_top_k: 6\nllm_providers:\n  - gemini\n  - local\ngroq_model: from-yaml\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLARIFY_CONFIG_FILE", path)
	t.Setenv("GROQ_MODEL", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkSize != 256 || cfg.RetrievalTopK != 6 {
		t.Errorf("ChunkSize = %d, RetrievalTopK = %d", cfg.ChunkSize, cfg.RetrievalTopK)
	}
	if len(cfg.LLMProviders) != 2 || cfg.LLMProviders[0] != "gemini" || cfg.LLMProviders[1] != "local" {
		t.Errorf("LLMProviders = %v", cfg.LLMProviders)
	}
	if cfg.Groq.Model != "from-env" {
		t.Errorf("environment should win over overlay, got %q", cfg.Groq.Model)
	}
}

func TestLoad_YAMLOverlayErrors(t *testing.T) {
	dir := isolate(t)

	t.Setenv("CLARIFY_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	if _, err := Load(); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("missing file error = %v, want ErrConfiguration", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("chunk_size: [unclosed"), 0o644)
	t.Setenv("CLARIFY_CONFIG_FILE", bad)
	if _, err := Load(); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("bad yaml error = %v, want ErrConfiguration", err)
	}
}

func TestConfig_Provider(t *testing.T) {
	cfg := &Config{Groq: ProviderSettings{Model: "g"}, Local: ProviderSettings{Model: "l"}}
	if p, ok := cfg.Provider("groq"); !ok || p.Model != "g" {
		t.Errorf("Provider(groq) = %+v, %v", p, ok)
	}
	if p, ok := cfg.Provider("local"); !ok || p.Model != "l" {
		t.Errorf("Provider(local) = %+v, %v", p, ok)
	}
	if _, ok := cfg.Provider("other"); ok {
		t.Error("Provider(other) should not be found")
	}
}
