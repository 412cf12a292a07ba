package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/filter"
)

// Environments.
const (
	EnvLocal = "local"
	EnvCloud = "cloud"
)

// Provider names for embedding.provider and llm.provider.
const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Vector index backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendValkey = "valkey"
	BackendQdrant = "qdrant"
	BackendMemory = "memory"
)

// DefaultDraftInstructions is the built-in draft template.
const DefaultDraftInstructions = `You are a senior engineer who knows our development rules well.
Using the user input (user_input) and the reference material (retrieved_context),
choose the most suitable of the three formats (improvement, feature, bug fix)
and write the release note.`

// DefaultReviewInstructions is the built-in review template.
const DefaultReviewInstructions = `You are a reviewer who knows our development rules and quality standards well.
Review the release note in the user input (user_input) and point out concrete improvements.
Use the past review remarks in the reference material (retrieved_context) to check for the same problems.
Be specific and constructive, and suggest rewrites where needed.`

// Config holds the docsage configuration.
type Config struct {
	Environment string            `yaml:"-"`
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Database    DatabaseConfig    `yaml:"database"`
	Qdrant      QdrantConfig      `yaml:"qdrant"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Prompt      PromptConfig      `yaml:"prompt"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Ingest      IngestConfig      `yaml:"ingest"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// VectorIndexConfig selects the index backend.
type VectorIndexConfig struct {
	Backend    string `yaml:"backend"`    // sqlite, redis, valkey, qdrant, memory
	Location   string `yaml:"location"`   // sqlite directory
	Collection string `yaml:"collection"` // collection / index name
}

// DatabaseConfig holds Redis/Valkey connection and HNSW settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// QdrantConfig holds the Qdrant gRPC endpoint.
type QdrantConfig struct {
	Host string `yaml:"host"` // host:port of the gRPC API
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	Cache               bool   `yaml:"cache"`
}

// LLMConfig holds generation settings.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// OllamaConfig holds the local Ollama server settings.
type OllamaConfig struct {
	Host       string `yaml:"host"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// OpenAIConfig holds OpenAI-compatible API settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// PromptConfig holds the instruction templates.
type PromptConfig struct {
	DraftInstructions  string `yaml:"draft_instructions"`
	ReviewInstructions string `yaml:"review_instructions"`
}

// PipelineConfig holds retrieval depths and per-call timeouts (0 = none).
type PipelineConfig struct {
	DraftK         int            `yaml:"draft_k"`
	ReviewK        int            `yaml:"review_k"`
	ExcludeTickets []string       `yaml:"exclude_tickets"` // held out of retrieval
	Timeouts       TimeoutsConfig `yaml:"timeouts"`
}

// TimeoutsConfig bounds each external call in seconds.
type TimeoutsConfig struct {
	EmbedSec    int `yaml:"embed_sec"`
	QuerySec    int `yaml:"query_sec"`
	GenerateSec int `yaml:"generate_sec"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	IndexOrphanComments bool         `yaml:"index_orphan_comments"`
	GitHub              GitHubConfig `yaml:"github"`
}

// GitHubConfig holds pull request loader settings.
type GitHubConfig struct {
	Token           string  `yaml:"token"`
	BaseURL         string  `yaml:"base_url"`
	ReleaseNoteFile string  `yaml:"release_note_file"`
	DesignFile      string  `yaml:"design_file"`
	RatePerSecond   float64 `yaml:"rate_per_second"`
}

// ParseEnvironment checks an ENVIRONMENT value. Empty means local.
func ParseEnvironment(env string) (string, error) {
	switch env {
	case "":
		return EnvLocal, nil
	case EnvLocal, EnvCloud:
		return env, nil
	default:
		return "", fmt.Errorf("%w: ENVIRONMENT must be %q or %q, got %q",
			domain.ErrConfiguration, EnvLocal, EnvCloud, env)
	}
}

// Load reads configuration from config/<env>.yaml.
// The environment is checked before any file is touched.
func Load(env string) (Config, error) {
	env, err := ParseEnvironment(env)
	if err != nil {
		return Config{}, err
	}
	return LoadFile(findConfigPath(env), env)
}

// LoadFile reads configuration for env from an explicit path.
func LoadFile(path, env string) (Config, error) {
	env, err := ParseEnvironment(env)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to read config %s: %w", domain.ErrConfiguration, path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config: %w", domain.ErrConfiguration, err)
	}
	cfg.Environment = env

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the environment from ENVIRONMENT, then ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return EnvLocal
}

// ApplyDefaults fills empty fields with default values.
// Provider and backend defaults depend on Environment.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvLocal
	}
	cloud := c.Environment == EnvCloud

	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300 // generation is slow
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.VectorIndex.Backend == "" {
		c.VectorIndex.Backend = BackendSQLite
		if cloud {
			c.VectorIndex.Backend = BackendRedis
		}
	}
	if c.VectorIndex.Location == "" {
		c.VectorIndex.Location = "./docsage_db"
	}
	if c.VectorIndex.Collection == "" {
		c.VectorIndex.Collection = "documents"
	}

	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "docsage:"
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost:6334"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOllama
		if cloud {
			c.Embedding.Provider = ProviderOpenAI
		}
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOllama
		if cloud {
			c.LLM.Provider = ProviderOpenAI
		}
	}
	if c.Ollama.Host == "" {
		c.Ollama.Host = "http://localhost:11434"
	}
	if c.Ollama.TimeoutSec <= 0 {
		c.Ollama.TimeoutSec = 300
	}

	if strings.TrimSpace(c.Prompt.DraftInstructions) == "" {
		c.Prompt.DraftInstructions = DefaultDraftInstructions
	}
	if strings.TrimSpace(c.Prompt.ReviewInstructions) == "" {
		c.Prompt.ReviewInstructions = DefaultReviewInstructions
	}

	if c.Pipeline.DraftK == 0 {
		c.Pipeline.DraftK = 2
	}
	if c.Pipeline.ReviewK == 0 {
		c.Pipeline.ReviewK = 5
	}

	if c.Ingest.GitHub.ReleaseNoteFile == "" {
		c.Ingest.GitHub.ReleaseNoteFile = "10-release.txt"
	}
	if c.Ingest.GitHub.DesignFile == "" {
		c.Ingest.GitHub.DesignFile = "20-design.md"
	}
}

// Validate checks the configuration for correctness.
// Every error wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	if _, err := ParseEnvironment(c.Environment); err != nil {
		return err
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return configErr("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if strings.TrimSpace(c.Embedding.Model) == "" {
		return configErr("embedding.model (EMBEDDING_MODEL_ID) is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return configErr("llm.model (LLM_MODEL_ID) is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return configErr("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if err := checkProvider("embedding.provider", c.Embedding.Provider); err != nil {
		return err
	}
	if err := checkProvider("llm.provider", c.LLM.Provider); err != nil {
		return err
	}
	if c.Pipeline.DraftK <= 0 {
		return configErr("pipeline.draft_k must be positive, got %d", c.Pipeline.DraftK)
	}
	if c.Pipeline.ReviewK <= 0 {
		return configErr("pipeline.review_k must be positive, got %d", c.Pipeline.ReviewK)
	}
	if len(c.Pipeline.ExcludeTickets) > filter.MaxConditionsPerGroup {
		return configErr("pipeline.exclude_tickets allows at most %d tickets", filter.MaxConditionsPerGroup)
	}
	for _, id := range c.Pipeline.ExcludeTickets {
		if strings.TrimSpace(id) == "" {
			return configErr("pipeline.exclude_tickets must not contain blank ids")
		}
	}
	t := c.Pipeline.Timeouts
	if t.EmbedSec < 0 || t.QuerySec < 0 || t.GenerateSec < 0 {
		return configErr("pipeline.timeouts must not be negative")
	}
	if strings.TrimSpace(c.VectorIndex.Collection) == "" {
		return configErr("vector_index.collection (VECTOR_INDEX_COLLECTION_NAME) is required")
	}

	switch c.VectorIndex.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.VectorIndex.Location) == "" {
			return configErr("vector_index.location (VECTOR_INDEX_LOCATION) is required for sqlite")
		}
	case BackendRedis, BackendValkey:
		if len(c.Database.Addrs) == 0 {
			return configErr("database.addrs is required for %s", c.VectorIndex.Backend)
		}
	case BackendQdrant:
		if c.Qdrant.Host == "" {
			return configErr("qdrant.host is required")
		}
	case BackendMemory:
		// ok
	default:
		return configErr("vector_index.backend must be one of sqlite, redis, valkey, qdrant, memory, got %q",
			c.VectorIndex.Backend)
	}
	return nil
}

func checkProvider(key, p string) error {
	switch p {
	case ProviderOllama, ProviderOpenAI, ProviderBedrock:
		return nil
	default:
		return configErr("%s must be one of ollama, openai, bedrock, got %q", key, p)
	}
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
