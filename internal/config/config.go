package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragdex service configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
	Corpus       CorpusConfig       `yaml:"corpus"`
	Entities     []EntityConfig     `yaml:"entities"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	CrossEncoder CrossEncoderConfig `yaml:"cross_encoder"`
	LLM          LLMConfig          `yaml:"llm"`
	Resilience   ResilienceConfig   `yaml:"resilience"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Session      SessionConfig      `yaml:"session"`
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
	Port              int `yaml:"port"`
	ReadTimeoutSec    int `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int `yaml:"write_timeout_sec"`
	ShutdownSec       int `yaml:"shutdown_timeout_sec"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

// RedisConfig holds the optional shared store settings.
// An empty addrs list runs the service fully in-process.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// Enabled reports whether a Redis store is configured.
func (r RedisConfig) Enabled() bool { return len(r.Addrs) > 0 }

// CorpusConfig points at the JSON chunk files loaded at startup.
type CorpusConfig struct {
	Paths        []string `yaml:"paths"`
	PartitionKey string   `yaml:"partition_key"` // area, location, category
}

// EntityConfig is one entry of the entity vocabulary.
type EntityConfig struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	BatchSize           int    `yaml:"batch_size"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// CrossEncoderConfig holds the rerank service settings.
type CrossEncoderConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LLMConfig holds the candidate filter model settings.
type LLMConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Provider        string  `yaml:"provider"`
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	TimeoutSec      int     `yaml:"timeout_sec"`
	Temperature     float32 `yaml:"temperature"`
	MaxPassageChars int     `yaml:"max_passage_chars"`
}

// ResilienceConfig holds retry and circuit breaker settings for external calls.
type ResilienceConfig struct {
	RetryMaxAttempts      int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMs int     `yaml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs     int     `yaml:"retry_max_backoff_ms"`
	RetryMultiplier       float64 `yaml:"retry_multiplier"`
	BreakerDisabled       bool    `yaml:"breaker_disabled"`
	BreakerMinRequests    uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio   float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSec int     `yaml:"breaker_open_timeout_sec"`
	AttemptTimeoutSec     int     `yaml:"attempt_timeout_sec"`
}

// RetrievalConfig holds the pipeline tunables.
// Zero is a meaningful value for several fields, so defaults are seeded
// before decoding instead of being patched in afterwards.
type RetrievalConfig struct {
	SemanticWeight         float64 `yaml:"semantic_weight"`
	RRFK                   int     `yaml:"rrf_k"`
	InitialK               int     `yaml:"initial_k"`
	LLMFilterMinCandidates int     `yaml:"llm_filter_min_candidates"`
	LLMFilterTopM          int     `yaml:"llm_filter_top_m"`
	CEAlpha                float64 `yaml:"ce_alpha"`
	LLMBeta                float64 `yaml:"llm_beta"`
	LLMScale               float64 `yaml:"llm_scale"`
	LLMOffset              float64 `yaml:"llm_offset"`
	ConfidenceThreshold    float64 `yaml:"confidence_threshold"`
	FinalTopN              int     `yaml:"final_top_n"`
	CacheCapacity          int     `yaml:"cache_capacity"`
	CacheTTLSeconds        int     `yaml:"cache_ttl_seconds"`
	DedupPrefixChars       int     `yaml:"dedup_prefix_chars"`
}

// SessionConfig holds conversation state settings.
type SessionConfig struct {
	IdleTTLHours int `yaml:"idle_ttl_hours"` // Redis only, 0 keeps state forever
}

// DefaultRetrieval returns the documented pipeline defaults.
func DefaultRetrieval() RetrievalConfig {
	return RetrievalConfig{
		SemanticWeight:         0.5,
		RRFK:                   60,
		InitialK:               20,
		LLMFilterMinCandidates: 6,
		LLMFilterTopM:          5,
		CEAlpha:                0.4,
		LLMBeta:                0.6,
		LLMScale:               2.0,
		LLMOffset:              -10.0,
		ConfidenceThreshold:    -3.0,
		FinalTopN:              3,
		CacheCapacity:          128,
		CacheTTLSeconds:        300,
		DedupPrefixChars:       100,
	}
}

// DefaultEntities is the area vocabulary of the bundled hot-spring corpus.
func DefaultEntities() []EntityConfig {
	return []EntityConfig{
		{Name: "kusatsu", Aliases: []string{"草津", "くさつ", "kusatsu"}},
		{Name: "hakone", Aliases: []string{"箱根", "はこね", "hakone"}},
		{Name: "beppu", Aliases: []string{"別府", "べっぷ", "beppu"}},
		{Name: "arima", Aliases: []string{"有馬", "ありま", "arima"}},
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Config{Retrieval: DefaultRetrieval()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RequestTimeoutSec <= 0 {
		c.HTTP.RequestTimeoutSec = 25
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "ragdex:"
	}
	if c.Corpus.PartitionKey == "" {
		c.Corpus.PartitionKey = "area"
	}
	if len(c.Entities) == 0 {
		c.Entities = DefaultEntities()
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.CrossEncoder.Model == "" {
		c.CrossEncoder.Model = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	}
	if c.CrossEncoder.TimeoutSec <= 0 {
		c.CrossEncoder.TimeoutSec = 5
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 10
	}
	if c.LLM.MaxPassageChars <= 0 {
		c.LLM.MaxPassageChars = 500
	}
	if c.Resilience.AttemptTimeoutSec <= 0 {
		c.Resilience.AttemptTimeoutSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Corpus.Paths) == 0 {
		return errors.New("corpus.paths is required")
	}
	switch c.Corpus.PartitionKey {
	case "area", "location", "category":
	default:
		return fmt.Errorf("corpus.partition_key must be area, location or category, got %q", c.Corpus.PartitionKey)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.CrossEncoder.BaseURL == "" {
		return errors.New("cross_encoder.base_url is required")
	}
	if c.LLM.Enabled && c.LLM.Model == "" {
		return errors.New("llm.model is required when llm.enabled is true")
	}
	seen := make(map[string]struct{}, len(c.Entities))
	for i, e := range c.Entities {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("entities[%d].name is required", i)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("entities[%d]: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	return nil
}

// Validate checks pipeline tunables.
func (r *RetrievalConfig) Validate() error {
	switch {
	case r.SemanticWeight < 0 || r.SemanticWeight > 1:
		return fmt.Errorf("semantic_weight must be within [0, 1], got %v", r.SemanticWeight)
	case r.RRFK <= 0:
		return fmt.Errorf("rrf_k must be positive, got %d", r.RRFK)
	case r.InitialK <= 0:
		return fmt.Errorf("initial_k must be positive, got %d", r.InitialK)
	case r.LLMFilterMinCandidates < 0:
		return fmt.Errorf("llm_filter_min_candidates must not be negative, got %d", r.LLMFilterMinCandidates)
	case r.LLMFilterTopM <= 0:
		return fmt.Errorf("llm_filter_top_m must be positive, got %d", r.LLMFilterTopM)
	case r.CEAlpha < 0 || r.LLMBeta < 0:
		return fmt.Errorf("ce_alpha and llm_beta must not be negative, got %v/%v", r.CEAlpha, r.LLMBeta)
	case r.FinalTopN <= 0:
		return fmt.Errorf("final_top_n must be positive, got %d", r.FinalTopN)
	case r.CacheCapacity <= 0:
		return fmt.Errorf("cache_capacity must be positive, got %d", r.CacheCapacity)
	case r.CacheTTLSeconds <= 0:
		return fmt.Errorf("cache_ttl_seconds must be positive, got %d", r.CacheTTLSeconds)
	case r.DedupPrefixChars < 0:
		return fmt.Errorf("dedup_prefix_chars must not be negative, got %d", r.DedupPrefixChars)
	}
	return nil
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
