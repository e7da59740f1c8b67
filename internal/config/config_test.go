package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:         HTTPConfig{Port: 8080},
		Corpus:       CorpusConfig{Paths: []string{"data/kusatsu_chunks.json"}},
		Embedding:    EmbeddingConfig{Model: "text-embedding-3-small"},
		CrossEncoder: CrossEncoderConfig{BaseURL: "http://localhost:8081"},
		Retrieval:    DefaultRetrieval(),
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"corpus paths", func(c *Config) { c.Corpus.Paths = nil }, "corpus.paths"},
		{"partition key", func(c *Config) { c.Corpus.PartitionKey = "tags" }, "partition_key"},
		{"embedding model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"cross encoder url", func(c *Config) { c.CrossEncoder.BaseURL = "" }, "cross_encoder.base_url"},
		{"llm model", func(c *Config) { c.LLM.Enabled = true }, "llm.model"},
		{"duplicate entity", func(c *Config) {
			c.Entities = []EntityConfig{{Name: "hakone"}, {Name: "hakone"}}
		}, "duplicate name"},
		{"semantic weight", func(c *Config) { c.Retrieval.SemanticWeight = 1.5 }, "semantic_weight"},
		{"rrf k", func(c *Config) { c.Retrieval.RRFK = 0 }, "rrf_k"},
		{"initial k", func(c *Config) { c.Retrieval.InitialK = -1 }, "initial_k"},
		{"top m", func(c *Config) { c.Retrieval.LLMFilterTopM = 0 }, "llm_filter_top_m"},
		{"negative beta", func(c *Config) { c.Retrieval.LLMBeta = -0.1 }, "llm_beta"},
		{"final top n", func(c *Config) { c.Retrieval.FinalTopN = 0 }, "final_top_n"},
		{"cache capacity", func(c *Config) { c.Retrieval.CacheCapacity = 0 }, "cache_capacity"},
		{"cache ttl", func(c *Config) { c.Retrieval.CacheTTLSeconds = 0 }, "cache_ttl_seconds"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestParse_DefaultsSeededBeforeDecode(t *testing.T) {
	data := []byte(`
http:
  port: 8080
corpus:
  paths: [data/hakone_chunks.json]
embedding:
  model: text-embedding-3-small
cross_encoder:
  base_url: http://rerank:8080
retrieval:
  semantic_weight: 0
  confidence_threshold: 0
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieval.SemanticWeight != 0 {
		t.Errorf("explicit zero semantic_weight overwritten: %v", cfg.Retrieval.SemanticWeight)
	}
	if cfg.Retrieval.ConfidenceThreshold != 0 {
		t.Errorf("explicit zero confidence_threshold overwritten: %v", cfg.Retrieval.ConfidenceThreshold)
	}
	if cfg.Retrieval.RRFK != 60 || cfg.Retrieval.InitialK != 20 || cfg.Retrieval.FinalTopN != 3 {
		t.Errorf("defaults not applied: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.CacheCapacity != 128 || cfg.Retrieval.CacheTTLSeconds != 300 {
		t.Errorf("cache defaults not applied: %+v", cfg.Retrieval)
	}
	if len(cfg.Entities) != 4 {
		t.Errorf("expected default entity vocabulary, got %d entries", len(cfg.Entities))
	}
	if cfg.Corpus.PartitionKey != "area" {
		t.Errorf("expected partition key area, got %q", cfg.Corpus.PartitionKey)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("RAGDEX_TEST_RERANK_URL", "http://ce:9000")

	data := []byte(`
http:
  port: ${RAGDEX_TEST_PORT:-9090}
corpus:
  paths: [a.json]
embedding:
  model: m
cross_encoder:
  base_url: ${RAGDEX_TEST_RERANK_URL}
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.CrossEncoder.BaseURL != "http://ce:9000" {
		t.Errorf("unexpected base url %q", cfg.CrossEncoder.BaseURL)
	}
}

func TestRedisConfig_Enabled(t *testing.T) {
	if (RedisConfig{}).Enabled() {
		t.Error("empty addrs should disable redis")
	}
	if !(RedisConfig{Addrs: []string{"localhost:6379"}}).Enabled() {
		t.Error("addrs should enable redis")
	}
}
