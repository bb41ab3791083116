package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine     EngineConfig               `yaml:"engine"`
	Retrieval  RetrievalConfig            `yaml:"retrieval"`
	Cleaner    CleanerConfig              `yaml:"cleaner"`
	Controller ControllerConfig           `yaml:"controller"`
	Sections   map[string]SectionOverride `yaml:"sections"`
	Corpus     CorpusConfig               `yaml:"corpus"`
	Pipeline   PipelineConfig             `yaml:"pipeline"`
	Log        LogConfig                  `yaml:"log"`
}

type EngineConfig struct {
	Provider string `yaml:"provider"` // openai (llama-server, vLLM) or ollama
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	// RequestsPerSecond throttles engine calls across section workers; 0 disables.
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
}

type RetrievalConfig struct {
	K1               float64 `yaml:"k1"`
	B                float64 `yaml:"b"`
	TopK             int     `yaml:"top_k"`
	N                int     `yaml:"n"`
	JaccardThreshold float64 `yaml:"jaccard_threshold"`
	OnePerContract   bool    `yaml:"one_per_contract"`
	GenericMasking   bool    `yaml:"generic_masking"`
	MaxChars         int     `yaml:"max_chars"`
}

type CleanerConfig struct {
	MinChars     int `yaml:"min_chars"`
	DedupeWindow int `yaml:"dedupe_window"`
}

type SamplingConfig struct {
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ControllerConfig struct {
	MaxAttempts    int            `yaml:"max_attempts"`
	AttemptTimeout time.Duration  `yaml:"attempt_timeout"`
	AmendOnRetry   bool           `yaml:"amend_on_retry"`
	Sampling       SamplingConfig `yaml:"sampling"`
	RetrySampling  SamplingConfig `yaml:"retry_sampling"`
}

// SectionOverride adjusts the built-in drafting policy of one section type.
// Nil fields keep the built-in value.
type SectionOverride struct {
	MinSubpoints    *int                `yaml:"min_subpoints"`
	NumberingPrefix *string             `yaml:"numbering_prefix"`
	MinLength       *int                `yaml:"min_length"`
	MaxLength       *int                `yaml:"max_length"`
	LengthUnit      string              `yaml:"length_unit"`
	BannedTopics    map[string][]string `yaml:"banned_topics"`
	DisabledRules   []string            `yaml:"disabled_rules"`
}

type CorpusConfig struct {
	// StopWords replaces the built-in stop-word list per language when set.
	StopWords map[string][]string `yaml:"stop_words"`
}

type PipelineConfig struct {
	Concurrency int    `yaml:"concurrency"`
	ReportPath  string `yaml:"report_path"`
	ArtifactDir string `yaml:"artifact_dir"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Provider:    "openai",
			BaseURL:     "http://127.0.0.1:8080",
			Model:       "local",
			Burst:       1,
			HTTPTimeout: 10 * time.Minute,
		},
		Retrieval: RetrievalConfig{
			K1:               1.5,
			B:                0.75,
			TopK:             24,
			N:                3,
			JaccardThreshold: 0.55,
			OnePerContract:   true,
			GenericMasking:   true,
			MaxChars:         2600,
		},
		Cleaner: CleanerConfig{
			MinChars:     120,
			DedupeWindow: 30,
		},
		Controller: ControllerConfig{
			MaxAttempts:    3,
			AttemptTimeout: 5 * time.Minute,
			AmendOnRetry:   true,
			Sampling:       SamplingConfig{Temperature: 0.25, TopP: 0.9, MaxTokens: 1600},
			RetrySampling:  SamplingConfig{Temperature: 0.35, TopP: 0.92, MaxTokens: 1600},
		},
		Sections: map[string]SectionOverride{},
		Pipeline: PipelineConfig{
			Concurrency: 2,
			ReportPath:  "out/report.json",
		},
		Log: LogConfig{Level: "info"},
	}
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config on top of the defaults
	if strings.TrimSpace(path) != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if provider := os.Getenv("CLAUSEGEN_ENGINE_PROVIDER"); provider != "" {
		cfg.Engine.Provider = provider
	}
	if baseURL := os.Getenv("CLAUSEGEN_ENGINE_BASE_URL"); baseURL != "" {
		cfg.Engine.BaseURL = baseURL
	}
	if model := os.Getenv("CLAUSEGEN_ENGINE_MODEL"); model != "" {
		cfg.Engine.Model = model
	}
	if apiKey := os.Getenv("CLAUSEGEN_ENGINE_API_KEY"); apiKey != "" {
		cfg.Engine.APIKey = apiKey
	}
	if attempts := os.Getenv("CLAUSEGEN_MAX_ATTEMPTS"); attempts != "" {
		n, err := strconv.Atoi(attempts)
		if err != nil {
			return nil, fmt.Errorf("CLAUSEGEN_MAX_ATTEMPTS: %w", err)
		}
		cfg.Controller.MaxAttempts = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	r := c.Retrieval
	switch {
	case r.TopK < 1:
		return fmt.Errorf("retrieval.top_k must be >= 1, got %d", r.TopK)
	case r.N < 1:
		return fmt.Errorf("retrieval.n must be >= 1, got %d", r.N)
	case r.N > r.TopK:
		return fmt.Errorf("retrieval.n (%d) must not exceed retrieval.top_k (%d)", r.N, r.TopK)
	case r.JaccardThreshold < 0 || r.JaccardThreshold > 1:
		return fmt.Errorf("retrieval.jaccard_threshold must be in [0,1], got %v", r.JaccardThreshold)
	case r.K1 < 0:
		return fmt.Errorf("retrieval.k1 must be >= 0, got %v", r.K1)
	case r.B < 0 || r.B > 1:
		return fmt.Errorf("retrieval.b must be in [0,1], got %v", r.B)
	}
	if c.Controller.MaxAttempts < 1 {
		return fmt.Errorf("controller.max_attempts must be >= 1, got %d", c.Controller.MaxAttempts)
	}
	if c.Controller.AttemptTimeout <= 0 {
		return fmt.Errorf("controller.attempt_timeout must be positive")
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}
	return ValidateLocalEndpoint(c.Engine.BaseURL)
}

// ValidateLocalEndpoint keeps generation on-premises: loopback, private
// network addresses and single-label service names are accepted.
func ValidateLocalEndpoint(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("engine.base_url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("engine.base_url %q has no host", raw)
	}
	if host == "localhost" || !strings.Contains(host, ".") && net.ParseIP(host) == nil {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return nil
	}
	return fmt.Errorf("engine.base_url %q is not a local endpoint", raw)
}
