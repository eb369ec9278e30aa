package quorum

import (
	"encoding/json"
	"os"
	"path/filepath"

	defaults "github.com/csabak/quorum/default"
)

// Config represents the user's quorum configuration.
type Config struct {
	Version   int             `json:"version"`
	Engine    EngineConfig    `json:"engine"`
	Embedding EmbeddingConfig `json:"embedding"`
	Sampling  SamplingConfig  `json:"sampling"`
	Files     FilesConfig     `json:"files"`
}

// EngineConfig holds settings for the inference engine API.
type EngineConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// EmbeddingConfig holds settings for the embedding API used by the
// recall index. Recall is disabled when BaseURL is empty.
type EmbeddingConfig struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
}

// SamplingConfig holds the per-round sampling parameters.
type SamplingConfig struct {
	Round1 Params `json:"round1"`
	Round2 Params `json:"round2"`
	Chat   Params `json:"chat"`
}

// FilesConfig holds the batch-mode file paths.
type FilesConfig struct {
	Questions    string `json:"questions"`
	Answers      string `json:"answers"`
	AnswersFinal string `json:"answers_final"`
}

// ConfigDir returns the config directory path.
// Resolution order: $QUORUM_CONFIG_DIR > $XDG_CONFIG_HOME/quorum > ~/.config/quorum
func ConfigDir() string {
	if dir := os.Getenv("QUORUM_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "quorum")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "quorum-config")
	}
	return filepath.Join(home, ".config", "quorum")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// ProfilesPath returns the path to the optional TOML run-profile file.
func ProfilesPath() string {
	return filepath.Join(ConfigDir(), "profiles.toml")
}

// RecallCachePath returns the path to the on-disk embedding cache.
func RecallCachePath() string {
	return filepath.Join(ConfigDir(), "recall.json")
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("quorum: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	def := DefaultConfig()
	if cfg.Engine.BaseURL == "" {
		cfg.Engine.BaseURL = def.Engine.BaseURL
	}
	if cfg.Engine.Model == "" {
		cfg.Engine.Model = def.Engine.Model
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.TTLMinutes == 0 {
		cfg.Embedding.TTLMinutes = def.Embedding.TTLMinutes
	}
	if cfg.Sampling.Round1 == (Params{}) {
		cfg.Sampling.Round1 = def.Sampling.Round1
	}
	if cfg.Sampling.Round2 == (Params{}) {
		cfg.Sampling.Round2 = def.Sampling.Round2
	}
	if cfg.Sampling.Chat == (Params{}) {
		cfg.Sampling.Chat = def.Sampling.Chat
	}
	if cfg.Files.Questions == "" {
		cfg.Files.Questions = def.Files.Questions
	}
	if cfg.Files.Answers == "" {
		cfg.Files.Answers = def.Files.Answers
	}
	if cfg.Files.AnswersFinal == "" {
		cfg.Files.AnswersFinal = def.Files.AnswersFinal
	}

	return &cfg, nil
}

// ResolveEngineBaseURL returns the engine API base URL.
// Priority: $QUORUM_ENGINE_BASE_URL env > config value.
func ResolveEngineBaseURL(cfg *Config) string {
	if url := os.Getenv("QUORUM_ENGINE_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Engine.BaseURL
	}
	return ""
}

// ResolveEngineAPIKey returns the engine API key.
// Priority: $QUORUM_ENGINE_API_KEY env > config value.
func ResolveEngineAPIKey(cfg *Config) string {
	if key := os.Getenv("QUORUM_ENGINE_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Engine.APIKey
	}
	return ""
}

// ResolveEngineModel returns the engine model name.
// Priority: $QUORUM_ENGINE_MODEL env > config value.
func ResolveEngineModel(cfg *Config) string {
	if model := os.Getenv("QUORUM_ENGINE_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Engine.Model
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $QUORUM_EMBEDDING_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("QUORUM_EMBEDDING_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $QUORUM_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("QUORUM_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// ResolveEmbeddingModel returns the embedding model name.
// Priority: $QUORUM_EMBEDDING_MODEL env > config value.
func ResolveEmbeddingModel(cfg *Config) string {
	if model := os.Getenv("QUORUM_EMBEDDING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Embedding.Model
	}
	return ""
}

// RecallEnabled returns true when an embedding endpoint is configured.
// Local engines are often keyless, so only the base URL is required.
func RecallEnabled(cfg *Config) bool {
	return ResolveEmbeddingBaseURL(cfg) != ""
}
