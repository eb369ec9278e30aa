package quorum

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Engine.Model == "" {
		t.Error("default engine model empty")
	}
	if cfg.Sampling.Round1.N != 7 || cfg.Sampling.Round1.BestOf != 10 || cfg.Sampling.Round1.MaxTokens != 1024 {
		t.Errorf("unexpected round1 defaults: %+v", cfg.Sampling.Round1)
	}
	if cfg.Sampling.Round2.N != 1 || cfg.Sampling.Round2.BestOf != 3 {
		t.Errorf("unexpected round2 defaults: %+v", cfg.Sampling.Round2)
	}
	if cfg.Sampling.Chat.BestOf != 5 || cfg.Sampling.Chat.MaxTokens != 512 {
		t.Errorf("unexpected chat defaults: %+v", cfg.Sampling.Chat)
	}
	if cfg.Files.Answers != "answers.txt" || cfg.Files.AnswersFinal != "answers_final.txt" {
		t.Errorf("unexpected file defaults: %+v", cfg.Files)
	}
}

func writeConfig(t *testing.T, cfg map[string]any) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QUORUM_CONFIG_DIR", dir)
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("QUORUM_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.BaseURL != DefaultConfig().Engine.BaseURL {
		t.Errorf("expected default base URL, got %q", cfg.Engine.BaseURL)
	}
}

func TestLoadConfigMergesDefaults(t *testing.T) {
	writeConfig(t, map[string]any{
		"version": 1,
		"engine":  map[string]any{"base_url": "http://gpu-box:8000/v1"},
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.BaseURL != "http://gpu-box:8000/v1" {
		t.Errorf("configured base URL lost: %q", cfg.Engine.BaseURL)
	}
	if cfg.Engine.Model != DefaultConfig().Engine.Model {
		t.Errorf("missing model not defaulted: %q", cfg.Engine.Model)
	}
	if cfg.Sampling.Round1.N != 7 {
		t.Errorf("missing sampling not defaulted: %+v", cfg.Sampling.Round1)
	}
	if cfg.Files.Questions != "questions.json" {
		t.Errorf("missing files not defaulted: %+v", cfg.Files)
	}
}

func TestLoadConfigPartialSamplingKept(t *testing.T) {
	writeConfig(t, map[string]any{
		"sampling": map[string]any{
			"round1": map[string]any{"n": 3, "best_of": 4, "max_tokens": 256},
		},
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sampling.Round1.N != 3 {
		t.Errorf("configured round1 overridden: %+v", cfg.Sampling.Round1)
	}
	if cfg.Sampling.Round2.BestOf != 3 {
		t.Errorf("missing round2 not defaulted: %+v", cfg.Sampling.Round2)
	}
}

func TestResolveEngineEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("QUORUM_ENGINE_BASE_URL", "http://elsewhere:8000/v1")
	t.Setenv("QUORUM_ENGINE_API_KEY", "sk-test")
	t.Setenv("QUORUM_ENGINE_MODEL", "other-model")

	if got := ResolveEngineBaseURL(cfg); got != "http://elsewhere:8000/v1" {
		t.Errorf("base URL env not honored: %q", got)
	}
	if got := ResolveEngineAPIKey(cfg); got != "sk-test" {
		t.Errorf("API key env not honored: %q", got)
	}
	if got := ResolveEngineModel(cfg); got != "other-model" {
		t.Errorf("model env not honored: %q", got)
	}
}

func TestRecallEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if RecallEnabled(cfg) {
		t.Error("recall enabled without embedding base URL")
	}
	cfg.Embedding.BaseURL = "http://localhost:8001/v1"
	if !RecallEnabled(cfg) {
		t.Error("recall disabled despite embedding base URL")
	}
}

func TestConfigDirResolution(t *testing.T) {
	t.Setenv("QUORUM_CONFIG_DIR", "/explicit/dir")
	if got := ConfigDir(); got != "/explicit/dir" {
		t.Errorf("QUORUM_CONFIG_DIR not honored: %q", got)
	}

	t.Setenv("QUORUM_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigDir(); got != "/xdg/quorum" {
		t.Errorf("XDG_CONFIG_HOME not honored: %q", got)
	}
}
