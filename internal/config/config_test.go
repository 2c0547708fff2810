package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("AUTOCLIP_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Language != "zh" {
		t.Errorf("Language = %q, want zh", cfg.Language)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.Delay != time.Second {
		t.Errorf("Retry = %+v, want 3 attempts / 1s", cfg.Retry)
	}
	if cfg.Workers.Frames != 6 || cfg.Workers.Describe != 6 {
		t.Errorf("Workers = %+v", cfg.Workers)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
work_dir: /tmp/ac-work
language: en
describe:
  mode: frame
llm:
  chat_model: llama3
  timeout: 30s
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AUTOCLIP_WORK_DIR", "")
	t.Setenv("AUTOCLIP_LLM_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("AUTOCLIP_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkDir != "/tmp/ac-work" {
		t.Errorf("WorkDir = %q", cfg.WorkDir)
	}
	if cfg.Journal.Path != "/tmp/ac-work/journal.db" {
		t.Errorf("Journal.Path = %q", cfg.Journal.Path)
	}
	if cfg.Language != "en" || cfg.Describe.Mode != "frame" {
		t.Errorf("Language/Mode = %q/%q", cfg.Language, cfg.Describe.Mode)
	}
	if cfg.LLM.ChatModel != "llama3" || cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want fallback from OPENAI_API_KEY", cfg.LLM.APIKey)
	}
	// untouched sections keep their defaults
	if cfg.TTS.Voice != "zh-CN-XiaoxiaoNeural" {
		t.Errorf("TTS.Voice = %q", cfg.TTS.Voice)
	}
}

func TestJournalPathFollowsWorkDir(t *testing.T) {
	t.Setenv("AUTOCLIP_WORK_DIR", "/srv/autoclip")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Journal.Path != filepath.Join("/srv/autoclip", "journal.db") {
		t.Errorf("Journal.Path = %q, want it under the work dir", cfg.Journal.Path)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("journal:\n  path: /var/lib/autoclip/runs.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Journal.Path != "/var/lib/autoclip/runs.db" {
		t.Errorf("Journal.Path = %q, explicit path must be kept", cfg.Journal.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"language", func(c *Config) { c.Language = "fr" }},
		{"workers", func(c *Config) { c.Workers.Render = 0 }},
		{"scale ratio", func(c *Config) { c.Sampling.ScaleRatio = 1.5 }},
		{"mode", func(c *Config) { c.Describe.Mode = "video" }},
		{"retry", func(c *Config) { c.Retry.Attempts = 0 }},
		{"crf", func(c *Config) { c.FFmpeg.CRF = 60 }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errs.Is(err, errs.Invalid) {
				t.Errorf("Validate() error = %v, want invalid", err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Language = "en"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	t.Setenv("AUTOCLIP_LANGUAGE", "")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Language != "en" {
		t.Errorf("Language = %q, want en", loaded.Language)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	cfg := FromContext(context.Background())
	if cfg == nil || cfg.WorkDir == "" {
		t.Fatal("FromContext() returned empty config")
	}

	custom := Default()
	custom.WorkDir = "/elsewhere"
	if got := FromContext(WithConfig(context.Background(), custom)); got.WorkDir != "/elsewhere" {
		t.Errorf("WorkDir = %q", got.WorkDir)
	}
}
