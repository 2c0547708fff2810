package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir   string `yaml:"work_dir" env:"AUTOCLIP_WORK_DIR"`
	OutputDir string `yaml:"output_dir"`
	Language  string `yaml:"language" env:"AUTOCLIP_LANGUAGE"`

	Workers  WorkerConfig   `yaml:"workers"`
	Sampling SamplingConfig `yaml:"sampling"`
	Describe DescribeConfig `yaml:"describe"`
	Scenes   SceneConfig    `yaml:"scenes"`
	LLM      LLMConfig      `yaml:"llm"`
	Retry    RetryConfig    `yaml:"retry"`
	TTS      TTSConfig      `yaml:"tts"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Render   RenderConfig   `yaml:"render"`
	Journal  JournalConfig  `yaml:"journal"`
	Server   ServerConfig   `yaml:"server"`
}

// WorkerConfig sizes the bounded pools of each stage
type WorkerConfig struct {
	Frames   int `yaml:"frames"`
	Describe int `yaml:"describe"`
	Render   int `yaml:"render"`
}

type SamplingConfig struct {
	Interval           int     `yaml:"interval"`
	FrameOffset        int     `yaml:"frame_offset"`
	ScaleRatio         float64 `yaml:"scale_ratio"` // 0 picks a ratio from the resolution
	TargetMinDimension int     `yaml:"target_min_dimension"`
	BatchWidth         int     `yaml:"batch_width"`
}

type DescribeConfig struct {
	Mode string `yaml:"mode"` // frame | batch
}

type SceneConfig struct {
	Threshold      float64       `yaml:"threshold"`
	MinLength      time.Duration `yaml:"min_length"`
	BlackThreshold float64       `yaml:"black_threshold"`
	CheckSeconds   int           `yaml:"check_seconds"`
}

type LLMConfig struct {
	BaseURL     string        `yaml:"base_url" env:"AUTOCLIP_LLM_BASE_URL"`
	APIKey      string        `yaml:"api_key" env:"AUTOCLIP_LLM_API_KEY"`
	VisionModel string        `yaml:"vision_model"`
	ChatModel   string        `yaml:"chat_model"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

type TTSConfig struct {
	Binary string `yaml:"binary"`
	Voice  string `yaml:"voice"`
	Rate   string `yaml:"rate"`
	Pitch  string `yaml:"pitch"`
	Volume string `yaml:"volume"`
}

type FFmpegConfig struct {
	Threads int    `yaml:"threads"`
	CRF     int    `yaml:"crf"`
	Preset  string `yaml:"preset"`
}

type RenderConfig struct {
	BurnSubtitles bool `yaml:"burn_subtitles"`
	ScreenText    bool `yaml:"screen_text"`
	MinClips      int  `yaml:"min_clips"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

const journalFile = "journal.db"

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.deriveJournalPath(Default().Journal.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values no stage can work with
func (c *Config) Validate() error {
	const op = "config.validate"

	if c.WorkDir == "" {
		return errs.Errorf(errs.Invalid, op, "work_dir is required")
	}
	if c.OutputDir == "" {
		return errs.Errorf(errs.Invalid, op, "output_dir is required")
	}
	if c.Language != "zh" && c.Language != "en" {
		return errs.Errorf(errs.Invalid, op, "language must be zh or en, got %q", c.Language)
	}
	if c.Workers.Frames < 1 || c.Workers.Describe < 1 || c.Workers.Render < 1 {
		return errs.Errorf(errs.Invalid, op, "worker counts must be positive")
	}
	if c.Sampling.ScaleRatio < 0 || c.Sampling.ScaleRatio > 1 {
		return errs.Errorf(errs.Invalid, op, "sampling.scale_ratio must be in (0, 1] or 0 for auto, got %v", c.Sampling.ScaleRatio)
	}
	if c.Sampling.Interval < 0 || c.Sampling.FrameOffset < 0 {
		return errs.Errorf(errs.Invalid, op, "sampling interval and frame_offset must not be negative")
	}
	if c.Describe.Mode != "frame" && c.Describe.Mode != "batch" {
		return errs.Errorf(errs.Invalid, op, "describe.mode must be frame or batch, got %q", c.Describe.Mode)
	}
	if c.Retry.Attempts < 1 {
		return errs.Errorf(errs.Invalid, op, "retry.attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return errs.Errorf(errs.Invalid, op, "retry.delay must not be negative")
	}
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return errs.Errorf(errs.Invalid, op, "ffmpeg.crf must be between 0 and 51")
	}

	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		WorkDir:   "./work",
		OutputDir: "./output",
		Language:  "zh",
		Workers: WorkerConfig{
			Frames:   6,
			Describe: 6,
			Render:   4,
		},
		Sampling: SamplingConfig{
			Interval:           0,
			FrameOffset:        10,
			ScaleRatio:         0,
			TargetMinDimension: 300,
			BatchWidth:         320,
		},
		Describe: DescribeConfig{
			Mode: "batch",
		},
		Scenes: SceneConfig{
			Threshold:      0.3,
			MinLength:      time.Second,
			BlackThreshold: 30,
			CheckSeconds:   10,
		},
		LLM: LLMConfig{
			BaseURL:     "",
			VisionModel: "gpt-4o-mini",
			ChatModel:   "gpt-4o-mini",
			Timeout:     90 * time.Second,
			Temperature: 0.2,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    time.Second,
		},
		TTS: TTSConfig{
			Binary: "edge-tts",
			Voice:  "zh-CN-XiaoxiaoNeural",
			Rate:   "+0%",
			Pitch:  "+0Hz",
			Volume: "+0%",
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
			CRF:     23,
			Preset:  "medium",
		},
		Render: RenderConfig{
			BurnSubtitles: false,
			ScreenText:    false,
			MinClips:      1,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join("./work", journalFile),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// applyEnv overrides credentials and locations from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("AUTOCLIP_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv("AUTOCLIP_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("AUTOCLIP_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("AUTOCLIP_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// deriveJournalPath keeps the journal inside the work dir unless a path
// other than the built-in one was configured
func (c *Config) deriveJournalPath(builtin string) {
	if c.Journal.Path == "" || c.Journal.Path == builtin {
		c.Journal.Path = filepath.Join(c.WorkDir, journalFile)
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".autoclip", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
