package pipeline

import (
	"fmt"
	"time"

	"github.com/kikiluvv/autoclip/internal/config"
	"github.com/kikiluvv/autoclip/internal/describe"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
	"github.com/kikiluvv/autoclip/internal/frames"
	"github.com/kikiluvv/autoclip/internal/journal"
	"github.com/kikiluvv/autoclip/internal/llm"
	"github.com/kikiluvv/autoclip/internal/render"
	"github.com/kikiluvv/autoclip/internal/retry"
	"github.com/kikiluvv/autoclip/internal/scenes"
	"github.com/kikiluvv/autoclip/internal/script"
	"github.com/kikiluvv/autoclip/internal/tts"
	"github.com/rs/zerolog"
)

// Media is every transcoder operation the pipeline stages need
type Media interface {
	scenes.Media
	render.Transcoder
}

// Deps are the external collaborators of one pipeline
type Deps struct {
	Media         Media
	Understanding describe.Understanding
	Generator     script.Generator
	Synthesizer   render.Synthesizer
	Recorder      journal.Recorder
}

// Pipeline orchestrates preparation and the per-perspective branches
type Pipeline struct {
	logger    zerolog.Logger
	cfg       *config.Config
	media     Media
	recorder  journal.Recorder
	extractor *scenes.Extractor
	sampler   *frames.Sampler
	describer *describe.Describer
	composer  *script.Composer
	renderer  *render.Renderer
	concat    *render.Concatenator
	now       func() time.Time
	closer    func() error
}

// New creates a pipeline over explicit collaborators
func New(logger zerolog.Logger, cfg *config.Config, deps Deps) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = journal.Nop{}
	}

	policy := retry.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}

	return &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		cfg:      cfg,
		media:    deps.Media,
		recorder: deps.Recorder,
		extractor: scenes.NewExtractor(logger, deps.Media, scenes.Config{
			Threshold:      cfg.Scenes.Threshold,
			MinLength:      cfg.Scenes.MinLength,
			BlackThreshold: cfg.Scenes.BlackThreshold,
			CheckSeconds:   cfg.Scenes.CheckSeconds,
			CRF:            cfg.FFmpeg.CRF,
			Preset:         cfg.FFmpeg.Preset,
		}),
		sampler: frames.NewSampler(logger, deps.Media, deps.Media),
		describer: describe.NewDescriber(logger, deps.Understanding, describe.Config{
			Language:   cfg.Language,
			Workers:    cfg.Workers.Describe,
			BatchWidth: cfg.Sampling.BatchWidth,
			Retry:      policy,
		}),
		composer: script.NewComposer(logger, deps.Generator, policy),
		renderer: render.NewRenderer(logger, deps.Synthesizer, deps.Media, render.Config{
			Workers:       cfg.Workers.Render,
			CRF:           cfg.FFmpeg.CRF,
			Preset:        cfg.FFmpeg.Preset,
			BurnSubtitles: cfg.Render.BurnSubtitles,
			ScreenText:    cfg.Render.ScreenText,
		}),
		concat: render.NewConcatenator(logger, deps.Media),
		now:    time.Now,
	}
}

// Open builds a pipeline with the real transcoder, model client, speech
// engine and, when enabled, the run journal
func Open(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	media, err := ffmpeg.New(logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	client := llm.New(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		VisionModel: cfg.LLM.VisionModel,
		ChatModel:   cfg.LLM.ChatModel,
		Timeout:     cfg.LLM.Timeout,
		Temperature: cfg.LLM.Temperature,
	}, logger)

	voice := tts.Voice{
		Name:   cfg.TTS.Voice,
		Rate:   cfg.TTS.Rate,
		Pitch:  cfg.TTS.Pitch,
		Volume: cfg.TTS.Volume,
	}

	deps := Deps{
		Media:         media,
		Understanding: client,
		Generator:     client,
		Synthesizer:   tts.NewEdge(logger, cfg.TTS.Binary, voice),
	}

	var j *journal.Journal
	if cfg.Journal.Enabled {
		j, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		deps.Recorder = j
	}

	p := New(logger, cfg, deps)
	if j != nil {
		p.closer = j.Close
	}
	return p, nil
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	if p.closer != nil {
		return p.closer()
	}
	return nil
}
