package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kikiluvv/autoclip/internal/clips"
	"github.com/kikiluvv/autoclip/internal/describe"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/perspective"
	"github.com/kikiluvv/autoclip/internal/retry"
	"github.com/kikiluvv/autoclip/pkg/util"
	"github.com/rs/zerolog"
)

// GenerateRequest is one call to the script generator
type GenerateRequest struct {
	Prompt     string
	Role       string
	SchemaName string
	Schema     map[string]any
}

// Generator produces a raw JSON script
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ComposeInput is everything needed to script one perspective
type ComposeInput struct {
	Descriptors []describe.SegmentDescriptor
	Perspective perspective.Kind
	Language    string
	Duration    float64 // source length in seconds
	CacheDir    string
	Regenerate  bool
}

// Composer turns segment descriptors into a perspective-specific script
type Composer struct {
	logger zerolog.Logger
	gen    Generator
	policy retry.Policy
}

// NewComposer creates a script composer
func NewComposer(logger zerolog.Logger, gen Generator, policy retry.Policy) *Composer {
	c := &Composer{
		logger: logger.With().Str("component", "script").Logger(),
		gen:    gen,
		policy: policy,
	}
	c.policy.Logger = &c.logger
	return c
}

// Path is where the script for k is cached under dir
func Path(dir string, k perspective.Kind) string {
	return filepath.Join(dir, perspective.ScriptFileName(k))
}

// Compose returns the cached script for the perspective when one exists,
// otherwise generates, validates and persists a new one
func (c *Composer) Compose(ctx context.Context, in ComposeInput) (*clips.Script, error) {
	const op = "script.compose"

	if !in.Perspective.Valid() {
		c.logger.Warn().Int("kind", int(in.Perspective)).Msg("unregistered perspective, using default")
		in.Perspective = perspective.Default
	}
	name := in.Perspective.String()
	path := Path(in.CacheDir, in.Perspective)

	if !in.Regenerate {
		if cached, ok := c.load(path, in.Duration); ok {
			c.logger.Info().
				Str("perspective", name).
				Int("clips", len(cached)).
				Msg("using cached script")
			return &clips.Script{Perspective: name, Clips: cached}, nil
		}
	}

	if len(in.Descriptors) == 0 {
		return nil, errs.Errorf(errs.Invalid, op, "no segment descriptors to script from")
	}

	segments, err := describe.PromptJSON(in.Descriptors)
	if err != nil {
		return nil, err
	}

	req := GenerateRequest{
		Prompt:     perspective.ScriptPrompt(in.Perspective, in.Language, segments),
		Role:       perspective.Template(in.Perspective, in.Language).Role,
		SchemaName: "video_script",
		Schema:     Schema(),
	}

	c.logger.Info().
		Str("perspective", name).
		Int("segments", len(in.Descriptors)).
		Msg("generating script")

	generated, err := retry.Value(ctx, c.policy, op, func(ctx context.Context) ([]clips.Clip, error) {
		raw, err := c.gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return Validate(raw, in.Duration)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s script: %w", name, err)
	}

	if err := util.EnsureDir(in.CacheDir); err != nil {
		return nil, err
	}
	if err := util.WriteJSON(path, generated); err != nil {
		return nil, fmt.Errorf("failed to save script: %w", err)
	}

	c.logger.Info().
		Str("perspective", name).
		Int("clips", len(generated)).
		Str("path", path).
		Msg("script saved")

	return &clips.Script{Perspective: name, Clips: generated}, nil
}

func (c *Composer) load(path string, duration float64) ([]clips.Clip, bool) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	cached, err := Validate(string(data), duration)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cached script unusable, regenerating")
		return nil, false
	}
	return cached, true
}
