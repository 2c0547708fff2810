package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kikiluvv/autoclip/internal/clips"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
	"github.com/kikiluvv/autoclip/internal/workpool"
	"github.com/kikiluvv/autoclip/pkg/util"
	"github.com/rs/zerolog"
)

// Synthesizer turns narration text into an audio file plus subtitles
type Synthesizer interface {
	Synthesize(ctx context.Context, text, audioPath string) (audio, subtitles string, err error)
}

// Transcoder is the subset of the media tool used for rendering
type Transcoder interface {
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	MergeNarration(ctx context.Context, opts ffmpeg.MergeOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// Config tunes clip rendering
type Config struct {
	Workers       int
	CRF           int
	Preset        string
	BurnSubtitles bool
	ScreenText    bool
}

// Renderer produces one narrated video file per script clip
type Renderer struct {
	logger zerolog.Logger
	tts    Synthesizer
	media  Transcoder
	cfg    Config
}

// NewRenderer creates a segment renderer
func NewRenderer(logger zerolog.Logger, tts Synthesizer, media Transcoder, cfg Config) *Renderer {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	return &Renderer{
		logger: logger.With().Str("component", "render").Logger(),
		tts:    tts,
		media:  media,
		cfg:    cfg,
	}
}

// Render renders every clip of script from source into workDir. It always
// returns one entry per clip in script order; a failed clip carries its
// error and no artifact paths.
func (r *Renderer) Render(ctx context.Context, source string, script *clips.Script, workDir string) ([]clips.Rendered, error) {
	if len(script.Clips) == 0 {
		return nil, errs.Errorf(errs.Invalid, "render.script", "script has no clips")
	}
	if err := util.EnsureDir(workDir); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	type job struct {
		index int
		clip  clips.Clip
	}
	jobs := make([]job, len(script.Clips))
	for i, c := range script.Clips {
		jobs[i] = job{index: i, clip: c}
	}

	r.logger.Info().
		Str("perspective", script.Perspective).
		Int("clips", len(jobs)).
		Int("workers", r.cfg.Workers).
		Msg("rendering clips")

	start := time.Now()
	results := workpool.Map(ctx, r.cfg.Workers, jobs, func(ctx context.Context, j job) (clips.Rendered, error) {
		return r.renderClip(ctx, source, workDir, j.index, j.clip), nil
	})

	rendered := make([]clips.Rendered, len(results))
	for i, res := range results {
		rendered[i] = res.Value
		if res.Err != nil {
			// never started because ctx ended
			rendered[i] = clips.Rendered{Index: i, Clip: script.Clips[i], Err: res.Err}
		}
	}

	r.logger.Info().
		Str("perspective", script.Perspective).
		Int("rendered", len(rendered)-clips.Failed(rendered)).
		Int("failed", clips.Failed(rendered)).
		Dur("took", time.Since(start)).
		Msg("clip rendering complete")

	return rendered, nil
}

// renderClip runs narration, cut and merge for one clip, stopping at the
// first failing step
func (r *Renderer) renderClip(ctx context.Context, source, workDir string, index int, c clips.Clip) clips.Rendered {
	out := clips.Rendered{Index: index, Clip: c}
	base := filepath.Join(workDir, clips.Name(index, c))
	log := r.logger.With().Int("clip", index).Float64("start", c.Start).Float64("end", c.End).Logger()

	fail := func(step string, err error) clips.Rendered {
		log.Error().Err(err).Str("step", step).Msg("clip render failed")
		out.Reset(fmt.Errorf("%s: %w", step, err))
		return out
	}

	if strings.TrimSpace(c.Narration) != "" {
		audio, subs, err := r.tts.Synthesize(ctx, c.Narration, base+"_narration.mp3")
		if err != nil {
			return fail("narration", err)
		}
		out.Audio, out.Subtitle = audio, subs
	}

	cut := base + "_cut.mp4"
	err := r.media.ExtractClip(ctx, source, ffmpeg.ClipOptions{
		Start:  c.StartTime(),
		End:    c.EndTime(),
		Output: cut,
		CRF:    r.cfg.CRF,
		Preset: r.cfg.Preset,
	})
	if err != nil {
		return fail("cut", err)
	}
	out.Cut = cut

	merge := ffmpeg.MergeOptions{
		Video:  cut,
		Audio:  out.Audio,
		Output: base + "_final.mp4",
		CRF:    r.cfg.CRF,
		Preset: r.cfg.Preset,
	}
	if r.cfg.BurnSubtitles {
		merge.Subtitles = out.Subtitle
	}
	if r.cfg.ScreenText {
		merge.ScreenText = c.ScreenText
	}
	if err := r.media.MergeNarration(ctx, merge); err != nil {
		return fail("merge", err)
	}
	if !util.NonEmptyFile(merge.Output) {
		return fail("merge", errs.Errorf(errs.MediaTool, "render.merge", "merge produced no output"))
	}
	out.Path = merge.Output

	log.Debug().Str("output", out.Path).Msg("clip rendered")
	return out
}
