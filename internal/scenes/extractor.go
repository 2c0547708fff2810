package scenes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
	"github.com/kikiluvv/autoclip/internal/frames"
	"github.com/kikiluvv/autoclip/pkg/util"
	"github.com/rs/zerolog"
)

// TimelineFile lists the materialized segments of one video
const TimelineFile = "split_timeline.json"

// Media is the subset of the transcoder the extractor drives
type Media interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	ExtractFrame(ctx context.Context, input string, at time.Duration, output string) error
}

// Config tunes scene splitting and segment validation
type Config struct {
	Threshold      float64
	MinLength      time.Duration
	BlackThreshold float64
	CheckSeconds   int
	CRF            int
	Preset         string
}

// Segment is one materialized scene of the source video
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Name  string  `json:"video_name"`
	Path  string  `json:"video_path"`
}

// Duration of the segment in seconds
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Extractor splits a video at scene changes into standalone files
type Extractor struct {
	logger zerolog.Logger
	media  Media
	cfg    Config
}

// NewExtractor creates a segment extractor
func NewExtractor(logger zerolog.Logger, media Media, cfg Config) *Extractor {
	if cfg.BlackThreshold <= 0 {
		cfg.BlackThreshold = frames.DefaultBlackThreshold
	}
	if cfg.CheckSeconds <= 0 {
		cfg.CheckSeconds = 10
	}
	return &Extractor{
		logger: logger.With().Str("component", "scenes").Logger(),
		media:  media,
		cfg:    cfg,
	}
}

// Extract detects scene boundaries, cuts each scene into outDir and drops
// scenes that are black throughout. A video without boundaries yields an
// empty list and no error; the caller decides how to treat it. When
// boundaries exist but every scene is black or failed to cut, Extract
// returns an error.
func (x *Extractor) Extract(ctx context.Context, video, outDir string) ([]Segment, error) {
	const op = "scenes.extract"

	if _, err := os.Stat(video); err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Errorf(errs.NotFound, op, "no such video: %s", video)
		}
		return nil, errs.E(errs.Invalid, op, err)
	}

	info, err := x.media.ProbeVideo(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	cuts, err := x.media.DetectScenes(ctx, video, x.cfg.Threshold)
	if err != nil {
		return nil, err
	}

	ranges := BuildRanges(cuts, info.Duration, x.cfg.MinLength)
	if len(ranges) < 2 {
		x.logger.Info().Str("video", video).Int("cuts", len(cuts)).Msg("no scene boundaries detected")
		return nil, nil
	}

	if err := util.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create scenes dir: %w", err)
	}

	x.logger.Info().
		Str("video", video).
		Int("scenes", len(ranges)).
		Msg("splitting video into scenes")

	var segments []Segment
	failed := 0
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := fmt.Sprintf("scene_%03d.mp4", i+1)
		path := filepath.Join(outDir, name)

		err := x.media.ExtractClip(ctx, video, ffmpeg.ClipOptions{
			Start:  r.Start,
			End:    r.End,
			Output: path,
			CRF:    x.cfg.CRF,
			Preset: x.cfg.Preset,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			x.logger.Error().Err(err).Str("segment", name).Msg("scene extraction failed, skipping")
			continue
		}

		if !x.visible(ctx, path, r.End-r.Start) {
			x.logger.Warn().Str("segment", name).Msg("scene is black throughout, skipping")
			os.Remove(path)
			continue
		}

		segments = append(segments, Segment{
			Index: len(segments),
			Start: r.Start.Seconds(),
			End:   r.End.Seconds(),
			Name:  name,
			Path:  path,
		})
	}

	if len(segments) == 0 {
		if failed == len(ranges) {
			return nil, errs.Errorf(errs.MediaTool, op, "all %d scene cuts failed", failed)
		}
		return nil, errs.Errorf(errs.Invalid, op, "no visible scene: %d black, %d failed to cut", len(ranges)-failed, failed)
	}

	if err := util.WriteJSON(filepath.Join(outDir, TimelineFile), segments); err != nil {
		return nil, fmt.Errorf("failed to write timeline: %w", err)
	}

	x.logger.Info().
		Int("segments", len(segments)).
		Int("dropped", len(ranges)-len(segments)).
		Msg("scene split complete")

	return segments, nil
}

// visible samples one frame per second from the start of the clip and
// reports whether any of them is brighter than the black threshold
func (x *Extractor) visible(ctx context.Context, path string, length time.Duration) bool {
	checks := x.cfg.CheckSeconds
	if secs := int(length.Seconds()); secs < checks {
		checks = secs
	}
	if checks < 1 {
		checks = 1
	}

	for s := 0; s < checks; s++ {
		grab := fmt.Sprintf("%s.check_%02d.png", path, s)
		err := x.media.ExtractFrame(ctx, path, time.Duration(s)*time.Second, grab)
		if err != nil {
			x.logger.Debug().Err(err).Str("segment", filepath.Base(path)).Int("second", s).Msg("validation frame unreadable")
			os.Remove(grab)
			continue
		}

		img, err := frames.LoadImage(grab)
		os.Remove(grab)
		if err != nil {
			continue
		}
		if !frames.IsBlack(img, x.cfg.BlackThreshold) {
			return true
		}
	}
	return false
}
