package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kikiluvv/autoclip/internal/asset"
	"github.com/kikiluvv/autoclip/internal/describe"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/frames"
	"github.com/kikiluvv/autoclip/internal/scenes"
	"github.com/kikiluvv/autoclip/pkg/util"
)

// Prepare identifies the video and produces its segment descriptors, or
// loads them from the asset's cache directory unless Force is set
func (p *Pipeline) Prepare(ctx context.Context, video string, opts PrepareOptions) (*Analysis, error) {
	va, err := asset.Identify(ctx, p.media, video)
	if err != nil {
		return nil, err
	}
	return p.prepare(ctx, va, opts)
}

func (p *Pipeline) prepare(ctx context.Context, va *asset.VideoAsset, opts PrepareOptions) (*Analysis, error) {
	const op = "pipeline.prepare"

	mode := opts.Mode
	if mode == "" {
		m, err := describe.ParseMode(p.cfg.Describe.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}

	dir := filepath.Join(p.cfg.WorkDir, va.ID)
	an := &Analysis{
		Asset:          va,
		Dir:            dir,
		DescriptorPath: filepath.Join(dir, describe.DescriptorFile),
	}

	log := p.logger.With().Str("asset", va.ID).Str("video", va.Path).Logger()

	if !opts.Force {
		var cached []describe.SegmentDescriptor
		ok, err := util.ReadJSON(an.DescriptorPath, &cached)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("unreadable descriptor cache, rebuilding")
		case ok && len(cached) > 0:
			log.Info().Int("segments", len(cached)).Msg("using cached segment descriptors")
			an.Descriptors = cached
			an.Cached = true
			return an, nil
		}
	}

	start := time.Now()
	log.Info().
		Dur("duration", va.Duration).
		Int("width", va.Width).
		Int("height", va.Height).
		Float64("fps", va.FPS).
		Str("mode", string(mode)).
		Msg("preparing video")

	segments, err := p.extractor.Extract(ctx, va.Path, filepath.Join(dir, "segments"))
	if err != nil {
		return nil, fmt.Errorf("failed to extract segments: %w", err)
	}
	if len(segments) == 0 {
		log.Info().Msg("treating video as a single segment")
		segments = []scenes.Segment{wholeVideo(va)}
	}

	ratio := p.cfg.Sampling.ScaleRatio
	if ratio == 0 {
		ratio = frames.AutoScaleRatio(va.Width, va.Height, p.cfg.Sampling.TargetMinDimension)
	}

	var firstErr error
	for _, seg := range segments {
		d, err := p.describeSegment(ctx, va, seg, mode, ratio, filepath.Join(dir, "frames"))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("segment", seg.Index).Str("file", seg.Name).Msg("segment skipped")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		an.Descriptors = append(an.Descriptors, d)
	}

	if len(an.Descriptors) == 0 {
		if firstErr == nil {
			firstErr = errs.Errorf(errs.Invalid, op, "no segment produced any frames")
		}
		return nil, fmt.Errorf("no segment could be described: %w", firstErr)
	}

	if err := util.WriteJSON(an.DescriptorPath, an.Descriptors); err != nil {
		return nil, fmt.Errorf("failed to save descriptors: %w", err)
	}

	log.Info().
		Int("segments", len(segments)).
		Int("described", len(an.Descriptors)).
		Dur("took", time.Since(start)).
		Str("path", an.DescriptorPath).
		Msg("preparation complete")

	return an, nil
}

// describeSegment samples one segment file and describes its frames
func (p *Pipeline) describeSegment(ctx context.Context, va *asset.VideoAsset, seg scenes.Segment, mode describe.Mode, ratio float64, framesDir string) (describe.SegmentDescriptor, error) {
	const op = "pipeline.describe_segment"

	samples, err := p.sampler.Sample(ctx, frames.SampleOptions{
		Video:      seg.Path,
		OutDir:     filepath.Join(framesDir, strings.TrimSuffix(seg.Name, filepath.Ext(seg.Name))),
		Interval:   p.cfg.Sampling.Interval,
		Offset:     p.cfg.Sampling.FrameOffset,
		ScaleRatio: ratio,
		Workers:    p.cfg.Workers.Frames,
	})
	if err != nil {
		return describe.SegmentDescriptor{}, err
	}
	if len(samples) == 0 {
		return describe.SegmentDescriptor{}, errs.Errorf(errs.Invalid, op, "segment %d produced no frames", seg.Index)
	}

	res, err := p.describer.Describe(ctx, mode, samples)
	if err != nil {
		return describe.SegmentDescriptor{}, err
	}

	totalFrames := int(seg.Duration() * va.FPS)
	return describe.NewDescriptor(seg, va.FPS, totalFrames, res), nil
}

func wholeVideo(va *asset.VideoAsset) scenes.Segment {
	return scenes.Segment{
		Index: 0,
		Start: 0,
		End:   va.Duration.Seconds(),
		Name:  filepath.Base(va.Path),
		Path:  va.Path,
	}
}
