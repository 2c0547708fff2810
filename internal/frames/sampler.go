package frames

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
	"github.com/kikiluvv/autoclip/internal/workpool"
	"github.com/kikiluvv/autoclip/pkg/util"
	"github.com/rs/zerolog"
)

// Prober reads stream metadata from a media file
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Grabber writes the frame shown at a timestamp to an image file
type Grabber interface {
	ExtractFrame(ctx context.Context, input string, at time.Duration, output string) error
}

// SampleOptions configures one sampling run
type SampleOptions struct {
	Video      string
	OutDir     string
	Interval   int     // seconds skipped between samples
	Offset     int     // frame index within each second
	ScaleRatio float64 // must be in (0, 1]
	Workers    int
	Quality    int // JPEG quality, 0 means DefaultQuality
}

// DefaultQuality is the JPEG quality of sampled frames
const DefaultQuality = 85

// Sampler pulls one frame per sampled second out of a video
type Sampler struct {
	logger  zerolog.Logger
	prober  Prober
	grabber Grabber
}

// NewSampler creates a frame sampler
func NewSampler(logger zerolog.Logger, prober Prober, grabber Grabber) *Sampler {
	return &Sampler{
		logger:  logger.With().Str("component", "frames").Logger(),
		prober:  prober,
		grabber: grabber,
	}
}

type sampleTask struct {
	second int
	frame  int
	at     time.Duration
	path   string
}

// Sample writes one downscaled JPEG per sampled second into OutDir and
// returns the frames ordered by (second, frame). Frames that fail to
// extract are logged and left out; an invalid request writes nothing.
func (s *Sampler) Sample(ctx context.Context, opts SampleOptions) ([]FrameSample, error) {
	const op = "frames.sample"

	if !(opts.ScaleRatio > 0 && opts.ScaleRatio <= 1) {
		return nil, errs.Errorf(errs.Invalid, op, "scale ratio must be in (0, 1], got %v", opts.ScaleRatio)
	}
	if opts.Interval < 0 || opts.Offset < 0 {
		return nil, errs.Errorf(errs.Invalid, op, "interval and offset must not be negative")
	}
	if _, err := os.Stat(opts.Video); err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Errorf(errs.NotFound, op, "no such video: %s", opts.Video)
		}
		return nil, errs.E(errs.Invalid, op, err)
	}

	info, err := s.prober.ProbeVideo(ctx, opts.Video)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", opts.Video, err)
	}

	fps := int(info.FPS)
	if fps <= 0 {
		return nil, errs.Errorf(errs.Invalid, op, "video reports no frame rate: %s", opts.Video)
	}

	tasks := planSamples(fps, info.FPS, info.FrameCount, opts.Interval, opts.Offset)
	if len(tasks) == 0 {
		s.logger.Warn().Str("video", opts.Video).Int("frames", info.FrameCount).Msg("video too short to sample")
		return nil, nil
	}

	if err := util.EnsureDir(opts.OutDir); err != nil {
		return nil, fmt.Errorf("failed to create frames dir: %w", err)
	}
	for i := range tasks {
		tasks[i].path = filepath.Join(opts.OutDir, FrameName(tasks[i].second, tasks[i].frame))
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	s.logger.Debug().
		Str("video", opts.Video).
		Int("fps", fps).
		Int("total_frames", info.FrameCount).
		Int("samples", len(tasks)).
		Float64("scale_ratio", opts.ScaleRatio).
		Msg("sampling frames")

	results := workpool.Map(ctx, opts.Workers, tasks, func(ctx context.Context, t sampleTask) (FrameSample, error) {
		return s.sampleOne(ctx, opts.Video, t, opts.ScaleRatio, quality)
	})

	samples := make([]FrameSample, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().
				Err(r.Err).
				Int("second", r.Input.second).
				Int("frame", r.Input.frame).
				Msg("frame sample failed, skipping")
			continue
		}
		samples = append(samples, r.Value)
	}

	SortSamples(samples)
	return samples, nil
}

func (s *Sampler) sampleOne(ctx context.Context, video string, t sampleTask, ratio float64, quality int) (FrameSample, error) {
	grab := t.path + ".grab.png"
	defer os.Remove(grab)

	if err := s.grabber.ExtractFrame(ctx, video, t.at, grab); err != nil {
		return FrameSample{}, err
	}

	img, err := LoadImage(grab)
	if err != nil {
		return FrameSample{}, err
	}

	img = Scale(img, ratio)
	if err := WriteJPEG(t.path, img, quality); err != nil {
		return FrameSample{}, err
	}

	return FrameSample{Second: t.second, Frame: t.frame, Path: t.path, ScaleRatio: ratio}, nil
}

// planSamples lists the target frame of every sampled second. fps is the
// integral frame rate used for indexing, rate the exact one used for seeking.
func planSamples(fps int, rate float64, total, interval, offset int) []sampleTask {
	if offset > fps-1 {
		offset = fps - 1
	}

	var tasks []sampleTask
	for second := 0; ; second++ {
		target := second*fps + offset
		if target >= total {
			break
		}
		if interval == 0 || second%(interval+1) == 0 {
			tasks = append(tasks, sampleTask{
				second: second,
				frame:  target,
				at:     FrameTime(target, rate),
			})
		}
	}
	return tasks
}

// FrameTime is a seek position that lands on frame n. It sits a quarter
// frame early so millisecond rounding never skips to frame n+1.
func FrameTime(n int, rate float64) time.Duration {
	if rate <= 0 || n <= 0 {
		return 0
	}
	sec := (float64(n) - 0.25) / rate
	return time.Duration(math.Max(sec, 0) * float64(time.Second))
}

// AutoScaleRatio picks a downscale ratio from the resolution: frames whose
// short side is under targetMin stay full size, others shrink toward
// targetMin but never below half, rounded up to a tenth.
func AutoScaleRatio(width, height, targetMin int) float64 {
	minDim := width
	if height < minDim {
		minDim = height
	}
	if minDim <= 0 || targetMin <= 0 || minDim < targetMin {
		return 1.0
	}

	ratio := math.Max(float64(targetMin)/float64(minDim), 0.5)
	ratio = math.Ceil(math.Round(ratio*1000)/100) / 10
	return math.Min(ratio, 1.0)
}
