package describe

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/frames"
	"github.com/kikiluvv/autoclip/internal/retry"
	"github.com/kikiluvv/autoclip/internal/workpool"
	"github.com/rs/zerolog"
)

// Mode selects how a segment's frames are submitted for description
type Mode string

const (
	ModeFrame Mode = "frame"
	ModeBatch Mode = "batch"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeFrame:
		return ModeFrame, nil
	case ModeBatch, "":
		return ModeBatch, nil
	}
	return "", errs.Errorf(errs.Invalid, "describe.mode", "unknown describe mode %q (want frame or batch)", s)
}

// Request is one call to the understanding service
type Request struct {
	Images [][]byte // JPEG bytes in playback order
	Prompt string
	Role   string
}

// Description is the understanding service's answer
type Description struct {
	Desc string   `json:"desc"`
	Tags []string `json:"tag"`
}

func (d Description) validate() error {
	if strings.TrimSpace(d.Desc) == "" {
		return errs.Errorf(errs.Malformed, "describe.response", "response has no description")
	}
	return nil
}

// Understanding describes one image or an ordered set of images
type Understanding interface {
	Describe(ctx context.Context, req Request) (Description, error)
}

// FrameDescription is the per-frame answer kept in a descriptor
type FrameDescription struct {
	Second int      `json:"second"`
	Frame  int      `json:"frame"`
	File   string   `json:"file"`
	Desc   string   `json:"desc"`
	Tags   []string `json:"tag"`
}

// Result is the aggregated description of one frame set
type Result struct {
	Description string
	Tags        []string
	Analyzed    int
	Frames      []FrameDescription
}

// batchFallbackTags stand in when a batch answer carries no tags
var batchFallbackTags = []string{"video_frames", "base64_encoded"}

// Config tunes the describer
type Config struct {
	Language     string
	Workers      int
	BatchWidth   int
	BatchQuality int
	Retry        retry.Policy
}

// Describer turns sampled frames into text through an Understanding service
type Describer struct {
	logger zerolog.Logger
	svc    Understanding
	cfg    Config
}

// NewDescriber creates a content describer
func NewDescriber(logger zerolog.Logger, svc Understanding, cfg Config) *Describer {
	if cfg.Workers < 1 {
		cfg.Workers = 6
	}
	if cfg.BatchWidth <= 0 {
		cfg.BatchWidth = 320
	}
	if cfg.BatchQuality <= 0 {
		cfg.BatchQuality = 70
	}
	d := &Describer{
		logger: logger.With().Str("component", "describe").Logger(),
		svc:    svc,
		cfg:    cfg,
	}
	d.cfg.Retry.Logger = &d.logger
	return d
}

// Describe runs the given mode over samples
func (d *Describer) Describe(ctx context.Context, mode Mode, samples []frames.FrameSample) (*Result, error) {
	if mode == ModeFrame {
		return d.DescribeFrames(ctx, samples)
	}
	return d.DescribeBatch(ctx, samples)
}

// DescribeFrames describes every frame on its own. Failed frames are logged
// and left out; only a set where nothing succeeds is an error.
func (d *Describer) DescribeFrames(ctx context.Context, samples []frames.FrameSample) (*Result, error) {
	const op = "describe.frames"
	if len(samples) == 0 {
		return nil, errs.Errorf(errs.Invalid, op, "no frames to describe")
	}

	role := prompt(roleDesc, d.cfg.Language)
	instruction := prompt(oneFrame, d.cfg.Language)

	results := workpool.Map(ctx, d.cfg.Workers, samples, func(ctx context.Context, fs frames.FrameSample) (Description, error) {
		data, err := os.ReadFile(fs.Path)
		if err != nil {
			return Description{}, errs.E(errs.NotFound, op, err)
		}
		return retry.Value(ctx, d.cfg.Retry, op, func(ctx context.Context) (Description, error) {
			desc, err := d.svc.Describe(ctx, Request{Images: [][]byte{data}, Prompt: instruction, Role: role})
			if err != nil {
				return Description{}, err
			}
			return desc, desc.validate()
		})
	})

	var described []FrameDescription
	var firstErr error
	for _, r := range results {
		if !r.OK() {
			if firstErr == nil {
				firstErr = r.Err
			}
			d.logger.Error().
				Err(r.Err).
				Int("second", r.Input.Second).
				Int("frame", r.Input.Frame).
				Msg("frame description failed, skipping")
			continue
		}
		described = append(described, FrameDescription{
			Second: r.Input.Second,
			Frame:  r.Input.Frame,
			File:   r.Input.Path,
			Desc:   r.Value.Desc,
			Tags:   r.Value.Tags,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(described) == 0 {
		return nil, fmt.Errorf("all %d frame descriptions failed: %w", len(samples), firstErr)
	}

	sortDescriptions(described)

	d.logger.Info().
		Int("frames", len(samples)).
		Int("analyzed", len(described)).
		Msg("frame descriptions complete")

	return aggregate(described), nil
}

// DescribeBatch submits every frame of the set as one ordered request.
// Any failure fails the whole set.
func (d *Describer) DescribeBatch(ctx context.Context, samples []frames.FrameSample) (*Result, error) {
	const op = "describe.batch"
	if len(samples) == 0 {
		return nil, errs.Errorf(errs.Invalid, op, "no frames to describe")
	}

	ordered := make([]frames.FrameSample, len(samples))
	copy(ordered, samples)
	frames.SortSamples(ordered)

	images := make([][]byte, 0, len(ordered))
	for _, fs := range ordered {
		img, err := frames.LoadImage(fs.Path)
		if err != nil {
			d.logger.Warn().Err(err).Str("file", fs.Path).Msg("unreadable frame left out of batch")
			continue
		}
		data, err := frames.EncodeJPEG(frames.FitWidth(img, d.cfg.BatchWidth), d.cfg.BatchQuality)
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		return nil, errs.Errorf(errs.NotFound, op, "none of %d frames could be read", len(samples))
	}

	d.logger.Debug().
		Int("images", len(images)).
		Int("first_kb", len(images[0])/1024).
		Msg("submitting frame batch")

	desc, err := retry.Value(ctx, d.cfg.Retry, op, func(ctx context.Context) (Description, error) {
		desc, err := d.svc.Describe(ctx, Request{
			Images: images,
			Prompt: prompt(multiFrame, d.cfg.Language),
			Role:   prompt(roleDesc, d.cfg.Language),
		})
		if err != nil {
			return Description{}, err
		}
		return desc, desc.validate()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe frame batch: %w", err)
	}

	tags := dedupe(desc.Tags)
	if len(tags) == 0 {
		tags = append([]string(nil), batchFallbackTags...)
	}

	return &Result{
		Description: strings.TrimSpace(desc.Desc),
		Tags:        tags,
		Analyzed:    len(images),
	}, nil
}

// aggregate folds ordered frame answers into one description
func aggregate(described []FrameDescription) *Result {
	var tags []string
	for _, fd := range described {
		tags = append(tags, fd.Tags...)
	}
	return &Result{
		Description: Timeline(described, 0),
		Tags:        dedupe(tags),
		Analyzed:    len(described),
		Frames:      described,
	}
}

// Timeline joins frame answers one per line, each labelled with its second
// counted from offset
func Timeline(described []FrameDescription, offset float64) string {
	base := int(math.Floor(offset))
	var b strings.Builder
	for i, fd := range described {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%ds] %s", base+fd.Second, strings.TrimSpace(fd.Desc))
	}
	return b.String()
}

func sortDescriptions(described []FrameDescription) {
	slices.SortFunc(described, func(a, b FrameDescription) int {
		return frames.Compare(
			frames.FrameSample{Second: a.Second, Frame: a.Frame},
			frames.FrameSample{Second: b.Second, Frame: b.Frame},
		)
	})
}

// dedupe keeps the first occurrence of each non-blank tag
func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
