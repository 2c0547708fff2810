package ffmpeg

import (
	"context"
	"fmt"

	"github.com/kikiluvv/autoclip/internal/errs"
)

// MergeOptions describes one narrated clip
type MergeOptions struct {
	Video      string
	Audio      string // narration track; empty means a silent track is generated
	Subtitles  string // optional .srt burned into the picture
	ScreenText string // optional caption drawn on the picture
	Output     string
	CRF        int
	Preset     string
}

// MergeNarration lays the narration over the video and encodes the result
// with the default codecs. The output always has exactly one video and one
// audio stream and always ends with the video; narration is padded with
// silence or cut to fit.
func (e *Executor) MergeNarration(ctx context.Context, opts MergeOptions) error {
	if opts.Video == "" {
		return errs.Errorf(errs.Invalid, "ffmpeg.merge", "video path is required")
	}
	if opts.Output == "" {
		return errs.Errorf(errs.Invalid, "ffmpeg.merge", "output path is required")
	}

	e.logger.Info().
		Str("video", opts.Video).
		Str("audio", opts.Audio).
		Str("output", opts.Output).
		Msg("merging narration")

	args := []string{"-i", opts.Video}
	if opts.Audio != "" {
		args = append(args, "-i", opts.Audio)
	} else {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", sampleRate),
		)
	}

	args = append(args, "-map", "0:v:0", "-map", "1:a:0")

	vf := NewFilterBuilder().
		Subtitles(opts.Subtitles).
		DrawText(opts.ScreenText, 0).
		Build()
	if vf != "" {
		args = append(args, "-vf", vf)
	}
	if opts.Audio != "" {
		args = append(args, "-af", "apad")
	}

	args = append(args, Encoding{CRF: opts.CRF, Preset: opts.Preset}.videoArgs()...)
	args = append(args, audioArgs()...)
	args = append(args, "-shortest", opts.Output)

	if err := e.Run(ctx, RunOptions{Args: args, Stage: "merge"}); err != nil {
		return fmt.Errorf("narration merge failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("narration merge completed")
	return nil
}
