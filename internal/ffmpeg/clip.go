package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/pkg/util"
)

// ClipOptions describes one cut
type ClipOptions struct {
	Start  time.Duration
	End    time.Duration
	Output string
	CRF    int
	Preset string
}

// ExtractClip re-encodes [Start, End) of input into Output. Seeking happens
// on the input side and the cut is frame accurate because nothing is
// stream-copied. A missing audio track is tolerated.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	const op = "ffmpeg.clip"

	length := opts.End - opts.Start
	if opts.Start < 0 || length <= 0 {
		return errs.Errorf(errs.Invalid, op, "invalid cut [%s, %s)", util.FormatDuration(opts.Start), util.FormatDuration(opts.End))
	}
	if opts.Output == "" {
		return errs.Errorf(errs.Invalid, op, "output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("length", length).
		Msg("cutting clip")

	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(length),
		"-map", "0:v:0",
		"-map", "0:a:0?",
	}
	args = append(args, Encoding{CRF: opts.CRF, Preset: opts.Preset}.videoArgs()...)
	args = append(args, audioArgs()...)
	args = append(args, "-avoid_negative_ts", "make_zero", opts.Output)

	if err := e.Run(ctx, RunOptions{Args: args, Stage: "cut"}); err != nil {
		return fmt.Errorf("failed to cut clip: %w", err)
	}
	if !util.NonEmptyFile(opts.Output) {
		return errs.Errorf(errs.MediaTool, op, "cut produced no output for %s", opts.Output)
	}
	return nil
}
