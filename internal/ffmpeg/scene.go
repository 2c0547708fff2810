package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/pkg/util"
)

// DetectScenes returns the timestamps where the picture changes by more
// than threshold, an ffmpeg scene score in (0, 1). Boundaries come out in
// playback order.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, errs.Errorf(errs.Invalid, "ffmpeg.scenes", "scene threshold %v outside (0, 1)", threshold)
	}

	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting scene changes")

	var boundaries []time.Duration
	err := e.Run(ctx, RunOptions{
		Args: []string{
			"-i", input,
			"-an",
			"-vf", fmt.Sprintf("select='gt(scene,%f)',showinfo", threshold),
			"-f", "null",
			"-",
		},
		Stage: "scenes",
		Lines: func(line string) {
			if at, ok := parseShowinfo(line); ok {
				boundaries = append(boundaries, at)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scene detection failed: %w", err)
	}

	e.logger.Info().Int("scenes", len(boundaries)).Msg("scene detection complete")
	return boundaries, nil
}

// parseShowinfo reads pts_time from one showinfo line
func parseShowinfo(line string) (time.Duration, bool) {
	if !strings.Contains(line, "showinfo") {
		return 0, false
	}
	_, after, ok := strings.Cut(line, "pts_time:")
	if !ok {
		return 0, false
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return util.Seconds(seconds), true
}

// ExtractFrame writes the frame shown at timestamp to output. The image
// format follows the output extension.
func (e *Executor) ExtractFrame(ctx context.Context, input string, timestamp time.Duration, output string) error {
	if input == "" {
		return errs.Errorf(errs.Invalid, "ffmpeg.frame", "input path is required")
	}
	if output == "" {
		return errs.Errorf(errs.Invalid, "ffmpeg.frame", "output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Dur("timestamp", timestamp).
		Msg("extracting frame")

	args := []string{
		"-ss", util.FormatDuration(timestamp),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2", // high quality JPEG
		output,
	}

	if err := e.Run(ctx, RunOptions{Args: args, Stage: "frame"}); err != nil {
		return fmt.Errorf("frame extraction failed: %w", err)
	}
	if !util.NonEmptyFile(output) {
		return errs.Errorf(errs.MediaTool, "ffmpeg.frame", "no frame at %s in %s", util.FormatDuration(timestamp), input)
	}
	return nil
}
