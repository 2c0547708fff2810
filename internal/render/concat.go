package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kikiluvv/autoclip/internal/clips"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
	"github.com/kikiluvv/autoclip/pkg/util"
	"github.com/rs/zerolog"
)

// Concatenator joins rendered clips into the final video
type Concatenator struct {
	logger zerolog.Logger
	media  Transcoder
}

// NewConcatenator creates a concatenator
func NewConcatenator(logger zerolog.Logger, media Transcoder) *Concatenator {
	return &Concatenator{
		logger: logger.With().Str("component", "concat").Logger(),
		media:  media,
	}
}

// Concat stream-copies the successful clips, in script order, into output.
// It returns the number of clips joined. On failure no output file is left
// behind.
func (c *Concatenator) Concat(ctx context.Context, rendered []clips.Rendered, output string) (int, error) {
	const op = "render.concat"

	ok := clips.Successful(rendered)
	if len(ok) == 0 {
		return 0, errs.Errorf(errs.Invalid, op, "no rendered clips to join")
	}

	inputs := make([]string, len(ok))
	for i, r := range ok {
		inputs[i] = r.Path
	}

	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	c.logger.Info().
		Int("clips", len(inputs)).
		Int("skipped", len(rendered)-len(inputs)).
		Str("output", output).
		Msg("joining clips")

	err := c.media.Concat(ctx, ffmpeg.ConcatOptions{Inputs: inputs, Output: output})
	if err == nil && !util.NonEmptyFile(output) {
		err = errs.Errorf(errs.MediaTool, op, "concat produced no output")
	}
	if err != nil {
		os.Remove(output)
		return 0, fmt.Errorf("failed to join clips: %w", err)
	}

	return len(inputs), nil
}
