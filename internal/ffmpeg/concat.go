package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kikiluvv/autoclip/internal/errs"
)

// ConcatOptions lists the files to join, in playback order
type ConcatOptions struct {
	Inputs []string
	Output string
}

// Concat joins inputs that share one encoding with the concat demuxer and
// a stream copy. The list file is written next to the output.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	const op = "ffmpeg.concat"

	if len(opts.Inputs) == 0 {
		return errs.Errorf(errs.Invalid, op, "no input files provided")
	}
	if opts.Output == "" {
		return errs.Errorf(errs.Invalid, op, "output path is required")
	}

	list, err := writeConcatList(filepath.Dir(opts.Output), opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(list)

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("joining clips")

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		"-movflags", "+faststart",
		opts.Output,
	}
	if err := e.Run(ctx, RunOptions{Args: args, Stage: "concat"}); err != nil {
		return fmt.Errorf("failed to join clips: %w", err)
	}
	return nil
}

// writeConcatList writes the demuxer's file list with absolute paths
func writeConcatList(dir string, inputs []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".concat-*.txt")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(abs))
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// escapeConcatPath quotes a single quote for the concat demuxer list syntax
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
