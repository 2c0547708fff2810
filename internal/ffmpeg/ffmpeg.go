package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/rs/zerolog"
)

// stderrTailLines is how much ffmpeg output is kept for error messages
const stderrTailLines = 12

// Executor runs ffmpeg and ffprobe for every media stage
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, threads int) (*Executor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, errs.E(errs.MediaTool, "ffmpeg.new", fmt.Errorf("ffmpeg not found in PATH: %w", err))
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, errs.E(errs.MediaTool, "ffmpeg.new", fmt.Errorf("ffprobe not found in PATH: %w", err))
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}, nil
}

// Run executes ffmpeg with the given arguments. Progress blocks are logged
// at trace level; other stderr lines go to opts.Lines and the last few are
// kept for the error. A non-zero exit is a media tool failure.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return errs.Errorf(errs.Invalid, "ffmpeg.run", "no arguments provided")
	}

	stage := opts.Stage
	if stage == "" {
		stage = "run"
	}
	logger := e.logger.With().Str("stage", stage).Logger()

	// global options go before the inputs
	args := []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "info"}
	if e.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.threads))
	}
	args = append(args, "-progress", "pipe:2")
	args = append(args, opts.Args...)

	logger.Debug().Strs("args", args).Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return errs.E(errs.MediaTool, "ffmpeg.run", fmt.Errorf("failed to start ffmpeg: %w", err))
	}

	tail := newTail(stderrTailLines)
	e.streamOutput(stderr, tail, func(p progress) {
		logger.Trace().Int("frame", p.frame).Str("out_time", p.outTime).Str("speed", p.speed).Msg("progress")
	}, opts.Lines)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errs.E(errs.MediaTool, "ffmpeg.run", fmt.Errorf("ffmpeg %s failed: %w: %s", stage, err, tail.String()))
	}

	logger.Debug().Msg("ffmpeg finished")
	return nil
}

// streamOutput splits ffmpeg's stderr into progress blocks and log lines
func (e *Executor) streamOutput(r io.Reader, tail *lineTail, onProgress func(progress), onLine func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var p progress

	for scanner.Scan() {
		line := scanner.Text()

		key, value, isKV := strings.Cut(line, "=")
		if !isKV || strings.Contains(key, " ") {
			tail.add(line)
			if onLine != nil {
				onLine(line)
			}
			continue
		}

		value = strings.TrimSpace(value)
		switch key {
		case "frame":
			p.frame, _ = strconv.Atoi(value)
		case "out_time":
			p.outTime = value
		case "speed":
			p.speed = value
		case "progress":
			if onProgress != nil {
				onProgress(p)
			}
			p = progress{}
		}
	}
}

// lineTail keeps the last n non-progress lines
type lineTail struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func newTail(n int) *lineTail {
	return &lineTail{n: n}
}

func (t *lineTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

// isExitError reports whether err came from the process exiting non-zero
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
