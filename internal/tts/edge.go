package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/pkg/util"
	"github.com/rs/zerolog"
)

// Voice selects and shapes the synthesized voice
type Voice struct {
	Name   string
	Rate   string
	Pitch  string
	Volume string
}

// DefaultVoice matches edge-tts's neutral Mandarin preset
func DefaultVoice() Voice {
	return Voice{Name: "zh-CN-XiaoxiaoNeural", Rate: "+0%", Pitch: "+0Hz", Volume: "+0%"}
}

// EdgeSynthesizer drives the edge-tts command line tool
type EdgeSynthesizer struct {
	logger zerolog.Logger
	binary string
	voice  Voice
}

// NewEdge creates a synthesizer; binary defaults to edge-tts on PATH
func NewEdge(logger zerolog.Logger, binary string, voice Voice) *EdgeSynthesizer {
	if binary == "" {
		binary = "edge-tts"
	}
	def := DefaultVoice()
	if voice.Name == "" {
		voice.Name = def.Name
	}
	if voice.Rate == "" {
		voice.Rate = def.Rate
	}
	if voice.Pitch == "" {
		voice.Pitch = def.Pitch
	}
	if voice.Volume == "" {
		voice.Volume = def.Volume
	}
	return &EdgeSynthesizer{
		logger: logger.With().Str("component", "tts").Logger(),
		binary: binary,
		voice:  voice,
	}
}

// SubtitlePath is the subtitle file written next to an audio file
func SubtitlePath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".srt"
}

// Synthesize speaks text into audioPath and writes word timings as SRT next
// to it. It returns both paths.
func (s *EdgeSynthesizer) Synthesize(ctx context.Context, text, audioPath string) (string, string, error) {
	const op = "tts.synthesize"

	if strings.TrimSpace(text) == "" {
		return "", "", errs.Errorf(errs.Invalid, op, "nothing to say")
	}
	bin, err := exec.LookPath(s.binary)
	if err != nil {
		return "", "", errs.E(errs.MediaTool, op, fmt.Errorf("%s not found: %w", s.binary, err))
	}
	if err := util.EnsureDir(filepath.Dir(audioPath)); err != nil {
		return "", "", err
	}

	subtitlePath := SubtitlePath(audioPath)
	args := []string{
		"--voice", s.voice.Name,
		// values may start with '-', so they are joined to their flag
		"--rate=" + s.voice.Rate,
		"--pitch=" + s.voice.Pitch,
		"--volume=" + s.voice.Volume,
		"--text", text,
		"--write-media", audioPath,
		"--write-subtitles", subtitlePath,
	}

	s.logger.Debug().
		Str("voice", s.voice.Name).
		Int("chars", len([]rune(text))).
		Str("output", audioPath).
		Msg("synthesizing narration")

	start := time.Now()
	stderr := newTailBuffer(2048)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", "", errs.E(errs.MediaTool, op, fmt.Errorf("edge-tts failed: %w: %s", err, stderr.String()))
		}
		return "", "", errs.E(errs.MediaTool, op, err)
	}

	if !util.NonEmptyFile(audioPath) {
		os.Remove(audioPath)
		return "", "", errs.Errorf(errs.MediaTool, op, "edge-tts produced no audio: %s", stderr.String())
	}
	if !util.NonEmptyFile(subtitlePath) {
		subtitlePath = ""
	}

	s.logger.Debug().
		Dur("took", time.Since(start)).
		Str("output", audioPath).
		Msg("narration synthesized")

	return audioPath, subtitlePath, nil
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
