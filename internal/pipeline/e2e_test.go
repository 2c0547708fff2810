package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kikiluvv/autoclip/internal/describe"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
	"github.com/kikiluvv/autoclip/internal/frames"
	"github.com/kikiluvv/autoclip/internal/perspective"
	"github.com/kikiluvv/autoclip/internal/render"
	"github.com/kikiluvv/autoclip/internal/retry"
	"github.com/kikiluvv/autoclip/internal/scenes"
	"github.com/kikiluvv/autoclip/internal/script"
	"github.com/rs/zerolog"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

func ffmpegRun(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg %v: %v\n%s", args, err, b)
	}
}

// countingFailer rejects the nth calls it receives, whatever frame they carry
type countingFailer struct {
	mu    sync.Mutex
	calls int
	fail  map[int]bool
}

func (f *countingFailer) Describe(ctx context.Context, req describe.Request) (describe.Description, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.fail[n] {
		return describe.Description{}, errs.Errorf(errs.Invalid, "fake.describe", "call %d rejected", n)
	}
	return describe.Description{Desc: fmt.Sprintf("frame %d", n), Tags: []string{"synthetic"}}, nil
}

type staticGenerator string

func (g staticGenerator) Generate(ctx context.Context, req script.GenerateRequest) (string, error) {
	return string(g), nil
}

// toneTTS writes a short sine tone in place of speech
type toneTTS struct{}

func (s toneTTS) Synthesize(ctx context.Context, text, audioPath string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1", "-c:a", "aac", "-f", "adts", audioPath)
	if b, err := cmd.CombinedOutput(); err != nil {
		return "", "", fmt.Errorf("tone: %v: %s", err, b)
	}
	return audioPath, "", nil
}

func meanRGB(img image.Image) (r, g, b float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			r += float64(pr >> 8)
			g += float64(pg >> 8)
			b += float64(pb >> 8)
		}
	}
	return r / n, g / n, b / n
}

// TestScenarioTwelveSeconds runs every stage against real media: a 12s
// video whose picture changes at 6s, per-frame description with two
// rejected frames, and a script that plays the later scene first.
func TestScenarioTwelveSeconds(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "source.mp4")
	ffmpegRun(t,
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=25:duration=6",
		"-f", "lavfi", "-i", "color=c=red:size=320x240:rate=25:duration=6",
		"-filter_complex", "[0:v][1:v]concat=n=2:v=1:a=0[v]", "-map", "[v]",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", src)

	logger := zerolog.Nop()
	ex, err := ffmpeg.New(logger, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// segments
	segs, err := scenes.NewExtractor(logger, ex, scenes.Config{Threshold: 0.3, MinLength: time.Second}).
		Extract(ctx, src, filepath.Join(dir, "segments"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(segs) != 2 || math.Abs(segs[1].Start-6) > 0.5 {
		t.Fatalf("segments = %+v, want a boundary near 6s", segs)
	}

	// frames
	samples, err := frames.NewSampler(logger, ex, ex).Sample(ctx, frames.SampleOptions{
		Video:      src,
		OutDir:     filepath.Join(dir, "frames"),
		Offset:     10,
		ScaleRatio: 0.5,
		Workers:    4,
	})
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(samples) != 12 {
		t.Fatalf("sampled %d frames, want 12", len(samples))
	}
	for i, s := range samples {
		if want := frames.FrameName(i, i*25+10); filepath.Base(s.Path) != want {
			t.Errorf("frame %d = %s, want %s", i, filepath.Base(s.Path), want)
		}
	}

	// descriptor
	svc := &countingFailer{fail: map[int]bool{3: true, 8: true}}
	res, err := describe.NewDescriber(logger, svc, describe.Config{Language: "en", Workers: 4, Retry: retry.Policy{Attempts: 3}}).
		Describe(ctx, describe.ModeFrame, samples)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if res.Analyzed != 10 {
		t.Fatalf("analyzed %d frames, want 10", res.Analyzed)
	}
	whole := scenes.Segment{Start: 0, End: 12, Name: "source.mp4", Path: src}
	descriptor := describe.NewDescriptor(whole, 25, 300, res)

	// script
	reply := `[
		{"start": 8, "end": 10, "screen_text": "red", "narration": "the red part"},
		{"start": 1, "end": 3, "screen_text": "pattern", "narration": ""},
		{"start": 4, "end": 5, "screen_text": "", "narration": ""}
	]`
	sc, err := script.NewComposer(logger, staticGenerator(reply), retry.Policy{Attempts: 1}).Compose(ctx, script.ComposeInput{
		Descriptors: []describe.SegmentDescriptor{descriptor},
		Perspective: perspective.Default,
		Language:    "en",
		Duration:    12,
		CacheDir:    dir,
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	for _, c := range sc.Clips {
		if c.Start < 0 || c.End > 12 || c.Start >= c.End {
			t.Errorf("clip outside [0,12]: %+v", c)
		}
	}

	// render
	rendered, err := render.NewRenderer(logger, toneTTS{}, ex, render.Config{Workers: 2, Preset: "ultrafast"}).
		Render(ctx, src, sc, filepath.Join(dir, "work"))
	if err != nil {
		t.Fatal(err)
	}
	for _, rc := range rendered {
		if !rc.OK() {
			t.Fatalf("clip %d failed: %v", rc.Index, rc.Err)
		}
	}

	// concat
	out := filepath.Join(dir, "out", "final.mp4")
	n, err := render.NewConcatenator(logger, ex).Concat(ctx, rendered, out)
	if err != nil {
		t.Fatalf("Concat() error = %v", err)
	}
	if n != len(sc.Clips) {
		t.Errorf("joined %d clips, want %d", n, len(sc.Clips))
	}

	info, err := ex.ProbeVideo(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(info.Duration.Seconds()-5) > 0.5 {
		t.Errorf("output duration = %v, want about 5s", info.Duration)
	}

	// the red scene was scripted first
	probe := func(at time.Duration) (float64, float64) {
		path := filepath.Join(dir, fmt.Sprintf("probe_%d.png", at.Milliseconds()))
		if err := ex.ExtractFrame(ctx, out, at, path); err != nil {
			t.Fatal(err)
		}
		img, err := frames.LoadImage(path)
		if err != nil {
			t.Fatal(err)
		}
		r, g, _ := meanRGB(img)
		return r, g
	}
	if r, g := probe(500 * time.Millisecond); r < 150 || g > 60 {
		t.Errorf("first clip is not the red scene: r=%.0f g=%.0f", r, g)
	}
	if _, g := probe(2500 * time.Millisecond); g < 60 {
		t.Errorf("second clip is not the test pattern: g=%.0f", g)
	}
}
