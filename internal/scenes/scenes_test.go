package scenes

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
	"github.com/kikiluvv/autoclip/pkg/util"
	"github.com/rs/zerolog"
)

// fakeMedia cuts "clips" as small text files and renders frames as solid PNGs
type fakeMedia struct {
	duration time.Duration
	cuts     []time.Duration
	black    map[string]bool // clip base names rendered black
	failCut  map[string]bool
	cutCalls int
}

func (m *fakeMedia) ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	return &ffmpeg.VideoInfo{Duration: m.duration, FPS: 25, Width: 64, Height: 48}, nil
}

func (m *fakeMedia) DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error) {
	return m.cuts, nil
}

func (m *fakeMedia) ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error {
	m.cutCalls++
	if m.failCut[filepath.Base(opts.Output)] {
		return errs.E(errs.MediaTool, "fake", errors.New("encoder exploded"))
	}
	return os.WriteFile(opts.Output, []byte(opts.Start.String()+"-"+opts.End.String()), 0644)
}

func (m *fakeMedia) ExtractFrame(ctx context.Context, input string, at time.Duration, output string) error {
	c := color.RGBA{R: 90, G: 160, B: 220, A: 255}
	if m.black[filepath.Base(input)] {
		c = color.RGBA{R: 4, G: 4, B: 4, A: 255}
	}
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(output, buf.Bytes(), 0644)
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildRanges(t *testing.T) {
	s := time.Second
	tests := []struct {
		name   string
		cuts   []time.Duration
		total  time.Duration
		minLen time.Duration
		want   []Range
	}{
		{
			name:  "no cuts covers whole video",
			total: 12 * s,
			want:  []Range{{0, 12 * s}},
		},
		{
			name:  "unsorted cuts with duplicates",
			cuts:  []time.Duration{8 * s, 4 * s, 4 * s},
			total: 12 * s,
			want:  []Range{{0, 4 * s}, {4 * s, 8 * s}, {8 * s, 12 * s}},
		},
		{
			name:  "cuts outside the video are ignored",
			cuts:  []time.Duration{0, 6 * s, 12 * s, 15 * s},
			total: 12 * s,
			want:  []Range{{0, 6 * s}, {6 * s, 12 * s}},
		},
		{
			name:   "short trailing range folds into predecessor",
			cuts:   []time.Duration{4 * s, 11500 * time.Millisecond},
			total:  12 * s,
			minLen: s,
			want:   []Range{{0, 4 * s}, {4 * s, 12 * s}},
		},
		{
			name:   "short leading range absorbs successor",
			cuts:   []time.Duration{500 * time.Millisecond, 4 * s, 8 * s},
			total:  12 * s,
			minLen: s,
			want:   []Range{{0, 4 * s}, {4 * s, 8 * s}, {8 * s, 12 * s}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRanges(tt.cuts, tt.total, tt.minLen)
			if len(got) != len(tt.want) {
				t.Fatalf("BuildRanges() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("range %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}

	if got := BuildRanges(nil, 0, 0); got != nil {
		t.Errorf("zero-length video ranges = %v, want nil", got)
	}
}

func TestExtractSegments(t *testing.T) {
	media := &fakeMedia{
		duration: 12 * time.Second,
		cuts:     []time.Duration{4 * time.Second, 8 * time.Second},
	}
	x := NewExtractor(zerolog.Nop(), media, Config{Threshold: 0.3, MinLength: time.Second})
	out := filepath.Join(t.TempDir(), "scenes")

	segments, err := x.Extract(context.Background(), writeVideo(t), out)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}

	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d index = %d", i, seg.Index)
		}
		if seg.Start != float64(i*4) || seg.End != float64(i*4+4) {
			t.Errorf("segment %d span = [%v, %v)", i, seg.Start, seg.End)
		}
		if !util.FileExists(seg.Path) {
			t.Errorf("segment file %s missing", seg.Path)
		}
	}

	var timeline []Segment
	ok, err := util.ReadJSON(filepath.Join(out, TimelineFile), &timeline)
	if err != nil || !ok {
		t.Fatalf("timeline not written: ok=%v err=%v", ok, err)
	}
	if len(timeline) != 3 {
		t.Errorf("timeline holds %d segments, want 3", len(timeline))
	}

	// validation grabs must not be left behind
	entries, _ := os.ReadDir(out)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			t.Errorf("leftover validation frame %s", e.Name())
		}
	}
}

func TestExtractDropsBlackSegments(t *testing.T) {
	media := &fakeMedia{
		duration: 12 * time.Second,
		cuts:     []time.Duration{4 * time.Second, 8 * time.Second},
		black:    map[string]bool{"scene_002.mp4": true},
	}
	x := NewExtractor(zerolog.Nop(), media, Config{})
	out := t.TempDir()

	segments, err := x.Extract(context.Background(), writeVideo(t), out)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Name != "scene_001.mp4" || segments[1].Name != "scene_003.mp4" {
		t.Errorf("segments = %s, %s", segments[0].Name, segments[1].Name)
	}
	if segments[1].Index != 1 {
		t.Errorf("surviving segment index = %d, want 1", segments[1].Index)
	}
	if util.FileExists(filepath.Join(out, "scene_002.mp4")) {
		t.Error("black segment file should be removed")
	}
}

func TestExtractAllScenesBlack(t *testing.T) {
	media := &fakeMedia{
		duration: 12 * time.Second,
		cuts:     []time.Duration{6 * time.Second},
		black:    map[string]bool{"scene_001.mp4": true, "scene_002.mp4": true},
	}
	x := NewExtractor(zerolog.Nop(), media, Config{})

	segments, err := x.Extract(context.Background(), writeVideo(t), t.TempDir())
	if !errs.Is(err, errs.Invalid) {
		t.Fatalf("Extract() error = %v, want invalid", err)
	}
	if len(segments) != 0 {
		t.Errorf("got %d segments, want none", len(segments))
	}

	media.black = map[string]bool{"scene_002.mp4": true}
	media.failCut = map[string]bool{"scene_001.mp4": true}
	if _, err := x.Extract(context.Background(), writeVideo(t), t.TempDir()); !errs.Is(err, errs.Invalid) {
		t.Errorf("black plus failed cut: error = %v, want invalid", err)
	}
}

func TestExtractNoBoundaries(t *testing.T) {
	media := &fakeMedia{duration: 12 * time.Second}
	x := NewExtractor(zerolog.Nop(), media, Config{})

	segments, err := x.Extract(context.Background(), writeVideo(t), t.TempDir())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("got %d segments, want none", len(segments))
	}
	if media.cutCalls != 0 {
		t.Errorf("ExtractClip called %d times", media.cutCalls)
	}
}

func TestExtractPartialCutFailure(t *testing.T) {
	media := &fakeMedia{
		duration: 12 * time.Second,
		cuts:     []time.Duration{6 * time.Second},
		failCut:  map[string]bool{"scene_001.mp4": true},
	}
	x := NewExtractor(zerolog.Nop(), media, Config{})

	segments, err := x.Extract(context.Background(), writeVideo(t), t.TempDir())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(segments) != 1 || segments[0].Name != "scene_002.mp4" {
		t.Errorf("segments = %+v", segments)
	}

	media.failCut["scene_002.mp4"] = true
	_, err = x.Extract(context.Background(), writeVideo(t), t.TempDir())
	if !errs.Is(err, errs.MediaTool) {
		t.Errorf("all cuts failing: error = %v, want media tool failure", err)
	}
}

func TestExtractMissingVideo(t *testing.T) {
	x := NewExtractor(zerolog.Nop(), &fakeMedia{duration: time.Second}, Config{})
	_, err := x.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), t.TempDir())
	if !errs.Is(err, errs.NotFound) {
		t.Errorf("Extract() error = %v, want not found", err)
	}
}
