package describe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/frames"
	"github.com/kikiluvv/autoclip/internal/retry"
	"github.com/kikiluvv/autoclip/internal/scenes"
	"github.com/rs/zerolog"
)

// fakeService answers from the image bytes and sleeps a random amount so
// completions arrive out of order
type fakeService struct {
	mu        sync.Mutex
	calls     int
	fail      map[string]bool // payloads that always fail
	malformed map[string]int  // payloads that return an empty answer n times
	lastReq   Request
	noTags    bool
}

func (f *fakeService) Describe(ctx context.Context, req Request) (Description, error) {
	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

	key := string(req.Images[0])
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req

	if f.fail[key] {
		return Description{}, errs.E(errs.Invalid, "fake", errors.New("content rejected"))
	}
	if f.malformed[key] > 0 {
		f.malformed[key]--
		return Description{Desc: "  "}, nil
	}
	if f.noTags {
		return Description{Desc: "a batch"}, nil
	}
	return Description{Desc: "saw " + key, Tags: []string{"shared", key}}, nil
}

func writeFrames(t *testing.T, n int) []frames.FrameSample {
	t.Helper()
	dir := t.TempDir()
	samples := make([]frames.FrameSample, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, frames.FrameName(i, i*25+10))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("f%02d", i)), 0644); err != nil {
			t.Fatal(err)
		}
		samples[i] = frames.FrameSample{Second: i, Frame: i*25 + 10, Path: path}
	}
	return samples
}

func noDelay() retry.Policy {
	return retry.Policy{Attempts: 3}
}

func TestDescribeFramesOrderAndContainment(t *testing.T) {
	samples := writeFrames(t, 12)
	svc := &fakeService{fail: map[string]bool{"f03": true, "f07": true}}
	d := NewDescriber(zerolog.Nop(), svc, Config{Language: "en", Workers: 6, Retry: noDelay()})

	res, err := d.DescribeFrames(context.Background(), samples)
	if err != nil {
		t.Fatalf("DescribeFrames() error = %v", err)
	}
	if res.Analyzed != 10 || len(res.Frames) != 10 {
		t.Fatalf("analyzed %d frames, want 10", res.Analyzed)
	}
	for i := 1; i < len(res.Frames); i++ {
		if res.Frames[i-1].Second >= res.Frames[i].Second {
			t.Fatalf("frames out of order: %d before %d", res.Frames[i-1].Second, res.Frames[i].Second)
		}
	}
	if strings.Contains(res.Description, "f03") || !strings.HasPrefix(res.Description, "[0s] saw f00") {
		t.Errorf("description = %q", res.Description)
	}
	if res.Tags[0] != "shared" || len(res.Tags) != 11 {
		t.Errorf("tags = %v, want shared first plus 10 unique", res.Tags)
	}
}

func TestDescribeFramesPermutationInvariant(t *testing.T) {
	samples := writeFrames(t, 8)
	d := NewDescriber(zerolog.Nop(), &fakeService{}, Config{Workers: 8, Retry: noDelay()})

	want, err := d.DescribeFrames(context.Background(), samples)
	if err != nil {
		t.Fatal(err)
	}

	for round := 0; round < 5; round++ {
		shuffled := make([]frames.FrameSample, len(samples))
		copy(shuffled, samples)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := d.DescribeFrames(context.Background(), shuffled)
		if err != nil {
			t.Fatal(err)
		}
		if got.Description != want.Description || got.Analyzed != want.Analyzed {
			t.Fatalf("round %d: aggregate depends on input order", round)
		}
	}
}

func TestDescribeFramesRetriesMalformed(t *testing.T) {
	samples := writeFrames(t, 2)
	svc := &fakeService{malformed: map[string]int{"f01": 2}}
	d := NewDescriber(zerolog.Nop(), svc, Config{Workers: 1, Retry: noDelay()})

	res, err := d.DescribeFrames(context.Background(), samples)
	if err != nil {
		t.Fatalf("DescribeFrames() error = %v", err)
	}
	if res.Analyzed != 2 {
		t.Errorf("analyzed %d frames, want 2", res.Analyzed)
	}
	if svc.calls != 4 {
		t.Errorf("service called %d times, want 4", svc.calls)
	}
}

func TestDescribeFramesAllFail(t *testing.T) {
	samples := writeFrames(t, 2)
	svc := &fakeService{fail: map[string]bool{"f00": true, "f01": true}}
	d := NewDescriber(zerolog.Nop(), svc, Config{Retry: noDelay()})

	_, err := d.DescribeFrames(context.Background(), samples)
	if !errs.Is(err, errs.Invalid) {
		t.Errorf("DescribeFrames() error = %v, want the underlying invalid error", err)
	}
}

func writeImages(t *testing.T, n, w, h int) []frames.FrameSample {
	t.Helper()
	dir := t.TempDir()
	var samples []frames.FrameSample
	for i := n - 1; i >= 0; i-- {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for p := range img.Pix {
			img.Pix[p] = uint8(40 * i)
		}
		path := filepath.Join(dir, frames.FrameName(i, i*30))
		if err := frames.WriteJPEG(path, img, 90); err != nil {
			t.Fatal(err)
		}
		samples = append(samples, frames.FrameSample{Second: i, Frame: i * 30, Path: path})
	}
	return samples
}

func TestDescribeBatch(t *testing.T) {
	samples := writeImages(t, 3, 640, 360)
	svc := &fakeService{}
	d := NewDescriber(zerolog.Nop(), svc, Config{Language: "zh", Retry: noDelay()})

	res, err := d.DescribeBatch(context.Background(), samples)
	if err != nil {
		t.Fatalf("DescribeBatch() error = %v", err)
	}
	if svc.calls != 1 {
		t.Errorf("service called %d times, want 1", svc.calls)
	}
	if res.Analyzed != 3 || len(res.Frames) != 0 {
		t.Errorf("result = %+v", res)
	}

	req := svc.lastReq
	if len(req.Images) != 3 {
		t.Fatalf("request carries %d images, want 3", len(req.Images))
	}
	if req.Prompt != multiFrame["zh"] || req.Role != roleDesc["zh"] {
		t.Error("batch request should use the multi-frame prompt")
	}

	var lumas []float64
	for _, data := range req.Images {
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("image is not a JPEG: %v", err)
		}
		if img.Bounds().Dx() != 320 {
			t.Errorf("image width = %d, want 320", img.Bounds().Dx())
		}
		lumas = append(lumas, frames.MeanLuma(img))
	}
	// playback order: frames get brighter with time
	if !(lumas[0] < lumas[1] && lumas[1] < lumas[2]) {
		t.Errorf("images not in time order, lumas = %v", lumas)
	}
}

func TestDescribeBatchFallbackTags(t *testing.T) {
	samples := writeImages(t, 1, 100, 100)
	d := NewDescriber(zerolog.Nop(), &fakeService{noTags: true}, Config{Retry: noDelay()})

	res, err := d.DescribeBatch(context.Background(), samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tags) != 2 || res.Tags[0] != "video_frames" {
		t.Errorf("tags = %v, want fallback tags", res.Tags)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("FRAME"); err != nil || m != ModeFrame {
		t.Errorf("ParseMode(FRAME) = %v, %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != ModeBatch {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if _, err := ParseMode("video"); !errs.Is(err, errs.Invalid) {
		t.Errorf("ParseMode(video) error = %v", err)
	}
}

func TestNewDescriptorAndPromptJSON(t *testing.T) {
	seg := scenes.Segment{Index: 1, Start: 6, End: 12, Name: "scene_002.mp4", Path: "/w/scene_002.mp4"}
	desc := NewDescriptor(seg, 25, 150, &Result{Description: "a dog", Tags: []string{"dog"}, Analyzed: 6})

	if desc.Duration != 6 || desc.VideoName != "scene_002.mp4" || desc.AnalyzedFrames != 6 {
		t.Errorf("descriptor = %+v", desc)
	}

	framed := NewDescriptor(seg, 25, 150, aggregate([]FrameDescription{
		{Second: 0, Frame: 10, Desc: "a dog"},
		{Second: 2, Frame: 60, Desc: " a ball "},
	}))
	if framed.Description != "[6s] a dog\n[8s] a ball" {
		t.Errorf("description = %q, want labels on the source timeline", framed.Description)
	}
	if framed.Frames[0].Second != 0 {
		t.Errorf("frame seconds rewritten: %+v", framed.Frames)
	}

	out, err := PromptJSON([]SegmentDescriptor{desc})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"desc": "a dog"`) || strings.Contains(out, "video_path") {
		t.Errorf("prompt json = %s", out)
	}
}
