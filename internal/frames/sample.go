package frames

import (
	"fmt"
	"path/filepath"
	"slices"
)

// FrameSample is one extracted frame. Second and Frame are its order key.
// ScaleRatio is the downscale applied before the JPEG was written.
type FrameSample struct {
	Second     int     `json:"second"`
	Frame      int     `json:"frame"`
	Path       string  `json:"file"`
	ScaleRatio float64 `json:"scale_ratio"`
}

// FrameName is the on-disk name of a sampled frame
func FrameName(second, frame int) string {
	return fmt.Sprintf("sec_%04d_frame_%06d.jpg", second, frame)
}

// ParseFrameName recovers (second, frame) from a sampled frame's file name
func ParseFrameName(name string) (second, frame int, ok bool) {
	var s, f int
	n, err := fmt.Sscanf(filepath.Base(name), "sec_%04d_frame_%06d.jpg", &s, &f)
	if err != nil || n != 2 {
		return 0, 0, false
	}
	if FrameName(s, f) != filepath.Base(name) {
		return 0, 0, false
	}
	return s, f, true
}

// Compare orders samples by second, then frame index
func Compare(a, b FrameSample) int {
	if a.Second != b.Second {
		return a.Second - b.Second
	}
	return a.Frame - b.Frame
}

// SortSamples sorts in place by (second, frame)
func SortSamples(samples []FrameSample) {
	slices.SortFunc(samples, Compare)
}
