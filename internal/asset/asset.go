package asset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/ffmpeg"
)

// SupportedExtensions are the containers scene splitting accepts
var SupportedExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".webm"}

// Prober reads stream metadata from a media file
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// VideoAsset is a source video plus its content-derived identity
type VideoAsset struct {
	Path       string        `json:"path"`
	ID         string        `json:"id"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	FPS        float64       `json:"fps"`
	FrameCount int           `json:"frame_count"`
	Duration   time.Duration `json:"duration"`
}

// Identify hashes the file contents and probes its streams. The same bytes
// always yield the same ID regardless of where the file lives.
func Identify(ctx context.Context, prober Prober, path string) (*VideoAsset, error) {
	const op = "asset.identify"

	if path == "" {
		return nil, errs.Errorf(errs.Invalid, op, "video path is required")
	}
	if !Supported(path) {
		return nil, errs.Errorf(errs.Invalid, op, "unsupported video format %q", filepath.Ext(path))
	}

	id, err := ContentID(path)
	if err != nil {
		return nil, err
	}

	info, err := prober.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	return &VideoAsset{
		Path:       path,
		ID:         id,
		Width:      info.Width,
		Height:     info.Height,
		FPS:        info.FPS,
		FrameCount: info.FrameCount,
		Duration:   info.Duration,
	}, nil
}

// ContentID returns the xxhash64 of the file's bytes as 16 hex digits
func ContentID(path string) (string, error) {
	const op = "asset.content_id"

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errs.Errorf(errs.NotFound, op, "no such file: %s", path)
		}
		return "", errs.E(errs.Invalid, op, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errs.E(errs.Invalid, op, err)
	}
	if info.IsDir() {
		return "", errs.Errorf(errs.Invalid, op, "%s is a directory", path)
	}

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Supported reports whether the path has a known video extension
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
