package frames

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/nfnt/resize"
)

// LoadImage decodes a JPEG or PNG file
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Errorf(errs.NotFound, "frames.load", "no such image: %s", path)
		}
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errs.E(errs.MediaTool, "frames.load", fmt.Errorf("failed to decode image: %w", err))
	}
	return img, nil
}

// Scale shrinks img by ratio; ratios of 1 or more return img unchanged
func Scale(img image.Image, ratio float64) image.Image {
	if ratio >= 1 || ratio <= 0 {
		return img
	}
	b := img.Bounds()
	w := uint(float64(b.Dx()) * ratio)
	h := uint(float64(b.Dy()) * ratio)
	if w == 0 || h == 0 {
		return img
	}
	return resize.Resize(w, h, img, resize.Lanczos3)
}

// FitWidth shrinks img to width, keeping the aspect ratio. Narrower
// images are returned unchanged.
func FitWidth(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() <= width {
		return img
	}
	return resize.Resize(uint(width), 0, img, resize.Bilinear)
}

// WriteJPEG encodes img to path
func WriteJPEG(path string, img image.Image, quality int) error {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EncodeJPEG encodes img in memory
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
