package frames

import "image"

// DefaultBlackThreshold is the mean gray level under which a frame counts as black
const DefaultBlackThreshold = 30

// MeanLuma returns the average BT.601 luminance of img on a 0-255 scale
func MeanLuma(img image.Image) float64 {
	bounds := img.Bounds()
	pixels := float64(bounds.Dx() * bounds.Dy())
	if pixels == 0 {
		return 0
	}

	// decoded JPEGs already carry luma in the Y plane
	if ycc, ok := img.(*image.YCbCr); ok {
		var sum float64
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := ycc.Y[(y-ycc.Rect.Min.Y)*ycc.YStride:]
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				sum += float64(row[x-ycc.Rect.Min.X])
			}
		}
		return sum / pixels
	}

	var lumSum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Luminance formula
			lumSum += 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return lumSum / pixels
}

// IsBlack reports whether the frame's mean luminance is below threshold
func IsBlack(img image.Image, threshold float64) bool {
	return MeanLuma(img) < threshold
}
