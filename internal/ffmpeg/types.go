package ffmpeg

import (
	"strconv"
	"time"
)

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// RunOptions configures one ffmpeg invocation
type RunOptions struct {
	Args  []string
	Stage string            // names the invocation in logs
	Lines func(line string) // receives every stderr line that is not progress
}

// progress is one block of ffmpeg's -progress output
type progress struct {
	frame   int
	outTime string
	speed   string
}

// Every file the renderer writes shares these codecs and this audio layout
// so segments join with a stream copy.
const (
	videoCodec = "libx264"
	audioCodec = "aac"
	pixFmt     = "yuv420p"
	sampleRate = 44100
	channels   = 2

	defaultCRF    = 23
	defaultPreset = "medium"
)

// Encoding is the quality profile of a re-encoded output
type Encoding struct {
	CRF    int
	Preset string
}

func (enc Encoding) withDefaults() Encoding {
	if enc.CRF <= 0 {
		enc.CRF = defaultCRF
	}
	if enc.Preset == "" {
		enc.Preset = defaultPreset
	}
	return enc
}

// videoArgs returns the video codec flags of the profile
func (enc Encoding) videoArgs() []string {
	enc = enc.withDefaults()
	return []string{
		"-c:v", videoCodec,
		"-crf", strconv.Itoa(enc.CRF),
		"-preset", enc.Preset,
		"-pix_fmt", pixFmt,
	}
}

// audioArgs returns the fixed audio layout
func audioArgs() []string {
	return []string{
		"-c:a", audioCodec,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
	}
}
