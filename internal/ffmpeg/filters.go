package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FilterBuilder assembles the -vf chain of a narrated clip
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder starts an empty chain
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// Subtitles burns an .srt file into the picture
func (fb *FilterBuilder) Subtitles(path string) *FilterBuilder {
	if path == "" {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("subtitles=%s", escapeSubtitlePath(path)))
	return fb
}

// DrawText renders a caption centred near the top of the frame
func (fb *FilterBuilder) DrawText(text string, fontSize int) *FilterBuilder {
	text = strings.TrimSpace(text)
	if text == "" {
		return fb
	}
	if fontSize <= 0 {
		fontSize = 48
	}
	fb.filters = append(fb.filters, fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=h*0.12",
		escapeDrawText(text), fontSize,
	))
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// escapeSubtitlePath makes an absolute, forward-slashed path safe inside
// a filter argument
func escapeSubtitlePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	return strings.NewReplacer(`\`, `\\`, ":", `\:`, "'", `\'`).Replace(path)
}

// escapeDrawText escapes characters drawtext treats as syntax
func escapeDrawText(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
		",", `\,`,
	)
	return r.Replace(text)
}
