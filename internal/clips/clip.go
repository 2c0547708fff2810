package clips

import (
	"fmt"
	"slices"
	"time"

	"github.com/kikiluvv/autoclip/pkg/util"
)

// Clip is one scripted span of the source video with its overlay text and narration
type Clip struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	ScreenText string  `json:"screen_text"`
	Narration  string  `json:"narration"`
}

// StartTime returns the clip start as a duration
func (c Clip) StartTime() time.Duration {
	return util.Seconds(c.Start)
}

// EndTime returns the clip end as a duration
func (c Clip) EndTime() time.Duration {
	return util.Seconds(c.End)
}

// Duration returns the clip length
func (c Clip) Duration() time.Duration {
	return c.EndTime() - c.StartTime()
}

// Script is the ordered clip list composed for one perspective
type Script struct {
	Perspective string
	Clips       []Clip
}

// TotalDuration sums the length of every clip
func (s Script) TotalDuration() time.Duration {
	var total time.Duration
	for _, c := range s.Clips {
		total += c.Duration()
	}
	return total
}

// Rendered is the outcome of rendering one clip. Index is the clip's
// position in its script and is the concatenation order key. On failure
// every artifact path is empty and Err says which step broke.
type Rendered struct {
	Index    int
	Clip     Clip
	Audio    string
	Subtitle string
	Cut      string
	Path     string
	Err      error
}

// OK reports whether the clip produced a usable file
func (r Rendered) OK() bool {
	return r.Err == nil && r.Path != ""
}

// Reset drops every artifact path and records err
func (r *Rendered) Reset(err error) {
	r.Audio, r.Subtitle, r.Cut, r.Path = "", "", "", ""
	r.Err = err
}

// Name is the base file name for a rendered clip, without extension
func Name(index int, c Clip) string {
	return fmt.Sprintf("clip_%03d_%s-%s", index, stamp(c.Start), stamp(c.End))
}

func stamp(seconds float64) string {
	return fmt.Sprintf("%06.2f", seconds)
}

// Successful returns the usable clips sorted by Index
func Successful(rendered []Rendered) []Rendered {
	out := make([]Rendered, 0, len(rendered))
	for _, r := range rendered {
		if r.OK() {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Rendered) int {
		return a.Index - b.Index
	})
	return out
}

// Failed counts clips that did not render
func Failed(rendered []Rendered) int {
	n := 0
	for _, r := range rendered {
		if !r.OK() {
			n++
		}
	}
	return n
}
