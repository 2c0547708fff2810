package describe

import (
	"encoding/json"
	"fmt"

	"github.com/kikiluvv/autoclip/internal/scenes"
)

// DescriptorFile holds the descriptors of every segment of one video
const DescriptorFile = "video_segment_info.json"

// SegmentDescriptor is the textual understanding of one scene segment
type SegmentDescriptor struct {
	Index          int                `json:"index"`
	Start          float64            `json:"start"`
	End            float64            `json:"end"`
	VideoName      string             `json:"video_name"`
	VideoPath      string             `json:"video_path"`
	Description    string             `json:"desc"`
	Tags           []string           `json:"tag"`
	Duration       float64            `json:"duration"`
	FPS            float64            `json:"fps,omitempty"`
	TotalFrames    int                `json:"total_frames,omitempty"`
	AnalyzedFrames int                `json:"analyzed_frames"`
	Frames         []FrameDescription `json:"frames,omitempty"`
}

// NewDescriptor pairs a segment with the description of its frames.
// Per-frame labels are moved onto the source timeline so they line up
// with the segment's Start and End.
func NewDescriptor(seg scenes.Segment, fps float64, totalFrames int, res *Result) SegmentDescriptor {
	description := res.Description
	if len(res.Frames) > 0 {
		description = Timeline(res.Frames, seg.Start)
	}
	return SegmentDescriptor{
		Index:          seg.Index,
		Start:          seg.Start,
		End:            seg.End,
		VideoName:      seg.Name,
		VideoPath:      seg.Path,
		Description:    description,
		Tags:           res.Tags,
		Duration:       seg.Duration(),
		FPS:            fps,
		TotalFrames:    totalFrames,
		AnalyzedFrames: res.Analyzed,
		Frames:         res.Frames,
	}
}

// promptView is the reduced descriptor shown to the script generator
type promptView struct {
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Description string   `json:"desc"`
	Tags        []string `json:"tag"`
}

// PromptJSON serializes descriptors for a script prompt. Per-frame detail
// is dropped since the aggregate description already carries it.
func PromptJSON(descriptors []SegmentDescriptor) (string, error) {
	views := make([]promptView, len(descriptors))
	for i, d := range descriptors {
		views[i] = promptView{Start: d.Start, End: d.End, Description: d.Description, Tags: d.Tags}
	}
	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode descriptors: %w", err)
	}
	return string(data), nil
}
