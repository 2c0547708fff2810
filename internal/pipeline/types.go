package pipeline

import (
	"github.com/kikiluvv/autoclip/internal/asset"
	"github.com/kikiluvv/autoclip/internal/describe"
)

// ResultsFile lists the finished perspectives of the last run of an asset
const ResultsFile = "results.json"

// PrepareOptions configures the shared segment and describe stages
type PrepareOptions struct {
	Force bool
	Mode  describe.Mode // empty uses the configured mode
}

// Analysis is the shared, read-only output of preparation. Every
// perspective of a run scripts from the same descriptors.
type Analysis struct {
	Asset          *asset.VideoAsset
	Dir            string
	DescriptorPath string
	Descriptors    []describe.SegmentDescriptor
	Cached         bool
}

// RunOptions configures a multi-perspective run
type RunOptions struct {
	Perspectives      []string
	All               bool
	Force             bool // redo segmentation and description
	RegenerateScripts bool
	Mode              describe.Mode
}

// PerspectiveResult is one finished highlight video
type PerspectiveResult struct {
	Perspective   string `json:"perspective"`
	VideoPath     string `json:"video_path"`
	SegmentsCount int    `json:"segments_count"`
}
