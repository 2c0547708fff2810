package script

import (
	"math"

	"github.com/kikiluvv/autoclip/internal/clips"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/tidwall/gjson"
)

// Schema is the JSON schema requested from the script generator. Strict
// schemas need an object at the top level, so clips sit under video_clips.
func Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"video_clips"},
		"properties": map[string]any{
			"video_clips": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"start", "end", "screen_text", "narration"},
					"properties": map[string]any{
						"start":       map[string]any{"type": "number"},
						"end":         map[string]any{"type": "number"},
						"screen_text": map[string]any{"type": "string"},
						"narration":   map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// Validate parses a generated script. It accepts a bare clip array or an
// object holding one under video_clips. Every clip must carry numeric
// start and end plus string screen_text and narration. Clips are clamped
// to [0, duration] and dropped when nothing is left of them.
func Validate(raw string, duration float64) ([]clips.Clip, error) {
	const op = "script.validate"

	if !gjson.Valid(raw) {
		return nil, errs.Errorf(errs.Malformed, op, "script is not valid JSON")
	}

	doc := gjson.Parse(raw)
	list := doc
	if doc.IsObject() {
		list = doc.Get("video_clips")
	}
	if !list.IsArray() {
		return nil, errs.Errorf(errs.Malformed, op, "script holds no clip array")
	}

	items := list.Array()
	if len(items) == 0 {
		return nil, errs.Errorf(errs.Malformed, op, "script has no clips")
	}

	out := make([]clips.Clip, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, errs.Errorf(errs.Malformed, op, "clip %d is not an object", i)
		}
		for _, field := range []string{"start", "end"} {
			if item.Get(field).Type != gjson.Number {
				return nil, errs.Errorf(errs.Malformed, op, "clip %d: %s must be a number", i, field)
			}
		}
		for _, field := range []string{"screen_text", "narration"} {
			if item.Get(field).Type != gjson.String {
				return nil, errs.Errorf(errs.Malformed, op, "clip %d: %s must be a string", i, field)
			}
		}

		c := clips.Clip{
			Start:      item.Get("start").Float(),
			End:        item.Get("end").Float(),
			ScreenText: item.Get("screen_text").String(),
			Narration:  item.Get("narration").String(),
		}
		c.Start = math.Max(c.Start, 0)
		if duration > 0 {
			c.End = math.Min(c.End, duration)
		}
		if c.Start >= c.End {
			continue
		}
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, errs.Errorf(errs.Malformed, op, "no clip lies inside the video")
	}
	return out, nil
}
