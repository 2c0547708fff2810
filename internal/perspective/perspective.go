package perspective

import (
	"fmt"
	"strings"
)

// Kind is a narrative lens used to compose a script
type Kind int

const (
	Default Kind = iota
	Emotional
	Educational
	Entertaining
	Inspirational
	Aesthetic
	Trending
	Lifestyle
	Professional
	Storytelling
)

var names = [...]string{
	Default:       "default",
	Emotional:     "emotional",
	Educational:   "educational",
	Entertaining:  "entertaining",
	Inspirational: "inspirational",
	Aesthetic:     "aesthetic",
	Trending:      "trending",
	Lifestyle:     "lifestyle",
	Professional:  "professional",
	Storytelling:  "storytelling",
}

// All lists every perspective in registry order
func All() []Kind {
	kinds := make([]Kind, len(names))
	for i := range names {
		kinds[i] = Kind(i)
	}
	return kinds
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(names) {
		return fmt.Sprintf("perspective(%d)", int(k))
	}
	return names[k]
}

// Valid reports whether k is a registered perspective
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(names)
}

// Resolve maps a name onto its perspective. Unknown names resolve to
// Default with ok=false so callers can log the fallback.
func Resolve(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return Kind(i), true
		}
	}
	return Default, false
}

// ScriptFileName is the cache file holding the script for k
func ScriptFileName(k Kind) string {
	if k == Default {
		return "video_script.json"
	}
	return fmt.Sprintf("video_script_%s.json", k)
}

// Label is the human-readable name of k in lang
func Label(k Kind, lang string) string {
	t := Template(k, lang)
	return t.Label
}
