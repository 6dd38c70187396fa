package dedup

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/memory"
)

// polarityPhrases maps normalized negative or strong forms onto a shared
// positive stem. Longer phrases come first.
var polarityPhrases = []struct {
	phrase   string
	stem     string
	positive bool
}{
	{"i do not like", "i like", false},
	{"i dont like", "i like", false},
	{"i dislike", "i like", false},
	{"i hate", "i like", false},
	{"i love", "i like", true},
	{"i like", "i like", true},
	{"i do not have", "i have", false},
	{"i dont have", "i have", false},
	{"i have", "i have", true},
	{"i am not", "i am", false},
	{"im not", "i am", false},
	{"i am", "i am", true},
	{"im", "i am", true},
	{"i cannot", "i can", false},
	{"i cant", "i can", false},
	{"i can", "i can", true},
}

// stance reduces content to a polarity-free stem and its polarity.
func stance(content string) (string, bool, bool) {
	n := entry.Normalize(content)
	for _, p := range polarityPhrases {
		if n == p.phrase || strings.HasPrefix(n, p.phrase+" ") {
			return p.stem + strings.TrimPrefix(n, p.phrase), p.positive, true
		}
	}
	return "", false, false
}

// Conflicts reports candidates whose statement has the same subject as an
// existing entry but opposite polarity.
func (d *Deduplicator) Conflicts(candidates []entry.Candidate, existing []*entry.Entry) []memory.Conflict {
	var out []memory.Conflict
	for _, c := range candidates {
		cStem, cPos, ok := stance(c.Content)
		if !ok {
			continue
		}
		for _, e := range existing {
			if e == nil {
				continue
			}
			eStem, ePos, ok := stance(e.Content)
			if !ok || eStem != cStem || ePos == cPos {
				continue
			}
			out = append(out, memory.Conflict{
				Candidate: c,
				Entry:     e,
				Reason:    fmt.Sprintf("contradicts %q", e.Content),
			})
		}
	}
	return out
}

var _ memory.ConflictDetector = (*Deduplicator)(nil)
