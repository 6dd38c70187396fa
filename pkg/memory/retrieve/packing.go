package retrieve

import (
	"fmt"
	"strings"
)

// Packing selects how ranked entries are fit into the length budget.
type Packing uint8

const (
	// PackingBestEffort skips an entry that would overflow the budget and
	// keeps trying lower-ranked entries.
	PackingBestEffort Packing = iota

	// PackingStrict stops at the first entry that would overflow.
	PackingStrict
)

var packingNames = map[Packing]string{
	PackingBestEffort: "best_effort",
	PackingStrict:     "strict",
}

func (p Packing) String() string {
	if s, ok := packingNames[p]; ok {
		return s
	}
	return packingNames[PackingBestEffort]
}

// ParsePacking parses a packing name. The empty string selects best effort.
func ParsePacking(s string) (Packing, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if s == "" {
		return PackingBestEffort, nil
	}
	for p, name := range packingNames {
		if name == s {
			return p, nil
		}
	}
	return PackingBestEffort, fmt.Errorf("unknown packing %q", s)
}

func (p Packing) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Packing) UnmarshalText(b []byte) error {
	v, err := ParsePacking(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
