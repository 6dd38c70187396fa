// Package dedup collapses extracted candidates that restate sibling
// candidates or entries already in the store.
package dedup

import (
	"sort"
	"strconv"
	"strings"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/extract"
)

// DefaultThreshold is the token-overlap ratio above which two facts are
// duplicates.
const DefaultThreshold = 0.7

// Deduplicator implements memory.Deduplicator and memory.ConflictDetector.
type Deduplicator struct {
	threshold float64
}

// New creates a Deduplicator. A non-positive threshold selects DefaultThreshold.
func New(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{threshold: threshold}
}

type signature struct {
	normalized string
	content    map[string]struct{}
	combined   map[string]struct{}
}

func sign(content string, tags []string) signature {
	s := signature{
		normalized: entry.Normalize(content),
		content:    entry.TokenSet(content),
	}
	s.combined = make(map[string]struct{}, len(s.content)+len(tags))
	for t := range s.content {
		s.combined[t] = struct{}{}
	}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || tag == extract.TagAutoExtracted {
			continue
		}
		s.combined["#"+tag] = struct{}{}
	}
	return s
}

// Similarity returns the token-overlap ratio between two facts. Tags count as
// tokens; the content-only ratio is used when it is higher.
func Similarity(aContent string, aTags []string, bContent string, bTags []string) float64 {
	return similarity(sign(aContent, aTags), sign(bContent, bTags))
}

func similarity(a, b signature) float64 {
	if a.normalized != "" && a.normalized == b.normalized {
		return 1
	}
	return max(entry.Jaccard(a.content, b.content), entry.Jaccard(a.combined, b.combined))
}

func (d *Deduplicator) duplicate(a, b signature) bool {
	if a.normalized != "" && a.normalized == b.normalized {
		return true
	}
	return similarity(a, b) > d.threshold
}

// Deduplicate returns the surviving candidates in input order.
//
// Candidates are clustered transitively by duplicate relation. Each cluster
// keeps its highest-confidence member, earliest message index on ties, and
// absorbs the cluster's tags. A cluster with any member duplicating an
// existing entry is dropped entirely; existing entries are never modified.
func (d *Deduplicator) Deduplicate(candidates []entry.Candidate, existing []*entry.Entry) []entry.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sigs := make([]signature, len(candidates))
	for i, c := range candidates {
		sigs[i] = sign(c.Content, c.Tags)
	}

	existingSigs := make([]signature, 0, len(existing))
	for _, e := range existing {
		if e == nil {
			continue
		}
		existingSigs = append(existingSigs, sign(e.Content, e.Tags))
	}

	uf := newUnionFind(len(candidates))
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			if d.duplicate(sigs[i], sigs[j]) {
				uf.union(i, j)
			}
		}
	}

	clusters := make(map[int][]int)
	for i := range candidates {
		root := uf.find(i)
		clusters[root] = append(clusters[root], i)
	}

	type survivor struct {
		index     int
		candidate entry.Candidate
	}
	var survivors []survivor

	for _, members := range clusters {
		if d.matchesExisting(members, sigs, existingSigs) {
			continue
		}

		best := members[0]
		for _, m := range members[1:] {
			if better(candidates[m], candidates[best]) {
				best = m
			}
		}

		survivors = append(survivors, survivor{
			index:     best,
			candidate: merge(candidates, best, members),
		})
	}

	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].index < survivors[j].index
	})

	out := make([]entry.Candidate, len(survivors))
	for i, s := range survivors {
		out[i] = s.candidate
	}
	return out
}

func (d *Deduplicator) matchesExisting(members []int, sigs, existing []signature) bool {
	for _, m := range members {
		for _, e := range existing {
			if d.duplicate(sigs[m], e) {
				return true
			}
		}
	}
	return false
}

// Match returns the first existing entry duplicated by c, or nil.
func (d *Deduplicator) Match(c entry.Candidate, existing []*entry.Entry) *entry.Entry {
	sig := sign(c.Content, c.Tags)
	for _, e := range existing {
		if e != nil && d.duplicate(sig, sign(e.Content, e.Tags)) {
			return e
		}
	}
	return nil
}

// better reports whether a should replace b as a cluster's survivor.
func better(a, b entry.Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.MessageIndex < b.MessageIndex
}

func merge(candidates []entry.Candidate, best int, members []int) entry.Candidate {
	out := candidates[best]
	if len(members) == 1 {
		return out
	}

	seen := make(map[string]bool)
	var tags []string
	addTags := func(ts []string) {
		for _, t := range ts {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	addTags(out.Tags)
	for _, m := range members {
		addTags(candidates[m].Tags)
	}
	out.Tags = tags

	meta := make(map[string]string, len(out.Metadata)+1)
	for k, v := range out.Metadata {
		meta[k] = v
	}
	meta[entry.MetaMergedFrom] = strconv.Itoa(len(members))
	out.Metadata = meta

	return out
}

var _ memory.Deduplicator = (*Deduplicator)(nil)

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
