package dedup_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
)

func candidate(content string, confidence float64, index int, tags ...string) entry.Candidate {
	return entry.Candidate{
		Content:      content,
		Confidence:   confidence,
		MessageIndex: index,
		Source:       entry.SourceUserPrompt,
		Tags:         tags,
	}
}

func contents(cs []entry.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Content
	}
	return out
}

var _ = Describe("Deduplicator", func() {
	var d *dedup.Deduplicator

	BeforeEach(func() {
		d = dedup.New(0)
	})

	It("drops a candidate restating an existing entry", func() {
		existing := []*entry.Entry{entry.New("I live in Portland, Oregon")}
		out := d.Deduplicate([]entry.Candidate{candidate("I live in Portland", 0.85, 0)}, existing)
		Expect(out).To(BeEmpty())
	})

	It("keeps distinct facts", func() {
		existing := []*entry.Entry{entry.New("I live in Portland")}
		out := d.Deduplicate([]entry.Candidate{
			candidate("I live in Seattle", 0.85, 0, "location"),
			candidate("I love coffee", 0.75, 1, "preference"),
		}, existing)
		Expect(contents(out)).To(Equal([]string{"I live in Seattle", "I love coffee"}))
	})

	It("does not modify existing entries", func() {
		e := entry.New("I live in Portland, Oregon")
		before := e.Clone()
		d.Deduplicate([]entry.Candidate{candidate("I live in Portland", 0.85, 0)}, []*entry.Entry{e})
		Expect(e).To(Equal(before))
	})

	Describe("sibling clusters", func() {
		It("keeps the highest-confidence member", func() {
			out := d.Deduplicate([]entry.Candidate{
				candidate("I live in Portland", 0.6, 0, "location_reply"),
				candidate("I live in Portland Oregon", 0.85, 1, "location"),
			}, nil)
			Expect(out).To(HaveLen(1))
			Expect(out[0].Content).To(Equal("I live in Portland Oregon"))
			Expect(out[0].Tags).To(Equal([]string{"location", "location_reply"}))
			Expect(out[0].Metadata).To(HaveKeyWithValue(entry.MetaMergedFrom, "2"))
		})

		It("breaks confidence ties by earliest message", func() {
			out := d.Deduplicate([]entry.Candidate{
				candidate("I love strong coffee", 0.75, 3),
				candidate("I love coffee", 0.75, 1),
			}, nil)
			Expect(out).To(HaveLen(1))
			Expect(out[0].MessageIndex).To(Equal(1))
		})

		It("treats normalized-equal content as duplicate", func() {
			out := d.Deduplicate([]entry.Candidate{
				candidate("I don't like tea", 0.75, 0),
				candidate("i dont like TEA!", 0.75, 2),
			}, nil)
			Expect(out).To(HaveLen(1))
		})

		It("drops the whole cluster when any member matches the store", func() {
			existing := []*entry.Entry{entry.New("I live in Portland")}
			out := d.Deduplicate([]entry.Candidate{
				candidate("I live in Portland", 0.85, 0),
				candidate("I live in Portland Oregon", 0.9, 1),
			}, existing)
			Expect(out).To(BeEmpty())
		})
	})

	It("is idempotent", func() {
		in := []entry.Candidate{
			candidate("I live in Portland", 0.85, 0, "location"),
			candidate("I live in Portland Oregon", 0.8, 1, "location"),
			candidate("I love coffee", 0.75, 2, "preference"),
		}
		once := d.Deduplicate(in, nil)
		twice := d.Deduplicate(once, nil)
		Expect(contents(twice)).To(Equal(contents(once)))
	})

	It("returns nothing for no candidates", func() {
		Expect(d.Deduplicate(nil, []*entry.Entry{entry.New("x y z")})).To(BeEmpty())
	})

	Describe("Match", func() {
		It("returns the duplicated entry", func() {
			e := entry.New("I live in Portland, Oregon")
			Expect(d.Match(candidate("I live in Portland", 0.85, 0), []*entry.Entry{e})).To(BeIdenticalTo(e))
			Expect(d.Match(candidate("I love tea", 0.85, 0), []*entry.Entry{e})).To(BeNil())
		})
	})

	Describe("Similarity", func() {
		It("scores token overlap", func() {
			Expect(dedup.Similarity("I live in Portland", nil, "I live in Portland, Oregon", nil)).
				To(BeNumerically("~", 0.8, 1e-9))
		})

		It("ignores the extraction marker tag", func() {
			a := dedup.Similarity("I use Go", []string{"auto_extracted"}, "I use Rust", []string{"auto_extracted"})
			Expect(a).To(BeNumerically("~", 0.5, 1e-9))
		})
	})
})

var _ = Describe("Conflicts", func() {
	var d *dedup.Deduplicator

	BeforeEach(func() {
		d = dedup.New(dedup.DefaultThreshold)
	})

	DescribeTable("opposite polarity",
		func(stored, proposed string, conflict bool) {
			out := d.Conflicts([]entry.Candidate{candidate(proposed, 0.75, 0)}, []*entry.Entry{entry.New(stored)})
			if conflict {
				Expect(out).To(HaveLen(1))
				Expect(out[0].Reason).To(ContainSubstring(stored))
			} else {
				Expect(out).To(BeEmpty())
			}
		},
		Entry("like vs don't like", "I like tea", "I don't like tea", true),
		Entry("love vs hate", "I love coffee", "I hate coffee", true),
		Entry("am vs am not", "I am vegetarian", "I'm not vegetarian", true),
		Entry("have vs don't have", "I have a dog", "I don't have a dog", true),
		Entry("same polarity", "I love coffee", "I like coffee", false),
		Entry("different subject", "I like tea", "I don't like coffee", false),
		Entry("no stance", "My name is Sam", "My name is Alex", false),
	)
})
