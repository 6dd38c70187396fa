package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/entry"
)

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds under a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds with one decimal otherwise", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Step", func() {
	It("returns the error from fn and prints its message", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "importing entries", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("importing entries"))
		Expect(buf.String()).To(HaveSuffix("\n"))
	})
})

var _ = Describe("EntryTable", func() {
	It("prints a placeholder for no entries", func() {
		var buf bytes.Buffer
		cliui.EntryTable(&buf, nil)
		Expect(buf.String()).To(ContainSubstring("No entries."))
	})

	It("prints one row per entry under a header", func() {
		var buf bytes.Buffer
		e := entry.New("I live in Portland",
			entry.WithCategory(entry.CategoryPersonalInfo),
			entry.WithConfidence(0.85),
		)

		cliui.EntryTable(&buf, []*entry.Entry{e, entry.New("I like tea")})

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(ContainSubstring("CATEGORY"))
		Expect(lines[1]).To(ContainSubstring(e.ID[:8]))
		Expect(lines[1]).To(ContainSubstring("0.85"))
		Expect(lines[1]).To(ContainSubstring("I live in Portland"))
	})
})

var _ = Describe("EntryDetail", func() {
	It("includes tags and sorted metadata", func() {
		var buf bytes.Buffer
		e := entry.New("I like tea",
			entry.WithTags("beverages"),
			entry.WithMetadata(entry.MetaRule, "preference"),
			entry.WithMetadata(entry.MetaConversationID, "c1"),
		)

		cliui.EntryDetail(&buf, e)
		out := buf.String()
		Expect(out).To(ContainSubstring("beverages"))
		Expect(strings.Index(out, entry.MetaConversationID)).To(BeNumerically("<", strings.Index(out, entry.MetaRule)))
	})
})
