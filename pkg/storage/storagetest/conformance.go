// Package storagetest provides a shared ginkgo conformance suite for
// storage.Driver implementations.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/storage"
)

// DescribeDriver registers the conformance specs. newDriver is called before
// every spec and the returned driver is closed after it.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name+" conformance", func() {
		var (
			driver storage.Driver
			ctx    context.Context
			base   time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				driver.Close()
			}
		})

		Describe("Create and Get", func() {
			It("round trips every field", func() {
				e := entry.New("I live in Portland",
					entry.WithType(entry.TypePersonalInfo),
					entry.WithCategory(entry.CategoryPersonalInfo),
					entry.WithSource(entry.SourceUserPrompt),
					entry.WithConfidence(0.85),
					entry.WithTags("location", "auto_extracted"),
					entry.WithMetadata(entry.MetaConversationID, "conv-1"),
					entry.WithCreatedAt(base),
				)
				Expect(driver.Create(ctx, e)).To(Succeed())

				got, err := driver.Get(ctx, e.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Content).To(Equal(e.Content))
				Expect(got.Type).To(Equal(entry.TypePersonalInfo))
				Expect(got.Category).To(Equal(entry.CategoryPersonalInfo))
				Expect(got.Source).To(Equal(entry.SourceUserPrompt))
				Expect(got.Confidence).To(BeNumerically("~", 0.85, 1e-9))
				Expect(got.Tags).To(Equal([]string{"location", "auto_extracted"}))
				Expect(got.Metadata).To(HaveKeyWithValue(entry.MetaConversationID, "conv-1"))
				Expect(got.CreatedAt.Equal(base)).To(BeTrue())
				Expect(got.UpdatedAt.Equal(base)).To(BeTrue())
			})

			It("returns NotFoundError for unknown ids", func() {
				_, err := driver.Get(ctx, "missing")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("rejects invalid entries", func() {
				e := entry.New("")
				Expect(driver.Create(ctx, e)).NotTo(Succeed())
			})
		})

		Describe("Update", func() {
			It("replaces mutable fields and keeps created_at", func() {
				e := entry.New("I like tea", entry.WithCreatedAt(base))
				Expect(driver.Create(ctx, e)).To(Succeed())

				changed := e.Clone()
				changed.Content = "I like green tea"
				changed.Confidence = 0.5
				changed.CreatedAt = base.Add(48 * time.Hour)
				changed.UpdatedAt = base.Add(time.Hour)
				Expect(driver.Update(ctx, changed)).To(Succeed())

				got, err := driver.Get(ctx, e.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Content).To(Equal("I like green tea"))
				Expect(got.Confidence).To(BeNumerically("~", 0.5, 1e-9))
				Expect(got.CreatedAt.Equal(base)).To(BeTrue())
				Expect(got.UpdatedAt.Equal(base.Add(time.Hour))).To(BeTrue())
			})

			It("returns NotFoundError for unknown ids", func() {
				Expect(storage.IsNotFound(driver.Update(ctx, entry.New("nobody home")))).To(BeTrue())
			})
		})

		Describe("Delete", func() {
			It("removes the entry", func() {
				e := entry.New("temporary fact")
				Expect(driver.Create(ctx, e)).To(Succeed())
				Expect(driver.Delete(ctx, e.ID)).To(Succeed())

				_, err := driver.Get(ctx, e.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())
				Expect(storage.IsNotFound(driver.Delete(ctx, e.ID))).To(BeTrue())
			})
		})

		Describe("List", func() {
			BeforeEach(func() {
				for i, tc := range []struct {
					content string
					source  entry.Source
					typ     entry.Type
				}{
					{"oldest manual note", entry.SourceManual, entry.TypeNote},
					{"middle learned fact", entry.SourceUserPrompt, entry.TypeFact},
					{"newest learned preference", entry.SourceUserPrompt, entry.TypePreference},
				} {
					e := entry.New(tc.content,
						entry.WithSource(tc.source),
						entry.WithType(tc.typ),
						entry.WithCreatedAt(base.Add(time.Duration(i)*time.Minute)),
					)
					Expect(driver.Create(ctx, e)).To(Succeed())
				}
			})

			It("returns newest first", func() {
				all, err := driver.List(ctx, storage.Filter{})
				Expect(err).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(3))
				Expect(all[0].Content).To(Equal("newest learned preference"))
				Expect(all[2].Content).To(Equal("oldest manual note"))
			})

			It("filters by source and type", func() {
				src := entry.SourceUserPrompt
				learned, err := driver.List(ctx, storage.Filter{Source: &src})
				Expect(err).NotTo(HaveOccurred())
				Expect(learned).To(HaveLen(2))

				typ := entry.TypeFact
				facts, err := driver.List(ctx, storage.Filter{Source: &src, Type: &typ})
				Expect(err).NotTo(HaveOccurred())
				Expect(facts).To(HaveLen(1))
				Expect(facts[0].Content).To(Equal("middle learned fact"))
			})

			It("paginates", func() {
				page, err := driver.List(ctx, storage.Filter{Limit: 1, Offset: 1})
				Expect(err).NotTo(HaveOccurred())
				Expect(page).To(HaveLen(1))
				Expect(page[0].Content).To(Equal("middle learned fact"))

				rest, err := driver.List(ctx, storage.Filter{Offset: 2})
				Expect(err).NotTo(HaveOccurred())
				Expect(rest).To(HaveLen(1))
			})

			It("counts entries", func() {
				n, err := driver.Count(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(3))
			})
		})

		Describe("Search", func() {
			It("matches substrings case-insensitively", func() {
				Expect(driver.Create(ctx, entry.New("I live in Portland and love coffee"))).To(Succeed())
				Expect(driver.Create(ctx, entry.New("My dog is named Rex"))).To(Succeed())

				got, err := driver.Search(ctx, "PORTLAND", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(HaveLen(1))
				Expect(got[0].Content).To(ContainSubstring("Portland"))
			})

			It("treats like wildcards literally", func() {
				Expect(driver.Create(ctx, entry.New("discount is 100% off"))).To(Succeed())
				Expect(driver.Create(ctx, entry.New("discount is 1000 off"))).To(Succeed())

				got, err := driver.Search(ctx, "100%", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(HaveLen(1))
			})
		})

		It("pings", func() {
			Expect(driver.Ping(ctx)).To(Succeed())
		})
	})
}
