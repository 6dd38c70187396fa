package storagetest

import (
	"context"
	"database/sql"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/storage"
)

// SQLDriver is a storage.Driver backed by a context_entries table.
type SQLDriver interface {
	storage.Driver
	SQLDB() *sql.DB
}

// DescribeSQLRows registers specs for rows written outside the driver, such
// as those left by older schemas.
func DescribeSQLRows(name string, newDriver func() SQLDriver) bool {
	return Describe(name+" stored rows", func() {
		var (
			driver SQLDriver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				driver.Close()
			}
		})

		It("reads unknown identifiers as note, other and manual", func() {
			valid := entry.New("I work at Acme")
			Expect(driver.Create(ctx, valid)).To(Succeed())

			_, err := driver.SQLDB().ExecContext(ctx, `
				INSERT INTO context_entries (id, content, entry_type, category, source, confidence, tags, metadata, created_at, updated_at)
				VALUES ('legacy-1', 'I live in Portland', 'reminder', 'hobbies', 'scraped', 0.8, '[]', '{}', 1, 1)`)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "legacy-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Type).To(Equal(entry.TypeNote))
			Expect(got.Category).To(Equal(entry.CategoryOther))
			Expect(got.Source).To(Equal(entry.SourceManual))
			Expect(got.Confidence).To(BeNumerically("~", 0.8, 1e-9))

			all, err := driver.List(ctx, storage.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))

			found, err := driver.Search(ctx, "portland", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ID).To(Equal("legacy-1"))
		})

		It("maps legacy identifiers onto their current values", func() {
			_, err := driver.SQLDB().ExecContext(ctx, `
				INSERT INTO context_entries (id, content, entry_type, category, source, confidence, tags, metadata, created_at, updated_at)
				VALUES ('legacy-2', 'I am a nurse', 'fact', 'professional', 'conversation', 0.7, '[]', '{}', 1, 1)`)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "legacy-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Type).To(Equal(entry.TypeFact))
			Expect(got.Category).To(Equal(entry.CategoryWork))
			Expect(got.Source).To(Equal(entry.SourceUserPrompt))
		})
	})
}
