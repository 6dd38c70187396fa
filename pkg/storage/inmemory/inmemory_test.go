package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("inmemory.Driver", func() storage.Driver {
	return inmemory.NewDriver()
})

var _ = Describe("Driver", func() {
	It("returns copies so callers cannot mutate stored entries", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		e := entry.New("I love coffee", entry.WithTags("coffee"))
		Expect(d.Create(ctx, e)).To(Succeed())

		got, err := d.Get(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		got.Tags[0] = "tea"

		again, err := d.Get(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Tags).To(ConsistOf("coffee"))
	})

	It("rejects duplicate ids", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		e := entry.New("only once")
		Expect(d.Create(ctx, e)).To(Succeed())
		Expect(d.Create(ctx, e)).NotTo(Succeed())
	})
})
