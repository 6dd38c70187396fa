package entriescmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	entriescmder "github.com/papercomputeco/recall/cmd/recall/entries"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/sqlite"
)

var _ = Describe("NewEntriesCmd", func() {
	It("has list, show, add, rm and search subcommands", func() {
		cmd := entriescmder.NewEntriesCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("list", "show", "add", "rm", "search"))
	})
})

var _ = Describe("Entries command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := entriescmder.NewEntriesCmd()
		out = &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	// openStore opens the database the commands use so tests can seed and
	// inspect it directly.
	openStore := func() storage.Driver {
		s, err := sqlite.NewDriver(context.Background(), filepath.Join(tmpDir, ".recall", "recall.db"), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = s.Close() })
		return s
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "recall-entries-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".recall"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		cfger, err := config.NewConfiger("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("storage.driver", "sqlite")).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("adds an entry and lists it", func() {
		Expect(run("add", "My cat is called Miso", "--category", "relationships", "--tag", "pets")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Added entry"))
		Expect(out.String()).To(ContainSubstring("My cat is called Miso"))

		Expect(run("list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("My cat is called Miso"))
		Expect(out.String()).To(ContainSubstring("1 of 1 entries"))

		entries, err := openStore().List(context.Background(), storage.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Source).To(Equal(entry.SourceManual))
		Expect(entries[0].Category).To(Equal(entry.CategoryRelationships))
		Expect(entries[0].Tags).To(Equal([]string{"pets"}))
	})

	It("rejects an unknown category before touching the store", func() {
		Expect(run("add", "something", "--category", "hobbies")).NotTo(Succeed())
		Expect(filepath.Join(tmpDir, ".recall", "recall.db")).NotTo(BeAnExistingFile())
	})

	It("rejects blank content", func() {
		Expect(run("add", "   ")).To(MatchError(entry.ErrEmptyContent))
	})

	It("filters the list", func() {
		store := openStore()
		ctx := context.Background()
		Expect(store.Create(ctx, entry.New("I work at Acme", entry.WithCategory(entry.CategoryWork)))).To(Succeed())
		Expect(store.Create(ctx, entry.New("I love hiking", entry.WithCategory(entry.CategoryPreferences)))).To(Succeed())

		Expect(run("list", "--category", "work")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("I work at Acme"))
		Expect(out.String()).NotTo(ContainSubstring("I love hiking"))
	})

	It("rejects an invalid filter", func() {
		Expect(run("list", "--source", "telepathy")).NotTo(Succeed())
	})

	It("searches entry content", func() {
		store := openStore()
		Expect(store.Create(context.Background(), entry.New("I live in Portland"))).To(Succeed())

		Expect(run("search", "portland")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("I live in Portland"))

		Expect(run("search", "berlin")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No entries."))
	})

	It("shows and removes an entry by id prefix", func() {
		store := openStore()
		e := entry.New("I live in Portland")
		Expect(store.Create(context.Background(), e)).To(Succeed())

		Expect(run("show", e.ID[:8])).To(Succeed())
		Expect(out.String()).To(ContainSubstring(e.ID))

		Expect(run("rm", e.ID[:8])).To(Succeed())
		_, err := store.Get(context.Background(), e.ID)
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("fails to remove a missing entry", func() {
		err := run("rm", "00000000-0000-0000-0000-000000000000")
		Expect(err).To(HaveOccurred())
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})
})
