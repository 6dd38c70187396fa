package previewcmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	previewcmder "github.com/papercomputeco/recall/cmd/recall/preview"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage/sqlite"
)

var _ = Describe("Markdown", func() {
	It("tables the injected entries and shows the prompt", func() {
		rec := &memory.Recollection{
			Retrieval: memory.Retrieval{
				Entries: []*entry.Entry{entry.New("I use a|b testing", entry.WithCategory(entry.CategoryWork))},
				Length:  20,
			},
			Prompt: "augmented",
		}
		md := previewcmder.Markdown(rec, memory.RecallRequest{MaxLength: 100, Template: "minimal"})
		Expect(md).To(ContainSubstring("**1 entries**, 20 of 100 characters, template `minimal`"))
		Expect(md).To(ContainSubstring(`| 1 | I use a\|b testing | work | 1.00 |`))
		Expect(md).To(ContainSubstring("```text\naugmented\n```"))
	})

	It("says when nothing would be injected", func() {
		md := previewcmder.Markdown(&memory.Recollection{Prompt: "hi"}, memory.RecallRequest{})
		Expect(md).To(ContainSubstring("forwarded unchanged"))
		Expect(md).NotTo(ContainSubstring("| # |"))
	})
})

var _ = Describe("Preview command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := previewcmder.NewPreviewCmd()
		out = &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "recall-preview-test-*")
		Expect(err).NotTo(HaveOccurred())
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".recall"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		cfger, err := config.NewConfiger("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("storage.driver", "sqlite")).To(Succeed())

		store, err := sqlite.NewDriver(context.Background(), filepath.Join(tmpDir, ".recall", "recall.db"), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Create(context.Background(), entry.New("I live in Portland"))).To(Succeed())
		Expect(store.Close()).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("previews the augmented prompt with the configured template", func() {
		Expect(run("Where do I live?", "--raw")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("| 1 | I live in Portland |"))
		Expect(out.String()).To(ContainSubstring("template `forced_reference`"))
		Expect(out.String()).To(ContainSubstring("Now answer: Where do I live?"))
	})

	It("honours the template flag", func() {
		Expect(run("Where do I live?", "--raw", "--template", "minimal")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("- I live in Portland\n\nWhere do I live?"))
	})

	It("rejects unknown templates", func() {
		Expect(run("Where do I live?", "--template", "shouty")).To(MatchError(ContainSubstring("unknown template")))
	})

	It("renders through glamour by default", func() {
		Expect(run("Explain quantum tunnelling")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Recall preview"))
	})
})
