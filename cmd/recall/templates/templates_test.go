package templatescmder_test

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	templatescmder "github.com/papercomputeco/recall/cmd/recall/templates"
	"github.com/papercomputeco/recall/pkg/config"
)

var _ = Describe("Templates command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := templatescmder.NewTemplatesCmd()
		cmd.Flags().String("config-dir", tmpDir, "")
		out = &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "recall-templates-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(tmpDir) })
	})

	It("lists every built-in template", func() {
		Expect(run()).To(Succeed())
		for _, name := range []string{"minimal", "suggestive", "default", "structured", "direct", "forced_reference"} {
			Expect(out.String()).To(ContainSubstring(name))
		}
		Expect(out.String()).NotTo(ContainSubstring("not a known template"))
	})

	It("prints patterns when verbose", func() {
		Expect(run("--verbose")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Now answer: {prompt}"))
	})

	It("warns when the configured template is unknown", func() {
		cfger, err := config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		cfg := config.NewDefaultConfig()
		cfg.Injection.Template = "shouty"
		Expect(cfger.SaveConfig(cfg)).To(Succeed())

		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("shouty is not a known template"))
	})
})
