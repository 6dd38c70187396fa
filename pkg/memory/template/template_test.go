package template_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory/template"
)

var _ = Describe("Registry", func() {
	var r *template.Registry

	BeforeEach(func() {
		r = template.New()
	})

	It("lists templates by strength", func() {
		Expect(r.Names()).To(Equal([]string{
			"minimal", "suggestive", "default", "structured", "direct", "forced_reference",
		}))
	})

	It("renders the forced reference template", func() {
		out := r.Format([]string{"I live in Portland"}, "Where do I live?", "forced_reference")
		Expect(out).To(Equal("You MUST use the following facts when answering:\n- I live in Portland\n\nNow answer: Where do I live?"))
	})

	It("falls back to the default template for unknown names", func() {
		out := r.Format([]string{"I live in Portland"}, "Where do I live?", "bogus")
		Expect(out).NotTo(BeEmpty())
		Expect(out).To(Equal(r.Format([]string{"I live in Portland"}, "Where do I live?", template.Default)))
		Expect(r.Has("bogus")).To(BeFalse())
	})

	It("returns the prompt unchanged without context", func() {
		Expect(r.Format(nil, "Hello", "direct")).To(Equal("Hello"))
		Expect(r.Format([]string{"", "  "}, "Hello", "direct")).To(Equal("Hello"))
	})

	It("does not expand placeholders inside the inputs", func() {
		out := r.Format([]string{"I wrote {prompt} once"}, "What is {context}?", "minimal")
		Expect(out).To(Equal("- I wrote {prompt} once\n\nWhat is {context}?"))
	})

	It("always contains the prompt and is deterministic", func() {
		prompts := []string{"", "Where do I live?", "multi\nline {{ .x }}", "ünïcødé"}
		for _, name := range append(r.Names(), "bogus") {
			for _, p := range prompts {
				out := r.Format([]string{"fact one", "fact two"}, p, name)
				Expect(out).To(ContainSubstring(p))
				Expect(r.Format([]string{"fact one", "fact two"}, p, name)).To(Equal(out))
			}
		}
	})

	Describe("NewRegistry", func() {
		It("accepts custom templates", func() {
			r, err := template.NewRegistry(template.Template{Name: "terse", Strength: 0, Pattern: "{context} | {prompt}"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Names()[0]).To(Equal("terse"))
			Expect(r.Format([]string{"a"}, "b", "terse")).To(Equal("- a | b"))
		})

		It("rejects templates without a prompt placeholder", func() {
			_, err := template.NewRegistry(template.Template{Name: "broken", Pattern: "{context}"})
			Expect(err).To(HaveOccurred())
		})
	})
})
