package extract_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/memory/extract"
)

func conversation(msgs ...entry.Message) entry.Conversation {
	return entry.Conversation{ID: "conv-1", Messages: msgs}
}

func user(content string) entry.Message {
	return entry.Message{Role: entry.RoleUser, Content: content}
}

func assistant(content string) entry.Message {
	return entry.Message{Role: entry.RoleAssistant, Content: content}
}

func contents(cs []entry.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Content
	}
	return out
}

func byRule(cs []entry.Candidate, rule string) *entry.Candidate {
	for i := range cs {
		if cs[i].Metadata[entry.MetaRule] == rule {
			return &cs[i]
		}
	}
	return nil
}

var _ = Describe("Extractor", func() {
	var x *extract.Extractor

	BeforeEach(func() {
		x = extract.New()
	})

	It("extracts name, employer and role from an introduction", func() {
		cs := x.ExtractAll(conversation(user("Hi, I'm Sam, I work at Acme as an engineer")))

		Expect(len(cs)).To(BeNumerically(">=", 2))
		for _, c := range cs {
			Expect(c.Confidence).To(BeNumerically(">=", 0.6))
		}
		Expect(contents(cs)).To(ContainElements(
			"My name is Sam",
			"I work at Acme",
			"I work as an engineer",
		))
	})

	It("mines only user messages", func() {
		cs := x.ExtractAll(conversation(
			assistant("I live in the cloud and I love helping"),
			user("What can you do?"),
		))
		Expect(cs).To(BeEmpty())
	})

	It("yields nothing for a message with no facts", func() {
		Expect(x.ExtractAll(conversation(user("What's the weather tomorrow?")))).To(BeEmpty())
	})

	It("lets independent rules fire on one sentence", func() {
		cs := x.ExtractAll(conversation(user("I live in Portland and love coffee")))
		Expect(contents(cs)).To(ContainElements("I live in Portland", "I love coffee"))
	})

	It("records provenance", func() {
		cs := x.ExtractAll(conversation(
			assistant("Hello!"),
			user("I live in Portland"),
		))
		Expect(cs).To(HaveLen(1))

		c := cs[0]
		Expect(c.Source).To(Equal(entry.SourceUserPrompt))
		Expect(c.ConversationID).To(Equal("conv-1"))
		Expect(c.MessageIndex).To(Equal(1))
		Expect(c.Type).To(Equal(entry.TypePersonalInfo))
		Expect(c.Category).To(Equal(entry.CategoryPersonalInfo))
		Expect(c.Tags).To(ConsistOf("location", extract.TagAutoExtracted))
		Expect(c.Metadata).To(HaveKeyWithValue(entry.MetaRule, "location"))
		Expect(c.Metadata).To(HaveKeyWithValue(entry.MetaOriginalMessage, "I live in Portland"))
	})

	Describe("confidence", func() {
		It("uses the rule base", func() {
			c := byRule(x.ExtractAll(conversation(user("I live in Denver"))), "location")
			Expect(c).NotTo(BeNil())
			Expect(c.Confidence).To(BeNumerically("~", 0.85, 1e-9))
		})

		It("penalizes hedged statements", func() {
			c := byRule(x.ExtractAll(conversation(user("I think I live in Denver"))), "location")
			Expect(c).NotTo(BeNil())
			Expect(c.Confidence).To(BeNumerically("~", 0.65, 1e-9))
		})

		It("boosts emphatic statements", func() {
			c := byRule(x.ExtractAll(conversation(user("I really love coffee"))), "preference")
			Expect(c).NotTo(BeNil())
			Expect(c.Content).To(Equal("I love coffee"))
			Expect(c.Confidence).To(BeNumerically("~", 0.8, 1e-9))
		})
	})

	Describe("reply inference", func() {
		It("reads a bare answer to a location question", func() {
			cs := x.ExtractAll(conversation(
				assistant("Where do you live?"),
				user("Portland"),
			))
			Expect(cs).To(HaveLen(1))
			Expect(cs[0].Content).To(Equal("I live in Portland"))
			Expect(cs[0].Confidence).To(BeNumerically("~", 0.6, 1e-9))
			Expect(cs[0].Metadata).To(HaveKeyWithValue(entry.MetaRule, "location_reply"))
		})

		It("ignores bare answers to unrelated questions", func() {
			cs := x.ExtractAll(conversation(
				assistant("What time is it there?"),
				user("Noon"),
			))
			Expect(cs).To(BeEmpty())
		})
	})

	It("is lazy and can be stopped early", func() {
		conv := conversation(
			user("I live in Portland"),
			user("I love coffee"),
			user("I have a dog"),
		)
		n := 0
		for range x.Extract(conv) {
			n++
			break
		}
		Expect(n).To(Equal(1))
		Expect(x.ExtractAll(conv)).To(HaveLen(3))
	})

	It("honors a custom rule set", func() {
		only := extract.New(extract.DefaultRules()[0])
		Expect(only.Rules()).To(HaveLen(1))
		Expect(only.ExtractAll(conversation(user("I live in Portland")))).To(BeEmpty())
	})
})
