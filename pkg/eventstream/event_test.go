package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals EntryLearnedEvent with expected top-level keys", func() {
		e := entry.New("I live in Portland",
			entry.WithSource(entry.SourceUserPrompt),
			entry.WithCategory(entry.CategoryPersonalInfo),
		)
		event := eventstream.NewEntryLearnedEvent("conv-1",
			eventstream.EventSource{Model: "llama3", Path: "/api/chat"}, e)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKeyWithValue("schema_version", BeNumerically("==", eventstream.SchemaVersionV1)))
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeEntryLearned))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("conversation_id", "conv-1"))
		Expect(got["source"]).To(HaveKeyWithValue("model", "llama3"))
		Expect(got["entry"]).To(HaveKeyWithValue("source", "user_prompt"))
		Expect(got["entry"]).To(HaveKeyWithValue("category", "personal_info"))
	})

	It("assigns distinct event ids", func() {
		e := entry.New("x y z")
		a := eventstream.NewEntryLearnedEvent("c", eventstream.EventSource{}, e)
		b := eventstream.NewEntryLearnedEvent("c", eventstream.EventSource{}, e)
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeEntryLearned).To(Equal("recall.entry.learned"))
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
