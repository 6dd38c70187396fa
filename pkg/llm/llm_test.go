package llm_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/llm"
)

var _ = Describe("EndpointFor", func() {
	DescribeTable("maps paths",
		func(path string, want llm.Endpoint, injectable bool) {
			Expect(llm.EndpointFor(path)).To(Equal(want))
			Expect(want.Injectable()).To(Equal(injectable))
		},
		Entry("generate", "/api/generate", llm.EndpointGenerate, true),
		Entry("chat", "/api/chat", llm.EndpointChat, true),
		Entry("chat with slash", "/api/chat/", llm.EndpointChat, true),
		Entry("tags", "/api/tags", llm.EndpointOther, false),
		Entry("pull", "/api/pull", llm.EndpointOther, false),
	)
})

var _ = Describe("Request", func() {
	Context("generate", func() {
		It("reads and rewrites the prompt, preserving other fields", func() {
			body := []byte(`{"model":"llama3","prompt":"Where do I live?","stream":false,"options":{"temperature":0.2}}`)

			req, err := llm.ParseRequest(llm.EndpointGenerate, body)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Model).To(Equal("llama3"))
			Expect(req.Stream).To(BeFalse())
			Expect(req.Prompt()).To(Equal("Where do I live?"))

			req.SetPrompt("context\n\nWhere do I live?")
			out, err := req.Encode()
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(out, &decoded)).To(Succeed())
			Expect(decoded).To(HaveKeyWithValue("prompt", "context\n\nWhere do I live?"))
			Expect(decoded).To(HaveKeyWithValue("model", "llama3"))
			Expect(decoded).To(HaveKeyWithValue("stream", false))
			Expect(decoded["options"]).To(HaveKeyWithValue("temperature", 0.2))
		})

		It("defaults to streaming", func() {
			req, err := llm.ParseRequest(llm.EndpointGenerate, []byte(`{"model":"m","prompt":"hi"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Stream).To(BeTrue())
		})
	})

	Context("chat", func() {
		It("rewrites the latest user message only", func() {
			body := []byte(`{"model":"llama3","messages":[
				{"role":"system","content":"be brief"},
				{"role":"user","content":"first"},
				{"role":"assistant","content":"ok"},
				{"role":"user","content":"second","images":["aGk="]}
			]}`)

			req, err := llm.ParseRequest(llm.EndpointChat, body)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Prompt()).To(Equal("second"))
			Expect(req.Messages()).To(HaveLen(4))

			req.SetPrompt("augmented second")
			out, err := req.Encode()
			Expect(err).NotTo(HaveOccurred())

			var decoded struct {
				Messages []map[string]any `json:"messages"`
			}
			Expect(json.Unmarshal(out, &decoded)).To(Succeed())
			Expect(decoded.Messages).To(HaveLen(4))
			Expect(decoded.Messages[1]).To(HaveKeyWithValue("content", "first"))
			Expect(decoded.Messages[3]).To(HaveKeyWithValue("content", "augmented second"))
			Expect(decoded.Messages[3]).To(HaveKey("images"))
		})

		It("appends a user message when there is none", func() {
			req, err := llm.ParseRequest(llm.EndpointChat, []byte(`{"model":"m","messages":[{"role":"system","content":"s"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Prompt()).To(BeEmpty())

			req.SetPrompt("hello")
			Expect(req.Prompt()).To(Equal("hello"))
			Expect(req.Messages()).To(HaveLen(2))
		})
	})

	DescribeTable("rejects malformed bodies",
		func(endpoint llm.Endpoint, body string) {
			_, err := llm.ParseRequest(endpoint, []byte(body))
			Expect(err).To(MatchError(llm.ErrMalformedRequest))
		},
		Entry("not json", llm.EndpointGenerate, `{"model":`),
		Entry("null", llm.EndpointGenerate, `null`),
		Entry("array", llm.EndpointChat, `[]`),
		Entry("prompt not a string", llm.EndpointGenerate, `{"prompt":42}`),
		Entry("messages not a list", llm.EndpointChat, `{"messages":"hi"}`),
		Entry("content not a string", llm.EndpointChat, `{"messages":[{"role":"user","content":1}]}`),
		Entry("stream not a bool", llm.EndpointChat, `{"stream":"yes"}`),
		Entry("non-injectable endpoint", llm.EndpointOther, `{}`),
	)
})

var _ = Describe("CollectText", func() {
	It("reads a non-streaming generate response", func() {
		text, err := llm.CollectText([]byte(`{"model":"m","response":"You live in Portland.","done":true}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("You live in Portland."))
	})

	It("joins streamed chat fragments", func() {
		body := []byte(`{"model":"m","message":{"role":"assistant","content":"You "},"done":false}
{"model":"m","message":{"role":"assistant","content":"live "},"done":false}

{"model":"m","message":{"role":"assistant","content":"in Portland."},"done":true}
`)
		text, err := llm.CollectText(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("You live in Portland."))
	})

	It("reports undecodable lines", func() {
		_, err := llm.CollectText([]byte("not json"))
		Expect(err).To(HaveOccurred())
	})

	It("tracks completion and in-band errors", func() {
		var c llm.Collector
		Expect(c.Add([]byte(`{"model":"m","response":"a","done":false}`))).To(Succeed())
		Expect(c.Done()).To(BeFalse())
		Expect(c.Add([]byte(`{"error":"model not found"}`))).To(Succeed())
		Expect(c.Err()).To(Equal("model not found"))
		Expect(c.Model()).To(Equal("m"))
	})
})
