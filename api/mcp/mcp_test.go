package mcp_test

import (
	"context"
	"encoding/json"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/api/mcp"
	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory/local"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
)

var _ = Describe("MCP Server", func() {
	var (
		ctx     context.Context
		store   *inmemory.Driver
		mem     *local.Driver
		server  *mcp.Server
		session *gomcp.ClientSession
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()

		var err error
		mem, err = local.NewDriver(local.Config{Store: store})
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{
			Store:            store,
			Memory:           mem,
			MaxContextLength: 500,
			Logger:           logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		clientTransport, serverTransport := gomcp.NewInMemoryTransports()
		ss, err := server.MCPServer().Connect(ctx, serverTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = ss.Close() })

		client := gomcp.NewClient(&gomcp.Implementation{Name: "test", Version: "v0"}, nil)
		session, err = client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = session.Close() })
	})

	call := func(name string, args map[string]any, out any) *gomcp.CallToolResult {
		res, err := session.CallTool(ctx, &gomcp.CallToolParams{Name: name, Arguments: args})
		Expect(err).NotTo(HaveOccurred())
		if out != nil && !res.IsError {
			text := res.Content[0].(*gomcp.TextContent).Text
			Expect(json.Unmarshal([]byte(text), out)).To(Succeed())
		}
		return res
	}

	Describe("NewServer", func() {
		It("returns an error when storage driver is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Memory: mem, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("storage driver is required")))
		})

		It("returns an error when memory driver is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Store: store, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("memory driver is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Store: store, Memory: mem})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("creates an empty server in noop mode", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})
	})

	It("lists the context tools", func() {
		res, err := session.ListTools(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		names := make([]string, 0, len(res.Tools))
		for _, t := range res.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf("context_search", "context_add", "context_recall"))
	})

	It("adds then searches a fact", func() {
		var added mcp.AddOutput
		res := call("context_add", map[string]any{"content": "I prefer green tea", "category": "preferences"}, &added)
		Expect(res.IsError).To(BeFalse())
		Expect(added.Entry.Category).To(Equal(entry.CategoryPreferences.String()))
		Expect(added.Entry.Type).To(Equal("note"))
		Expect(added.Entry.Source).To(Equal("manual"))

		var found mcp.SearchOutput
		call("context_search", map[string]any{"query": "green tea"}, &found)
		Expect(found.Count).To(Equal(1))
		Expect(found.Entries[0].ID).To(Equal(added.Entry.ID))
		Expect(found.Entries[0].Category).To(Equal("preferences"))
	})

	It("returns structured output with string enumerations", func() {
		e := entry.New("I am allergic to peanuts",
			entry.WithType(entry.TypeConstraint),
			entry.WithCategory(entry.CategoryHealth),
			entry.WithSource(entry.SourceUserPrompt),
			entry.WithTags("diet"),
		)
		Expect(store.Create(ctx, e)).To(Succeed())

		res := call("context_search", map[string]any{"query": "peanuts"}, nil)
		Expect(res.IsError).To(BeFalse())

		raw, err := json.Marshal(res.StructuredContent)
		Expect(err).NotTo(HaveOccurred())
		var structured struct {
			Entries []map[string]any `json:"entries"`
		}
		Expect(json.Unmarshal(raw, &structured)).To(Succeed())
		Expect(structured.Entries).To(HaveLen(1))
		Expect(structured.Entries[0]).To(HaveKeyWithValue("type", "constraint"))
		Expect(structured.Entries[0]).To(HaveKeyWithValue("category", "health"))
		Expect(structured.Entries[0]).To(HaveKeyWithValue("source", "user_prompt"))
	})

	It("returns an empty result list when nothing matches", func() {
		var found mcp.SearchOutput
		res := call("context_search", map[string]any{"query": "nothing stored"}, &found)
		Expect(res.IsError).To(BeFalse())
		Expect(found.Entries).To(BeEmpty())
		Expect(found.Count).To(BeZero())
	})

	It("rejects invalid additions", func() {
		Expect(call("context_add", map[string]any{"content": "  "}, nil).IsError).To(BeTrue())
		Expect(call("context_add", map[string]any{"content": "I like tea", "category": "astrology"}, nil).IsError).To(BeTrue())
	})

	It("previews recall for a prompt", func() {
		Expect(store.Create(ctx, entry.New("I live in Portland"))).To(Succeed())

		var out mcp.RecallOutput
		res := call("context_recall", map[string]any{"prompt": "Where do I live?", "template": "minimal"}, &out)
		Expect(res.IsError).To(BeFalse())
		Expect(out.Entries).To(HaveLen(1))
		Expect(out.Prompt).To(Equal("- I live in Portland\n\nWhere do I live?"))
	})

	It("requires a query and a prompt", func() {
		Expect(call("context_search", map[string]any{"query": ""}, nil).IsError).To(BeTrue())
		Expect(call("context_recall", map[string]any{"prompt": ""}, nil).IsError).To(BeTrue())
	})
})
