package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/local"
	"github.com/papercomputeco/recall/pkg/memory/template"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/transfer"
)

var _ = Describe("Server", func() {
	var (
		ctx    context.Context
		store  *inmemory.Driver
		server *api.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()

		mem, err := local.NewDriver(local.Config{Store: store})
		Expect(err).NotTo(HaveOccurred())

		server, err = api.NewServer(api.Config{
			Templates:       template.New(),
			DefaultTemplate: template.ForcedReference,
		}, store, mem, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	do := func(method, target, body string) (int, []byte) {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		req.Header.Set("Content-Type", "application/json")

		resp, err := server.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, b
	}

	seed := func(content string, opts ...entry.Option) *entry.Entry {
		e := entry.New(content, opts...)
		Expect(store.Create(ctx, e)).To(Succeed())
		return e
	}

	It("requires a store and a memory driver", func() {
		_, err := api.NewServer(api.Config{}, nil, nil, nil)
		Expect(err).To(MatchError("storage driver is required"))

		_, err = api.NewServer(api.Config{}, store, nil, nil)
		Expect(err).To(MatchError(memory.ErrNotConfigured))
	})

	It("answers ping", func() {
		status, body := do(http.MethodGet, "/ping", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("entries", func() {
		It("creates a manual entry", func() {
			status, body := do(http.MethodPost, "/entries",
				`{"content":"I prefer tea","category":"preferences","tags":["drinks"]}`)
			Expect(status).To(Equal(http.StatusCreated))

			var created entry.Entry
			Expect(json.Unmarshal(body, &created)).To(Succeed())
			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.Source).To(Equal(entry.SourceManual))
			Expect(created.Category).To(Equal(entry.CategoryPreferences))
			Expect(created.Confidence).To(Equal(entry.DefaultManualConfidence))

			stored, err := store.Get(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Tags).To(ConsistOf("drinks"))
		})

		DescribeTable("rejects invalid entries with 400",
			func(body string) {
				status, resp := do(http.MethodPost, "/entries", body)
				Expect(status).To(Equal(http.StatusBadRequest))

				var errResp llm.ErrorResponse
				Expect(json.Unmarshal(resp, &errResp)).To(Succeed())
				Expect(errResp.Error).NotTo(BeEmpty())
			},
			Entry("missing content", `{"category":"work"}`),
			Entry("blank content", `{"content":"   "}`),
			Entry("unknown category", `{"content":"x y","category":"astrology"}`),
			Entry("confidence out of range", `{"content":"I like tea","confidence":1.5}`),
			Entry("malformed json", `{"content":`),
		)

		It("lists entries with filters and paging", func() {
			seed("I live in Oslo", entry.WithCategory(entry.CategoryPersonalInfo))
			seed("I work at Acme", entry.WithCategory(entry.CategoryWork))
			seed("I use Go", entry.WithCategory(entry.CategoryTechnical))

			status, body := do(http.MethodGet, "/entries?category=work", "")
			Expect(status).To(Equal(http.StatusOK))

			var list api.ListResponse
			Expect(json.Unmarshal(body, &list)).To(Succeed())
			Expect(list.Count).To(Equal(1))
			Expect(list.Total).To(Equal(3))
			Expect(list.Entries[0].Content).To(Equal("I work at Acme"))

			status, body = do(http.MethodGet, "/entries?limit=2", "")
			Expect(status).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(body, &list)).To(Succeed())
			Expect(list.Entries).To(HaveLen(2))
		})

		It("rejects unknown filter values", func() {
			status, _ := do(http.MethodGet, "/entries?source=telepathy", "")
			Expect(status).To(Equal(http.StatusBadRequest))

			status, _ = do(http.MethodGet, "/entries?limit=-1", "")
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("returns an empty list rather than null", func() {
			status, body := do(http.MethodGet, "/entries", "")
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"entries":[]`))
		})

		It("gets, updates and deletes by id", func() {
			e := seed("I live in Oslo")

			status, body := do(http.MethodGet, "/entries/"+e.ID, "")
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("I live in Oslo"))

			status, body = do(http.MethodPut, "/entries/"+e.ID, `{"content":"I live in Bergen","confidence":0.9}`)
			Expect(status).To(Equal(http.StatusOK))

			var updated entry.Entry
			Expect(json.Unmarshal(body, &updated)).To(Succeed())
			Expect(updated.Content).To(Equal("I live in Bergen"))
			Expect(updated.Confidence).To(Equal(0.9))
			Expect(updated.Category).To(Equal(e.Category))
			Expect(updated.UpdatedAt).NotTo(BeTemporally("<", e.UpdatedAt))

			status, _ = do(http.MethodDelete, "/entries/"+e.ID, "")
			Expect(status).To(Equal(http.StatusNoContent))

			_, err := store.Get(ctx, e.ID)
			Expect(err).To(HaveOccurred())
		})

		It("returns 404 for unknown ids", func() {
			status, _ := do(http.MethodGet, "/entries/missing", "")
			Expect(status).To(Equal(http.StatusNotFound))

			status, _ = do(http.MethodPut, "/entries/missing", `{"content":"x y"}`)
			Expect(status).To(Equal(http.StatusNotFound))

			status, _ = do(http.MethodDelete, "/entries/missing", "")
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("searches by substring", func() {
			seed("I love espresso")
			seed("I live in Oslo")

			status, body := do(http.MethodGet, "/entries/search?q=ESPRESSO", "")
			Expect(status).To(Equal(http.StatusOK))

			var list api.ListResponse
			Expect(json.Unmarshal(body, &list)).To(Succeed())
			Expect(list.Entries).To(HaveLen(1))
			Expect(list.Entries[0].Content).To(Equal("I love espresso"))

			status, _ = do(http.MethodGet, "/entries/search", "")
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("/retrieve", func() {
		It("previews the augmented prompt", func() {
			seed("I live in Portland")

			status, body := do(http.MethodPost, "/retrieve", `{"prompt":"Where do I live?"}`)
			Expect(status).To(Equal(http.StatusOK))

			var rec memory.Recollection
			Expect(json.Unmarshal(body, &rec)).To(Succeed())
			Expect(rec.Entries).To(HaveLen(1))
			Expect(rec.Template).To(Equal(template.ForcedReference))
			Expect(rec.Prompt).To(HavePrefix("You MUST use the following facts"))
		})

		It("returns the prompt unchanged when nothing matches", func() {
			status, body := do(http.MethodPost, "/retrieve", `{"prompt":"Hello there","template":"minimal"}`)
			Expect(status).To(Equal(http.StatusOK))

			var rec memory.Recollection
			Expect(json.Unmarshal(body, &rec)).To(Succeed())
			Expect(rec.Entries).To(BeEmpty())
			Expect(rec.Prompt).To(Equal("Hello there"))
		})

		It("requires a prompt", func() {
			status, _ := do(http.MethodPost, "/retrieve", `{"prompt":""}`)
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	It("lists templates", func() {
		status, body := do(http.MethodGet, "/templates", "")
		Expect(status).To(Equal(http.StatusOK))

		var resp api.TemplatesResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Default).To(Equal(template.ForcedReference))

		names := make([]string, 0, len(resp.Templates))
		for _, t := range resp.Templates {
			names = append(names, t.Name)
		}
		Expect(names).To(ContainElements(template.StableNames()))
	})

	Describe("export and import", func() {
		It("round-trips entries through YAML", func() {
			seed("I live in Oslo")
			seed("I use Go", entry.WithTags("go"))

			status, exported := do(http.MethodGet, "/export?format=yaml", "")
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(exported)).To(ContainSubstring("I use Go"))

			doc, err := transfer.Decode(strings.NewReader(string(exported)), transfer.FormatYAML)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Entries).To(HaveLen(2))

			for _, e := range doc.Entries {
				Expect(store.Delete(ctx, e.ID)).To(Succeed())
			}

			status, body := do(http.MethodPost, "/import?format=yaml", string(exported))
			Expect(status).To(Equal(http.StatusOK))

			var res transfer.ImportResult
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Created).To(Equal(2))

			n, err := store.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})

		It("skips existing ids unless overwrite is set", func() {
			e := seed("I live in Oslo")
			_, exported := do(http.MethodGet, "/export", "")

			_, body := do(http.MethodPost, "/import", string(exported))
			var res transfer.ImportResult
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Skipped).To(Equal(1))

			_, body = do(http.MethodPost, "/import?overwrite=true", string(exported))
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Updated).To(Equal(1))

			stored, err := store.Get(ctx, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Source).To(Equal(entry.SourceImported))
		})

		It("rejects unknown formats and malformed documents", func() {
			status, _ := do(http.MethodGet, "/export?format=xml", "")
			Expect(status).To(Equal(http.StatusBadRequest))

			status, _ = do(http.MethodPost, "/import", "{not json")
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	It("mounts the MCP endpoint", func() {
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(
			`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")

		resp, err := server.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"name":"recall"`))
	})
})
