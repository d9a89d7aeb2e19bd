package rag

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ziadkadry99/litreview/internal/embeddings"
	"github.com/ziadkadry99/litreview/internal/extract"
	"github.com/ziadkadry99/litreview/internal/llm"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

func newTestStore(t *testing.T) *vectordb.ChromemStore {
	t.Helper()
	store, err := vectordb.NewChromemStore(embeddings.NewMockEmbedder(32), "")
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return store
}

func words(n int, word string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func TestSourceStem(t *testing.T) {
	tests := map[string]string{
		"paper.pdf":            "paper",
		"/tmp/uploads/a.b.tex": "a.b",
		"noext":                "noext",
		`C:\docs\review.zip`:   "review",
	}
	for in, want := range tests {
		if got := SourceStem(in); got != want {
			t.Errorf("SourceStem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIndexCreatesCollectionAndChunks(t *testing.T) {
	store := newTestStore(t)
	ix := NewIndexer(store)
	ctx := context.Background()

	res, err := ix.Index(ctx, "papers", "attention", []string{"first chunk", "second chunk", "third chunk"})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if res.Status != StatusSuccess || res.Chunks != 3 || res.Collection != "papers" {
		t.Errorf("result = %+v", res)
	}

	n, err := store.Count(ctx, "papers")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	docs, err := store.Get(ctx, "papers", vectordb.GetRequest{IDs: []string{"attention_1"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(docs) != 1 || docs[0].Content != "second chunk" {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[0].Metadata["source"] != "attention" {
		t.Errorf("source metadata = %v", docs[0].Metadata["source"])
	}
	if fmt.Sprint(docs[0].Metadata["chunk_index"]) != "1" {
		t.Errorf("chunk_index metadata = %v", docs[0].Metadata["chunk_index"])
	}
}

func TestIndexZeroChunksStillCreatesCollection(t *testing.T) {
	store := newTestStore(t)
	res, err := NewIndexer(store).Index(context.Background(), "empty", "blank", nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if res.Chunks != 0 {
		t.Errorf("chunks = %d, want 0", res.Chunks)
	}
	if _, err := store.GetCollection(context.Background(), "empty"); err != nil {
		t.Errorf("collection not created: %v", err)
	}
}

func TestIndexReindexOverwrites(t *testing.T) {
	store := newTestStore(t)
	ix := NewIndexer(store)
	ctx := context.Background()

	if _, err := ix.Index(ctx, "c", "doc", []string{"old zero", "old one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Index(ctx, "c", "doc", []string{"new zero", "new one"}); err != nil {
		t.Fatal(err)
	}
	n, _ := store.Count(ctx, "c")
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	docs, err := store.Get(ctx, "c", vectordb.GetRequest{IDs: []string{"doc_0"}})
	if err != nil || len(docs) != 1 {
		t.Fatalf("Get: %v %v", docs, err)
	}
	if docs[0].Content != "new zero" {
		t.Errorf("content = %q, want %q", docs[0].Content, "new zero")
	}
}

func TestIndexPolicyWithoutCreate(t *testing.T) {
	store := newTestStore(t)
	ix := NewIndexer(store, WithPolicy(CollectionPolicy{CreateOnWrite: false}))
	_, err := ix.Index(context.Background(), "missing", "doc", []string{"x"})
	if !errors.Is(err, vectordb.ErrCollectionNotFound) {
		t.Fatalf("err = %v, want ErrCollectionNotFound", err)
	}
}

func TestIndexRequiresCollection(t *testing.T) {
	_, err := NewIndexer(newTestStore(t)).Index(context.Background(), " ", "doc", []string{"x"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestIndexConcurrentSameCollection(t *testing.T) {
	for _, opts := range [][]IndexerOption{nil, {WithSerializedWrites()}} {
		store := newTestStore(t)
		ix := NewIndexer(store, opts...)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := ix.Index(ctx, "shared", fmt.Sprintf("doc%d", i), []string{"alpha", "beta"})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Index: %v", err)
			}
		}
		n, _ := store.Count(ctx, "shared")
		if n != 16 {
			t.Errorf("count = %d, want 16", n)
		}
	}
}

func TestRetrieverQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := NewIndexer(store).Index(ctx, "papers", "p", []string{
		"transformers use attention",
		"convolutional networks for vision",
		"attention is all you need",
	}); err != nil {
		t.Fatal(err)
	}

	r := NewRetriever(store, DefaultPolicy)
	resp, err := r.Query(ctx, "papers", vectordb.QueryRequest{QueryTexts: []string{"attention"}, NResults: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.IDs) != 1 || len(resp.IDs[0]) != 2 {
		t.Fatalf("ids = %v", resp.IDs)
	}
	if len(resp.Documents[0]) != 2 || len(resp.Metadatas[0]) != 2 || len(resp.Distances[0]) != 2 {
		t.Fatalf("parallel lists have mismatched lengths: %+v", resp)
	}
	if resp.Distances[0][0] > resp.Distances[0][1] {
		t.Errorf("distances not ascending: %v", resp.Distances[0])
	}

	joined := JoinContext(resp)
	if !strings.Contains(joined, "\n\n") || !strings.Contains(joined, resp.Documents[0][0]) {
		t.Errorf("JoinContext = %q", joined)
	}
}

func TestRetrieverDefaultsAndClamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := NewIndexer(store).Index(ctx, "small", "s", []string{"one", "two"}); err != nil {
		t.Fatal(err)
	}
	resp, err := NewRetriever(store, DefaultPolicy).Query(ctx, "small", vectordb.QueryRequest{QueryTexts: []string{"one", "two"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.IDs) != 2 {
		t.Fatalf("want one result list per query text, got %d", len(resp.IDs))
	}
	for i, ids := range resp.IDs {
		if len(ids) != 2 {
			t.Errorf("query %d: got %d results, want 2", i, len(ids))
		}
	}
}

func TestRetrieverMissingCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := NewRetriever(store, DefaultPolicy).Query(ctx, "nope", vectordb.QueryRequest{QueryTexts: []string{"x"}})
	if !errors.Is(err, vectordb.ErrCollectionNotFound) {
		t.Fatalf("err = %v, want ErrCollectionNotFound", err)
	}
	if _, err := store.GetCollection(ctx, "nope"); err == nil {
		t.Error("query must not create the collection")
	}

	resp, err := NewRetriever(store, CollectionPolicy{CreateOnRead: true}).Query(ctx, "nope", vectordb.QueryRequest{QueryTexts: []string{"x"}})
	if err != nil {
		t.Fatalf("CreateOnRead query: %v", err)
	}
	if len(resp.IDs) != 1 || len(resp.IDs[0]) != 0 {
		t.Errorf("ids = %v, want one empty list", resp.IDs)
	}
}

func TestRetrieverValidation(t *testing.T) {
	r := NewRetriever(newTestStore(t), DefaultPolicy)
	var ve *ValidationError
	if _, err := r.Query(context.Background(), "c", vectordb.QueryRequest{}); !errors.As(err, &ve) {
		t.Errorf("empty query texts: err = %v", err)
	}
	if _, err := r.Query(context.Background(), "", vectordb.QueryRequest{QueryTexts: []string{"x"}}); !errors.As(err, &ve) {
		t.Errorf("empty collection: err = %v", err)
	}
}

func TestJoinContextEmpty(t *testing.T) {
	if got := JoinContext(nil); got != "" {
		t.Errorf("JoinContext(nil) = %q", got)
	}
	if got := JoinContext(&QueryResponse{Documents: [][]string{{}}}); got != "" {
		t.Errorf("JoinContext(empty) = %q", got)
	}
}

func TestGeneratorGenerate(t *testing.T) {
	provider := llm.NewMockProvider("mock")
	provider.Response = &llm.CompletionResponse{Content: "  A review paragraph.\n"}
	gen := NewGenerator(provider, GeneratorConfig{Model: "qwen", MaxTokens: 512})

	out, err := gen.Generate(context.Background(), "summarise attention", "ctx one\n\nctx two")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "  A review paragraph.\n" {
		t.Errorf("output was modified: %q", out)
	}
	if provider.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", provider.CallCount())
	}

	req := provider.LastCall()
	if req.Model != "qwen" || req.MaxTokens != 512 {
		t.Errorf("request = %+v", req)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != llm.RoleSystem || req.Messages[0].Content != DefaultSystemPrompt {
		t.Errorf("system message = %+v", req.Messages[0])
	}
	user := req.Messages[1].Content
	if req.Messages[1].Role != llm.RoleUser {
		t.Errorf("second role = %q", req.Messages[1].Role)
	}
	ci := strings.Index(user, "ctx one\n\nctx two")
	pi := strings.Index(user, "summarise attention")
	if ci < 0 || pi < 0 || ci > pi {
		t.Errorf("user prompt must embed context before requirements: %q", user)
	}
}

func TestGeneratorEmptyContext(t *testing.T) {
	provider := llm.NewMockProvider("mock")
	if _, err := NewGenerator(provider, GeneratorConfig{}).Generate(context.Background(), "p", ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(provider.LastCall().Messages[1].Content, "p") {
		t.Error("prompt missing from user message")
	}
}

func TestGeneratorCustomSystemPrompt(t *testing.T) {
	provider := llm.NewMockProvider("mock")
	gen := NewGenerator(provider, GeneratorConfig{SystemPrompt: "Be brief."})
	if _, err := gen.Generate(context.Background(), "p", "c"); err != nil {
		t.Fatal(err)
	}
	if got := provider.LastCall().Messages[0].Content; got != "Be brief." {
		t.Errorf("system prompt = %q", got)
	}
}

func TestGeneratorErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"upstream", &llm.UpstreamError{Provider: "openai", StatusCode: 503, Detail: "overloaded"}, 503},
		{"no choices", llm.ErrNoChoices, 0},
		{"transport", errors.New("connection refused"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := llm.NewMockProvider("mock")
			provider.Err = tt.err
			_, err := NewGenerator(provider, GeneratorConfig{}).Generate(context.Background(), "p", "c")
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("err = %v, want *GenerationError", err)
			}
			if ge.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", ge.StatusCode, tt.wantStatus)
			}
			if !errors.Is(err, tt.err) {
				t.Error("GenerationError should wrap the provider error")
			}
		})
	}
}

func TestGeneratorChat(t *testing.T) {
	provider := llm.NewMockProvider("mock")
	gen := NewGenerator(provider, GeneratorConfig{Model: "default-model"})

	resp, err := gen.Chat(context.Background(), "", []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("content = %q", resp.Content)
	}
	if provider.LastCall().Model != "default-model" {
		t.Errorf("model = %q", provider.LastCall().Model)
	}

	if _, err := gen.Chat(context.Background(), "other", []llm.Message{{Role: llm.RoleUser, Content: "hi"}}); err != nil {
		t.Fatal(err)
	}
	if provider.LastCall().Model != "other" {
		t.Errorf("model override ignored: %q", provider.LastCall().Model)
	}

	var ve *ValidationError
	if _, err := gen.Chat(context.Background(), "", nil); !errors.As(err, &ve) {
		t.Errorf("empty messages: err = %v", err)
	}
}

func latexZip(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("main.tex")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestProcessorLaTeXZip(t *testing.T) {
	store := newTestStore(t)
	p := NewProcessor(extract.New(), NewIndexer(store), 10)

	res, err := p.Process(context.Background(), Upload{
		Filename:   "survey.zip",
		MIMEType:   "application/zip",
		Data:       latexZip(t, words(25, "graph")),
		Collection: "user_1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", res.Chunks)
	}
	docs, err := store.Get(context.Background(), "user_1", vectordb.GetRequest{IDs: []string{"survey_2"}})
	if err != nil || len(docs) != 1 {
		t.Fatalf("Get: %v %v", docs, err)
	}
	if got := len(strings.Fields(docs[0].Content)); got != 5 {
		t.Errorf("last chunk has %d words, want 5", got)
	}
}

func TestProcessorHTML(t *testing.T) {
	store := newTestStore(t)
	p := NewProcessor(extract.New(), NewIndexer(store), 1000)
	res, err := p.Process(context.Background(), Upload{
		Filename:   "page.html",
		MIMEType:   "text/html",
		Data:       []byte("<html><body><p>Deep learning review</p></body></html>"),
		Collection: "web",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", res.Chunks)
	}
}

func TestProcessorUnsupportedType(t *testing.T) {
	store := newTestStore(t)
	p := NewProcessor(extract.New(), NewIndexer(store), 1000)
	_, err := p.Process(context.Background(), Upload{Filename: "a.docx", MIMEType: "application/msword", Data: []byte("x"), Collection: "c"})
	var ue *extract.UnsupportedFileTypeError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UnsupportedFileTypeError", err)
	}
	if _, err := store.GetCollection(context.Background(), "c"); err == nil {
		t.Error("unsupported upload must not create a collection")
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.html")
	if err := os.WriteFile(path, []byte("<p>alpha beta gamma</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t)
	p := NewProcessor(extract.New(), NewIndexer(store), 2)

	res, err := p.ProcessFile(context.Background(), path, "text/html", "notes")
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if res.Chunks != 2 {
		t.Errorf("chunks = %d, want 2", res.Chunks)
	}
	if _, err := p.ProcessFile(context.Background(), filepath.Join(dir, "missing.html"), "text/html", "notes"); err == nil {
		t.Error("expected error for missing file")
	}
	var ue *extract.UnsupportedFileTypeError
	if _, err := p.ProcessFile(context.Background(), path, "image/png", "notes"); !errors.As(err, &ue) {
		t.Errorf("err = %v, want *UnsupportedFileTypeError", err)
	}
}

type fakePageReader []string

func (f fakePageReader) Pages(context.Context, []byte) ([]string, error) {
	return f, nil
}

func assertSingleChunk(t *testing.T, store vectordb.Store, collection, id, content, source string) {
	t.Helper()
	docs, err := store.Get(context.Background(), collection, vectordb.GetRequest{IDs: []string{id}})
	if err != nil || len(docs) != 1 {
		t.Fatalf("Get %s: %v %v", id, docs, err)
	}
	if docs[0].Content != content {
		t.Errorf("content = %q, want %q", docs[0].Content, content)
	}
	if got := fmt.Sprint(docs[0].Metadata["source"]); got != source {
		t.Errorf("source = %q, want %q", got, source)
	}
}

func TestProcessorPDF(t *testing.T) {
	store := newTestStore(t)
	ex := extract.New(extract.WithPageReader(fakePageReader{"alpha beta", "gamma delta"}))
	p := NewProcessor(ex, NewIndexer(store), 1000)

	res, err := p.Process(context.Background(), Upload{
		Filename:   "paper.pdf",
		MIMEType:   "application/pdf",
		Data:       []byte("%PDF"),
		Collection: "user_7",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", res.Chunks)
	}
	assertSingleChunk(t, store, "user_7", "paper_0", "alpha beta gamma delta", "paper")
}

func TestProcessFileRealPDF(t *testing.T) {
	store := newTestStore(t)
	p := NewProcessor(extract.New(), NewIndexer(store), 1000)

	res, err := p.ProcessFile(context.Background(), filepath.Join("testdata", "two_pages.pdf"), "application/pdf", "papers")
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if res.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", res.Chunks)
	}
	assertSingleChunk(t, store, "papers", "two_pages_0", "alpha beta gamma delta", "two_pages")
}
