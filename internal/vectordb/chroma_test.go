package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/litreview/internal/embeddings"
)

// fakeChroma is a minimal in-memory stand-in for the Chroma v1 REST API.
type fakeChroma struct {
	mu           sync.Mutex
	collections  map[string]*fakeCollection
	legacy404    bool // answer missing collections the way pre-0.5 servers do
	lastQuery    chromaQueryRequest
	lastQueryRaw map[string]any
}

type fakeCollection struct {
	id   string
	ids  []string
	text []string
	meta []map[string]any
}

func newFakeChroma() *fakeChroma {
	return &fakeChroma{collections: map[string]*fakeCollection{}}
}

func (f *fakeChroma) missing(w http.ResponseWriter, name string) {
	if f.legacy404 {
		http.Error(w, `{"error":"ValueError('Collection `+name+` does not exist.')"}`, http.StatusInternalServerError)
		return
	}
	http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
}

func (f *fakeChroma) byID(id string) *fakeCollection {
	for _, c := range f.collections {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	enc := json.NewEncoder(w)

	switch {
	case path == "/heartbeat":
		enc.Encode(map[string]int64{"nanosecond heartbeat": time.Now().UnixNano()})

	case path == "/collections" && r.Method == http.MethodGet:
		out := []chromaCollection{}
		for name, c := range f.collections {
			out = append(out, chromaCollection{ID: c.id, Name: name})
		}
		enc.Encode(out)

	case path == "/collections" && r.Method == http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := f.collections[body.Name]; ok {
			http.Error(w, `{"error":"UniqueConstraintError('Collection `+body.Name+` already exists')"}`, http.StatusInternalServerError)
			return
		}
		c := &fakeCollection{id: "uuid-" + body.Name}
		f.collections[body.Name] = c
		enc.Encode(chromaCollection{ID: c.id, Name: body.Name})

	case len(parts) == 2 && parts[0] == "collections" && r.Method == http.MethodGet:
		c, ok := f.collections[parts[1]]
		if !ok {
			f.missing(w, parts[1])
			return
		}
		enc.Encode(chromaCollection{ID: c.id, Name: parts[1]})

	case len(parts) == 2 && parts[0] == "collections" && r.Method == http.MethodDelete:
		if _, ok := f.collections[parts[1]]; !ok {
			f.missing(w, parts[1])
			return
		}
		delete(f.collections, parts[1])
		w.Write([]byte("null"))

	case len(parts) == 3 && parts[0] == "collections":
		c := f.byID(parts[1])
		if c == nil {
			http.Error(w, `{"error":"unknown id"}`, http.StatusNotFound)
			return
		}
		f.collectionOp(w, r, c, parts[2])

	default:
		http.Error(w, "no route "+r.Method+" "+path, http.StatusNotFound)
	}
}

func (f *fakeChroma) collectionOp(w http.ResponseWriter, r *http.Request, c *fakeCollection, op string) {
	enc := json.NewEncoder(w)
	switch op {
	case "add":
		var req chromaAddRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Embeddings) != len(req.IDs) {
			http.Error(w, `{"error":"embeddings required"}`, http.StatusBadRequest)
			return
		}
		for i, id := range req.IDs {
			c.ids = append(c.ids, id)
			c.text = append(c.text, req.Documents[i])
			var md map[string]any
			if req.Metadatas != nil {
				md = req.Metadatas[i]
			}
			c.meta = append(c.meta, md)
		}
		w.Write([]byte("true"))

	case "query":
		var raw map[string]any
		var req chromaQueryRequest
		dec := json.NewDecoder(r.Body)
		dec.Decode(&raw)
		b, _ := json.Marshal(raw)
		json.Unmarshal(b, &req)
		f.lastQuery = req
		f.lastQueryRaw = raw
		resp := chromaQueryResponse{}
		for range req.QueryEmbeddings {
			var ids []string
			var docs []*string
			var metas []map[string]any
			var dists []float32
			// Return in reverse insertion order with descending distance
			// so the client has to sort.
			for i := len(c.ids) - 1; i >= 0 && len(ids) < req.NResults; i-- {
				text := c.text[i]
				ids = append(ids, c.ids[i])
				docs = append(docs, &text)
				metas = append(metas, c.meta[i])
				dists = append(dists, float32(i)/10)
			}
			resp.IDs = append(resp.IDs, ids)
			resp.Documents = append(resp.Documents, docs)
			resp.Metadatas = append(resp.Metadatas, metas)
			resp.Distances = append(resp.Distances, dists)
		}
		enc.Encode(resp)

	case "get":
		var req chromaGetRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := chromaGetResponse{}
		for i, id := range c.ids {
			if len(req.IDs) > 0 && !contains(req.IDs, id) {
				continue
			}
			text := c.text[i]
			resp.IDs = append(resp.IDs, id)
			resp.Documents = append(resp.Documents, &text)
			resp.Metadatas = append(resp.Metadatas, c.meta[i])
		}
		enc.Encode(resp)

	case "delete":
		var req struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for i := len(c.ids) - 1; i >= 0; i-- {
			if contains(req.IDs, c.ids[i]) {
				c.ids = append(c.ids[:i], c.ids[i+1:]...)
				c.text = append(c.text[:i], c.text[i+1:]...)
				c.meta = append(c.meta[:i], c.meta[i+1:]...)
			}
		}
		enc.Encode(req.IDs)

	case "count":
		enc.Encode(len(c.ids))

	default:
		http.Error(w, "unknown op", http.StatusNotFound)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func newTestChroma(t *testing.T) (*ChromaStore, *fakeChroma) {
	t.Helper()
	fake := newFakeChroma()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewChromaStore(nil, ChromaConfig{URL: srv.URL, Timeout: 5 * time.Second}, embeddings.NewMockEmbedder(8))
	if err != nil {
		t.Fatalf("NewChromaStore: %v", err)
	}
	return store, fake
}

func TestChromaHeartbeat(t *testing.T) {
	store, _ := newTestChroma(t)
	if err := store.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
}

func TestChromaCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestChroma(t)

	if _, err := store.GetCollection(ctx, "papers"); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	fake.legacy404 = true
	if _, err := store.GetCollection(ctx, "papers"); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected not found from legacy 500, got %v", err)
	}

	info, err := store.CreateCollection(ctx, "papers", nil)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if info.ID != "uuid-papers" {
		t.Errorf("ID = %q", info.ID)
	}
	if _, err := store.CreateCollection(ctx, "papers", nil); !errors.Is(err, ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}

	cols, err := store.ListCollections(ctx)
	if err != nil || len(cols) != 1 {
		t.Fatalf("ListCollections = %+v, %v", cols, err)
	}

	if err := store.DeleteCollection(ctx, "papers"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if err := store.DeleteCollection(ctx, "papers"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestChromaAddQuerySortsAndPassesWhere(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestChroma(t)
	seed(t, store, "c",
		Document{ID: "p_0", Content: "zero", Metadata: map[string]any{"source": "p"}},
		Document{ID: "p_1", Content: "one", Metadata: map[string]any{"source": "p"}},
		Document{ID: "p_2", Content: "two", Metadata: map[string]any{"source": "p"}},
	)

	where := map[string]any{"$and": []any{map[string]any{"source": "p"}, map[string]any{"year": map[string]any{"$gte": 2020}}}}
	res, err := store.Query(ctx, "c", QueryRequest{QueryTexts: []string{"q"}, NResults: 2, Where: where})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res[0]) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res[0]))
	}
	if res[0][0].ID != "p_1" || res[0][1].ID != "p_2" {
		t.Errorf("results not sorted by distance: %+v", res[0])
	}
	if res[0][0].Content != "one" || res[0][0].Metadata["source"] != "p" {
		t.Errorf("unexpected item %+v", res[0][0])
	}

	if fake.lastQuery.NResults != 2 {
		t.Errorf("n_results = %d", fake.lastQuery.NResults)
	}
	if len(fake.lastQuery.QueryEmbeddings) != 1 || len(fake.lastQuery.QueryEmbeddings[0]) != 8 {
		t.Errorf("query embeddings not sent: %+v", fake.lastQuery.QueryEmbeddings)
	}
	sent, _ := json.Marshal(fake.lastQueryRaw["where"])
	want, _ := json.Marshal(where)
	if string(sent) != string(want) {
		t.Errorf("where altered:\n got %s\nwant %s", sent, want)
	}
}

func TestChromaQueryDefaultsNResults(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestChroma(t)
	seed(t, store, "c", Document{ID: "a", Content: "a"})

	if _, err := store.Query(ctx, "c", QueryRequest{QueryTexts: []string{"q"}}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if fake.lastQuery.NResults != DefaultNResults {
		t.Errorf("n_results = %d, want %d", fake.lastQuery.NResults, DefaultNResults)
	}
}

func TestChromaGetDeleteCount(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestChroma(t)
	seed(t, store, "c",
		Document{ID: "a_0", Content: "x"},
		Document{ID: "a_1", Content: "y"},
	)

	docs, err := store.Get(ctx, "c", GetRequest{IDs: []string{"a_1"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(docs) != 1 || docs[0].Content != "y" {
		t.Errorf("unexpected docs %+v", docs)
	}

	if err := store.Delete(ctx, "c", []string{"a_0"}, nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := store.Count(ctx, "c")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d", n)
	}
}

func TestChromaAddMissingCollection(t *testing.T) {
	store, _ := newTestChroma(t)
	err := store.Add(context.Background(), "ghost", []Document{{ID: "x", Content: "y"}})
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChromaTransportError(t *testing.T) {
	store, err := NewChromaStore(nil, ChromaConfig{URL: "http://127.0.0.1:1", Timeout: time.Second}, embeddings.NewMockEmbedder(4))
	if err != nil {
		t.Fatalf("NewChromaStore: %v", err)
	}
	err = store.Heartbeat(context.Background())
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if se.Code != ErrorTransportFailed && se.Code != ErrorTimeout {
		t.Errorf("Code = %s", se.Code)
	}
}

func TestNewChromaStoreValidatesURL(t *testing.T) {
	if _, err := NewChromaStore(nil, ChromaConfig{}, embeddings.NewMockEmbedder(4)); err == nil {
		t.Error("expected error for empty url")
	}
}
