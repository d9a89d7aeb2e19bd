package vectordb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/litreview/internal/embeddings"
)

// ChromemStore is an embedded Store backed by chromem-go. Distances are
// cosine distances (1 - similarity).
type ChromemStore struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
	// createMu makes the exists-check in CreateCollection atomic.
	createMu sync.Mutex
}

// NewChromemStore opens a store. An empty dir keeps everything in memory;
// otherwise collections are persisted (gzip compressed) under dir.
func NewChromemStore(embedder embeddings.Embedder, dir string) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", dir, err)
		}
	}
	return &ChromemStore{
		db:        db,
		embedFunc: embeddings.ToChromemFunc(embedder),
	}, nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	c := s.db.GetCollection(name, s.embedFunc)
	if c == nil {
		return nil, &CollectionNotFoundError{Name: name}
	}
	return c, nil
}

func (s *ChromemStore) GetCollection(_ context.Context, name string) (*CollectionInfo, error) {
	if _, err := s.collection(name); err != nil {
		return nil, err
	}
	return &CollectionInfo{Name: name, ID: name}, nil
}

func (s *ChromemStore) CreateCollection(_ context.Context, name string, metadata map[string]any) (*CollectionInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, storageErr("create_collection", ErrorValidation, "collection name is required", nil)
	}
	md, err := flatten(metadata)
	if err != nil {
		return nil, storageErr("create_collection", ErrorValidation, "collection metadata must be scalar", err)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if s.db.GetCollection(name, s.embedFunc) != nil {
		return nil, ErrCollectionExists
	}
	if _, err := s.db.CreateCollection(name, md, s.embedFunc); err != nil {
		return nil, storageErr("create_collection", ErrorBackend, "", err)
	}
	return &CollectionInfo{Name: name, ID: name, Metadata: metadata}, nil
}

func (s *ChromemStore) ListCollections(_ context.Context) ([]CollectionInfo, error) {
	cols := s.db.ListCollections()
	infos := make([]CollectionInfo, 0, len(cols))
	for name := range cols {
		infos = append(infos, CollectionInfo{Name: name, ID: name})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *ChromemStore) DeleteCollection(_ context.Context, name string) error {
	if _, err := s.collection(name); err != nil {
		return err
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return storageErr("delete_collection", ErrorBackend, "", err)
	}
	return nil
}

func (s *ChromemStore) Add(ctx context.Context, collection string, docs []Document) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return storageErr("add", ErrorValidation, fmt.Sprintf("document %d has no id", i), nil)
		}
		md, err := flatten(doc.Metadata)
		if err != nil {
			return storageErr("add", ErrorValidation, fmt.Sprintf("document %s metadata", doc.ID), err)
		}
		chromDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  md,
			Embedding: doc.Embedding,
		}
	}

	if err := c.AddDocuments(ctx, chromDocs, runtime.NumCPU()); err != nil {
		return storageErr("add", ErrorBackend, "", err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, collection string, req QueryRequest) ([][]QueryResult, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	where, err := flatten(req.Where)
	if err != nil {
		return nil, storageErr("query", ErrorUnsupportedFilter, "embedded store only supports equality filters on scalar values", err)
	}

	out := make([][]QueryResult, len(req.QueryTexts))
	for i, text := range req.QueryTexts {
		// chromem rejects nResults larger than the collection.
		n := min(req.nResults(), c.Count())
		if n == 0 {
			out[i] = []QueryResult{}
			continue
		}

		res, err := c.Query(ctx, text, n, where, nil)
		if err != nil {
			return nil, storageErr("query", ErrorBackend, "", err)
		}

		items := make([]QueryResult, len(res))
		for j, r := range res {
			items[j] = QueryResult{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: expand(r.Metadata),
				Distance: 1 - r.Similarity,
			}
		}
		sort.SliceStable(items, func(a, b int) bool { return items[a].Distance < items[b].Distance })
		out[i] = items
	}
	return out, nil
}

func (s *ChromemStore) Get(ctx context.Context, collection string, req GetRequest) ([]Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	where, err := flatten(req.Where)
	if err != nil {
		return nil, storageErr("get", ErrorUnsupportedFilter, "embedded store only supports equality filters on scalar values", err)
	}

	var docs []Document
	if len(req.IDs) > 0 {
		for _, id := range req.IDs {
			d, err := c.GetByID(ctx, id)
			if err != nil {
				// Unknown IDs are skipped, matching Chroma's get semantics.
				continue
			}
			if !matches(d.Metadata, where) {
				continue
			}
			docs = append(docs, fromChromem(d))
		}
	} else if count := c.Count(); count > 0 {
		// chromem has no scan API; a full-size query over the filtered set
		// returns every matching document.
		res, err := c.Query(ctx, probeText(where), count, where, nil)
		if err != nil {
			return nil, storageErr("get", ErrorBackend, "", err)
		}
		for _, r := range res {
			docs = append(docs, Document{ID: r.ID, Content: r.Content, Metadata: expand(r.Metadata)})
		}
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	}

	return paginate(docs, req.Offset, req.Limit), nil
}

func (s *ChromemStore) Delete(ctx context.Context, collection string, ids []string, where map[string]any) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if len(ids) == 0 && len(where) == 0 {
		return storageErr("delete", ErrorValidation, "ids or where is required", nil)
	}
	flat, err := flatten(where)
	if err != nil {
		return storageErr("delete", ErrorUnsupportedFilter, "embedded store only supports equality filters on scalar values", err)
	}
	if err := c.Delete(ctx, flat, nil, ids...); err != nil {
		return storageErr("delete", ErrorBackend, "", err)
	}
	return nil
}

func (s *ChromemStore) Count(_ context.Context, collection string) (int, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func (s *ChromemStore) Heartbeat(context.Context) error { return nil }

func (s *ChromemStore) Close() error { return nil }

// flatten converts metadata or a filter to chromem's string map. Nested
// values (operator expressions, lists) are rejected.
func flatten(m map[string]any) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v.(type) {
		case map[string]any, []any, nil:
			return nil, fmt.Errorf("value for %q is not a scalar", k)
		}
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

func expand(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func matches(md, where map[string]string) bool {
	for k, v := range where {
		if md[k] != v {
			return false
		}
	}
	return true
}

func fromChromem(d chromem.Document) Document {
	return Document{ID: d.ID, Content: d.Content, Metadata: expand(d.Metadata)}
}

func probeText(where map[string]string) string {
	if len(where) == 0 {
		return "*"
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = where[k]
	}
	return strings.Join(parts, " ")
}

func paginate(docs []Document, offset, limit int) []Document {
	if offset > 0 {
		if offset >= len(docs) {
			return []Document{}
		}
		docs = docs[offset:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	if docs == nil {
		return []Document{}
	}
	return docs
}
