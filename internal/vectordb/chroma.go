package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ziadkadry99/litreview/internal/embeddings"
	"github.com/ziadkadry99/litreview/internal/logging"
)

const maxErrorBodyBytes = 512

// ChromaConfig points at a Chroma server speaking the v1 REST API.
type ChromaConfig struct {
	URL      string
	Tenant   string
	Database string
	Timeout  time.Duration
}

// ChromaStore is a Store backed by a remote Chroma server. Embeddings are
// computed client-side so that every backend uses the same model.
type ChromaStore struct {
	log      *logging.Logger
	baseURL  string
	query    url.Values
	embedder embeddings.Embedder
	http     *http.Client
}

// NewChromaStore builds a client. It does not contact the server; call
// Heartbeat to verify connectivity.
func NewChromaStore(log *logging.Logger, cfg ChromaConfig, embedder embeddings.Embedder) (*ChromaStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("chroma url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid chroma url %q: %w", cfg.URL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	q := url.Values{}
	if cfg.Tenant != "" {
		q.Set("tenant", cfg.Tenant)
	}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &ChromaStore{
		log:      log.With("component", "chroma"),
		baseURL:  base + "/api/v1",
		query:    q,
		embedder: embedder,
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chromaCollection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

func (c chromaCollection) info() *CollectionInfo {
	return &CollectionInfo{Name: c.Name, ID: c.ID, Metadata: c.Metadata}
}

func (s *ChromaStore) Heartbeat(ctx context.Context) error {
	return s.doJSON(ctx, "heartbeat", http.MethodGet, "/heartbeat", nil, nil)
}

func (s *ChromaStore) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	c, err := s.lookup(ctx, "get_collection", name)
	if err != nil {
		return nil, err
	}
	return c.info(), nil
}

func (s *ChromaStore) lookup(ctx context.Context, op, name string) (*chromaCollection, error) {
	var c chromaCollection
	err := s.doJSON(ctx, op, http.MethodGet, "/collections/"+url.PathEscape(name), nil, &c)
	if err != nil {
		if isMissing(err) {
			return nil, &CollectionNotFoundError{Name: name}
		}
		return nil, err
	}
	return &c, nil
}

func (s *ChromaStore) CreateCollection(ctx context.Context, name string, metadata map[string]any) (*CollectionInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, storageErr("create_collection", ErrorValidation, "collection name is required", nil)
	}
	body := map[string]any{"name": name, "get_or_create": false}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}
	var c chromaCollection
	if err := s.doJSON(ctx, "create_collection", http.MethodPost, "/collections", body, &c); err != nil {
		if isConflict(err) {
			return nil, ErrCollectionExists
		}
		return nil, err
	}
	return c.info(), nil
}

func (s *ChromaStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	var cols []chromaCollection
	if err := s.doJSON(ctx, "list_collections", http.MethodGet, "/collections", nil, &cols); err != nil {
		return nil, err
	}
	infos := make([]CollectionInfo, len(cols))
	for i, c := range cols {
		infos[i] = *c.info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *ChromaStore) DeleteCollection(ctx context.Context, name string) error {
	err := s.doJSON(ctx, "delete_collection", http.MethodDelete, "/collections/"+url.PathEscape(name), nil, nil)
	if err != nil && isMissing(err) {
		return &CollectionNotFoundError{Name: name}
	}
	return err
}

type chromaAddRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Documents  []string         `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
}

func (s *ChromaStore) Add(ctx context.Context, collection string, docs []Document) error {
	c, err := s.lookup(ctx, "add", collection)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	req := chromaAddRequest{
		IDs:       make([]string, len(docs)),
		Documents: make([]string, len(docs)),
	}
	hasMeta := false
	for i, d := range docs {
		if d.ID == "" {
			return storageErr("add", ErrorValidation, fmt.Sprintf("document %d has no id", i), nil)
		}
		req.IDs[i] = d.ID
		req.Documents[i] = d.Content
		if len(d.Metadata) > 0 {
			hasMeta = true
		}
	}
	if hasMeta {
		req.Metadatas = make([]map[string]any, len(docs))
		for i, d := range docs {
			req.Metadatas[i] = d.Metadata
		}
	}
	req.Embeddings, err = s.embed(ctx, "add", docs)
	if err != nil {
		return err
	}

	return s.doJSON(ctx, "add", http.MethodPost, "/collections/"+c.ID+"/add", req, nil)
}

func (s *ChromaStore) embed(ctx context.Context, op string, docs []Document) ([][]float32, error) {
	vecs := make([][]float32, len(docs))
	var missing []string
	var idx []int
	for i, d := range docs {
		if len(d.Embedding) > 0 {
			vecs[i] = d.Embedding
			continue
		}
		missing = append(missing, d.Content)
		idx = append(idx, i)
	}
	if len(missing) == 0 {
		return vecs, nil
	}
	out, err := s.embedder.Embed(ctx, missing)
	if err != nil {
		return nil, storageErr(op, ErrorEmbedFailed, "embedding documents failed", err)
	}
	if len(out) != len(missing) {
		return nil, storageErr(op, ErrorEmbedFailed, fmt.Sprintf("embedder returned %d vectors for %d texts", len(out), len(missing)), nil)
	}
	for j, i := range idx {
		vecs[i] = out[j]
	}
	return vecs, nil
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float32    `json:"query_embeddings"`
	NResults        int            `json:"n_results"`
	Where           map[string]any `json:"where,omitempty"`
	Include         []string       `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]*string        `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float32        `json:"distances"`
}

func (s *ChromaStore) Query(ctx context.Context, collection string, req QueryRequest) ([][]QueryResult, error) {
	c, err := s.lookup(ctx, "query", collection)
	if err != nil {
		return nil, err
	}
	if len(req.QueryTexts) == 0 {
		return [][]QueryResult{}, nil
	}

	vecs, err := s.embedder.Embed(ctx, req.QueryTexts)
	if err != nil {
		return nil, storageErr("query", ErrorEmbedFailed, "embedding query failed", err)
	}

	var resp chromaQueryResponse
	err = s.doJSON(ctx, "query", http.MethodPost, "/collections/"+c.ID+"/query", chromaQueryRequest{
		QueryEmbeddings: vecs,
		NResults:        req.nResults(),
		Where:           req.Where,
		Include:         []string{"documents", "metadatas", "distances"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([][]QueryResult, len(req.QueryTexts))
	for q := range out {
		items := []QueryResult{}
		if q < len(resp.IDs) {
			for j, id := range resp.IDs[q] {
				item := QueryResult{ID: id}
				if doc := at(resp.Documents, q, j); doc != nil {
					item.Content = *doc
				}
				item.Metadata = at(resp.Metadatas, q, j)
				if q < len(resp.Distances) && j < len(resp.Distances[q]) {
					item.Distance = resp.Distances[q][j]
				}
				items = append(items, item)
			}
		}
		sort.SliceStable(items, func(a, b int) bool { return items[a].Distance < items[b].Distance })
		out[q] = items
	}
	return out, nil
}

func at[T any](rows [][]T, i, j int) T {
	var zero T
	if i >= len(rows) || j >= len(rows[i]) {
		return zero
	}
	return rows[i][j]
}

type chromaGetRequest struct {
	IDs     []string       `json:"ids,omitempty"`
	Where   map[string]any `json:"where,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
	Include []string       `json:"include"`
}

type chromaGetResponse struct {
	IDs       []string         `json:"ids"`
	Documents []*string        `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

func (s *ChromaStore) Get(ctx context.Context, collection string, req GetRequest) ([]Document, error) {
	c, err := s.lookup(ctx, "get", collection)
	if err != nil {
		return nil, err
	}
	var resp chromaGetResponse
	err = s.doJSON(ctx, "get", http.MethodPost, "/collections/"+c.ID+"/get", chromaGetRequest{
		IDs:     req.IDs,
		Where:   req.Where,
		Limit:   req.Limit,
		Offset:  req.Offset,
		Include: []string{"documents", "metadatas"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(resp.IDs))
	for i, id := range resp.IDs {
		docs[i] = Document{ID: id}
		if i < len(resp.Documents) && resp.Documents[i] != nil {
			docs[i].Content = *resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			docs[i].Metadata = resp.Metadatas[i]
		}
	}
	return docs, nil
}

func (s *ChromaStore) Delete(ctx context.Context, collection string, ids []string, where map[string]any) error {
	if len(ids) == 0 && len(where) == 0 {
		return storageErr("delete", ErrorValidation, "ids or where is required", nil)
	}
	c, err := s.lookup(ctx, "delete", collection)
	if err != nil {
		return err
	}
	body := map[string]any{}
	if len(ids) > 0 {
		body["ids"] = ids
	}
	if len(where) > 0 {
		body["where"] = where
	}
	return s.doJSON(ctx, "delete", http.MethodPost, "/collections/"+c.ID+"/delete", body, nil)
}

func (s *ChromaStore) Count(ctx context.Context, collection string) (int, error) {
	c, err := s.lookup(ctx, "count", collection)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.doJSON(ctx, "count", http.MethodGet, "/collections/"+c.ID+"/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *ChromaStore) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

func (s *ChromaStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return storageErr(op, ErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	target := s.baseURL + path
	if len(s.query) > 0 {
		target += "?" + s.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return storageErr(op, ErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, err)
	}
	defer resp.Body.Close()
	s.log.Debug("chroma call", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return storageErr(op, ErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StorageError{
			Code:       ErrorBackend,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    truncateBody(raw),
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return storageErr(op, ErrorDecodeFailed, "decode response failed", err)
	}
	return nil
}

func classifyHTTPCallError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return storageErr(op, ErrorTimeout, "chroma request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return storageErr(op, ErrorTimeout, "chroma request timed out", err)
	}
	return storageErr(op, ErrorTransportFailed, "chroma request failed", err)
}

// isMissing recognises Chroma's not-found responses. Older servers answer
// with a 500 and a ValueError message instead of a 404.
func isMissing(err error) bool {
	var se *StorageError
	if !errors.As(err, &se) || se.StatusCode == 0 {
		return false
	}
	if se.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(se.Message), "does not exist")
}

func isConflict(err error) bool {
	var se *StorageError
	if !errors.As(err, &se) || se.StatusCode == 0 {
		return false
	}
	if se.StatusCode == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(se.Message)
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "uniqueconstraint")
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
