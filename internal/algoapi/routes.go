// Package algoapi is the HTTP surface of the algorithm service: embeddings,
// collection management, similarity queries, generation and document
// processing.
package algoapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ziadkadry99/litreview/internal/embeddings"
	"github.com/ziadkadry99/litreview/internal/logging"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// DefaultCollection receives uploads that do not name a collection.
const DefaultCollection = "default"

// DefaultMaxUploadBytes caps multipart uploads to /document/process.
const DefaultMaxUploadBytes = 64 << 20

// RoutesDeps holds everything the algorithm routes need.
type RoutesDeps struct {
	Store          vectordb.Store
	Embedder       embeddings.Embedder
	Retriever      *rag.Retriever
	Generator      *rag.Generator
	Processor      *rag.Processor
	MaxUploadBytes int64
	Log            *logging.Logger
}

// RegisterRoutes mounts the algorithm service API.
func RegisterRoutes(r chi.Router, deps RoutesDeps) {
	if deps.Log == nil {
		deps.Log = logging.NewNop()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	h := &routeHandler{deps: deps}

	r.Post("/embedding/", h.embed)

	r.Route("/vector-db", func(r chi.Router) {
		r.Post("/collections", h.createCollection)
		r.Get("/collections", h.listCollections)
		r.Get("/collections/{name}", h.getCollection)
		r.Delete("/collections/{name}", h.deleteCollection)
		r.Post("/documents", h.addDocuments)
		r.Post("/documents/get", h.getDocuments)
		r.Post("/documents/delete", h.deleteDocuments)
		r.Post("/query", h.query)
	})

	r.Route("/llm", func(r chi.Router) {
		r.Post("/chat", h.chat)
		r.Post("/chat/stream", h.chatStream)
		r.Post("/generate", h.generate)
	})

	r.Post("/document/process", h.processDocument)
}

type routeHandler struct {
	deps RoutesDeps
}

func (h *routeHandler) embed(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	vecs, err := h.deps.Embedder.Embed(r.Context(), req.Input)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("embedding failed: %v", err)})
		return
	}

	resp := EmbeddingResponse{Object: "list", Model: h.deps.Embedder.Name(), Data: make([]EmbeddingData, len(vecs))}
	for i, v := range vecs {
		resp.Data[i] = EmbeddingData{Object: "embedding", Embedding: v, Index: i}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *routeHandler) createCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	info, err := h.deps.Store.CreateCollection(r.Context(), req.Name, req.Metadata)
	if errors.Is(err, vectordb.ErrCollectionExists) && req.GetOrCreate {
		info, err = h.deps.Store.GetCollection(r.Context(), req.Name)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": rag.StatusSuccess, "collection": info})
}

func (h *routeHandler) listCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := h.deps.Store.ListCollections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if cols == nil {
		cols = []vectordb.CollectionInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": cols})
}

func (h *routeHandler) getCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := h.deps.Store.GetCollection(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := h.deps.Store.Count(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     info.Name,
		"id":       info.ID,
		"metadata": info.Metadata,
		"count":    count,
	})
}

func (h *routeHandler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.deps.Store.GetCollection(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Store.DeleteCollection(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	h.deps.Log.Info("deleted collection", "collection", name)
	writeJSON(w, http.StatusOK, map[string]string{"status": rag.StatusSuccess, "deleted_collection": name})
}

func (h *routeHandler) addDocuments(w http.ResponseWriter, r *http.Request) {
	var req AddDocumentsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Store.Add(r.Context(), req.CollectionName, req.documents()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AddDocumentsResponse{
		Status:      rag.StatusSuccess,
		Count:       len(req.IDs),
		Collection:  req.CollectionName,
		InsertedIDs: req.IDs,
	})
}

func (h *routeHandler) getDocuments(w http.ResponseWriter, r *http.Request) {
	var req GetDocumentsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	docs, err := h.deps.Store.Get(r.Context(), req.CollectionName, vectordb.GetRequest{
		IDs:    req.IDs,
		Where:  req.Where,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []vectordb.Document{}
	}
	writeJSON(w, http.StatusOK, GetDocumentsResponse{Documents: docs, Count: len(docs)})
}

func (h *routeHandler) deleteDocuments(w http.ResponseWriter, r *http.Request) {
	var req DeleteDocumentsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Store.Delete(r.Context(), req.CollectionName, req.IDs, req.Where); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": rag.StatusSuccess, "collection": req.CollectionName})
}

func (h *routeHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.deps.Retriever.Query(r.Context(), req.CollectionName, vectordb.QueryRequest{
		QueryTexts: req.QueryTexts,
		NResults:   req.NResults,
		Where:      req.Where,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *routeHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Stream {
		h.chatStream(w, r)
		return
	}

	resp, err := h.deps.Generator.Chat(r.Context(), req.Model, req.Messages)
	if err != nil {
		writeError(w, err)
		return
	}
	id := resp.ID
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []ChatChoice{{
			Index:        0,
			Message:      llmAssistant(resp.Content),
			FinishReason: resp.FinishReason,
		}},
		Usage: ChatUsage{
			PromptTokens:     resp.InputTokens,
			CompletionTokens: resp.OutputTokens,
			TotalTokens:      resp.InputTokens + resp.OutputTokens,
		},
	})
}

func (h *routeHandler) chatStream(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "streaming chat is not supported"})
}

func (h *routeHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	content, err := h.deps.Generator.Generate(r.Context(), req.Prompt.Prompt, req.Context)
	if err != nil {
		h.deps.Log.Warn("generation failed", "error", err)
		writeError(w, err)
		return
	}
	typ := req.Prompt.Type
	if typ == "" {
		typ = DefaultContentType
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Content: content, Type: typ})
}

func (h *routeHandler) processDocument(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection_name")
	if collection == "" {
		collection = DefaultCollection
	}
	fail := func(err error) {
		h.deps.Log.Warn("document processing failed", "collection", collection, "error", err)
		writeJSON(w, statusFor(err), rag.IndexResult{Status: rag.StatusError, Message: err.Error(), Collection: collection})
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		fail(&rag.ValidationError{Field: "file", Message: err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(&rag.ValidationError{Field: "file", Message: err.Error()})
		return
	}

	res, err := h.deps.Processor.Process(r.Context(), rag.Upload{
		Filename:   header.Filename,
		MIMEType:   header.Header.Get("Content-Type"),
		Data:       data,
		Collection: collection,
	})
	if err != nil {
		fail(err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
