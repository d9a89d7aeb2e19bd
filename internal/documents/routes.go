package documents

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/litreview/internal/algoclient"
	"github.com/ziadkadry99/litreview/internal/llm"
	"github.com/ziadkadry99/litreview/internal/logging"
	"github.com/ziadkadry99/litreview/internal/users"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// Assistant is the part of the algorithm service used for generation.
// *algoclient.Client satisfies it.
type Assistant interface {
	Generate(ctx context.Context, prompt, retrieved string) (string, error)
	QueryRelated(ctx context.Context, collection, text string, n int) ([]string, error)
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// GenerateTypeChat sends the prompt as a plain chat message without
// retrieval.
const GenerateTypeChat = "chat"

// RoutesDeps holds the dependencies of the document routes.
type RoutesDeps struct {
	Store     *Store
	Auth      *users.Auth
	Assistant Assistant
	Exporter  *Exporter
	Log       *logging.Logger
}

// RegisterRoutes mounts /documents. Every route requires a logged-in user.
func RegisterRoutes(r chi.Router, deps RoutesDeps) {
	if deps.Log == nil {
		deps.Log = logging.NewNop()
	}
	if deps.Exporter == nil {
		deps.Exporter = NewExporter(nil)
	}
	h := &routeHandler{deps: deps}
	r.Route("/documents", func(r chi.Router) {
		r.Use(users.RequireUser(deps.Auth))
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/generate", h.generate)
		r.Post("/{id}/export", h.export)
	})
}

type routeHandler struct {
	deps RoutesDeps
}

func (h *routeHandler) create(w http.ResponseWriter, r *http.Request) {
	user := users.UserFromContext(r.Context())
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	d, err := h.deps.Store.Create(r.Context(), user.ID, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *routeHandler) list(w http.ResponseWriter, r *http.Request) {
	user := users.UserFromContext(r.Context())
	docs, err := h.deps.Store.List(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// documentID parses {id}, writing 400 on failure.
func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document id"})
		return 0, false
	}
	return id, true
}

// lookup resolves {id} to the caller's document and writes 404 when absent.
func (h *routeHandler) lookup(w http.ResponseWriter, r *http.Request) (*Document, bool) {
	id, ok := documentID(w, r)
	if !ok {
		return nil, false
	}
	user := users.UserFromContext(r.Context())
	d, err := h.deps.Store.GetByID(r.Context(), user.ID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if d == nil {
		notFound(w)
		return nil, false
	}
	return d, true
}

func (h *routeHandler) get(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, d)
	}
}

func (h *routeHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	user := users.UserFromContext(r.Context())
	d, err := h.deps.Store.Update(r.Context(), user.ID, id, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if d == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *routeHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	user := users.UserFromContext(r.Context())
	deleted, err := h.deps.Store.Delete(r.Context(), user.ID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !deleted {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

func (h *routeHandler) generate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if h.deps.Assistant == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "generation is not configured"})
		return
	}

	if req.Type == GenerateTypeChat {
		content, err := h.deps.Assistant.Chat(r.Context(), []llm.Message{{Role: llm.RoleUser, Content: req.Prompt}})
		if err != nil {
			h.upstreamError(w, "chat", err)
			return
		}
		writeJSON(w, http.StatusOK, GenerateResponse{Content: content, Type: GenerateTypeChat})
		return
	}

	collection := users.CollectionName(d.UserID)
	related, err := h.deps.Assistant.QueryRelated(r.Context(), collection, d.Title, algoclient.DefaultRelated)
	if err != nil {
		if !errors.Is(err, vectordb.ErrCollectionNotFound) {
			h.upstreamError(w, "query related", err)
			return
		}
		h.deps.Log.Info("no uploads indexed yet, generating without context", "collection", collection)
	}

	content, err := h.deps.Assistant.Generate(r.Context(), req.Prompt, strings.Join(related, "\n\n"))
	if err != nil {
		h.upstreamError(w, "generate", err)
		return
	}
	typ := req.Type
	if typ == "" {
		typ = string(SectionParagraph)
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Content: content, Type: typ})
}

func (h *routeHandler) upstreamError(w http.ResponseWriter, op string, err error) {
	h.deps.Log.Warn("algorithm service call failed", "op", op, "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to " + op + ": " + err.Error()})
}

func (h *routeHandler) export(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !req.Format.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Unsupported export format"})
		return
	}

	out, err := h.deps.Exporter.Export(r.Context(), d, req.Format)
	if err != nil {
		h.deps.Log.Error("export failed", "document_id", d.ID, "format", req.Format, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Document not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
