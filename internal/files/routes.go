package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ziadkadry99/litreview/internal/extract"
	"github.com/ziadkadry99/litreview/internal/logging"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/users"
)

// DocumentProcessor forwards an upload for extraction and indexing.
// *algoclient.Client satisfies it.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, collection, filename, contentType string, data io.Reader) (*rag.IndexResult, error)
}

// DefaultMaxUploadBytes caps a single upload.
const DefaultMaxUploadBytes = 64 << 20

// RoutesDeps holds the dependencies of the file routes.
type RoutesDeps struct {
	Store          *Store
	Auth           *users.Auth
	Processor      DocumentProcessor
	UploadDir      string
	MaxUploadBytes int64
	Log            *logging.Logger
}

// RegisterRoutes mounts /files. Every route requires a logged-in user.
func RegisterRoutes(r chi.Router, deps RoutesDeps) {
	if deps.Log == nil {
		deps.Log = logging.NewNop()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	h := &routeHandler{deps: deps}
	r.Route("/files", func(r chi.Router) {
		r.Use(users.RequireUser(deps.Auth))
		r.Post("/", h.upload)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.rename)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/process", h.process)
	})
}

type routeHandler struct {
	deps RoutesDeps
}

// Indexable reports whether uploads of this type are sent for indexing.
func Indexable(contentType string) bool {
	switch extract.NormalizeType(contentType) {
	case extract.TypePDF, extract.TypeZip:
		return true
	}
	return false
}

func (h *routeHandler) upload(w http.ResponseWriter, r *http.Request) {
	user := users.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	src, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required: " + err.Error()})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading upload: " + err.Error()})
		return
	}

	path, err := h.save(header.Filename, data)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	f, err := h.deps.Store.Create(r.Context(), File{
		UserID:      user.ID,
		Filename:    header.Filename,
		FileType:    header.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		StoragePath: path,
	})
	if err != nil {
		os.Remove(path)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if Indexable(f.FileType) {
		h.forward(r.Context(), f, data)
	}
	writeJSON(w, http.StatusOK, f)
}

// save writes data under a fresh {uuid}{ext} name in the upload directory.
func (h *routeHandler) save(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(h.deps.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(h.deps.UploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

// forward sends the file to the algorithm service. Failures are logged and
// leave the file unprocessed.
func (h *routeHandler) forward(ctx context.Context, f *File, data []byte) {
	if h.deps.Processor == nil {
		return
	}
	collection := users.CollectionName(f.UserID)
	res, err := h.deps.Processor.ProcessDocument(ctx, collection, f.Filename, f.FileType, bytes.NewReader(data))
	if err != nil {
		h.deps.Log.Warn("forwarding upload failed", "file_id", f.ID, "collection", collection, "error", err)
		return
	}
	if err := h.deps.Store.MarkProcessed(ctx, f.ID); err != nil {
		h.deps.Log.Error("marking file processed", "file_id", f.ID, "error", err)
		return
	}
	f.Processed = true
	h.deps.Log.Info("upload indexed", "file_id", f.ID, "collection", collection, "chunks", res.Chunks)
}

func (h *routeHandler) list(w http.ResponseWriter, r *http.Request) {
	user := users.UserFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	list, err := h.deps.Store.List(r.Context(), user.ID, page, perPage)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if list == nil {
		list = []File{}
	}
	writeJSON(w, http.StatusOK, list)
}

// lookup resolves {id} to the caller's file and writes 404 when absent.
func (h *routeHandler) lookup(w http.ResponseWriter, r *http.Request) (*File, bool) {
	user := users.UserFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file id"})
		return nil, false
	}
	f, err := h.deps.Store.GetByID(r.Context(), user.ID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if f == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "File not found"})
		return nil, false
	}
	return f, true
}

func (h *routeHandler) get(w http.ResponseWriter, r *http.Request) {
	if f, ok := h.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, f)
	}
}

func (h *routeHandler) rename(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.NewFilename) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "new_filename is required"})
		return
	}
	if _, err := h.deps.Store.Rename(r.Context(), f.UserID, f.ID, req.NewFilename); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	f.Filename = req.NewFilename
	writeJSON(w, http.StatusOK, f)
}

func (h *routeHandler) remove(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := os.Remove(f.StoragePath); err != nil && !os.IsNotExist(err) {
		h.deps.Log.Warn("removing stored file", "path", f.StoragePath, "error", err)
	}
	if _, err := h.deps.Store.Delete(r.Context(), f.UserID, f.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

// process re-sends a stored file to the algorithm service and reports the
// outcome synchronously.
func (h *routeHandler) process(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !Indexable(f.FileType) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": (&extract.UnsupportedFileTypeError{Type: f.FileType}).Error()})
		return
	}
	if h.deps.Processor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "document processing is not configured"})
		return
	}
	data, err := os.ReadFile(f.StoragePath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("reading stored file: %v", err)})
		return
	}
	res, err := h.deps.Processor.ProcessDocument(r.Context(), users.CollectionName(f.UserID), f.Filename, f.FileType, bytes.NewReader(data))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if err := h.deps.Store.MarkProcessed(r.Context(), f.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
