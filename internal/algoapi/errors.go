package algoapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ziadkadry99/litreview/internal/extract"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// statusFor maps a domain error to the HTTP status returned to clients.
func statusFor(err error) int {
	var (
		ve *rag.ValidationError
		ue *extract.UnsupportedFileTypeError
		xe *extract.ExtractionError
		se *vectordb.StorageError
		ge *rag.GenerationError
	)
	switch {
	case errors.As(err, &ve), vectordb.IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &ue):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &xe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vectordb.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vectordb.ErrCollectionExists):
		return http.StatusConflict
	case errors.As(err, &se), errors.As(err, &ge):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v interface{ Validate() error }) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &rag.ValidationError{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	return v.Validate()
}
