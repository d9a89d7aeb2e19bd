package vectordb

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound matches every *CollectionNotFoundError via errors.Is.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCollectionExists is returned by CreateCollection for a taken name.
	ErrCollectionExists = errors.New("collection already exists")
)

// CollectionNotFoundError names the collection that was looked up.
type CollectionNotFoundError struct {
	Name string
}

func (e *CollectionNotFoundError) Error() string {
	return fmt.Sprintf("collection %q not found", e.Name)
}

func (e *CollectionNotFoundError) Is(target error) bool {
	return target == ErrCollectionNotFound
}

type ErrorCode string

const (
	ErrorValidation        ErrorCode = "validation_failed"
	ErrorUnsupportedFilter ErrorCode = "unsupported_filter"
	ErrorEncodeFailed      ErrorCode = "encode_failed"
	ErrorDecodeFailed      ErrorCode = "decode_failed"
	ErrorTransportFailed   ErrorCode = "transport_failed"
	ErrorTimeout           ErrorCode = "timeout"
	ErrorBackend           ErrorCode = "backend_failed"
	ErrorEmbedFailed       ErrorCode = "embed_failed"
)

// StorageError reports a failed vector store operation.
type StorageError struct {
	Code       ErrorCode
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *StorageError) Error() string {
	detail := e.Message
	if detail == "" && e.Cause != nil {
		detail = e.Cause.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("vector store %s failed (%s, status %d): %s", e.Op, e.Code, e.StatusCode, detail)
	}
	return fmt.Sprintf("vector store %s failed (%s): %s", e.Op, e.Code, detail)
}

func (e *StorageError) Unwrap() error { return e.Cause }

func storageErr(op string, code ErrorCode, msg string, cause error) error {
	return &StorageError{Code: code, Op: op, Message: msg, Cause: cause}
}

// IsValidation reports whether err is a StorageError caused by bad input.
func IsValidation(err error) bool {
	var se *StorageError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == ErrorValidation || se.Code == ErrorUnsupportedFilter
}
