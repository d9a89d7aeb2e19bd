package extract

import "fmt"

// UnsupportedFileTypeError is returned for declared types that have no extractor.
type UnsupportedFileTypeError struct {
	Type string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Type)
}

// ExtractionError means the file had a supported type but its content could
// not be read.
type ExtractionError struct {
	Type string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Type, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
