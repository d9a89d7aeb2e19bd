package rag

import (
	"context"
	"fmt"
	"os"

	"github.com/ziadkadry99/litreview/internal/chunker"
	"github.com/ziadkadry99/litreview/internal/extract"
)

// Upload is one document to be turned into indexed chunks.
type Upload struct {
	Filename   string
	MIMEType   string
	Data       []byte
	Collection string
}

// Processor runs extract, chunk and index for uploaded documents.
type Processor struct {
	extractor *extract.Extractor
	indexer   *Indexer
	maxWords  int
}

func NewProcessor(extractor *extract.Extractor, indexer *Indexer, maxWords int) *Processor {
	return &Processor{extractor: extractor, indexer: indexer, maxWords: maxWords}
}

// Process indexes u.Data into u.Collection. Extraction errors keep their
// type so callers can map unsupported types separately.
func (p *Processor) Process(ctx context.Context, u Upload) (*IndexResult, error) {
	text, err := p.extractor.Extract(ctx, u.Data, u.MIMEType)
	if err != nil {
		return nil, err
	}
	chunks := chunker.Chunk(text, p.maxWords)
	return p.indexer.Index(ctx, u.Collection, SourceStem(u.Filename), chunks)
}

// ProcessFile reads path and processes it with the given declared type.
func (p *Processor) ProcessFile(ctx context.Context, path, mimeType, collection string) (*IndexResult, error) {
	if !extract.Supported(mimeType) {
		return nil, &extract.UnsupportedFileTypeError{Type: mimeType}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.Process(ctx, Upload{Filename: path, MIMEType: mimeType, Data: data, Collection: collection})
}
