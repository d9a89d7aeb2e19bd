package vectordb

// DefaultNResults is the number of results per query text when unset.
const DefaultNResults = 5

// Document is one stored chunk.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"document"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"-"`
}

// CollectionInfo describes a collection. ID equals Name for backends
// without separate identifiers.
type CollectionInfo struct {
	Name     string         `json:"name"`
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryRequest asks for the nearest neighbours of each query text.
type QueryRequest struct {
	QueryTexts []string
	NResults   int
	// Where is an equality filter on metadata, handed to the backend unchanged.
	Where map[string]any
}

// QueryResult is a single neighbour; lower Distance is closer.
type QueryResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Distance float32        `json:"distance"`
}

// GetRequest selects stored documents. With neither IDs nor Where set, every
// document is returned.
type GetRequest struct {
	IDs    []string
	Where  map[string]any
	Limit  int
	Offset int
}

func (r QueryRequest) nResults() int {
	if r.NResults <= 0 {
		return DefaultNResults
	}
	return r.NResults
}
