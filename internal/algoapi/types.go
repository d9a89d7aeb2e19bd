package algoapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ziadkadry99/litreview/internal/llm"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

func invalid(field, msg string) error {
	return &rag.ValidationError{Field: field, Message: msg}
}

type EmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

func (r EmbeddingRequest) Validate() error {
	if len(r.Input) == 0 {
		return invalid("input", "at least one text is required")
	}
	return nil
}

type EmbeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type EmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
}

type CreateCollectionRequest struct {
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GetOrCreate bool           `json:"get_or_create"`
}

func (r CreateCollectionRequest) Validate() error {
	if r.Name == "" {
		return invalid("name", "is required")
	}
	return nil
}

type AddDocumentsRequest struct {
	CollectionName string           `json:"collection_name"`
	Documents      []string         `json:"documents"`
	IDs            []string         `json:"ids"`
	Metadatas      []map[string]any `json:"metadatas,omitempty"`
}

func (r AddDocumentsRequest) Validate() error {
	if r.CollectionName == "" {
		return invalid("collection_name", "is required")
	}
	if len(r.Documents) == 0 {
		return invalid("documents", "at least one document is required")
	}
	if len(r.IDs) != len(r.Documents) {
		return invalid("ids", fmt.Sprintf("got %d ids for %d documents", len(r.IDs), len(r.Documents)))
	}
	if r.Metadatas != nil && len(r.Metadatas) != len(r.Documents) {
		return invalid("metadatas", fmt.Sprintf("got %d metadatas for %d documents", len(r.Metadatas), len(r.Documents)))
	}
	seen := make(map[string]struct{}, len(r.IDs))
	for _, id := range r.IDs {
		if id == "" {
			return invalid("ids", "ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			return invalid("ids", fmt.Sprintf("duplicate id %q", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (r AddDocumentsRequest) documents() []vectordb.Document {
	docs := make([]vectordb.Document, len(r.Documents))
	for i, text := range r.Documents {
		docs[i] = vectordb.Document{ID: r.IDs[i], Content: text}
		if r.Metadatas != nil {
			docs[i].Metadata = r.Metadatas[i]
		}
	}
	return docs
}

type AddDocumentsResponse struct {
	Status      string   `json:"status"`
	Count       int      `json:"count"`
	Collection  string   `json:"collection"`
	InsertedIDs []string `json:"inserted_ids"`
}

type GetDocumentsRequest struct {
	CollectionName string         `json:"collection_name"`
	IDs            []string       `json:"ids,omitempty"`
	Where          map[string]any `json:"where,omitempty"`
	Limit          int            `json:"limit,omitempty"`
	Offset         int            `json:"offset,omitempty"`
}

func (r GetDocumentsRequest) Validate() error {
	if r.CollectionName == "" {
		return invalid("collection_name", "is required")
	}
	if r.Limit < 0 || r.Offset < 0 {
		return invalid("limit", "limit and offset must not be negative")
	}
	return nil
}

type GetDocumentsResponse struct {
	Documents []vectordb.Document `json:"documents"`
	Count     int                 `json:"count"`
}

type DeleteDocumentsRequest struct {
	CollectionName string         `json:"collection_name"`
	IDs            []string       `json:"ids,omitempty"`
	Where          map[string]any `json:"where,omitempty"`
}

func (r DeleteDocumentsRequest) Validate() error {
	if r.CollectionName == "" {
		return invalid("collection_name", "is required")
	}
	if len(r.IDs) == 0 && len(r.Where) == 0 {
		return invalid("ids", "ids or where is required")
	}
	return nil
}

type QueryRequest struct {
	CollectionName string         `json:"collection_name"`
	QueryTexts     []string       `json:"query_texts"`
	NResults       int            `json:"n_results"`
	Where          map[string]any `json:"where,omitempty"`
}

func (r QueryRequest) Validate() error {
	if r.CollectionName == "" {
		return invalid("collection_name", "is required")
	}
	if len(r.QueryTexts) == 0 {
		return invalid("query_texts", "at least one query text is required")
	}
	for _, q := range r.QueryTexts {
		if q == "" {
			return invalid("query_texts", "query texts must not be empty")
		}
	}
	if r.NResults < 0 {
		return invalid("n_results", "must not be negative")
	}
	return nil
}

type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
	Model    string        `json:"model,omitempty"`
	Stream   bool          `json:"stream"`
}

func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return invalid("messages", "at least one message is required")
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return invalid("messages", fmt.Sprintf("message %d has unknown role %q", i, m.Role))
		}
	}
	return nil
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      llm.Message `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// DefaultContentType is the content type reported when a generate request
// does not name one.
const DefaultContentType = "paragraph"

// GeneratePrompt accepts either a bare string or {"prompt", "type"}.
type GeneratePrompt struct {
	Prompt string `json:"prompt"`
	Type   string `json:"type,omitempty"`
}

func (p *GeneratePrompt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Prompt)
	}
	type plain GeneratePrompt
	return json.Unmarshal(data, (*plain)(p))
}

type GenerateRequest struct {
	Prompt  GeneratePrompt `json:"prompt"`
	Context string         `json:"context,omitempty"`
}

func (r GenerateRequest) Validate() error {
	if r.Prompt.Prompt == "" {
		return invalid("prompt", "is required")
	}
	return nil
}

type GenerateResponse struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

func llmAssistant(content string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: content}
}
