// Package algoclient calls the algorithm service from the document service.
package algoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/ziadkadry99/litreview/internal/algoapi"
	"github.com/ziadkadry99/litreview/internal/llm"
	"github.com/ziadkadry99/litreview/internal/rag"
	"github.com/ziadkadry99/litreview/internal/vectordb"
)

// DefaultRelated is how many chunks QueryRelated asks for by default.
const DefaultRelated = 3

// APIError is a non-2xx answer from the algorithm service.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("algorithm service %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Client talks JSON over HTTP to an algoapi server.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Generate asks for review text built from prompt and retrieved context.
func (c *Client) Generate(ctx context.Context, prompt, retrieved string) (string, error) {
	req := algoapi.GenerateRequest{Prompt: algoapi.GeneratePrompt{Prompt: prompt}, Context: retrieved}
	var resp algoapi.GenerateResponse
	if err := c.doJSON(ctx, "generate", http.MethodPost, "/llm/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// QueryRelated returns the documents nearest to text in collection. A
// missing collection is reported as vectordb.ErrCollectionNotFound.
func (c *Client) QueryRelated(ctx context.Context, collection, text string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultRelated
	}
	req := algoapi.QueryRequest{CollectionName: collection, QueryTexts: []string{text}, NResults: n}
	var resp rag.QueryResponse
	err := c.doJSON(ctx, "query", http.MethodPost, "/vector-db/query", req, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", &vectordb.CollectionNotFoundError{Name: collection}, err)
		}
		return nil, err
	}
	if len(resp.Documents) == 0 {
		return nil, nil
	}
	return resp.Documents[0], nil
}

// Chat sends messages and returns the content of the first choice.
func (c *Client) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var resp algoapi.ChatResponse
	if err := c.doJSON(ctx, "chat", http.MethodPost, "/llm/chat", algoapi.ChatRequest{Messages: messages}, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Op: "chat", StatusCode: http.StatusOK, Message: "response has no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// ProcessDocument uploads a file for extraction and indexing into
// collection.
func (c *Client) ProcessDocument(ctx context.Context, collection, filename, contentType string, data io.Reader) (*rag.IndexResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("copying upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	path := "/document/process?collection_name=" + url.QueryEscape(collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return nil, fmt.Errorf("building process request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res rag.IndexResult
	if err := c.do(req, "process", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling algorithm service %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}

// errorMessage pulls "error" or "message" out of a JSON error body and
// falls back to the raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}
